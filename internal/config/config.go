package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	LogLevel  slog.Level
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Inventory InventoryConfig
	Pricing   PricingConfig
	Tickets   TicketsConfig
	Media     MediaConfig
	Kafka     KafkaConfig
	Analytics AnalyticsConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// CORSOrigins lists the allowed browser origins. Empty allows any.
	CORSOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// PoolSize of zero keeps the client default of ten per CPU.
	PoolSize int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

// DSN builds the pgx connection URL.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

type AuthConfig struct {
	SessionTTL  time.Duration
	AdminEmails []string
}

type InventoryConfig struct {
	DefaultHoldTTL time.Duration
	MinHoldTTL     time.Duration
	MaxHoldTTL     time.Duration
	SweepInterval  time.Duration
}

type PricingConfig struct {
	FeePercent decimal.Decimal
	FixedFee   int64
	Currency   string
}

type TicketsConfig struct {
	// SigningSeed is the Ed25519 seed for ticket codes. Nil means an
	// ephemeral key is generated at startup.
	SigningSeed []byte
}

type MediaConfig struct {
	Dir      string
	MaxBytes int64
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type AnalyticsConfig struct {
	FlushInterval time.Duration
}

type RateLimitConfig struct {
	HoldsPerMinute  int
	LoginsPerMinute int
	GlobalRPS       float64
	GlobalBurst     int
}

// New reads the configuration from the environment. When envFile is not
// empty it is loaded first; otherwise a .env in the working directory is
// loaded if present.
func New(envFile string) (*Config, error) {
	const op = "config.New"

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("%s: load %s: %w", op, envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	var err error

	if err := cfg.LogLevel.UnmarshalText([]byte(envString("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%s: invalid LOG_LEVEL: %w", op, err)
	}

	cfg.Server.Host = envString("SERVER_HOST", "localhost")
	if cfg.Server.Port, err = envInt("SERVER_PORT", 8080); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Server.ReadTimeout, err = envDuration("SERVER_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// The availability stream keeps connections open, so no write timeout
	// by default.
	if cfg.Server.WriteTimeout, err = envDuration("SERVER_WRITE_TIMEOUT", 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.Server.CORSOrigins = envList("CORS_ORIGINS")

	cfg.Postgres.Host = envString("POSTGRES_HOST", "localhost")
	if cfg.Postgres.Port, err = envInt("POSTGRES_PORT", 5432); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Postgres.User = os.Getenv("POSTGRES_USER")
	if cfg.Postgres.User == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	cfg.Postgres.Password = os.Getenv("POSTGRES_PASSWORD")
	if cfg.Postgres.Password == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	cfg.Postgres.Name = os.Getenv("POSTGRES_DB")
	if cfg.Postgres.Name == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	cfg.Postgres.SSLMode = envString("POSTGRES_SSLMODE", "disable")

	maxConns, err := envInt("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.Postgres.MaxConns = int32(maxConns)

	cfg.Redis.Addr = envString("REDIS_ADDR", "localhost:6380")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Redis.PoolSize, err = envInt("REDIS_POOL_SIZE", 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Auth.SessionTTL, err = envDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.Auth.AdminEmails = envList("ADMIN_EMAILS")
	for i, e := range cfg.Auth.AdminEmails {
		cfg.Auth.AdminEmails[i] = strings.ToLower(e)
	}

	if cfg.Inventory.DefaultHoldTTL, err = envDuration("HOLD_DEFAULT_TTL", 10*time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Inventory.MinHoldTTL, err = envDuration("HOLD_MIN_TTL", time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Inventory.MaxHoldTTL, err = envDuration("HOLD_MAX_TTL", 15*time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Inventory.MaxHoldTTL < cfg.Inventory.MinHoldTTL {
		return nil, fmt.Errorf("%s: HOLD_MAX_TTL is lower than HOLD_MIN_TTL", op)
	}
	if cfg.Inventory.SweepInterval, err = envDuration("HOLD_SWEEP_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Pricing.FeePercent, err = decimal.NewFromString(envString("SERVICE_FEE_PERCENT", "0"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid SERVICE_FEE_PERCENT: %w", op, err)
	}
	if cfg.Pricing.FeePercent.IsNegative() {
		return nil, fmt.Errorf("%s: SERVICE_FEE_PERCENT must not be negative", op)
	}
	fixedFee, err := envInt("SERVICE_FEE_FIXED_CENTS", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.Pricing.FixedFee = int64(fixedFee)
	cfg.Pricing.Currency = strings.ToUpper(envString("CURRENCY", "USD"))

	if seed := os.Getenv("TICKET_SIGNING_SEED"); seed != "" {
		b, err := hex.DecodeString(seed)
		if err != nil || len(b) != 32 {
			return nil, fmt.Errorf("%s: TICKET_SIGNING_SEED must be 64 hex characters", op)
		}
		cfg.Tickets.SigningSeed = b
	}

	cfg.Media.Dir = envString("MEDIA_DIR", "./media")
	maxBytes, err := envInt("MEDIA_MAX_BYTES", 5<<20)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.Media.MaxBytes = int64(maxBytes)

	cfg.Kafka.Brokers = envList("KAFKA_BROKERS")
	cfg.Kafka.TopicPrefix = envString("KAFKA_TOPIC_PREFIX", "eventhub")

	if cfg.Analytics.FlushInterval, err = envDuration("ANALYTICS_FLUSH_INTERVAL", 30*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.RateLimit.HoldsPerMinute, err = envInt("RATE_LIMIT_HOLDS_PER_MINUTE", 10); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.RateLimit.LoginsPerMinute, err = envInt("RATE_LIMIT_LOGINS_PER_MINUTE", 5); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rps, err := strconv.ParseFloat(envString("RATE_LIMIT_GLOBAL_RPS", "200"), 64)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid RATE_LIMIT_GLOBAL_RPS: %w", op, err)
	}
	cfg.RateLimit.GlobalRPS = rps
	if cfg.RateLimit.GlobalBurst, err = envInt("RATE_LIMIT_GLOBAL_BURST", 400); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
