package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/eventhub/internal/config"
	"github.com/kirinyoku/eventhub/internal/live"
	"github.com/kirinyoku/eventhub/internal/notify"
	"github.com/kirinyoku/eventhub/internal/postgres"
	"github.com/kirinyoku/eventhub/internal/pricing"
	"github.com/kirinyoku/eventhub/internal/redis"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/kirinyoku/eventhub/internal/service"
	"github.com/kirinyoku/eventhub/internal/service/catalog"
	"github.com/kirinyoku/eventhub/internal/service/inventory"
	"github.com/kirinyoku/eventhub/internal/storage/blob"
	"github.com/kirinyoku/eventhub/internal/ticketcode"
	httpgin "github.com/kirinyoku/eventhub/internal/transport/http/gin"
	"github.com/kirinyoku/eventhub/internal/worker"
)

const (
	idempotencyTTL  = 24 * time.Hour
	shutdownTimeout = 5 * time.Second
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool      *pgxpool.Pool
	rdb       *goredis.Client
	publisher notify.Publisher
	pubsub    *redisrepo.EventsPubSub

	hub        *live.Hub
	sweeper    *worker.Sweeper
	flusher    *worker.Flusher
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	pool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN(), MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("%s: postgres: %w", op, err)
	}

	rdb, err := redis.New(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: redis: %w", op, err)
	}

	if cfg.Tickets.SigningSeed == nil {
		logger.Warn("TICKET_SIGNING_SEED is not set; ticket codes will not verify after a restart")
	}
	signer, err := ticketcode.NewSigner(cfg.Tickets.SigningSeed)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	media, err := blob.NewFileStore(cfg.Media.Dir, cfg.Media.MaxBytes)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	publisher := newPublisher(cfg.Kafka, logger)

	// Initialize repositories
	store := postgresrepo.NewStore(pool)
	cache := redisrepo.NewCache(rdb)
	pubsub := redisrepo.NewEventsPubSub(rdb)
	counters := redisrepo.NewCounters(rdb)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, idempotencyTTL)

	// Initialize services
	services := service.NewServices(service.Deps{
		Store:        store,
		Cache:        cache,
		PubSub:       pubsub,
		Sessions:     redisrepo.NewSessionStore(rdb, cfg.Auth.SessionTTL),
		Counters:     counters,
		HoldLimiter:  redisrepo.NewSlidingWindowLimiter(rdb, "holds", cfg.RateLimit.HoldsPerMinute, time.Minute),
		LoginLimiter: redisrepo.NewSlidingWindowLimiter(rdb, "login", cfg.RateLimit.LoginsPerMinute, time.Minute),
		Pricing: pricing.New(pricing.Config{
			FeePercent:    cfg.Pricing.FeePercent,
			FixedFeeCents: cfg.Pricing.FixedFee,
			Currency:      cfg.Pricing.Currency,
		}),
		Signer:    signer,
		Publisher: publisher,
		Logger:    logger,
	}, service.Config{
		Catalog: catalog.Config{},
		Inventory: inventory.Config{
			DefaultHoldTTL: cfg.Inventory.DefaultHoldTTL,
			MinHoldTTL:     cfg.Inventory.MinHoldTTL,
			MaxHoldTTL:     cfg.Inventory.MaxHoldTTL,
		},
		AdminEmails: cfg.Auth.AdminEmails,
	})

	hub := live.NewHub(services.Catalog, logger)

	// Initialize Gin router
	router := httpgin.NewRouter(services, httpgin.Options{
		Idempotency: idempotencyStore,
		Hub:         hub,
		Media:       media,
		Health: func(ctx context.Context) error {
			return errors.Join(store.Ping(ctx), rdb.Ping(ctx).Err())
		},
		CORSOrigins: cfg.Server.CORSOrigins,
		GlobalRPS:   cfg.RateLimit.GlobalRPS,
		GlobalBurst: cfg.RateLimit.GlobalBurst,
	}, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		rdb:       rdb,
		publisher: publisher,
		pubsub:    pubsub,
		hub:       hub,
		sweeper:   worker.NewSweeper(services.Inventory, cfg.Inventory.SweepInterval, logger),
		flusher: worker.NewFlusher(
			counters,
			store.Ads(),
			store.Analytics(),
			cfg.Analytics.FlushInterval,
			logger,
		),
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
	}, nil
}

// newPublisher connects to Kafka when brokers are configured. Without
// brokers, or when Kafka is unreachable, domain events go to the log.
func newPublisher(cfg config.KafkaConfig, logger *slog.Logger) notify.Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("KAFKA_BROKERS is not set; domain events are logged only")
		return notify.NewLogPublisher(logger)
	}

	p, err := notify.NewKafkaPublisher(cfg.Brokers, cfg.TopicPrefix, logger)
	if err != nil {
		logger.Error("kafka unavailable; domain events are logged only", "error", err)
		return notify.NewLogPublisher(logger)
	}

	return p
}

// Migrate applies pending schema migrations.
func (a *App) Migrate(ctx context.Context) error {
	return postgres.Migrate(ctx, a.pool, a.logger)
}

// Run serves HTTP and runs the background workers until SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error { return a.sweeper.Run(gCtx) })
	g.Go(func() error { return a.flusher.Run(gCtx) })
	g.Go(func() error { return a.hub.Run(gCtx, a.pubsub) })

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	err := g.Wait()

	// One last flush so counters taken during shutdown are not left behind.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer flushCancel()
	if ferr := a.flusher.Flush(flushCtx); ferr != nil {
		a.logger.Warn("final counter flush failed", "error", ferr)
	}

	return err
}

// Close releases the connections held by the app.
func (a *App) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("close publisher", "error", err)
	}
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("close redis", "error", err)
	}
	a.pool.Close()
}
