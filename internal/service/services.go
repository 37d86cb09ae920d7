package service

import (
	"log/slog"

	"github.com/kirinyoku/eventhub/internal/notify"
	"github.com/kirinyoku/eventhub/internal/pricing"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/kirinyoku/eventhub/internal/service/ads"
	"github.com/kirinyoku/eventhub/internal/service/analytics"
	"github.com/kirinyoku/eventhub/internal/service/auth"
	"github.com/kirinyoku/eventhub/internal/service/catalog"
	"github.com/kirinyoku/eventhub/internal/service/content"
	"github.com/kirinyoku/eventhub/internal/service/eventsync"
	"github.com/kirinyoku/eventhub/internal/service/favorites"
	"github.com/kirinyoku/eventhub/internal/service/inventory"
	"github.com/kirinyoku/eventhub/internal/service/orders"
	"github.com/kirinyoku/eventhub/internal/service/profiles"
	"github.com/kirinyoku/eventhub/internal/service/settings"
	"github.com/kirinyoku/eventhub/internal/service/tickets"
	"github.com/kirinyoku/eventhub/internal/service/vanity"
	"github.com/kirinyoku/eventhub/internal/ticketcode"
)

type Services struct {
	Catalog   *catalog.Service
	Inventory *inventory.Service
	Orders    *orders.Service
	Tickets   *tickets.Service
	Auth      *auth.Service
	Profiles  *profiles.Service
	Favorites *favorites.Service
	Content   *content.Service
	Vanity    *vanity.Service
	Ads       *ads.Service
	Analytics *analytics.Service
	Settings  *settings.Service
}

type Config struct {
	Catalog     catalog.Config
	Inventory   inventory.Config
	AdminEmails []string
}

// Deps are the adapters the services are built on.
type Deps struct {
	Store        *postgresrepo.Store
	Cache        *redisrepo.Cache
	PubSub       *redisrepo.EventsPubSub
	Sessions     *redisrepo.SessionStore
	Counters     *redisrepo.Counters
	HoldLimiter  *redisrepo.SlidingWindowLimiter
	LoginLimiter *redisrepo.SlidingWindowLimiter
	Pricing      *pricing.Calculator
	Signer       *ticketcode.Signer
	Publisher    notify.Publisher
	Logger       *slog.Logger
}

func NewServices(d Deps, cfg Config) *Services {
	events := eventsync.New(d.Cache, d.PubSub, d.Logger)

	return &Services{
		Catalog:   catalog.New(d.Store, d.Cache, events, cfg.Catalog),
		Inventory: inventory.New(d.Store, events, d.HoldLimiter, cfg.Inventory),
		Orders:    orders.New(d.Store, events, d.Pricing, d.Signer, d.Publisher, d.Logger),
		Tickets:   tickets.New(d.Store, d.Signer, d.Publisher, d.Logger),
		Auth:      auth.New(d.Store, d.Sessions, d.LoginLimiter, cfg.AdminEmails, d.Logger),
		Profiles:  profiles.New(d.Store, d.Logger),
		Favorites: favorites.New(d.Store.Favorites()),
		Content:   content.New(d.Store),
		Vanity:    vanity.New(d.Store, d.Cache, d.Logger),
		Ads:       ads.New(d.Store, d.Counters, d.Logger),
		Analytics: analytics.New(d.Store, d.Counters),
		Settings:  settings.New(d.Store, d.Cache, d.Logger),
	}
}
