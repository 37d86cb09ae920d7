// Package eventsync builds the after-commit hooks that keep cached event
// data and live subscribers in step with the database.
package eventsync

import (
	"context"
	"log/slog"

	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/kirinyoku/eventhub/internal/uow"
)

type Notifier struct {
	cache  *redisrepo.Cache
	pubsub *redisrepo.EventsPubSub
	logger *slog.Logger
}

func New(cache *redisrepo.Cache, pubsub *redisrepo.EventsPubSub, logger *slog.Logger) *Notifier {
	return &Notifier{cache: cache, pubsub: pubsub, logger: logger}
}

// Changed returns a hook that drops the cached views of eventID and
// announces the change. Failures are logged; the cache entries expire on
// their own.
func (n *Notifier) Changed(eventID int64, reason string) uow.AfterCommit {
	return func(ctx context.Context) {
		n.Notify(ctx, eventID, reason)
	}
}

func (n *Notifier) Notify(ctx context.Context, eventID int64, reason string) {
	if n == nil {
		return
	}

	if err := n.cache.InvalidateEvent(ctx, eventID); err != nil {
		n.logger.Warn("invalidate event cache", "event_id", eventID, "error", err)
	}

	if err := n.pubsub.PublishEventChanged(ctx, eventID, reason); err != nil {
		n.logger.Warn("publish event change", "event_id", eventID, "error", err)
	}
}
