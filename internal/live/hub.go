// Package live fans event availability changes out to open streams.
package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/metrics"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
)

// subscriberBuffer is how many snapshots a slow subscriber may lag behind
// before older ones are dropped.
const subscriberBuffer = 4

// AvailabilitySource loads the current availability of an event.
type AvailabilitySource interface {
	Availability(ctx context.Context, eventID int64) (*domain.EventCounts, error)
}

// ChangeFeed delivers event_changed notifications until ctx is done.
type ChangeFeed interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, msg redisrepo.EventChanged)) error
}

type Hub struct {
	source AvailabilitySource
	logger *slog.Logger

	mu   sync.Mutex
	subs map[int64]map[*Subscription]struct{}
}

func NewHub(source AvailabilitySource, logger *slog.Logger) *Hub {
	return &Hub{
		source: source,
		logger: logger,
		subs:   make(map[int64]map[*Subscription]struct{}),
	}
}

// Subscription receives availability snapshots of one event.
type Subscription struct {
	EventID int64
	ch      chan domain.EventCounts
}

func (s *Subscription) C() <-chan domain.EventCounts { return s.ch }

// Subscribe registers a stream for eventID. The returned func must be
// called once the stream ends.
func (h *Hub) Subscribe(eventID int64) (*Subscription, func()) {
	sub := &Subscription{EventID: eventID, ch: make(chan domain.EventCounts, subscriberBuffer)}

	h.mu.Lock()
	set, ok := h.subs[eventID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[eventID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	metrics.LiveSubscribers.Inc()

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[eventID], sub)
			if len(h.subs[eventID]) == 0 {
				delete(h.subs, eventID)
			}
			h.mu.Unlock()
			metrics.LiveSubscribers.Dec()
		})
	}
}

// Subscribers returns the number of open streams for eventID.
func (h *Hub) Subscribers(eventID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[eventID])
}

// Notify loads the availability of eventID once and hands it to every
// subscriber. Subscribers that are not keeping up lose their oldest
// snapshot.
func (h *Hub) Notify(ctx context.Context, eventID int64) {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.subs[eventID]))
	for sub := range h.subs[eventID] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	counts, err := h.source.Availability(ctx, eventID)
	if err != nil {
		h.logger.Warn("live: load availability", "event_id", eventID, "error", err)
		return
	}

	for _, sub := range targets {
		deliver(sub.ch, *counts)
	}
}

func deliver(ch chan domain.EventCounts, v domain.EventCounts) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Run feeds the hub from feed until ctx is done.
func (h *Hub) Run(ctx context.Context, feed ChangeFeed) error {
	h.logger.Info("live hub started")

	err := feed.Subscribe(ctx, func(ctx context.Context, msg redisrepo.EventChanged) {
		h.Notify(ctx, msg.EventID)
	})
	if err != nil && ctx.Err() != nil {
		return nil
	}

	return err
}
