package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventsPubSub broadcasts availability changes of events between
// instances.
type EventsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewEventsPubSub(rdb *redis.Client) *EventsPubSub {
	return &EventsPubSub{
		rdb:     rdb,
		channel: ChannelEventsChanged(),
	}
}

// EventChanged is the message published on every inventory or catalog
// change of an event.
type EventChanged struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
	Reason  string `json:"reason,omitempty"`
	TsUnix  int64  `json:"ts_unix"`
}

func (p *EventsPubSub) PublishEventChanged(ctx context.Context, eventID int64, reason string) error {
	const op = "redisrepo.EventsPubSub.PublishEventChanged"

	b, err := json.Marshal(EventChanged{
		Type:    "event_changed",
		EventID: eventID,
		Reason:  reason,
		TsUnix:  time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Subscribe calls handler for every well-formed message until ctx is done.
func (p *EventsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg EventChanged)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if ev, ok := decodeEventChanged(m.Payload); ok {
				handler(ctx, ev)
			}
		}
	}
}

func decodeEventChanged(payload string) (EventChanged, bool) {
	var ev EventChanged
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.EventID == 0 {
		return EventChanged{}, false
	}
	return ev, true
}
