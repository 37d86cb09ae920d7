package eventsync

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/go-redis/redismock/v9"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/stretchr/testify/assert"
)

func TestChangedInvalidatesEventKeys(t *testing.T) {
	db, mock := redismock.NewClientMock()
	var logs bytes.Buffer
	n := New(redisrepo.NewCache(db), redisrepo.NewEventsPubSub(db), slog.New(slog.NewTextHandler(&logs, nil)))

	mock.ExpectDel(
		redisrepo.KeyEvent(7),
		redisrepo.KeyEventTicketTypes(7),
		redisrepo.KeyEventAvailability(7),
	).SetVal(3)

	hook := n.Changed(7, "hold_created")
	hook(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
	// The publish is not expected by the mock, so it fails and is logged.
	assert.Contains(t, logs.String(), "publish event change")
}

func TestNotifyLogsCacheFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	var logs bytes.Buffer
	n := New(redisrepo.NewCache(db), redisrepo.NewEventsPubSub(db), slog.New(slog.NewTextHandler(&logs, nil)))

	mock.ExpectDel(
		redisrepo.KeyEvent(1),
		redisrepo.KeyEventTicketTypes(1),
		redisrepo.KeyEventAvailability(1),
	).SetErr(errors.New("redis down"))

	n.Notify(context.Background(), 1, "updated")

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, logs.String(), "invalidate event cache")
}

func TestNilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.Notify(context.Background(), 1, "x") })
}
