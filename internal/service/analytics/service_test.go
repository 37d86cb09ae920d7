package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/eventhub/internal/domain"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowDefaults(t *testing.T) {
	now := time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC)
	s := New(nil, nil)
	s.now = func() time.Time { return now }

	from, to, err := s.window(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, now, to)
	assert.Equal(t, now.Add(-30*24*time.Hour), from)
}

func TestWindowRejectsBadRanges(t *testing.T) {
	s := New(nil, nil)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ve *domain.ValidationError

	_, _, err := s.window(t0, t0)
	assert.ErrorAs(t, err, &ve)

	_, _, err = s.window(t0, t0.AddDate(2, 0, 0))
	assert.ErrorAs(t, err, &ve)
}

func TestNetworkGrowthValidatesBeforeStore(t *testing.T) {
	s := New(nil, nil)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.NetworkGrowth(context.Background(), t0, t0.Add(-time.Hour), 5)

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRecordEventView(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(nil, redisrepo.NewCounters(db))
	s.now = func() time.Time { return time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC) }

	key := redisrepo.KeyEventViews("2026-02-01")
	mock.ExpectTxPipeline()
	mock.ExpectHIncrBy(key, "3", 1).SetVal(1)
	mock.ExpectExpire(key, 7*24*time.Hour).SetVal(true)
	mock.ExpectTxPipelineExec()

	require.NoError(t, s.RecordEventView(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
