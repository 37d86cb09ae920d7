package redisrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedEvent struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func TestGetOrSetJSONLoadsOnMissAndServesHit(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewCache(db)

	key := KeyEvent(7)
	payload := `{"id":7,"title":"Show"}`

	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, payload, time.Minute).SetVal("OK")

	calls := 0
	loader := func(context.Context) (cachedEvent, error) {
		calls++
		return cachedEvent{ID: 7, Title: "Show"}, nil
	}

	got, err := GetOrSetJSON(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, cachedEvent{ID: 7, Title: "Show"}, got)

	mock.ExpectGet(key).SetVal(payload)

	got, err = GetOrSetJSON(ctx, c, key, time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, "Show", got.Title)
	assert.Equal(t, 1, calls)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrSetJSONPropagatesLoaderError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)

	mock.ExpectGet("k").RedisNil()
	mock.ExpectGet("k").RedisNil()

	boom := errors.New("boom")
	_, err := GetOrSetJSON(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestInvalidateEventDeletesAllKeys(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(db)

	mock.ExpectDel(KeyEvent(3), KeyEventTicketTypes(3), KeyEventAvailability(3)).SetVal(3)

	require.NoError(t, c.InvalidateEvent(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	s := NewIdempotencyStore(db, time.Hour)
	key := KeyIdem("checkout", 1, "abc")

	mock.ExpectSetNX(key, "LOCK", time.Minute).SetVal(true)
	ok, err := s.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectGet(key).SetVal("LOCK")
	_, found, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	mock.ExpectSet(key, `RES:201:{"id":"x"}`, time.Hour).SetVal("OK")
	require.NoError(t, s.SaveResult(ctx, key, 201, []byte(`{"id":"x"}`)))

	mock.ExpectGet(key).SetVal(`RES:201:{"id":"x"}`)
	res, found, err := s.GetResult(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 201, res.Status)
	assert.JSONEq(t, `{"id":"x"}`, string(res.Body))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	s := NewSessionStore(db, time.Hour)

	mock.ExpectSet(KeySession("tok"), "42", time.Hour).SetVal("OK")
	require.NoError(t, s.Create(ctx, "tok", 42))

	mock.ExpectGet(KeySession("tok")).SetVal("42")
	id, ok, err := s.Lookup(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	mock.ExpectGet(KeySession("gone")).RedisNil()
	_, ok, err = s.Lookup(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectDel(KeySession("tok")).SetVal(1)
	require.NoError(t, s.Delete(ctx, "tok"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlidingWindowLimiter(t *testing.T) {
	db, mock := redismock.NewClientMock()
	l := NewSlidingWindowLimiter(db, "holds", 2, time.Minute)

	now := time.UnixMilli(1_700_000_000_000)
	l.now = func() time.Time { return now }
	l.member = func() string { return "m" }

	sha := redis.NewScript(luaSlidingWindow).Hash()
	key := KeyRateLimit("holds") + ":ip:1.2.3.4"

	mock.ExpectEvalSha(sha, []string{key}, now.UnixMilli(), int64(60000), 2, "m").
		SetVal([]any{int64(1), int64(1), int64(0)})
	d, err := l.Allow(context.Background(), "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	mock.ExpectEvalSha(sha, []string{key}, now.UnixMilli(), int64(60000), 2, "m").
		SetVal([]any{int64(0), int64(3), int64(1500)})
	d, err = l.Allow(context.Background(), "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1500*time.Millisecond, d.RetryAfter)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountersDrain(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCounters(db)

	sha := redis.NewScript(luaDrainHash).Hash()
	mock.ExpectEvalSha(sha, []string{KeyAdImpressions()}).
		SetVal([]any{"5", "12", "9", "1", "bogus", "3"})

	got, err := c.Drain(context.Background(), KeyAdImpressions())
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{5: 12, 9: 1}, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecodeEventChanged(t *testing.T) {
	ev, ok := decodeEventChanged(`{"type":"event_changed","event_id":4,"reason":"hold"}`)
	require.True(t, ok)
	assert.Equal(t, int64(4), ev.EventID)
	assert.Equal(t, "hold", ev.Reason)

	_, ok = decodeEventChanged(`{"type":"event_changed"}`)
	assert.False(t, ok)

	_, ok = decodeEventChanged(`nope`)
	assert.False(t, ok)
}

func TestDay(t *testing.T) {
	at := time.Date(2026, 10, 17, 23, 30, 0, 0, time.FixedZone("x", -3*3600))
	assert.Equal(t, "2026-10-18", Day(at))
}

func TestCountersIncrEventView(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCounters(db)

	at := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)
	key := KeyEventViews("2026-03-09")

	mock.ExpectTxPipeline()
	mock.ExpectHIncrBy(key, "42", 1).SetVal(1)
	mock.ExpectExpire(key, CountersRetention).SetVal(true)
	mock.ExpectTxPipelineExec()

	require.NoError(t, c.IncrEventView(context.Background(), 42, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyspace(t *testing.T) {
	assert.Equal(t, "event", keyspace(KeyEventAvailability(3)))
	assert.Equal(t, "setting", keyspace(KeySetting("theme")))
	assert.Equal(t, "plain", keyspace("plain"))
}
