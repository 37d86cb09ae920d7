package settings

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/eventhub/internal/domain"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, validate("theme.colors", json.RawMessage(`{"primary":"#123456"}`)))
	assert.NoError(t, validate("banner_enabled", json.RawMessage(`true`)))

	cases := []struct {
		key   string
		value string
	}{
		{"Theme", `{}`},
		{"1theme", `{}`},
		{"theme", ``},
		{"theme", `{"a":`},
		{"theme", `"` + strings.Repeat("x", 70<<10) + `"`},
	}
	for _, tc := range cases {
		var ve *domain.ValidationError
		assert.ErrorAs(t, validate(tc.key, json.RawMessage(tc.value)), &ve, tc.key)
	}
}

func TestGetServedFromCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(nil, redisrepo.NewCache(db), nil)

	mock.ExpectGet(redisrepo.KeySetting("theme")).
		SetVal(`{"key":"theme","value":{"mode":"dark"},"updated_at":"2026-01-02T03:04:05Z"}`)

	got, err := s.Get(context.Background(), "theme")
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"dark"}`, string(got.Value))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnknownKeyShape(t *testing.T) {
	s := New(nil, nil, nil)

	_, err := s.Get(context.Background(), "../../x")
	assert.ErrorIs(t, err, ErrNotFound)
}
