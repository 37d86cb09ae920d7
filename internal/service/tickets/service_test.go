package tickets

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/ticketcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *ticketcode.Signer) {
	t.Helper()
	signer, err := ticketcode.NewSigner(nil)
	require.NoError(t, err)
	return New(nil, signer, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), signer
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s, _ := newService(t)

	for _, code := range []string{"", "not-a-code", "AAAA"} {
		res, err := s.Verify(context.Background(), code, 1, false)
		require.NoError(t, err)
		assert.Equal(t, domain.CheckInInvalid, res.Result, code)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	s, _ := newService(t)
	other, err := ticketcode.NewSigner(nil)
	require.NoError(t, err)

	code, err := other.Mint(uuid.New(), 1, 1, time.Now())
	require.NoError(t, err)

	res, err := s.Verify(context.Background(), code, 1, false)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckInInvalid, res.Result)
}

func TestVerifyWrongEvent(t *testing.T) {
	s, signer := newService(t)
	id := uuid.New()

	code, err := signer.Mint(id, 5, 2, time.Now())
	require.NoError(t, err)

	res, err := s.Verify(context.Background(), code, 6, true)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckInWrongEvent, res.Result)
	require.NotNil(t, res.TicketID)
	assert.Equal(t, id, *res.TicketID)
	assert.Equal(t, int64(5), res.EventID)
}

func TestClassify(t *testing.T) {
	at := time.Now()

	res, done := classify(&domain.Ticket{ID: uuid.New(), Status: domain.TicketVoid})
	assert.True(t, done)
	assert.Equal(t, domain.CheckInVoid, res.Result)

	res, done = classify(&domain.Ticket{ID: uuid.New(), Status: domain.TicketValid, CheckedInAt: &at})
	assert.True(t, done)
	assert.Equal(t, domain.CheckInAlreadyCheckedIn, res.Result)
	assert.Equal(t, &at, res.CheckedInAt)

	_, done = classify(&domain.Ticket{ID: uuid.New(), Status: domain.TicketValid})
	assert.False(t, done)
}
