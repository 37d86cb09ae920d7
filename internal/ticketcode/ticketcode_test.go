package ticketcode

import (
	"bytes"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T, b byte) *Signer {
	t.Helper()
	s, err := NewSigner(bytes.Repeat([]byte{b}, 32))
	require.NoError(t, err)
	return s
}

func TestMintVerify(t *testing.T) {
	s := testSigner(t, 1)
	id := uuid.New()
	issued := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	code, err := s.Mint(id, 42, 7, issued)
	require.NoError(t, err)

	claims, err := s.Verify(code)
	require.NoError(t, err)
	assert.Equal(t, id, claims.TicketID)
	assert.Equal(t, int64(42), claims.EventID)
	assert.Equal(t, int64(7), claims.TicketTypeID)
	assert.True(t, issued.Equal(claims.IssuedAt))
}

func TestMintIsDeterministic(t *testing.T) {
	s := testSigner(t, 1)
	id := uuid.New()
	at := time.Unix(1_700_000_000, 0)

	a, err := s.Mint(id, 1, 2, at)
	require.NoError(t, err)
	b, err := s.Mint(id, 1, 2, at)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	code, err := testSigner(t, 1).Mint(uuid.New(), 1, 1, time.Now())
	require.NoError(t, err)

	_, err = testSigner(t, 2).Verify(code)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := testSigner(t, 1)
	code, err := s.Mint(uuid.New(), 1, 1, time.Now())
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(code)
	require.NoError(t, err)
	raw[3] ^= 0xff

	_, err = s.Verify(base64.RawURLEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := testSigner(t, 1)

	_, err := s.Verify("not base64 !!")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = s.Verify(base64.RawURLEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNewSignerValidatesSeed(t *testing.T) {
	_, err := NewSigner([]byte{1, 2, 3})
	assert.Error(t, err)

	s, err := NewSigner(nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
}
