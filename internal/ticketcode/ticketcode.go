// Package ticketcode mints and verifies the signed codes printed as QR on
// tickets. A code is base64url(CBOR payload || Ed25519 signature).
package ticketcode

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

const signatureSize = ed25519.SignatureSize

var (
	ErrMalformed        = errors.New("ticketcode: malformed code")
	ErrInvalidSignature = errors.New("ticketcode: invalid signature")
)

// Payload is the signed content of a ticket code.
type Payload struct {
	TicketID     []byte `cbor:"1,keyasint"`
	EventID      int64  `cbor:"2,keyasint"`
	TicketTypeID int64  `cbor:"3,keyasint"`
	IssuedAt     int64  `cbor:"4,keyasint"`
}

// Claims is a verified payload.
type Claims struct {
	TicketID     uuid.UUID
	EventID      int64
	TicketTypeID int64
	IssuedAt     time.Time
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(err)
	}
}

type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner derives the signing key from a 32-byte seed. A nil seed yields
// a random key, so codes do not survive a restart.
func NewSigner(seed []byte) (*Signer, error) {
	if seed == nil {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("ticketcode: generating seed: %w", err)
		}
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ticketcode: seed has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(seed)

	return &Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// Mint encodes and signs a code for one ticket.
func (s *Signer) Mint(ticketID uuid.UUID, eventID, ticketTypeID int64, issuedAt time.Time) (string, error) {
	payload, err := encMode.Marshal(Payload{
		TicketID:     ticketID[:],
		EventID:      eventID,
		TicketTypeID: ticketTypeID,
		IssuedAt:     issuedAt.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("ticketcode: encoding payload: %w", err)
	}

	raw := make([]byte, len(payload)+signatureSize)
	copy(raw, payload)
	copy(raw[len(payload):], ed25519.Sign(s.priv, payload))

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify checks the signature of code and returns its claims.
func (s *Signer) Verify(code string) (*Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return nil, ErrMalformed
	}

	if len(raw) <= signatureSize {
		return nil, ErrMalformed
	}

	split := len(raw) - signatureSize
	payload, sig := raw[:split], raw[split:]

	if !ed25519.Verify(s.pub, payload, sig) {
		return nil, ErrInvalidSignature
	}

	var p Payload
	if err := decMode.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	id, err := uuid.FromBytes(p.TicketID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &Claims{
		TicketID:     id,
		EventID:      p.EventID,
		TicketTypeID: p.TicketTypeID,
		IssuedAt:     time.Unix(p.IssuedAt, 0).UTC(),
	}, nil
}
