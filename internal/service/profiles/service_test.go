package profiles

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	s := New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestValidatePaymentMethod(t *testing.T) {
	s := newService()

	ok := domain.PaymentMethod{Brand: " Visa ", Last4: "4242", ExpMonth: 6, ExpYear: 2026}
	require.NoError(t, s.validatePaymentMethod(&ok))
	assert.Equal(t, "visa", ok.Brand)

	invalid := []domain.PaymentMethod{
		{Last4: "4242", ExpMonth: 1, ExpYear: 2030},
		{Brand: "visa", Last4: "42a2", ExpMonth: 1, ExpYear: 2030},
		{Brand: "visa", Last4: "42424", ExpMonth: 1, ExpYear: 2030},
		{Brand: "visa", Last4: "4242", ExpMonth: 13, ExpYear: 2030},
		{Brand: "visa", Last4: "4242", ExpMonth: 1, ExpYear: 1999},
	}
	for i, m := range invalid {
		var ve *domain.ValidationError
		assert.ErrorAs(t, s.validatePaymentMethod(&m), &ve, "case %d", i)
	}

	expired := domain.PaymentMethod{Brand: "visa", Last4: "4242", ExpMonth: 5, ExpYear: 2026}
	assert.ErrorIs(t, s.validatePaymentMethod(&expired), ErrCardExpired)
}

func TestAddPaymentMethodRejectsBeforeStore(t *testing.T) {
	s := newService()

	_, err := s.AddPaymentMethod(context.Background(), 1, domain.PaymentMethod{Brand: "visa", Last4: "1"})

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	s := newService()

	err := s.SetRole(context.Background(), 1, "owner", "", "")

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestUpdateMeRejectsLongName(t *testing.T) {
	s := newService()

	_, err := s.UpdateMe(context.Background(), 1, strings.Repeat("a", 81))

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}
