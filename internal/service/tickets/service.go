// Package tickets verifies scanned ticket codes at the door.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/metrics"
	"github.com/kirinyoku/eventhub/internal/notify"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	"github.com/kirinyoku/eventhub/internal/ticketcode"
)

type Service struct {
	store     *postgresrepo.Store
	signer    *ticketcode.Signer
	publisher notify.Publisher
	logger    *slog.Logger
}

func New(store *postgresrepo.Store, signer *ticketcode.Signer, publisher notify.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, signer: signer, publisher: publisher, logger: logger}
}

// Verify checks a scanned code against eventID and admits the ticket.
// A ticket is admitted at most once, even when two scanners race.
//
// Parameters:
//   - ctx: request-scoped context.
//   - code: the scanned code.
//   - eventID: the event being checked in.
//   - dryRun: report validity without admitting.
//
// Returns:
//   - domain.CheckIn: the outcome. Rejections are outcomes, not errors.
//   - error: only for storage failures.
func (s *Service) Verify(ctx context.Context, code string, eventID int64, dryRun bool) (domain.CheckIn, error) {
	const op = "service.tickets.Verify"

	res, err := s.verify(ctx, code, eventID, dryRun)
	if err != nil {
		return domain.CheckIn{}, fmt.Errorf("%s:%w", op, err)
	}

	metrics.CheckIns.WithLabelValues(string(res.Result)).Inc()

	if res.Result == domain.CheckInAdmitted {
		s.announce(ctx, res)
	}

	return res, nil
}

func (s *Service) verify(ctx context.Context, code string, eventID int64, dryRun bool) (domain.CheckIn, error) {
	claims, err := s.signer.Verify(code)
	if err != nil {
		return domain.CheckIn{Result: domain.CheckInInvalid}, nil
	}

	id := claims.TicketID

	if claims.EventID != eventID {
		return domain.CheckIn{Result: domain.CheckInWrongEvent, TicketID: &id, EventID: claims.EventID}, nil
	}

	repo := s.store.Tickets()

	t, err := repo.GetTicket(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.CheckIn{Result: domain.CheckInInvalid}, nil
		}
		return domain.CheckIn{}, err
	}

	if res, done := classify(t); done {
		return res, nil
	}

	if dryRun {
		return domain.CheckIn{Result: domain.CheckInValid, TicketID: &id, EventID: t.EventID}, nil
	}

	at, ok, err := repo.CheckIn(ctx, id)
	if err != nil {
		return domain.CheckIn{}, err
	}

	if !ok {
		// Lost the race to another scanner or a cancellation.
		t, err = repo.GetTicket(ctx, id)
		if err != nil {
			return domain.CheckIn{}, err
		}
		res, _ := classify(t)
		return res, nil
	}

	return domain.CheckIn{Result: domain.CheckInAdmitted, TicketID: &id, EventID: t.EventID, CheckedInAt: &at}, nil
}

// classify reports the outcome for tickets that can no longer be admitted.
func classify(t *domain.Ticket) (domain.CheckIn, bool) {
	id := t.ID

	switch {
	case t.Status == domain.TicketVoid:
		return domain.CheckIn{Result: domain.CheckInVoid, TicketID: &id, EventID: t.EventID}, true
	case t.CheckedInAt != nil:
		return domain.CheckIn{
			Result:      domain.CheckInAlreadyCheckedIn,
			TicketID:    &id,
			EventID:     t.EventID,
			CheckedInAt: t.CheckedInAt,
		}, true
	}

	return domain.CheckIn{}, false
}

func (s *Service) announce(ctx context.Context, res domain.CheckIn) {
	if s.publisher == nil {
		return
	}

	ev := notify.CheckInEvent{TicketID: *res.TicketID, EventID: res.EventID, At: res.CheckedInAt.UTC()}
	if err := s.publisher.Publish(ctx, notify.TopicTicketCheckedIn, ev.TicketID.String(), ev); err != nil {
		s.logger.Warn("publish check-in", "ticket_id", ev.TicketID, "error", err)
	}
}
