package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
)

type TicketRepo struct {
	conn
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	return &TicketRepo{r.conn.with(db)}
}

const ticketColumns = `id, order_id, event_id, ticket_type_id, holder_id, code, status,
	checked_in_at, created_at`

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(
		&t.ID,
		&t.OrderID,
		&t.EventID,
		&t.TicketTypeID,
		&t.HolderID,
		&t.Code,
		&t.Status,
		&t.CheckedInAt,
		&t.Created,
	)
	return t, err
}

// GetTicket retrieves a ticket by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the ticket does not exist.
func (r *TicketRepo) GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.GetTicket"

	t, err := scanTicket(r.handle().QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

// ListUserTickets lists the tickets held by holderID ordered by event
// start. With upcoming set, tickets of events that already ended are left out.
func (r *TicketRepo) ListUserTickets(ctx context.Context, holderID int64, upcoming bool) ([]domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.ListUserTickets"

	rows, err := r.handle().Query(ctx,
		`SELECT t.id, t.order_id, t.event_id, t.ticket_type_id, t.holder_id, t.code, t.status,
		        t.checked_in_at, t.created_at
		 FROM tickets t
		 JOIN events e ON e.id = t.event_id
		 WHERE t.holder_id = $1 AND (NOT $2 OR e.ends_at > now())
		 ORDER BY e.starts_at, t.id`,
		holderID, upcoming,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Ticket, error) {
		return scanTicket(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// CheckIn marks a valid ticket as used. The update is conditional, so of
// two concurrent scans of one ticket exactly one is admitted.
//
// Returns:
//   - time.Time: the check-in time when admitted.
//   - bool: false when the ticket is void, already used or missing.
func (r *TicketRepo) CheckIn(ctx context.Context, id uuid.UUID) (time.Time, bool, error) {
	const op = "postgresrepo.TicketRepo.CheckIn"

	var at time.Time
	err := r.handle().QueryRow(ctx,
		`UPDATE tickets
		 SET checked_in_at = now()
		 WHERE id = $1 AND status = 'valid' AND checked_in_at IS NULL
		 RETURNING checked_in_at`,
		id,
	).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return at, true, nil
}
