package postgresrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
)

type OrderRepo struct {
	conn
}

func (r *OrderRepo) With(db DB) *OrderRepo {
	return &OrderRepo{r.conn.with(db)}
}

// PricedItems resolves a hold's items against the current ticket type
// names and prices.
//
// Returns:
//   - error: repository.ErrNothingToConfirm if the hold has no items.
func (r *OrderRepo) PricedItems(ctx context.Context, holdID uuid.UUID) ([]domain.PricedItem, error) {
	const op = "postgresrepo.OrderRepo.PricedItems"

	rows, err := r.handle().Query(ctx,
		`SELECT hi.ticket_type_id, t.name, hi.quantity, t.price_cents
		 FROM hold_items hi
		 JOIN ticket_types t ON t.id = hi.ticket_type_id
		 WHERE hi.hold_id = $1
		 ORDER BY hi.ticket_type_id`,
		holdID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.PricedItem, error) {
		var it domain.PricedItem
		err := row.Scan(&it.TicketTypeID, &it.Name, &it.Quantity, &it.UnitPriceCents)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNothingToConfirm)
	}

	return items, nil
}

// CreateFromHold turns a locked hold into an order: held units become
// sold, the order with its items and tickets is inserted and the hold is
// deleted. Call it inside a unit of work after LockHold.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - holdID: the hold being converted.
//   - o: the priced order; ID, EventID, UserID and amounts must be set.
//   - items: the priced hold items.
//   - tickets: one minted ticket per unit.
//
// Returns:
//   - error: repository.ErrNothingToConfirm if the hold vanished.
//   - error: repository.ErrCheckViolation if the counters disagree with the hold.
func (r *OrderRepo) CreateFromHold(
	ctx context.Context,
	holdID uuid.UUID,
	o domain.Order,
	items []domain.PricedItem,
	tickets []domain.NewTicket,
) error {
	const op = "postgresrepo.OrderRepo.CreateFromHold"

	err := r.inLockedTx(ctx, func(db DB) error {
		tag, err := db.Exec(ctx,
			`UPDATE ticket_types t
			 SET held = t.held - hi.quantity, sold = t.sold + hi.quantity
			 FROM hold_items hi
			 WHERE hi.hold_id = $1 AND t.id = hi.ticket_type_id`,
			holdID,
		)
		if err != nil {
			return translateDBErr(err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNothingToConfirm
		}

		if _, err := db.Exec(ctx,
			`INSERT INTO orders(id, event_id, user_id, status, subtotal_cents, fee_cents, total_cents, currency)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID, o.EventID, o.UserID, o.Status, o.SubtotalCents, o.FeeCents, o.TotalCents, o.Currency,
		); err != nil {
			return translateDBErr(err)
		}

		batch := &pgx.Batch{}
		for _, it := range items {
			batch.Queue(
				`INSERT INTO order_items(order_id, ticket_type_id, name, quantity, unit_price_cents)
				 VALUES ($1, $2, $3, $4, $5)`,
				o.ID, it.TicketTypeID, it.Name, it.Quantity, it.UnitPriceCents,
			)
		}
		for _, t := range tickets {
			batch.Queue(
				`INSERT INTO tickets(id, order_id, event_id, ticket_type_id, holder_id, code)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				t.ID, o.ID, o.EventID, t.TicketTypeID, o.UserID, t.Code,
			)
		}
		batch.Queue(`DELETE FROM holds WHERE id = $1`, holdID)

		if err := db.SendBatch(ctx, batch).Close(); err != nil {
			return translateDBErr(err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

const orderColumns = `id, event_id, user_id, status, subtotal_cents, fee_cents, total_cents,
	currency, created_at, cancelled_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.EventID,
		&o.UserID,
		&o.Status,
		&o.SubtotalCents,
		&o.FeeCents,
		&o.TotalCents,
		&o.Currency,
		&o.CreatedAt,
		&o.CancelledAt,
	)
	return o, err
}

// GetOrder retrieves an order with its items and tickets.
//
// Returns:
//   - error: repository.ErrNotFound if the order does not exist.
func (r *OrderRepo) GetOrder(ctx context.Context, id uuid.UUID) (*domain.OrderWithTickets, error) {
	const op = "postgresrepo.OrderRepo.GetOrder"

	db := r.handle()

	o, err := scanOrder(db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rows, err := db.Query(ctx,
		`SELECT ticket_type_id, name, quantity, unit_price_cents
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY ticket_type_id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderItem, error) {
		var it domain.OrderItem
		err := row.Scan(&it.TicketTypeID, &it.Name, &it.Quantity, &it.UnitPriceCents)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	rows, err = db.Query(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE order_id = $1 ORDER BY ticket_type_id, id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	tickets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Ticket, error) {
		return scanTicket(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &domain.OrderWithTickets{Order: o, Items: items, Tickets: tickets}, nil
}

// LockOrder loads an order with a row lock; use it inside a unit of work.
func (r *OrderRepo) LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "postgresrepo.OrderRepo.LockOrder"

	o, err := scanOrder(r.handle().QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &o, nil
}

func (r *OrderRepo) ListUserOrders(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	const op = "postgresrepo.OrderRepo.ListUserOrders"

	rows, err := r.handle().Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// ListEventOrders lists the orders of an event, newest first. An empty
// status matches every order.
func (r *OrderRepo) ListEventOrders(
	ctx context.Context,
	eventID int64,
	status domain.OrderStatus,
	limit, offset int,
) ([]domain.Order, error) {
	const op = "postgresrepo.OrderRepo.ListEventOrders"

	rows, err := r.handle().Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE event_id = $1 AND ($2 = '' OR status = $2)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		eventID, string(status), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// CancelOrder voids the tickets of a confirmed order and returns its units
// to the ticket types.
//
// Returns:
//   - error: repository.ErrNotFound if the order does not exist.
//   - error: repository.ErrOrderNotCancelable if the order is not confirmed.
//   - error: repository.ErrOrderCheckedIn if a ticket was already used.
func (r *OrderRepo) CancelOrder(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.OrderRepo.CancelOrder"

	err := r.inTx(ctx, func(db DB) error {
		var status domain.OrderStatus
		if err := db.QueryRow(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&status); err != nil {
			return translateDBErr(err)
		}

		if status != domain.OrderConfirmed {
			return repository.ErrOrderNotCancelable
		}

		var used bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS (
			     SELECT 1 FROM tickets WHERE order_id = $1 AND checked_in_at IS NOT NULL
			 )`,
			id,
		).Scan(&used); err != nil {
			return translateDBErr(err)
		}

		if used {
			return repository.ErrOrderCheckedIn
		}

		batch := &pgx.Batch{}
		batch.Queue(`UPDATE tickets SET status = 'void' WHERE order_id = $1`, id)
		batch.Queue(
			`UPDATE ticket_types t
			 SET sold = t.sold - oi.quantity
			 FROM order_items oi
			 WHERE oi.order_id = $1 AND t.id = oi.ticket_type_id`,
			id,
		)
		batch.Queue(
			`UPDATE orders SET status = 'cancelled', cancelled_at = now() WHERE id = $1`,
			id,
		)

		if err := db.SendBatch(ctx, batch).Close(); err != nil {
			return translateDBErr(err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
