package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/metrics"
	"github.com/kirinyoku/eventhub/internal/notify"
	"github.com/kirinyoku/eventhub/internal/pricing"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	"github.com/kirinyoku/eventhub/internal/service/eventsync"
	"github.com/kirinyoku/eventhub/internal/ticketcode"
	"github.com/kirinyoku/eventhub/internal/uow"
)

const (
	defaultPage = 20
	maxPage     = 100
)

type Service struct {
	store     *postgresrepo.Store
	events    *eventsync.Notifier
	pricing   *pricing.Calculator
	signer    *ticketcode.Signer
	publisher notify.Publisher
	logger    *slog.Logger
	uow       *uow.UoW
	now       func() time.Time
}

func New(
	store *postgresrepo.Store,
	events *eventsync.Notifier,
	calc *pricing.Calculator,
	signer *ticketcode.Signer,
	publisher notify.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		events:    events,
		pricing:   calc,
		signer:    signer,
		publisher: publisher,
		logger:    logger,
		uow:       uow.NewUoW(store),
		now:       time.Now,
	}
}

// Checkout turns a hold into a confirmed order. Prices come from the
// current ticket types, never from the client.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: the buyer; must own the hold.
//   - holdID: the hold to convert.
//
// Returns:
//   - *domain.OrderWithTickets: the order with items and minted tickets.
//   - error: orders.ErrHoldNotFound if the hold does not exist or belongs
//     to someone else.
//   - error: orders.ErrHoldExpired if the hold expired before checkout.
func (s *Service) Checkout(ctx context.Context, userID int64, holdID uuid.UUID) (*domain.OrderWithTickets, error) {
	const op = "service.orders.Checkout"

	var out *domain.OrderWithTickets

	err := s.uow.DoLocked(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		h, err := s.store.Inventory().With(tx).LockHold(ctx, holdID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrHoldNotFound
			}
			return err
		}

		if h.UserID != userID {
			return ErrHoldNotFound
		}

		now := s.now()
		if !h.ExpiresAt.After(now) {
			return ErrHoldExpired
		}

		orders := s.store.Orders().With(tx)

		items, err := orders.PricedItems(ctx, holdID)
		if err != nil {
			if errors.Is(err, repository.ErrNothingToConfirm) {
				return ErrHoldNotFound
			}
			return err
		}

		quote, err := s.pricing.Quote(items)
		if err != nil {
			return err
		}

		order := domain.Order{
			ID:            uuid.New(),
			EventID:       h.EventID,
			UserID:        userID,
			Status:        domain.OrderConfirmed,
			SubtotalCents: quote.SubtotalCents,
			FeeCents:      quote.FeeCents,
			TotalCents:    quote.TotalCents,
			Currency:      quote.Currency,
			CreatedAt:     now,
		}

		tickets, err := s.mintTickets(order, items)
		if err != nil {
			return err
		}

		if err := orders.CreateFromHold(ctx, holdID, order, items, tickets); err != nil {
			if errors.Is(err, repository.ErrNothingToConfirm) {
				return ErrHoldNotFound
			}
			return err
		}

		out = assemble(order, items, tickets)

		after(s.events.Changed(h.EventID, "order_confirmed"))
		after(s.publish(notify.TopicOrderConfirmed, orderEvent(order, len(tickets), now)))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	metrics.Holds.WithLabelValues(metrics.HoldConfirmed).Inc()
	metrics.TicketsIssued.Add(float64(len(out.Tickets)))

	return out, nil
}

// GetOrder returns an order with its items and tickets. Only the buyer and
// admins may see it.
//
// Returns:
//   - error: orders.ErrOrderNotFound if the order does not exist or is not
//     visible to the caller.
func (s *Service) GetOrder(ctx context.Context, caller domain.Profile, id uuid.UUID) (*domain.OrderWithTickets, error) {
	const op = "service.orders.GetOrder"

	o, err := s.store.Orders().GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if o.Order.UserID != caller.ID && !caller.IsAdmin() {
		return nil, fmt.Errorf("%s:%w", op, ErrOrderNotFound)
	}

	return o, nil
}

func (s *Service) ListMyOrders(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	const op = "service.orders.ListMyOrders"

	out, err := s.store.Orders().ListUserOrders(ctx, userID, domain.ClampLimit(limit, defaultPage, maxPage), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) ListMyTickets(ctx context.Context, userID int64, upcoming bool) ([]domain.Ticket, error) {
	const op = "service.orders.ListMyTickets"

	out, err := s.store.Tickets().ListUserTickets(ctx, userID, upcoming)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListEventOrders lists the orders of an event for admins. An empty status
// lists all of them.
func (s *Service) ListEventOrders(
	ctx context.Context,
	eventID int64,
	status domain.OrderStatus,
	limit, offset int,
) ([]domain.Order, error) {
	const op = "service.orders.ListEventOrders"

	switch status {
	case "", domain.OrderPending, domain.OrderConfirmed, domain.OrderCancelled:
	default:
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown order status"))
	}

	out, err := s.store.Orders().ListEventOrders(ctx, eventID, status,
		domain.ClampLimit(limit, defaultPage, maxPage), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// CancelOrder cancels a confirmed order, voids its tickets and returns the
// units to sale. The buyer and admins may cancel.
//
// Returns:
//   - error: orders.ErrOrderNotFound if the order is missing or not visible.
//   - error: orders.ErrOrderNotCancelable if the order is not confirmed.
//   - error: orders.ErrOrderCheckedIn if any of its tickets was used.
func (s *Service) CancelOrder(ctx context.Context, caller domain.Profile, id uuid.UUID) error {
	const op = "service.orders.CancelOrder"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Orders().With(tx)

		o, err := repo.LockOrder(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if o.UserID != caller.ID && !caller.IsAdmin() {
			return ErrOrderNotFound
		}

		if err := repo.CancelOrder(ctx, id); err != nil {
			switch {
			case errors.Is(err, repository.ErrOrderNotCancelable):
				return ErrOrderNotCancelable
			case errors.Is(err, repository.ErrOrderCheckedIn):
				return ErrOrderCheckedIn
			}
			return err
		}

		after(s.events.Changed(o.EventID, "order_cancelled"))
		after(s.publish(notify.TopicOrderCancelled, orderEvent(*o, 0, s.now())))

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) mintTickets(o domain.Order, items []domain.PricedItem) ([]domain.NewTicket, error) {
	var out []domain.NewTicket
	for _, it := range items {
		for range it.Quantity {
			id := uuid.New()
			code, err := s.signer.Mint(id, o.EventID, it.TicketTypeID, o.CreatedAt)
			if err != nil {
				return nil, err
			}
			out = append(out, domain.NewTicket{ID: id, TicketTypeID: it.TicketTypeID, Code: code})
		}
	}
	return out, nil
}

func (s *Service) publish(topic string, ev notify.OrderEvent) uow.AfterCommit {
	return func(ctx context.Context) {
		if s.publisher == nil {
			return
		}
		if err := s.publisher.Publish(ctx, topic, ev.OrderID.String(), ev); err != nil {
			s.logger.Warn("publish order event", "topic", topic, "order_id", ev.OrderID, "error", err)
		}
	}
}

func orderEvent(o domain.Order, tickets int, at time.Time) notify.OrderEvent {
	return notify.OrderEvent{
		OrderID:    o.ID,
		EventID:    o.EventID,
		UserID:     o.UserID,
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
		Tickets:    tickets,
		At:         at.UTC(),
	}
}

func assemble(o domain.Order, items []domain.PricedItem, minted []domain.NewTicket) *domain.OrderWithTickets {
	out := &domain.OrderWithTickets{
		Order:   o,
		Items:   make([]domain.OrderItem, 0, len(items)),
		Tickets: make([]domain.Ticket, 0, len(minted)),
	}

	for _, it := range items {
		out.Items = append(out.Items, domain.OrderItem{
			TicketTypeID:   it.TicketTypeID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}

	for _, t := range minted {
		out.Tickets = append(out.Tickets, domain.Ticket{
			ID:           t.ID,
			OrderID:      o.ID,
			EventID:      o.EventID,
			TicketTypeID: t.TicketTypeID,
			HolderID:     o.UserID,
			Code:         t.Code,
			Status:       domain.TicketValid,
			Created:      o.CreatedAt,
		})
	}

	return out
}
