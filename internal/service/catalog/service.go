package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/kirinyoku/eventhub/internal/service/eventsync"
	"github.com/kirinyoku/eventhub/internal/uow"
)

// slugAttempts bounds the suffixes tried for a slug derived from a title.
const slugAttempts = 5

type Config struct {
	EventTTL        time.Duration
	TicketTypesTTL  time.Duration
	AvailabilityTTL time.Duration
	DefaultPage     int
	MaxPage         int
}

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	events *eventsync.Notifier
	uow    *uow.UoW
	cfg    Config
	now    func() time.Time
}

func New(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	events *eventsync.Notifier,
	cfg Config,
) *Service {
	if cfg.EventTTL <= 0 {
		cfg.EventTTL = 60 * time.Second
	}

	if cfg.TicketTypesTTL <= 0 {
		cfg.TicketTypesTTL = 30 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	if cfg.DefaultPage <= 0 {
		cfg.DefaultPage = 20
	}

	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 100
	}

	return &Service{
		store:  store,
		cache:  cache,
		events: events,
		uow:    uow.NewUoW(store),
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *Service) CreateOrganizer(ctx context.Context, o domain.Organizer) (*domain.Organizer, error) {
	const op = "service.catalog.CreateOrganizer"

	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("name", "is required"))
	}

	if o.Slug = domain.Slugify(firstNonEmpty(o.Slug, o.Name)); o.Slug == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("slug", "must contain letters or digits"))
	}

	id, err := s.store.Catalog().CreateOrganizer(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	o.ID = id

	return &o, nil
}

func (s *Service) ListOrganizers(ctx context.Context, limit, offset int) ([]domain.Organizer, error) {
	const op = "service.catalog.ListOrganizers"

	out, err := s.store.Catalog().ListOrganizers(ctx, s.limit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) CreateVenue(ctx context.Context, v domain.Venue) (*domain.Venue, error) {
	const op = "service.catalog.CreateVenue"

	v.Name = strings.TrimSpace(v.Name)
	if v.Name == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("name", "is required"))
	}

	if v.Capacity < 0 {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("capacity", "must not be negative"))
	}

	id, err := s.store.Catalog().CreateVenue(ctx, v)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrVenueExists)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	v.ID = id

	return &v, nil
}

func (s *Service) ListVenues(ctx context.Context, limit, offset int) ([]domain.Venue, error) {
	const op = "service.catalog.ListVenues"

	out, err := s.store.Catalog().ListVenues(ctx, s.limit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) CreateCategory(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const op = "service.catalog.CreateCategory"

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("name", "is required"))
	}

	if c.Kind != domain.CategoryEvent && c.Kind != domain.CategoryContent {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("kind", "must be event or content"))
	}

	if c.Slug = domain.Slugify(firstNonEmpty(c.Slug, c.Name)); c.Slug == "" {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("slug", "must contain letters or digits"))
	}

	id, err := s.store.Catalog().CreateCategory(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	c.ID = id

	return &c, nil
}

// ListCategories lists categories of kind, or all of them when kind is
// empty.
func (s *Service) ListCategories(ctx context.Context, kind domain.CategoryKind) ([]domain.Category, error) {
	const op = "service.catalog.ListCategories"

	if kind != "" && kind != domain.CategoryEvent && kind != domain.CategoryContent {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("kind", "must be event or content"))
	}

	out, err := s.store.Catalog().ListCategories(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// CreateEvent creates a draft event. A slug derived from the title gets a
// numeric suffix when taken; an explicit slug must be free.
//
// Returns:
//   - int64: the created event ID.
//   - error: catalog.ErrSlugTaken if an explicit slug is in use.
//   - error: catalog.ErrMissingReference if organizer, venue or category
//     does not exist.
func (s *Service) CreateEvent(ctx context.Context, e domain.Event) (int64, error) {
	const op = "service.catalog.CreateEvent"

	explicit := strings.TrimSpace(e.Slug) != ""

	if err := validateEvent(&e); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	e.Status = domain.StatusDraft
	base := e.Slug

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			e.Slug = base + "-" + strconv.Itoa(attempt)
		}

		id, err := s.store.Catalog().CreateEvent(ctx, e)
		if err == nil {
			return id, nil
		}

		if errors.Is(err, repository.ErrConflict) && !explicit && attempt < slugAttempts {
			continue
		}

		return 0, fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}
}

// UpdateEvent overwrites the editable fields of an event.
func (s *Service) UpdateEvent(ctx context.Context, e domain.Event) error {
	const op = "service.catalog.UpdateEvent"

	if err := validateEvent(&e); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Catalog().With(tx).UpdateEvent(ctx, e); err != nil {
			return mapRepoErr(err)
		}

		after(s.events.Changed(e.ID, "event_updated"))

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// SetEventStatus moves an event along the publish workflow.
//
// Returns:
//   - error: catalog.ErrInvalidTransition if the move is not allowed.
//   - error: catalog.ErrEventNotFound if the event does not exist.
func (s *Service) SetEventStatus(ctx context.Context, id int64, next domain.PublishStatus) error {
	const op = "service.catalog.SetEventStatus"

	if !next.Valid() {
		return fmt.Errorf("%s:%w", op, domain.Invalid("status", "must be draft, published or archived"))
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		repo := s.store.Catalog().With(tx)

		e, err := repo.GetEventForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err)
		}

		if !e.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, next)
		}

		if err := repo.SetEventStatus(ctx, id, next); err != nil {
			return mapRepoErr(err)
		}

		after(s.events.Changed(id, "status_"+string(next)))

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// DeleteEvent removes an event that has no orders.
//
// Returns:
//   - error: catalog.ErrEventHasOrders if orders reference the event.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	const op = "service.catalog.DeleteEvent"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Catalog().With(tx).DeleteEvent(ctx, id); err != nil {
			if errors.Is(err, repository.ErrReferenceMissing) {
				return ErrEventHasOrders
			}
			return mapRepoErr(err)
		}

		after(s.events.Changed(id, "event_deleted"))

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// GetEvent retrieves an event through the cache. Unpublished events are
// visible to admins only.
//
// Returns:
//   - error: catalog.ErrEventNotFound if the event does not exist or is
//     not visible.
func (s *Service) GetEvent(ctx context.Context, id int64, admin bool) (*domain.Event, error) {
	const op = "service.catalog.GetEvent"

	e, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyEvent(id), s.cfg.EventTTL,
		func(ctx context.Context) (domain.Event, error) {
			e, err := s.store.Catalog().GetEvent(ctx, id)
			if err != nil {
				return domain.Event{}, mapRepoErr(err)
			}
			return *e, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !admin && e.Status != domain.StatusPublished {
		return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
	}

	return &e, nil
}

// ListEvents lists events. The public listing shows published upcoming
// events; admins may filter by any status and time range.
func (s *Service) ListEvents(ctx context.Context, f domain.EventFilter, admin bool) ([]domain.Event, error) {
	const op = "service.catalog.ListEvents"

	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "must be draft, published or archived"))
	}

	if !admin {
		f.Status = domain.StatusPublished
		if f.From == nil {
			now := s.now()
			f.From = &now
		}
	}

	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("to", "must not be before from"))
	}

	f.Query = strings.TrimSpace(f.Query)
	f.Limit = s.limit(f.Limit)
	f.Offset = max(f.Offset, 0)

	out, err := s.store.Catalog().ListEvents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// CreateTicketType adds a priced ticket category to an event.
//
// Returns:
//   - error: catalog.ErrEventNotFound if the event does not exist.
//   - error: catalog.ErrTicketTypeExists if the name is taken for the event.
func (s *Service) CreateTicketType(ctx context.Context, t domain.TicketType) (int64, error) {
	const op = "service.catalog.CreateTicketType"

	if err := validateTicketType(&t); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	var id int64
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		var err error
		id, err = s.store.Catalog().With(tx).CreateTicketType(ctx, t)
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrReferenceMissing):
				return ErrEventNotFound
			case errors.Is(err, repository.ErrConflict):
				return ErrTicketTypeExists
			}
			return err
		}

		after(s.events.Changed(t.EventID, "ticket_type_created"))

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return id, nil
}

// UpdateTicketType overwrites a ticket type. Sold and held counts are not
// editable.
//
// Returns:
//   - error: catalog.ErrCapacityBelowCommitted if the new capacity is
//     below sold plus held.
func (s *Service) UpdateTicketType(ctx context.Context, t domain.TicketType) error {
	const op = "service.catalog.UpdateTicketType"

	if err := validateTicketType(&t); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Catalog().With(tx).UpdateTicketType(ctx, t); err != nil {
			switch {
			case errors.Is(err, repository.ErrCheckViolation):
				return ErrCapacityBelowCommitted
			case errors.Is(err, repository.ErrNotFound):
				return ErrTicketTypeNotFound
			case errors.Is(err, repository.ErrConflict):
				return ErrTicketTypeExists
			}
			return err
		}

		after(s.events.Changed(t.EventID, "ticket_type_updated"))

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// ListTicketTypes lists the ticket types of an event with their counters.
// The public view hides unpublished events and hidden ticket types.
func (s *Service) ListTicketTypes(ctx context.Context, eventID int64, admin bool) ([]domain.TicketType, error) {
	const op = "service.catalog.ListTicketTypes"

	if _, err := s.GetEvent(ctx, eventID, admin); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	types, err := s.ticketTypes(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if admin {
		return types, nil
	}

	visible := make([]domain.TicketType, 0, len(types))
	for _, t := range types {
		if t.Status == domain.TicketTypeActive {
			visible = append(visible, t)
		}
	}

	return visible, nil
}

// Availability returns per type and total availability of a published
// event.
//
// Returns:
//   - error: catalog.ErrEventNotFound if the event is missing or not
//     published.
func (s *Service) Availability(ctx context.Context, eventID int64) (*domain.EventCounts, error) {
	const op = "service.catalog.Availability"

	if _, err := s.GetEvent(ctx, eventID, false); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	ec, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyEventAvailability(eventID), s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.EventCounts, error) {
			types, err := s.store.Catalog().ListTicketTypes(ctx, eventID)
			if err != nil {
				return domain.EventCounts{}, err
			}
			return domain.NewEventCounts(eventID, types), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &ec, nil
}

func (s *Service) ticketTypes(ctx context.Context, eventID int64) ([]domain.TicketType, error) {
	return redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyEventTicketTypes(eventID), s.cfg.TicketTypesTTL,
		func(ctx context.Context) ([]domain.TicketType, error) {
			return s.store.Catalog().ListTicketTypes(ctx, eventID)
		},
	)
}

func (s *Service) limit(limit int) int {
	return domain.ClampLimit(limit, s.cfg.DefaultPage, s.cfg.MaxPage)
}

func validateEvent(e *domain.Event) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return domain.Invalid("title", "is required")
	}

	if e.OrganizerID <= 0 {
		return domain.Invalid("organizer_id", "is required")
	}

	if e.VenueID <= 0 {
		return domain.Invalid("venue_id", "is required")
	}

	if e.Starts.IsZero() || e.Ends.IsZero() {
		return domain.Invalid("starts_at", "and ends_at are required")
	}

	if !e.Ends.After(e.Starts) {
		return domain.Invalid("ends_at", "must be after starts_at")
	}

	if e.Slug = domain.Slugify(firstNonEmpty(e.Slug, e.Title)); e.Slug == "" {
		return domain.Invalid("slug", "must contain letters or digits")
	}

	return nil
}

func validateTicketType(t *domain.TicketType) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return domain.Invalid("name", "is required")
	}

	if t.PriceCents < 0 {
		return domain.Invalid("price_cents", "must not be negative")
	}

	if t.Capacity < 0 {
		return domain.Invalid("capacity", "must not be negative")
	}

	if t.MaxPerOrder == 0 {
		t.MaxPerOrder = 10
	}

	if t.MaxPerOrder < 0 {
		return domain.Invalid("max_per_order", "must be positive")
	}

	if t.SalesStart != nil && t.SalesEnd != nil && !t.SalesEnd.After(*t.SalesStart) {
		return domain.Invalid("sales_end", "must be after sales_start")
	}

	if t.Status == "" {
		t.Status = domain.TicketTypeActive
	}

	if t.Status != domain.TicketTypeActive && t.Status != domain.TicketTypeHidden {
		return domain.Invalid("status", "must be active or hidden")
	}

	return nil
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrEventNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrSlugTaken
	case errors.Is(err, repository.ErrReferenceMissing):
		return ErrMissingReference
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
