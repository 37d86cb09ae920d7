package postgresrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
)

type CatalogRepo struct {
	conn
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	return &CatalogRepo{r.conn.with(db)}
}

func (r *CatalogRepo) CreateOrganizer(ctx context.Context, o domain.Organizer) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateOrganizer"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO organizers(name, slug, email, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		o.Name, o.Slug, o.Email, o.OwnerID,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *CatalogRepo) ListOrganizers(ctx context.Context, limit, offset int) ([]domain.Organizer, error) {
	const op = "postgresrepo.CatalogRepo.ListOrganizers"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, slug, email, owner_id, created_at
		 FROM organizers
		 ORDER BY name
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Organizer, error) {
		var o domain.Organizer
		err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Email, &o.OwnerID, &o.CreatedAt)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

// CreateVenue creates a venue and returns its ID.
//
// Returns:
//   - error: repository.ErrConflict if a venue with the same name exists.
func (r *CatalogRepo) CreateVenue(ctx context.Context, v domain.Venue) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateVenue"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO venues(name, address, city, capacity)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		v.Name, v.Address, v.City, v.Capacity,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *CatalogRepo) ListVenues(ctx context.Context, limit, offset int) ([]domain.Venue, error) {
	const op = "postgresrepo.CatalogRepo.ListVenues"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, address, city, capacity
		 FROM venues
		 ORDER BY name
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Venue, error) {
		var v domain.Venue
		err := row.Scan(&v.ID, &v.Name, &v.Address, &v.City, &v.Capacity)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func (r *CatalogRepo) CreateCategory(ctx context.Context, c domain.Category) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateCategory"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO categories(name, slug, kind)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		c.Name, c.Slug, c.Kind,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *CatalogRepo) ListCategories(ctx context.Context, kind domain.CategoryKind) ([]domain.Category, error) {
	const op = "postgresrepo.CatalogRepo.ListCategories"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, slug, kind
		 FROM categories
		 WHERE $1 = '' OR kind = $1
		 ORDER BY name`,
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Kind)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

const eventColumns = `e.id, e.organizer_id, e.venue_id, e.category_id, e.title, e.slug,
	e.description, e.image_key, e.starts_at, e.ends_at, e.status, e.created_at, e.updated_at`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID,
		&e.OrganizerID,
		&e.VenueID,
		&e.CategoryID,
		&e.Title,
		&e.Slug,
		&e.Description,
		&e.ImageKey,
		&e.Starts,
		&e.Ends,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

// CreateEvent inserts an event and returns its ID.
//
// Returns:
//   - error: repository.ErrConflict if the slug is taken.
//   - error: repository.ErrReferenceMissing if the organizer, venue or
//     category does not exist.
func (r *CatalogRepo) CreateEvent(ctx context.Context, e domain.Event) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateEvent"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO events(organizer_id, venue_id, category_id, title, slug,
		                    description, image_key, starts_at, ends_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		e.OrganizerID, e.VenueID, e.CategoryID, e.Title, e.Slug,
		e.Description, e.ImageKey, e.Starts, e.Ends, e.Status,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// UpdateEvent overwrites the editable fields of an event. Status is
// changed through SetEventStatus only.
func (r *CatalogRepo) UpdateEvent(ctx context.Context, e domain.Event) error {
	const op = "postgresrepo.CatalogRepo.UpdateEvent"

	tag, err := r.handle().Exec(ctx,
		`UPDATE events
		 SET organizer_id = $2, venue_id = $3, category_id = $4, title = $5, slug = $6,
		     description = $7, image_key = $8, starts_at = $9, ends_at = $10, updated_at = now()
		 WHERE id = $1`,
		e.ID, e.OrganizerID, e.VenueID, e.CategoryID, e.Title, e.Slug,
		e.Description, e.ImageKey, e.Starts, e.Ends,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

func (r *CatalogRepo) SetEventStatus(ctx context.Context, id int64, status domain.PublishStatus) error {
	const op = "postgresrepo.CatalogRepo.SetEventStatus"

	tag, err := r.handle().Exec(ctx,
		`UPDATE events SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

// DeleteEvent removes an event with its ticket types and holds.
//
// Returns:
//   - error: repository.ErrReferenceMissing when orders still reference it.
func (r *CatalogRepo) DeleteEvent(ctx context.Context, id int64) error {
	const op = "postgresrepo.CatalogRepo.DeleteEvent"

	tag, err := r.handle().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

// GetEvent retrieves an event by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the event is not found.
func (r *CatalogRepo) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "postgresrepo.CatalogRepo.GetEvent"

	e, err := scanEvent(r.handle().QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &e, nil
}

// GetEventForUpdate is GetEvent with a row lock; use it inside a unit of work.
func (r *CatalogRepo) GetEventForUpdate(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "postgresrepo.CatalogRepo.GetEventForUpdate"

	e, err := scanEvent(r.handle().QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &e, nil
}

// ListEvents lists events matching the filter ordered by start time.
func (r *CatalogRepo) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	const op = "postgresrepo.CatalogRepo.ListEvents"

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	status := arg(f.Status)
	where = append(where, "("+status+"::text = '' OR e.status = "+status+")")

	if f.CategorySlug != "" {
		where = append(where, "c.slug = "+arg(f.CategorySlug))
	}
	if f.City != "" {
		where = append(where, "lower(v.city) = lower("+arg(f.City)+")")
	}
	if f.Query != "" {
		where = append(where, "e.title ILIKE "+arg("%"+escapeLike(f.Query)+"%"))
	}
	if f.From != nil {
		where = append(where, "e.ends_at >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "e.starts_at < "+arg(*f.To))
	}

	sql := `SELECT ` + eventColumns + `
		FROM events e
		JOIN venues v ON v.id = e.venue_id
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.starts_at, e.id
		LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)

	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Event, error) {
		return scanEvent(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

const ticketTypeColumns = `id, event_id, name, description, price_cents, capacity, sold, held,
	max_per_order, sales_start, sales_end, status`

func scanTicketType(row pgx.Row) (domain.TicketType, error) {
	var t domain.TicketType
	err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.Name,
		&t.Description,
		&t.PriceCents,
		&t.Capacity,
		&t.Sold,
		&t.Held,
		&t.MaxPerOrder,
		&t.SalesStart,
		&t.SalesEnd,
		&t.Status,
	)
	return t, err
}

func (r *CatalogRepo) CreateTicketType(ctx context.Context, t domain.TicketType) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateTicketType"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO ticket_types(event_id, name, description, price_cents, capacity,
		                          max_per_order, sales_start, sales_end, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		t.EventID, t.Name, t.Description, t.PriceCents, t.Capacity,
		t.MaxPerOrder, t.SalesStart, t.SalesEnd, t.Status,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// UpdateTicketType overwrites the editable fields. The sold+held <= capacity
// check constraint rejects capacity drops below what is already committed.
//
// Returns:
//   - error: repository.ErrCheckViolation if capacity is below sold+held.
func (r *CatalogRepo) UpdateTicketType(ctx context.Context, t domain.TicketType) error {
	const op = "postgresrepo.CatalogRepo.UpdateTicketType"

	tag, err := r.handle().Exec(ctx,
		`UPDATE ticket_types
		 SET name = $3, description = $4, price_cents = $5, capacity = $6,
		     max_per_order = $7, sales_start = $8, sales_end = $9, status = $10
		 WHERE id = $1 AND event_id = $2`,
		t.ID, t.EventID, t.Name, t.Description, t.PriceCents, t.Capacity,
		t.MaxPerOrder, t.SalesStart, t.SalesEnd, t.Status,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

func (r *CatalogRepo) ListTicketTypes(ctx context.Context, eventID int64) ([]domain.TicketType, error) {
	const op = "postgresrepo.CatalogRepo.ListTicketTypes"

	rows, err := r.handle().Query(ctx,
		`SELECT `+ticketTypeColumns+`
		 FROM ticket_types
		 WHERE event_id = $1
		 ORDER BY price_cents, id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TicketType, error) {
		return scanTicketType(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
