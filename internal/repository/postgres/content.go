package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/eventhub/internal/domain"
)

type ContentRepo struct {
	conn
}

func (r *ContentRepo) With(db DB) *ContentRepo {
	return &ContentRepo{r.conn.with(db)}
}

const pageColumns = `p.id, p.slug, p.title, p.excerpt, p.body_markdown, p.body_html, p.kind,
	p.status, p.category_id, p.author_id, p.published_at, p.created_at, p.updated_at`

func scanPage(row pgx.Row) (domain.Page, error) {
	var p domain.Page
	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Excerpt,
		&p.BodyMarkdown,
		&p.BodyHTML,
		&p.Kind,
		&p.Status,
		&p.CategoryID,
		&p.AuthorID,
		&p.PublishedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *ContentRepo) CreatePage(ctx context.Context, p domain.Page) (int64, error) {
	const op = "postgresrepo.ContentRepo.CreatePage"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO content_pages(slug, title, excerpt, body_markdown, body_html, kind, status, category_id, author_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		p.Slug, p.Title, p.Excerpt, p.BodyMarkdown, p.BodyHTML, p.Kind, p.Status, p.CategoryID, p.AuthorID,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

func (r *ContentRepo) UpdatePage(ctx context.Context, p domain.Page) error {
	const op = "postgresrepo.ContentRepo.UpdatePage"

	tag, err := r.handle().Exec(ctx,
		`UPDATE content_pages
		 SET slug = $2, title = $3, excerpt = $4, body_markdown = $5, body_html = $6,
		     kind = $7, category_id = $8, updated_at = now()
		 WHERE id = $1`,
		p.ID, p.Slug, p.Title, p.Excerpt, p.BodyMarkdown, p.BodyHTML, p.Kind, p.CategoryID,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

// SetPageStatus moves a page to status. The first publish stamps
// published_at; later publishes keep it.
func (r *ContentRepo) SetPageStatus(ctx context.Context, id int64, status domain.PublishStatus) error {
	const op = "postgresrepo.ContentRepo.SetPageStatus"

	tag, err := r.handle().Exec(ctx,
		`UPDATE content_pages
		 SET status = $2,
		     published_at = CASE WHEN $2 = 'published' THEN coalesce(published_at, now()) ELSE published_at END,
		     updated_at = now()
		 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

func (r *ContentRepo) DeletePage(ctx context.Context, id int64) error {
	const op = "postgresrepo.ContentRepo.DeletePage"

	tag, err := r.handle().Exec(ctx, `DELETE FROM content_pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, translateDBErr(pgx.ErrNoRows))
	}

	return nil
}

func (r *ContentRepo) GetPage(ctx context.Context, id int64) (*domain.Page, error) {
	const op = "postgresrepo.ContentRepo.GetPage"

	p, err := scanPage(r.handle().QueryRow(ctx,
		`SELECT `+pageColumns+` FROM content_pages p WHERE p.id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &p, nil
}

func (r *ContentRepo) GetPageBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	const op = "postgresrepo.ContentRepo.GetPageBySlug"

	p, err := scanPage(r.handle().QueryRow(ctx,
		`SELECT `+pageColumns+` FROM content_pages p WHERE p.slug = $1`,
		slug,
	))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &p, nil
}

// ListPages lists pages matching the filter, newest publication first.
// Empty filter fields match anything.
func (r *ContentRepo) ListPages(ctx context.Context, f domain.PageFilter) ([]domain.Page, error) {
	const op = "postgresrepo.ContentRepo.ListPages"

	rows, err := r.handle().Query(ctx,
		`SELECT `+pageColumns+`
		 FROM content_pages p
		 LEFT JOIN categories c ON c.id = p.category_id
		 WHERE ($1 = '' OR p.kind = $1)
		   AND ($2 = '' OR p.status = $2)
		   AND ($3 = '' OR c.slug = $3)
		 ORDER BY p.published_at DESC NULLS LAST, p.id DESC
		 LIMIT $4 OFFSET $5`,
		string(f.Kind), string(f.Status), f.CategorySlug, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Page, error) {
		return scanPage(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}
