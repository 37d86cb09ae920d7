// Package content manages blog posts, magazine articles and static pages
// written in Markdown.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/repository"
	postgresrepo "github.com/kirinyoku/eventhub/internal/repository/postgres"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const (
	defaultPage = 20
	maxPage     = 100

	maxTitleLen   = 200
	maxExcerptLen = 500
)

type Service struct {
	store *postgresrepo.Store
	md    goldmark.Markdown
}

func New(store *postgresrepo.Store) *Service {
	// Raw HTML in the source is dropped; goldmark only passes it through
	// with html.WithUnsafe.
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	return &Service{store: store, md: md}
}

// Create stores a new draft page written by authorID. The slug is derived
// from the title when empty.
//
// Returns:
//   - int64: the page ID.
//   - error: content.ErrSlugTaken if another page has the slug.
//   - error: content.ErrCategoryNotFound if the category does not exist.
func (s *Service) Create(ctx context.Context, authorID int64, p domain.Page) (int64, error) {
	const op = "service.content.Create"

	p.AuthorID = authorID
	p.Status = domain.StatusDraft

	if err := s.prepare(&p); err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	id, err := s.store.Content().CreatePage(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	return id, nil
}

// Update replaces the editable fields of a page and re-renders its body.
// Status changes go through SetStatus.
func (s *Service) Update(ctx context.Context, p domain.Page) error {
	const op = "service.content.Update"

	if err := s.prepare(&p); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.store.Content().UpdatePage(ctx, p); err != nil {
		return fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	return nil
}

// SetStatus moves a page along the draft/published/archived cycle. The
// first publish stamps published_at.
//
// Returns:
//   - error: content.ErrInvalidTransition if the move is not allowed.
func (s *Service) SetStatus(ctx context.Context, id int64, status domain.PublishStatus) error {
	const op = "service.content.SetStatus"

	if !status.Valid() {
		return fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown status"))
	}

	repo := s.store.Content()

	p, err := repo.GetPage(ctx, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	if p.Status == status {
		return nil
	}

	if !p.Status.CanTransition(status) {
		return fmt.Errorf("%s:%w", op, ErrInvalidTransition)
	}

	if err := repo.SetPageStatus(ctx, id, status); err != nil {
		return fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "service.content.Delete"

	if err := s.store.Content().DeletePage(ctx, id); err != nil {
		return fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	return nil
}

// Get returns a page by ID for the admin editor.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Page, error) {
	const op = "service.content.Get"

	p, err := s.store.Content().GetPage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	return p, nil
}

// GetPublished returns a published page by slug.
func (s *Service) GetPublished(ctx context.Context, slug string) (*domain.Page, error) {
	const op = "service.content.GetPublished"

	p, err := s.store.Content().GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, mapRepoErr(err))
	}

	if p.Status != domain.StatusPublished {
		return nil, fmt.Errorf("%s:%w", op, ErrPageNotFound)
	}

	return p, nil
}

// List lists pages. The public listing only ever shows published pages.
func (s *Service) List(ctx context.Context, f domain.PageFilter, admin bool) ([]domain.Page, error) {
	const op = "service.content.List"

	if f.Kind != "" && !f.Kind.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("kind", "unknown page kind"))
	}

	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, domain.Invalid("status", "unknown status"))
	}

	if !admin {
		f.Status = domain.StatusPublished
	}

	f.Limit = domain.ClampLimit(f.Limit, defaultPage, maxPage)
	f.Offset = max(f.Offset, 0)

	out, err := s.store.Content().ListPages(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Render converts Markdown to HTML.
func (s *Service) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) prepare(p *domain.Page) error {
	p.Title = strings.TrimSpace(p.Title)
	p.Excerpt = strings.TrimSpace(p.Excerpt)
	p.Slug = domain.Slugify(firstNonEmpty(p.Slug, p.Title))

	switch {
	case p.Title == "":
		return domain.Invalid("title", "is required")
	case len(p.Title) > maxTitleLen:
		return domain.Invalid("title", "is too long")
	case len(p.Excerpt) > maxExcerptLen:
		return domain.Invalid("excerpt", "is too long")
	case p.Slug == "":
		return domain.Invalid("slug", "must contain letters or digits")
	case !p.Kind.Valid():
		return domain.Invalid("kind", "must be blog, magazine or page")
	}

	html, err := s.Render(p.BodyMarkdown)
	if err != nil {
		return err
	}
	p.BodyHTML = html

	return nil
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrPageNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrSlugTaken
	case errors.Is(err, repository.ErrReferenceMissing):
		return ErrCategoryNotFound
	}
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
