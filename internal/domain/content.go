package domain

import (
	"encoding/json"
	"time"
)

type PageKind string

const (
	PageBlog     PageKind = "blog"
	PageMagazine PageKind = "magazine"
	PagePage     PageKind = "page"
)

func (k PageKind) Valid() bool {
	switch k {
	case PageBlog, PageMagazine, PagePage:
		return true
	}
	return false
}

type Page struct {
	ID           int64         `json:"id"`
	Slug         string        `json:"slug"`
	Title        string        `json:"title"`
	Excerpt      string        `json:"excerpt"`
	BodyMarkdown string        `json:"body_markdown"`
	BodyHTML     string        `json:"body_html"`
	Kind         PageKind      `json:"kind"`
	Status       PublishStatus `json:"status"`
	CategoryID   *int64        `json:"category_id,omitempty"`
	AuthorID     int64         `json:"author_id"`
	PublishedAt  *time.Time    `json:"published_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type PageFilter struct {
	Kind         PageKind
	Status       PublishStatus
	CategorySlug string
	Limit        int
	Offset       int
}

type VanityStatus string

const (
	VanityPending  VanityStatus = "pending"
	VanityApproved VanityStatus = "approved"
	VanityRejected VanityStatus = "rejected"
)

type VanityURL struct {
	ID          int64        `json:"id"`
	Path        string       `json:"path"`
	TargetURL   string       `json:"target_url"`
	RequestedBy int64        `json:"requested_by"`
	Status      VanityStatus `json:"status"`
	ReviewedBy  *int64       `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time   `json:"reviewed_at,omitempty"`
	Note        string       `json:"note"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value" swaggertype:"object"`
	UpdatedAt time.Time       `json:"updated_at"`
}
