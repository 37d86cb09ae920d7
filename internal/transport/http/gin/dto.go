package httpgin

import (
	"encoding/json"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type IDResponse struct {
	ID int64 `json:"id"`
}

// catalog

type CreateOrganizerRequest struct {
	Name    string `json:"name" binding:"required"`
	Slug    string `json:"slug"`
	Email   string `json:"email"`
	OwnerID *int64 `json:"owner_id"`
}

type CreateVenueRequest struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Capacity int    `json:"capacity" binding:"gte=0"`
}

type CreateCategoryRequest struct {
	Name string              `json:"name" binding:"required"`
	Slug string              `json:"slug"`
	Kind domain.CategoryKind `json:"kind" binding:"required,oneof=event content"`
}

type EventRequest struct {
	OrganizerID int64     `json:"organizer_id" binding:"required"`
	VenueID     int64     `json:"venue_id" binding:"required"`
	CategoryID  *int64    `json:"category_id"`
	Title       string    `json:"title" binding:"required"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	ImageKey    string    `json:"image_key"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
}

func (r EventRequest) toDomain(id int64) domain.Event {
	return domain.Event{
		ID:          id,
		OrganizerID: r.OrganizerID,
		VenueID:     r.VenueID,
		CategoryID:  r.CategoryID,
		Title:       r.Title,
		Slug:        r.Slug,
		Description: r.Description,
		ImageKey:    r.ImageKey,
		Starts:      r.StartsAt,
		Ends:        r.EndsAt,
	}
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type TicketTypeRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	PriceCents  int64      `json:"price_cents" binding:"gte=0"`
	Capacity    int        `json:"capacity" binding:"gte=0"`
	MaxPerOrder int        `json:"max_per_order" binding:"gte=0"`
	SalesStart  *time.Time `json:"sales_start"`
	SalesEnd    *time.Time `json:"sales_end"`
	Status      string     `json:"status"`
}

func (r TicketTypeRequest) toDomain(eventID, id int64) domain.TicketType {
	return domain.TicketType{
		ID:          id,
		EventID:     eventID,
		Name:        r.Name,
		Description: r.Description,
		PriceCents:  r.PriceCents,
		Capacity:    r.Capacity,
		MaxPerOrder: r.MaxPerOrder,
		SalesStart:  r.SalesStart,
		SalesEnd:    r.SalesEnd,
		Status:      domain.TicketTypeStatus(r.Status),
	}
}

// holds, orders and tickets

type CreateHoldRequest struct {
	Items  []domain.HoldItem `json:"items" binding:"required,min=1"`
	TTLSec int               `json:"ttl_sec" binding:"gte=0"`
}

type CheckoutRequest struct {
	HoldID string `json:"hold_id" binding:"required,uuid"`
}

type CheckInRequest struct {
	Code   string `json:"code" binding:"required"`
	DryRun bool   `json:"dry_run"`
}

// accounts

type SignUpRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	DisplayName  string `json:"display_name"`
	ReferralCode string `json:"referral_code"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expires_in"`
	Profile   *domain.Profile `json:"profile"`
}

type UpdateMeRequest struct {
	DisplayName string `json:"display_name"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type PaymentMethodRequest struct {
	Brand       string `json:"brand" binding:"required"`
	Last4       string `json:"last4" binding:"required"`
	ExpMonth    int    `json:"exp_month" binding:"required"`
	ExpYear     int    `json:"exp_year" binding:"required"`
	ProviderRef string `json:"provider_ref"`
	IsDefault   bool   `json:"is_default"`
}

// content, vanity, settings

type PageRequest struct {
	Slug         string          `json:"slug"`
	Title        string          `json:"title" binding:"required"`
	Excerpt      string          `json:"excerpt"`
	BodyMarkdown string          `json:"body_markdown"`
	Kind         domain.PageKind `json:"kind" binding:"required"`
	CategoryID   *int64          `json:"category_id"`
}

func (r PageRequest) toDomain(id int64) domain.Page {
	return domain.Page{
		ID:           id,
		Slug:         r.Slug,
		Title:        r.Title,
		Excerpt:      r.Excerpt,
		BodyMarkdown: r.BodyMarkdown,
		Kind:         r.Kind,
		CategoryID:   r.CategoryID,
	}
}

type VanityRequest struct {
	Path      string `json:"path" binding:"required"`
	TargetURL string `json:"target_url" binding:"required"`
}

type ReviewRequest struct {
	Note string `json:"note"`
}

type SettingRequest struct {
	Value json.RawMessage `json:"value" binding:"required" swaggertype:"object"`
}

// ads

type AdZoneRequest struct {
	Key    string `json:"key" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type AdRequest struct {
	ZoneID    int64      `json:"zone_id" binding:"required"`
	Title     string     `json:"title" binding:"required"`
	ImageURL  string     `json:"image_url"`
	TargetURL string     `json:"target_url" binding:"required"`
	Weight    int        `json:"weight"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	Status    string     `json:"status"`
}

func (r AdRequest) toDomain(id int64) domain.Ad {
	return domain.Ad{
		ID:        id,
		ZoneID:    r.ZoneID,
		Title:     r.Title,
		ImageURL:  r.ImageURL,
		TargetURL: r.TargetURL,
		Weight:    r.Weight,
		StartsAt:  r.StartsAt,
		EndsAt:    r.EndsAt,
		Status:    domain.AdStatus(r.Status),
	}
}
