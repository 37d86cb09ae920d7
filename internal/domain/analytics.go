package domain

import "time"

type TicketTypeReport struct {
	TicketTypeID int64  `json:"ticket_type_id"`
	Name         string `json:"name"`
	Sold         int    `json:"sold"`
	Capacity     int    `json:"capacity"`
	RevenueCents int64  `json:"revenue_cents"`
}

type EventReport struct {
	EventID     int64              `json:"event_id"`
	Views       int64              `json:"views"`
	Orders      int64              `json:"orders"`
	TicketsSold int64              `json:"tickets_sold"`
	CheckedIn   int64              `json:"checked_in"`
	GrossCents  int64              `json:"gross_cents"`
	FeeCents    int64              `json:"fee_cents"`
	Conversion  float64            `json:"conversion"`
	TicketTypes []TicketTypeReport `json:"ticket_types"`
	GeneratedAt time.Time          `json:"generated_at"`
}

type Referrer struct {
	ProfileID    int64  `json:"profile_id"`
	ReferralCode string `json:"referral_code"`
	Referrals    int64  `json:"referrals"`
}

type NetworkGrowth struct {
	From            time.Time  `json:"from"`
	To              time.Time  `json:"to"`
	Signups         int64      `json:"signups"`
	ReferredSignups int64      `json:"referred_signups"`
	UsersAtStart    int64      `json:"users_at_start"`
	ViralCoeff      float64    `json:"viral_coefficient"`
	TopReferrers    []Referrer `json:"top_referrers"`
}

// ViralCoefficient is referred signups per user that existed when the
// window opened.
func ViralCoefficient(referred, usersAtStart int64) float64 {
	if usersAtStart <= 0 {
		return 0
	}
	return float64(referred) / float64(usersAtStart)
}

// Conversion is orders per view, zero without views.
func Conversion(orders, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(orders) / float64(views)
}

// DailyViews is a per-day view delta for one event.
type DailyViews struct {
	EventID int64
	Day     time.Time
	Views   int64
}
