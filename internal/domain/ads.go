package domain

import "time"

type AdStatus string

const (
	AdActive AdStatus = "active"
	AdPaused AdStatus = "paused"
)

type AdZone struct {
	ID     int64  `json:"id"`
	Key    string `json:"key"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Ad struct {
	ID          int64      `json:"id"`
	ZoneID      int64      `json:"zone_id"`
	Title       string     `json:"title"`
	ImageURL    string     `json:"image_url"`
	TargetURL   string     `json:"target_url"`
	Weight      int        `json:"weight"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Status      AdStatus   `json:"status"`
	Impressions int64      `json:"impressions"`
	Clicks      int64      `json:"clicks"`
}

// Running reports whether the ad may be served at now.
func (a Ad) Running(now time.Time) bool {
	if a.Status != AdActive || a.Weight <= 0 {
		return false
	}
	if a.StartsAt != nil && now.Before(*a.StartsAt) {
		return false
	}
	if a.EndsAt != nil && !now.Before(*a.EndsAt) {
		return false
	}
	return true
}
