package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Profile struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   *int64    `json:"referred_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

type SecurityEventKind string

const (
	SecurityLoginSuccess    SecurityEventKind = "login_success"
	SecurityLoginFailed     SecurityEventKind = "login_failed"
	SecurityLogout          SecurityEventKind = "logout"
	SecurityPasswordChanged SecurityEventKind = "password_changed"
	SecurityRoleChanged     SecurityEventKind = "role_changed"
)

type SecurityEvent struct {
	ID        int64             `json:"id"`
	UserID    *int64            `json:"user_id,omitempty"`
	Kind      SecurityEventKind `json:"kind"`
	IP        string            `json:"ip"`
	UserAgent string            `json:"user_agent"`
	CreatedAt time.Time         `json:"created_at"`
}

type PaymentMethod struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Brand       string    `json:"brand"`
	Last4       string    `json:"last4"`
	ExpMonth    int       `json:"exp_month"`
	ExpYear     int       `json:"exp_year"`
	IsDefault   bool      `json:"is_default"`
	ProviderRef string    `json:"provider_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expired reports whether the card expiry month lies before now.
func (m PaymentMethod) Expired(now time.Time) bool {
	y, mo, _ := now.Date()
	if m.ExpYear != y {
		return m.ExpYear < y
	}
	return m.ExpMonth < int(mo)
}

type SavedEvent struct {
	Event   Event     `json:"event"`
	SavedAt time.Time `json:"saved_at"`
}
