package domain

import "time"

// Session es el blob persistido por sid para sesiones autenticadas por cookie.
type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"-"`
}

// Expired reporta si la sesion vencio respecto de now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
