package domain

import (
	"context"
	"time"
)

// Session is the server-side record behind a client's session cookie.
type Session struct {
	ID        string    `json:"id"`
	GrowID    string    `json:"grow_id"`
	LoggedIn  bool      `json:"logged_in"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its fixed TTL at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type SessionStore interface {
	Create(ctx context.Context, growID string) (Session, error)
	// Lookup returns ErrSessionNotFound or ErrSessionExpired for unusable IDs.
	Lookup(ctx context.Context, id string) (Session, error)
	// Destroy is idempotent.
	Destroy(ctx context.Context, id string) error
}
