package domain

import (
	"context"
	"time"
)

// Session is a server-side login session referenced by the session cookie.
type Session struct {
	SID       string    `json:"sid"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionRepository stores login sessions keyed by session id. Get must
// return ErrNotFound for expired sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, sid string) (*Session, error)
	Delete(ctx context.Context, sid string) error
}
