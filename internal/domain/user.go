package domain

import (
	"context"
	"time"
)

// User is an authenticated developer. The ID is the identity provider's
// subject id, so sign-in is an upsert keyed on it. Users are never deleted
// by this system.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName,omitempty"`
	LastName        string    `json:"lastName,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type UserRepository interface {
	Get(ctx context.Context, id string) (*User, error)
	// Upsert inserts the user or, when the id already exists, refreshes the
	// profile fields and UpdatedAt. Returns the stored record.
	Upsert(ctx context.Context, u *User) (*User, error)
}
