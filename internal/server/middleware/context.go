package middleware

import (
	"context"

	"github.com/promptvault/promptvault/internal/domain"
)

type contextKey string

const ContextKeyUser contextKey = "user"

// UserFromContext returns the request's resolved user, if any.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	v, ok := ctx.Value(ContextKeyUser).(*domain.User)
	return v, ok
}

// OwnerIDFromContext returns the owner-scoping id for repository calls:
// the signed-in user's id, or "" (no filter) for anonymous reads.
func OwnerIDFromContext(ctx context.Context) string {
	if u, ok := UserFromContext(ctx); ok {
		return u.ID
	}
	return ""
}
