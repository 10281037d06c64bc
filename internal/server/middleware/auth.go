package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/promptvault/promptvault/internal/auth"
	"github.com/promptvault/promptvault/internal/domain"
)

// SessionResolver resolves a session cookie token to a user.
// *auth.Service satisfies this interface.
type SessionResolver interface {
	SessionUser(ctx context.Context, token string) (*domain.User, error)
}

// Session resolves the request's identity and stores it in the context.
// It never rejects: the read/write gates decide whether an anonymous
// request may proceed. Without an identity provider, requests run as the
// fixed development user when anonymous writes are enabled.
func Session(resolver SessionResolver, policy auth.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy.IdentityConfigured {
				if policy.AnonymousWrites {
					ctx := context.WithValue(r.Context(), ContextKeyUser, auth.DevUser())
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.SessionUser(r.Context(), cookie.Value)
			if err != nil {
				log.Debug().Err(err).Msg("session: cookie did not resolve to a user")
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRead gates read operations per the access policy.
func RequireRead(policy auth.Policy) func(http.Handler) http.Handler {
	return requirePolicy(policy.AllowRead)
}

// RequireWrite gates write operations per the access policy.
func RequireWrite(policy auth.Policy) func(http.Handler) http.Handler {
	return requirePolicy(policy.AllowWrite)
}

func requirePolicy(allow func(authenticated bool) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, authenticated := UserFromContext(r.Context())
			if !allow(authenticated) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"title":"Unauthorized","status":401,"detail":"authentication required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
