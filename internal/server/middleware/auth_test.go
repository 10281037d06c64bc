package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault/internal/auth"
	"github.com/promptvault/promptvault/internal/domain"
	"github.com/promptvault/promptvault/internal/server/middleware"
)

type mockResolver struct {
	sessionUser func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockResolver) SessionUser(ctx context.Context, token string) (*domain.User, error) {
	return m.sessionUser(ctx, token)
}

// captureUser returns a handler recording the context user it saw.
func captureUser(got **domain.User, ok *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, *ok = middleware.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("no_identity_injects_dev_user_when_writes_open", func(t *testing.T) {
		t.Parallel()
		var (
			user *domain.User
			ok   bool
		)
		policy := auth.Policy{AnonymousWrites: true}
		h := middleware.Session(nil, policy)(captureUser(&user, &ok))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/logs", nil))

		require.True(t, ok)
		assert.Equal(t, "dev-user-1", user.ID)
	})

	t.Run("no_identity_stays_anonymous_when_writes_closed", func(t *testing.T) {
		t.Parallel()
		var (
			user *domain.User
			ok   bool
		)
		h := middleware.Session(nil, auth.Policy{})(captureUser(&user, &ok))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/logs", nil))

		assert.False(t, ok)
		assert.Nil(t, user)
	})

	t.Run("resolves_session_cookie", func(t *testing.T) {
		t.Parallel()
		var (
			user *domain.User
			ok   bool
		)
		resolver := &mockResolver{
			sessionUser: func(_ context.Context, token string) (*domain.User, error) {
				assert.Equal(t, "tok-1", token)
				return &domain.User{ID: "google-123", Email: "dev@example.com"}, nil
			},
		}
		policy := auth.Policy{IdentityConfigured: true}
		h := middleware.Session(resolver, policy)(captureUser(&user, &ok))

		req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "tok-1"})
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, ok)
		assert.Equal(t, "google-123", user.ID)
	})

	t.Run("missing_cookie_passes_through_anonymous", func(t *testing.T) {
		t.Parallel()
		var (
			user *domain.User
			ok   bool
		)
		resolver := &mockResolver{
			sessionUser: func(context.Context, string) (*domain.User, error) {
				t.Fatal("resolver must not be called without a cookie")
				return nil, nil
			},
		}
		policy := auth.Policy{IdentityConfigured: true}
		h := middleware.Session(resolver, policy)(captureUser(&user, &ok))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/logs", nil))

		assert.False(t, ok)
	})

	t.Run("stale_cookie_passes_through_anonymous", func(t *testing.T) {
		t.Parallel()
		var (
			user *domain.User
			ok   bool
		)
		resolver := &mockResolver{
			sessionUser: func(context.Context, string) (*domain.User, error) {
				return nil, errors.New("no valid session")
			},
		}
		policy := auth.Policy{IdentityConfigured: true}
		h := middleware.Session(resolver, policy)(captureUser(&user, &ok))

		req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "stale"})
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.False(t, ok)
	})
}

func TestRequireReadWrite(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	asUser := func(r *http.Request) *http.Request {
		ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, &domain.User{ID: "google-123"})
		return r.WithContext(ctx)
	}

	t.Run("read_rejected_without_session_when_identity_configured", func(t *testing.T) {
		t.Parallel()
		policy := auth.Policy{IdentityConfigured: true}
		rec := httptest.NewRecorder()

		middleware.RequireRead(policy)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"title":"Unauthorized","status":401,"detail":"authentication required"}`, rec.Body.String())
	})

	t.Run("read_allowed_with_session", func(t *testing.T) {
		t.Parallel()
		policy := auth.Policy{IdentityConfigured: true}
		rec := httptest.NewRecorder()

		req := asUser(httptest.NewRequest(http.MethodGet, "/api/logs", nil))
		middleware.RequireRead(policy)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("read_open_without_identity", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		middleware.RequireRead(auth.Policy{})(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("write_rejected_without_identity_by_default", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		middleware.RequireWrite(auth.Policy{})(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/logs", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("write_allowed_for_dev_user_when_writes_open", func(t *testing.T) {
		t.Parallel()
		policy := auth.Policy{AnonymousWrites: true}
		rec := httptest.NewRecorder()

		req := httptest.NewRequest(http.MethodPost, "/api/logs", nil)
		req = req.WithContext(context.WithValue(req.Context(), middleware.ContextKeyUser, auth.DevUser()))
		middleware.RequireWrite(policy)(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestOwnerIDFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, middleware.OwnerIDFromContext(context.Background()))

	ctx := context.WithValue(context.Background(), middleware.ContextKeyUser, &domain.User{ID: "google-123"})
	assert.Equal(t, "google-123", middleware.OwnerIDFromContext(ctx))
}
