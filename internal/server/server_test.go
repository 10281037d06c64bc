package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault/internal/auth"
	"github.com/promptvault/promptvault/internal/config"
	"github.com/promptvault/promptvault/internal/domain"
	"github.com/promptvault/promptvault/internal/server"
	"github.com/promptvault/promptvault/internal/store/memory"
)

const testSecret = "test-session-secret-32-chars-ok!"

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageMemory,
		Session: config.SessionConfig{
			Secret: testSecret,
			TTL:    time.Hour,
		},
		Server: config.ServerConfig{
			Addr:         ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			CORSOrigins:  []string{"http://localhost:5173"},
		},
	}
}

// newServer wires a server on the in-memory store. A nil provider means no
// identity; anonymousWrites opens the write gate in that mode.
func newServer(t *testing.T, provider *auth.OAuthProvider, anonymousWrites bool) (http.Handler, *memory.Store, *auth.Service) {
	t.Helper()

	cfg := testConfig()
	cfg.AnonymousWrites = anonymousWrites

	store := memory.New()
	svc := auth.NewService(store.Users(), store.Sessions(), provider, cfg.Session.Secret, cfg.Session.TTL, false)
	srv := server.New(cfg, store, svc)
	return srv.Handler(), store, svc
}

func seedLog(t *testing.T, store *memory.Store, ownerID string) *domain.PromptLog {
	t.Helper()

	log, err := store.Logs().Create(context.Background(), &domain.LogInput{
		PrURL:        "https://github.com/acme/repo/pull/42",
		AuthorEmail:  "dev@example.com",
		Orchestrator: "Cursor",
		LLM:          "GPT-4",
		Content:      "# Session notes",
		OwnerID:      ownerID,
	})
	require.NoError(t, err)
	return log
}

func sessionCookie(t *testing.T, store *memory.Store, userID string) *http.Cookie {
	t.Helper()
	ctx := context.Background()

	_, err := store.Users().Upsert(ctx, &domain.User{ID: userID, Email: userID + "@example.com"})
	require.NoError(t, err)

	now := time.Now()
	sid := "sid-" + userID
	require.NoError(t, store.Sessions().Create(ctx, &domain.Session{
		SID:       sid,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	token, err := auth.IssueSessionToken(testSecret, sid, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.SessionCookieName, Value: token}
}

// ---------------------------------------------------------------------------
// Route wiring
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	t.Parallel()

	handler, _, _ := newServer(t, nil, false)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAccessGates(t *testing.T) {
	t.Parallel()

	t.Run("no_identity_reads_open_writes_closed", func(t *testing.T) {
		t.Parallel()
		handler, store, _ := newServer(t, nil, false)
		seedLog(t, store, "")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("anonymous_writes_run_as_dev_user", func(t *testing.T) {
		t.Parallel()
		handler, _, _ := newServer(t, nil, true)

		body := `{"prUrl":"https://github.com/acme/repo/pull/1","authorEmail":"dev@example.com","orchestrator":"Cursor","llm":"GPT-4","content":"body"}`
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var created domain.PromptLog
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
		assert.Equal(t, "dev-user-1", created.OwnerID)
	})

	t.Run("identity_configured_reads_require_session", func(t *testing.T) {
		t.Parallel()
		provider := auth.NewGoogleProvider("client-id", "client-secret", "http://localhost/callback")
		handler, store, _ := newServer(t, provider, false)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
		req.AddCookie(sessionCookie(t, store, "google-123"))
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("signed_in_user_sees_only_their_logs", func(t *testing.T) {
		t.Parallel()
		provider := auth.NewGoogleProvider("client-id", "client-secret", "http://localhost/callback")
		handler, store, _ := newServer(t, provider, false)
		seedLog(t, store, "google-123")
		seedLog(t, store, "someone-else")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
		req.AddCookie(sessionCookie(t, store, "google-123"))
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var logs []*domain.PromptLog
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&logs))
		require.Len(t, logs, 1)
		assert.Equal(t, "google-123", logs[0].OwnerID)
	})

	t.Run("current_user_endpoint", func(t *testing.T) {
		t.Parallel()
		provider := auth.NewGoogleProvider("client-id", "client-secret", "http://localhost/callback")
		handler, store, _ := newServer(t, provider, false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
		req.AddCookie(sessionCookie(t, store, "google-123"))
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var user domain.User
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
		assert.Equal(t, "google-123", user.ID)
	})
}

// ---------------------------------------------------------------------------
// OAuth redirect flow
// ---------------------------------------------------------------------------

func TestSignIn(t *testing.T) {
	t.Parallel()

	t.Run("redirects_to_provider_with_state_cookie", func(t *testing.T) {
		t.Parallel()
		provider := auth.NewGoogleProvider("client-id", "client-secret", "http://localhost/callback")
		handler, _, _ := newServer(t, provider, false)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))

		require.Equal(t, http.StatusFound, rec.Code)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "accounts.google.com", location.Host)

		var state string
		for _, c := range rec.Result().Cookies() {
			if c.Name == auth.StateCookieName {
				state = c.Value
			}
		}
		require.NotEmpty(t, state, "state cookie must be set")
		assert.Equal(t, state, location.Query().Get("state"))
	})

	t.Run("not_configured_is_bad_request", func(t *testing.T) {
		t.Parallel()
		handler, _, _ := newServer(t, nil, false)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCallback(t *testing.T) {
	t.Parallel()

	provider := func() *auth.OAuthProvider {
		return auth.NewGoogleProvider("client-id", "client-secret", "http://localhost/callback")
	}

	t.Run("state_mismatch_is_bad_request", func(t *testing.T) {
		t.Parallel()
		handler, _, _ := newServer(t, provider(), false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=other&code=abc", nil)
		req.AddCookie(&http.Cookie{Name: auth.StateCookieName, Value: "expected"})
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "state mismatch")
	})

	t.Run("missing_state_cookie_is_bad_request", func(t *testing.T) {
		t.Parallel()
		handler, _, _ := newServer(t, provider(), false)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=abc&code=abc", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing_code_is_bad_request", func(t *testing.T) {
		t.Parallel()
		handler, _, _ := newServer(t, provider(), false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=abc", nil)
		req.AddCookie(&http.Cookie{Name: auth.StateCookieName, Value: "abc"})
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing authorization code")
	})

	t.Run("failed_exchange_redirects_with_error", func(t *testing.T) {
		t.Parallel()
		// A bogus code cannot be exchanged, so the handler takes the failure
		// path whether or not the provider endpoint is reachable.
		handler, _, _ := newServer(t, provider(), false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=abc&code=bogus", nil)
		req.AddCookie(&http.Cookie{Name: auth.StateCookieName, Value: "abc"})
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/?error=auth_failed", rec.Header().Get("Location"))
	})

	t.Run("not_configured_is_bad_request", func(t *testing.T) {
		t.Parallel()
		handler, _, _ := newServer(t, nil, false)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("destroys_session_and_clears_cookie", func(t *testing.T) {
		t.Parallel()
		provider := auth.NewGoogleProvider("client-id", "client-secret", "http://localhost/callback")
		handler, store, svc := newServer(t, provider, false)
		cookie := sessionCookie(t, store, "google-123")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil)
		req.AddCookie(cookie)
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))

		var cleared bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared, "session cookie must be expired")

		_, err := svc.SessionUser(context.Background(), cookie.Value)
		require.ErrorIs(t, err, auth.ErrNoSession)
	})

	t.Run("without_session_still_redirects_home", func(t *testing.T) {
		t.Parallel()
		handler, _, _ := newServer(t, nil, false)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})
}
