package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault/internal/domain"
)

// Sentinel errors for the auth package.
var (
	ErrNotConfigured = errors.New("auth: identity provider not configured")
	ErrNoSession     = errors.New("auth: no valid session")
)

// Cookie names used by the session and OAuth-state flows.
const (
	SessionCookieName = "pv_session"
	StateCookieName   = "pv_oauth_state"
)

// stateTTL bounds how long an OAuth redirect may take before the state
// cookie expires.
const stateTTL = 10 * time.Minute

// DevUser is the fixed identity attributed to requests when no identity
// provider is configured and anonymous writes are enabled.
func DevUser() *domain.User {
	return &domain.User{
		ID:        "dev-user-1",
		Email:     "developer@company.com",
		FirstName: "Developer",
		LastName:  "User",
	}
}

// Service implements the OAuth sign-in flow and session lifecycle:
// anonymous -> (redirect, callback succeeds) -> authenticated -> (logout)
// -> anonymous.
type Service struct {
	users        domain.UserRepository
	sessions     domain.SessionRepository
	provider     *OAuthProvider // nil when identity is not configured
	secret       string
	sessionTTL   time.Duration
	cookieSecure bool
}

func NewService(users domain.UserRepository, sessions domain.SessionRepository, provider *OAuthProvider, secret string, sessionTTL time.Duration, cookieSecure bool) *Service {
	return &Service{
		users:        users,
		sessions:     sessions,
		provider:     provider,
		secret:       secret,
		sessionTTL:   sessionTTL,
		cookieSecure: cookieSecure,
	}
}

// IdentityConfigured reports whether an OAuth provider is wired in.
func (s *Service) IdentityConfigured() bool {
	return s.provider != nil
}

// BeginSignIn returns the provider authorization URL and a fresh state
// value the caller must persist in the state cookie.
func (s *Service) BeginSignIn() (authURL, state string, err error) {
	if s.provider == nil {
		return "", "", fmt.Errorf("auth.BeginSignIn: %w", ErrNotConfigured)
	}

	state = uuid.NewString()
	return s.provider.AuthorizationURL(state), state, nil
}

// CompleteSignIn exchanges the authorization code, upserts the user record
// and opens a session. Returns the stored user and a signed cookie token.
func (s *Service) CompleteSignIn(ctx context.Context, code string) (*domain.User, string, error) {
	if s.provider == nil {
		return nil, "", fmt.Errorf("auth.CompleteSignIn: %w", ErrNotConfigured)
	}

	profile, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("auth.CompleteSignIn: %w", err)
	}

	user, err := s.users.Upsert(ctx, &domain.User{
		ID:              profile.ID,
		Email:           profile.Email,
		FirstName:       profile.FirstName,
		LastName:        profile.LastName,
		ProfileImageURL: profile.ProfileImageURL,
	})
	if err != nil {
		return nil, "", fmt.Errorf("auth.CompleteSignIn: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		SID:       uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("auth.CompleteSignIn: %w", err)
	}

	token, err := IssueSessionToken(s.secret, session.SID, s.sessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("auth.CompleteSignIn: %w", err)
	}

	return user, token, nil
}

// SessionUser resolves a cookie token to the signed-in user. Returns
// ErrNoSession for missing, invalid or expired sessions.
func (s *Service) SessionUser(ctx context.Context, token string) (*domain.User, error) {
	sid, err := ParseSessionToken(s.secret, token)
	if err != nil {
		return nil, fmt.Errorf("auth.SessionUser: %w", ErrNoSession)
	}

	session, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("auth.SessionUser: %w", ErrNoSession)
	}

	user, err := s.users.Get(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("auth.SessionUser: %w", err)
	}

	return user, nil
}

// Logout destroys the session referenced by the cookie token. An invalid
// token is not an error; logging out twice is a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	sid, err := ParseSessionToken(s.secret, token)
	if err != nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, sid); err != nil {
		return fmt.Errorf("auth.Logout: %w", err)
	}

	return nil
}

// SetSessionCookie writes the session cookie on a sign-in response.
func (s *Service) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on logout.
func (s *Service) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetStateCookie writes the short-lived OAuth state cookie.
func (s *Service) SetStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearStateCookie removes the OAuth state cookie after the callback.
func (s *Service) ClearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
