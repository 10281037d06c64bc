package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/promptvault/promptvault/internal/auth"
)

// handleSignIn starts the authorization-code flow: generate a state value,
// persist it in a short-lived cookie and send the browser to the provider.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := s.auth.BeginSignIn()
	if err != nil {
		writeBadRequest(w, "identity provider not configured")
		return
	}

	s.auth.SetStateCookie(w, state)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback completes the flow: check the state cookie, exchange the
// code, open a session and send the browser back to the app.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.auth.IdentityConfigured() {
		writeBadRequest(w, "identity provider not configured")
		return
	}

	stateCookie, err := r.Cookie(auth.StateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeBadRequest(w, "state mismatch")
		return
	}
	s.auth.ClearStateCookie(w)

	code := r.URL.Query().Get("code")
	if code == "" {
		writeBadRequest(w, "missing authorization code")
		return
	}

	user, token, err := s.auth.CompleteSignIn(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("oauth: sign-in failed")
		http.Redirect(w, r, "/?error=auth_failed", http.StatusFound)
		return
	}

	s.auth.SetSessionCookie(w, token)
	log.Info().Str("user_id", user.ID).Msg("oauth: user signed in")
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout destroys the session and clears the cookie. Always
// redirects home, even without a session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
			log.Warn().Err(err).Msg("oauth: logout failed")
		}
	}

	s.auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(`{"title":"Bad Request","status":400,"detail":"` + detail + `"}`))
}
