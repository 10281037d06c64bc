package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// HTTPClient is the subset of *http.Client used to fetch user info,
// injectable for tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Profile is the identity a provider reports after a successful code
// exchange. ID is the provider-side subject id.
type Profile struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
}

// OAuthProvider holds the configuration for an OAuth2 identity provider.
type OAuthProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
	UserInfoURL  string
	RedirectURL  string

	// HTTPClient overrides the token-derived client for user info fetches.
	// Nil means use the oauth2 client (which carries the access token).
	HTTPClient HTTPClient

	oauthConfig *oauth2.Config
}

// NewGoogleProvider returns an OAuth2 configuration for Google sign-in.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	p := &OAuthProvider{
		Name:         "google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		UserInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
		RedirectURL:  redirectURL,
	}
	p.oauthConfig = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
		RedirectURL:  redirectURL,
	}
	return p
}

// AuthorizationURL returns the provider's authorization URL carrying the
// given state parameter.
func (p *OAuthProvider) AuthorizationURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens and fetches the
// signed-in user's profile.
func (p *OAuthProvider) ExchangeCode(ctx context.Context, code string) (*Profile, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth.ExchangeCode: %w", err)
	}

	body, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	return parseGoogleUserInfo(body)
}

func (p *OAuthProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth.fetchUserInfo: %w", err)
	}

	var client HTTPClient = p.HTTPClient
	if client == nil {
		client = p.oauthConfig.Client(ctx, token)
	} else {
		token.SetAuthHeader(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth.fetchUserInfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth.fetchUserInfo: user info returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth.fetchUserInfo: reading body: %w", err)
	}

	return body, nil
}

type googleUserInfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func parseGoogleUserInfo(data []byte) (*Profile, error) {
	var info googleUserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("auth.parseGoogleUserInfo: %w", err)
	}

	return &Profile{
		ID:              info.ID,
		Email:           info.Email,
		FirstName:       info.GivenName,
		LastName:        info.FamilyName,
		ProfileImageURL: info.Picture,
	}, nil
}
