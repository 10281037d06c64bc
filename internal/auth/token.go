package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The session cookie carries a signed token referencing the server-side
// session by id. The payload is just the sid; everything else lives in the
// session store.
type sessionClaims struct {
	jwt.RegisteredClaims
	SID string `json:"sid"`
}

// ErrInvalidToken is returned when a session token cannot be parsed or has
// expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// IssueSessionToken creates a signed cookie token for the given session id.
func IssueSessionToken(secret, sid string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "promptvault",
		},
		SID: sid,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.IssueSessionToken: %w", err)
	}

	return signed, nil
}

// ParseSessionToken validates a cookie token and returns the session id.
func ParseSessionToken(secret, tokenString string) (string, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("auth.ParseSessionToken: %w", ErrInvalidToken)
	}

	if claims.SID == "" {
		return "", fmt.Errorf("auth.ParseSessionToken: %w", ErrInvalidToken)
	}

	return claims.SID, nil
}
