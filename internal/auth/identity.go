// Package auth resolves bearer tokens issued by the identity provider into
// application users.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrMissingToken is returned when a request carries no bearer token
	ErrMissingToken = errors.New("no authorization header")
	// ErrInvalidToken is returned when the identity provider rejects a token
	ErrInvalidToken = errors.New("invalid token")
)

// User is the authenticated caller as known by the identity provider
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verifier validates an access token and returns the user it belongs to
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidToken
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
