package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteVerifier asks the identity provider's user endpoint who owns a token.
// Every call is a network round trip, so the provider stays the source of
// truth for revoked sessions.
type RemoteVerifier struct {
	client *resty.Client
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type remoteError struct {
	Message string `json:"msg"`
	Error   string `json:"error_description"`
}

// NewRemoteVerifier creates a verifier for the identity provider at baseURL.
// serviceKey is sent as the project api key.
func NewRemoteVerifier(baseURL, serviceKey string, timeout time.Duration) *RemoteVerifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("apikey", serviceKey).
		SetHeader("Accept", "application/json")

	return &RemoteVerifier{client: client}
}

// Verify implements Verifier
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var out remoteUser
	var failure remoteError

	resp, err := v.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		SetError(&failure).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("identity provider request: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.IsError():
		msg := failure.Message
		if msg == "" {
			msg = failure.Error
		}
		return nil, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode(), msg)
	}

	if out.ID == "" {
		return nil, ErrInvalidToken
	}

	return &User{ID: out.ID, Email: out.Email}, nil
}
