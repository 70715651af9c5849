// Package client is a Go client for the field-service API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the main field-service API client
type Client struct {
	http  *resty.Client
	token string // identity access token for authenticated requests
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // API base URL (e.g., "https://api.example.com")
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// NewClient creates a new API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: rc}
}

// SetToken sets the access token for authenticated requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// GetToken returns the current access token
func (c *Client) GetToken() string {
	return c.token
}

// doRequest performs a JSON request and decodes the result or the API error
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var failure errorBody

	req := c.http.R().
		SetContext(ctx).
		SetError(&failure)
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Message: failure.Error}
		if failure.Detail != nil {
			apiErr.Code = failure.Detail.Code
			apiErr.Message = failure.Detail.Message
			apiErr.Details = failure.Detail.Details
		}
		if apiErr.Message == "" {
			apiErr.Message = string(resp.Body())
		}
		return apiErr
	}

	return nil
}

// Subscription returns the billing service
func (c *Client) Subscription() *SubscriptionService {
	return &SubscriptionService{client: c}
}

// Accounting returns the accounting service
func (c *Client) Accounting() *AccountingService {
	return &AccountingService{client: c}
}
