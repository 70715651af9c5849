package client

import (
	"context"
	"net/http"
)

// Status returns the server liveness response
func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	var status ServerStatus
	if err := c.doRequest(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Ping is a simple connectivity test
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}
