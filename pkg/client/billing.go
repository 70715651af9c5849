package client

import (
	"context"
	"net/http"
	"net/url"
)

// SubscriptionService handles billing operations for the current user
type SubscriptionService struct {
	client *Client
}

// Status returns the caller's subscription status
func (s *SubscriptionService) Status(ctx context.Context) (*SubscriptionStatus, error) {
	var out SubscriptionStatus
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/subscription-status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Checkout starts a subscription checkout and returns the session to redirect to
func (s *SubscriptionService) Checkout(ctx context.Context) (*CheckoutSession, error) {
	var out CheckoutSession
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/create-checkout-session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Portal returns a billing portal URL for the caller
func (s *SubscriptionService) Portal(ctx context.Context) (*PortalSession, error) {
	var out PortalSession
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/create-portal-session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HasActiveSubscription calls the legacy customer check
func (s *SubscriptionService) HasActiveSubscription(ctx context.Context, customerID string) (bool, error) {
	var out struct {
		HasActiveSubscription bool `json:"hasActiveSubscription"`
	}
	path := "/api/check-subscription?customerId=" + url.QueryEscape(customerID)
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.HasActiveSubscription, nil
}
