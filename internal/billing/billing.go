// Package billing talks to the payment provider: customers, subscriptions,
// checkout and portal sessions, and signed webhook events.
package billing

import (
	"context"
	"errors"
	"time"
)

// Subscription lifecycle event types mirrored locally
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Provider subscription statuses referenced by the service
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusUnpaid   = "unpaid"

	StatusIncompleteExpired = "incomplete_expired"
)

// MetadataUserID is the metadata key linking billing objects to application users
const MetadataUserID = "user_id"

var (
	// ErrNotFound is returned when the provider has no such object
	ErrNotFound = errors.New("billing object not found")
	// ErrInvalidSignature is returned when a webhook payload fails verification
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Subscription is the projection of a provider subscription the service keeps
type Subscription struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customer_id"`
	UserID            string    `json:"user_id,omitempty"`
	Status            string    `json:"status"`
	CurrentPeriodEnd  time.Time `json:"current_period_end"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	PlanID            string    `json:"plan_id,omitempty"`
	ProductID         string    `json:"product_id,omitempty"`
}

// IsTerminal reports whether the subscription can no longer change state
func (s *Subscription) IsTerminal() bool {
	return s.Status == StatusCanceled || s.Status == StatusIncompleteExpired
}

// CheckoutParams describes a subscription checkout for one customer
type CheckoutParams struct {
	CustomerID string
	UserID     string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is a created checkout session
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is a verified webhook event
type Event struct {
	ID      string
	Type    string
	Created time.Time
	// Subscription is set for customer.subscription.* events
	Subscription *Subscription
}

// Provider is the subset of the payment provider API the service uses
type Provider interface {
	// CreateCustomer creates a billing customer for an application user
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	// ActiveSubscription returns the customer's first active subscription, or nil
	ActiveSubscription(ctx context.Context, customerID string) (*Subscription, error)
	// GetSubscription fetches a subscription by id
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	// CreatePortalSession returns the URL of a customer portal session
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	// ConstructEvent verifies a webhook payload against its signature header
	ConstructEvent(payload []byte, signature string) (*Event, error)
}
