package subscription

import (
	"context"

	"github.com/fbos/fieldservice/internal/auth"
)

// Service defines the billing operations exposed to signed-in users
type Service interface {
	// Status resolves the caller's subscription state
	Status(ctx context.Context, user *auth.User) (*StatusResult, error)

	// CreateCheckout ensures a billing customer exists and opens a
	// subscription checkout whose redirects point at origin
	CreateCheckout(ctx context.Context, user *auth.User, origin string) (*CheckoutResult, error)

	// CreatePortal opens a billing portal session for an existing customer
	CreatePortal(ctx context.Context, user *auth.User) (string, error)

	// HasActiveSubscription answers the legacy per-customer check
	HasActiveSubscription(ctx context.Context, user *auth.User, customerID string) (bool, error)
}

// WebhookService applies signed billing events to the local mirror
type WebhookService interface {
	Handle(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error)
}

// Reconciler brings the mirror in line with the billing provider
type Reconciler interface {
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}
