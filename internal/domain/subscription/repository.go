package subscription

import (
	"context"
	"time"
)

// ProfileRepository maps application users to billing customers
type ProfileRepository interface {
	// GetCustomerID returns the linked billing customer id, or "" when the
	// user has no profile or no customer yet
	GetCustomerID(ctx context.Context, userID string) (string, error)

	// SetCustomerID links a customer to the user unless one is already
	// linked, and returns whichever customer id is stored afterwards
	SetCustomerID(ctx context.Context, userID, email, customerID string) (string, error)

	// GetUserIDByCustomerID resolves the owner of a billing customer
	GetUserIDByCustomerID(ctx context.Context, customerID string) (string, error)
}

// Repository stores the local subscription mirror
type Repository interface {
	// Upsert writes the record unless a newer event already wrote it.
	// It reports whether the row was written.
	Upsert(ctx context.Context, r *Record) (bool, error)

	// GetByID retrieves a subscription by billing id
	GetByID(ctx context.Context, id string) (*Record, error)

	// GetLatestForUser returns the user's most recently updated
	// subscription, preferring an active one
	GetLatestForUser(ctx context.Context, userID string) (*Record, error)

	// ListNonTerminal lists subscriptions that may still change state,
	// never-checked first, then least recently checked
	ListNonTerminal(ctx context.Context, limit int) ([]*Record, error)

	// MarkChecked records that the subscription was compared with the
	// billing provider at the given time
	MarkChecked(ctx context.Context, id string, at time.Time) error
}

// EventRepository remembers processed webhook events
type EventRepository interface {
	// IsProcessed reports whether the event id was already applied
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// MarkProcessed records the event; it returns false if it was already there
	MarkProcessed(ctx context.Context, eventID, eventType string, created time.Time) (bool, error)
}
