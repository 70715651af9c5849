package serviceprice

import "context"

// Repository stores the price table
type Repository interface {
	// GetLatest returns the most recently saved price table
	GetLatest(ctx context.Context, userID string) (*Prices, error)

	// Save updates the table in place when p.ID is set, otherwise inserts it
	Save(ctx context.Context, p *Prices) error
}
