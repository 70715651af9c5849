package serviceprice

import "context"

// Service defines the interface for price table logic
type Service interface {
	// Get returns the latest price table, or an empty one when none was saved
	Get(ctx context.Context, userID string) (*Prices, error)
	Save(ctx context.Context, p *Prices) (*Prices, error)
}
