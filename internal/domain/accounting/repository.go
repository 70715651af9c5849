package accounting

import (
	"context"
	"time"
)

// Repository aggregates order data for reporting
type Repository interface {
	// Totals returns revenue, material costs and order count for orders
	// created in [from, to)
	Totals(ctx context.Context, userID string, from, to time.Time) (revenue, costs float64, count int, err error)

	// RevenueByService sums item values per service type in [from, to)
	RevenueByService(ctx context.Context, userID string, from, to time.Time) (map[string]float64, error)
}
