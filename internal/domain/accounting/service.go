package accounting

import "context"

// Service defines the interface for accounting reports
type Service interface {
	// MonthlySummary builds the summary for a YYYY-MM month
	MonthlySummary(ctx context.Context, userID, month string) (*Summary, error)
}
