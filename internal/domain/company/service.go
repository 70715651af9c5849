package company

import "context"

// Service defines the interface for company profile logic
type Service interface {
	Get(ctx context.Context, userID string) (*Info, error)
	Save(ctx context.Context, info *Info) (*Info, error)
}
