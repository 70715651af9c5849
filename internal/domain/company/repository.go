package company

import "context"

// Repository stores one company profile per user
type Repository interface {
	Get(ctx context.Context, userID string) (*Info, error)
	Upsert(ctx context.Context, info *Info) error
}
