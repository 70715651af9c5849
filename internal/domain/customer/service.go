package customer

import "context"

// Service defines the interface for customer business logic
type Service interface {
	List(ctx context.Context, userID, search string, limit, offset int) ([]*Customer, int64, error)
	Get(ctx context.Context, userID, id string) (*Customer, error)
	Create(ctx context.Context, c *Customer) (*Customer, error)
	Update(ctx context.Context, c *Customer) (*Customer, error)
	Delete(ctx context.Context, userID, id string) error
}
