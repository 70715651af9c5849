package customer

import "context"

// Repository defines the interface for customer data access
type Repository interface {
	// List retrieves the user's customers, optionally filtered by a name prefix
	List(ctx context.Context, userID, search string, limit, offset int) ([]*Customer, int64, error)
	GetByID(ctx context.Context, userID, id string) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, userID, id string) error
}
