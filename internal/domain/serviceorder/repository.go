package serviceorder

import "context"

// Repository defines the interface for service order data access
type Repository interface {
	// Create stores the order with its items and material lines atomically
	Create(ctx context.Context, o *Order) error

	// GetByID loads an order with items, materials and photos
	GetByID(ctx context.Context, userID, id string) (*Order, error)

	// List returns orders newest first without their children
	List(ctx context.Context, userID string, filter Filter, limit, offset int) ([]*Order, int64, error)

	UpdateStatus(ctx context.Context, userID, id, status string) error
	Delete(ctx context.Context, userID, id string) error

	AddPhoto(ctx context.Context, orderID string, p *Photo) error
}
