package material

import "context"

// Service defines the interface for material business logic
type Service interface {
	List(ctx context.Context, userID string) ([]*Material, error)
	Create(ctx context.Context, m *Material) (*Material, error)
	Update(ctx context.Context, userID, id string, u Update) (*Material, error)

	// Delete removes the material; it fails with a conflict while the
	// material is referenced by an order
	Delete(ctx context.Context, userID, id string) error
}
