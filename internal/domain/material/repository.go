package material

import "context"

// Repository defines the interface for material data access
type Repository interface {
	// List retrieves the user's materials ordered by name
	List(ctx context.Context, userID string) ([]*Material, error)

	// GetByID retrieves a material owned by the user
	GetByID(ctx context.Context, userID, id string) (*Material, error)

	Create(ctx context.Context, m *Material) error
	Update(ctx context.Context, m *Material) error
	Delete(ctx context.Context, userID, id string) error

	// InUse reports whether any service order references the material
	InUse(ctx context.Context, userID, id string) (bool, error)
}
