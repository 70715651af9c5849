package serviceorder

import (
	"context"
	"io"
)

// PhotoUpload is an image to attach to an order
type PhotoUpload struct {
	PhotoType   string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service defines the interface for service order logic
type Service interface {
	Create(ctx context.Context, o *Order) (*Order, error)
	Get(ctx context.Context, userID, id string) (*Order, error)
	List(ctx context.Context, userID string, filter Filter, limit, offset int) ([]*Order, int64, error)
	UpdateStatus(ctx context.Context, userID, id, status string) error
	Delete(ctx context.Context, userID, id string) error

	// AddPhoto stores the image and attaches its URL to the order
	AddPhoto(ctx context.Context, userID, orderID string, upload PhotoUpload) (*Photo, error)
}
