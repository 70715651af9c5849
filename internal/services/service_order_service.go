package services

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/fbos/fieldservice/internal/domain/customer"
	"github.com/fbos/fieldservice/internal/domain/material"
	"github.com/fbos/fieldservice/internal/domain/serviceorder"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/storage"
	"github.com/google/uuid"
)

// ServiceOrderService implements serviceorder.Service
type ServiceOrderService struct {
	repo      serviceorder.Repository
	customers customer.Repository
	materials material.Repository
	photos    storage.PhotoStore
	logger    *logger.Logger
}

// NewServiceOrderService creates a new service order service. photos may be
// nil when object storage is disabled.
func NewServiceOrderService(
	repo serviceorder.Repository,
	customers customer.Repository,
	materials material.Repository,
	photos storage.PhotoStore,
	log *logger.Logger,
) serviceorder.Service {
	return &ServiceOrderService{
		repo:      repo,
		customers: customers,
		materials: materials,
		photos:    photos,
		logger:    log,
	}
}

// Create validates references, prices material lines and computes the
// order total from its services
func (s *ServiceOrderService) Create(ctx context.Context, o *serviceorder.Order) (*serviceorder.Order, error) {
	if o.Status == "" {
		o.Status = serviceorder.StatusPending
	}
	if !serviceorder.ValidStatus(o.Status) {
		return nil, errors.BadRequest("Invalid service order status")
	}
	if len(o.Items) == 0 {
		return nil, errors.BadRequest("A service order needs at least one service")
	}

	if _, err := s.customers.GetByID(ctx, o.UserID, o.CustomerID); err != nil {
		return nil, err
	}

	for i := range o.Materials {
		line := &o.Materials[i]
		m, err := s.materials.GetByID(ctx, o.UserID, line.MaterialID)
		if err != nil {
			return nil, err
		}
		if line.UnitPrice == 0 {
			line.UnitPrice = m.DefaultPrice
		}
	}

	o.ComputeTotal()

	if err := s.repo.Create(ctx, o); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create service order")
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":      o.UserID,
		"order_id":     o.ID,
		"total_amount": o.TotalAmount,
	}).Info("Service order created")

	return s.repo.GetByID(ctx, o.UserID, o.ID)
}

func (s *ServiceOrderService) Get(ctx context.Context, userID, id string) (*serviceorder.Order, error) {
	return s.repo.GetByID(ctx, userID, id)
}

func (s *ServiceOrderService) List(ctx context.Context, userID string, filter serviceorder.Filter, limit, offset int) ([]*serviceorder.Order, int64, error) {
	if filter.Status != "" && !serviceorder.ValidStatus(filter.Status) {
		return nil, 0, errors.BadRequest("Invalid service order status")
	}
	return s.repo.List(ctx, userID, filter, limit, offset)
}

func (s *ServiceOrderService) UpdateStatus(ctx context.Context, userID, id, status string) error {
	if !serviceorder.ValidStatus(status) {
		return errors.BadRequest("Invalid service order status")
	}
	return s.repo.UpdateStatus(ctx, userID, id, status)
}

func (s *ServiceOrderService) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}

// AddPhoto uploads the image and attaches it to the order
func (s *ServiceOrderService) AddPhoto(ctx context.Context, userID, orderID string, upload serviceorder.PhotoUpload) (*serviceorder.Photo, error) {
	if s.photos == nil {
		return nil, errors.ServiceUnavailable("Photo storage is not configured")
	}
	switch upload.PhotoType {
	case serviceorder.PhotoBefore, serviceorder.PhotoDuring, serviceorder.PhotoAfter:
	default:
		return nil, errors.BadRequest("Photo type must be before, during or after")
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return nil, errors.BadRequest("Only image uploads are accepted")
	}

	if _, err := s.repo.GetByID(ctx, userID, orderID); err != nil {
		return nil, err
	}

	photo := &serviceorder.Photo{ID: uuid.NewString(), PhotoType: upload.PhotoType}
	key := storage.PhotoKey(userID, orderID, photo.ID, photoExt(upload))

	u, err := s.photos.Put(ctx, key, upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		return nil, errors.Internal("Failed to store photo", err)
	}
	photo.PhotoURL = u

	if err := s.repo.AddPhoto(ctx, orderID, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

func photoExt(upload serviceorder.PhotoUpload) string {
	if ext := strings.ToLower(filepath.Ext(upload.Filename)); ext != "" {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(upload.ContentType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
