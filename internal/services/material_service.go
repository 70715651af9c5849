package services

import (
	"context"

	"github.com/fbos/fieldservice/internal/domain/material"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
)

// MaterialService implements material.Service
type MaterialService struct {
	repo   material.Repository
	logger *logger.Logger
}

// NewMaterialService creates a new material service
func NewMaterialService(repo material.Repository, log *logger.Logger) material.Service {
	return &MaterialService{repo: repo, logger: log}
}

// List retrieves the user's materials
func (s *MaterialService) List(ctx context.Context, userID string) ([]*material.Material, error) {
	return s.repo.List(ctx, userID)
}

// Create creates a material
func (s *MaterialService) Create(ctx context.Context, m *material.Material) (*material.Material, error) {
	if m.DefaultPrice < 0 {
		return nil, errors.BadRequest("Default price cannot be negative")
	}
	if err := s.repo.Create(ctx, m); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create material")
		return nil, err
	}
	return m, nil
}

// Update applies the set fields of u
func (s *MaterialService) Update(ctx context.Context, userID, id string, u material.Update) (*material.Material, error) {
	m, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Unit != nil {
		m.Unit = *u.Unit
	}
	if u.DefaultPrice != nil {
		if *u.DefaultPrice < 0 {
			return nil, errors.BadRequest("Default price cannot be negative")
		}
		m.DefaultPrice = *u.DefaultPrice
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a material that no order uses
func (s *MaterialService) Delete(ctx context.Context, userID, id string) error {
	inUse, err := s.repo.InUse(ctx, userID, id)
	if err != nil {
		return err
	}
	if inUse {
		return errors.Conflict("Material is used by service orders and cannot be deleted")
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":     userID,
		"material_id": id,
	}).Info("Material deleted")
	return nil
}
