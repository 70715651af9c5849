package services

import (
	"context"

	"github.com/fbos/fieldservice/internal/domain/customer"
	"github.com/fbos/fieldservice/internal/pkg/logger"
)

// CustomerService implements customer.Service
type CustomerService struct {
	repo   customer.Repository
	logger *logger.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(repo customer.Repository, log *logger.Logger) customer.Service {
	return &CustomerService{repo: repo, logger: log}
}

func (s *CustomerService) List(ctx context.Context, userID, search string, limit, offset int) ([]*customer.Customer, int64, error) {
	return s.repo.List(ctx, userID, search, limit, offset)
}

func (s *CustomerService) Get(ctx context.Context, userID, id string) (*customer.Customer, error) {
	return s.repo.GetByID(ctx, userID, id)
}

func (s *CustomerService) Create(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.ErrorWithErr(err, "Failed to create customer")
		return nil, err
	}
	return c, nil
}

func (s *CustomerService) Update(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, c.UserID, c.ID)
}

func (s *CustomerService) Delete(ctx context.Context, userID, id string) error {
	return s.repo.Delete(ctx, userID, id)
}
