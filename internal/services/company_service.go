package services

import (
	"context"

	"github.com/fbos/fieldservice/internal/domain/company"
	"github.com/fbos/fieldservice/internal/domain/serviceprice"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
)

// CompanyService implements company.Service
type CompanyService struct {
	repo   company.Repository
	logger *logger.Logger
}

// NewCompanyService creates a new company service
func NewCompanyService(repo company.Repository, log *logger.Logger) company.Service {
	return &CompanyService{repo: repo, logger: log}
}

func (s *CompanyService) Get(ctx context.Context, userID string) (*company.Info, error) {
	return s.repo.Get(ctx, userID)
}

func (s *CompanyService) Save(ctx context.Context, info *company.Info) (*company.Info, error) {
	if err := s.repo.Upsert(ctx, info); err != nil {
		s.logger.ErrorWithErr(err, "Failed to save company information")
		return nil, err
	}
	return info, nil
}

// PriceService implements serviceprice.Service
type PriceService struct {
	repo   serviceprice.Repository
	logger *logger.Logger
}

// NewPriceService creates a new price table service
func NewPriceService(repo serviceprice.Repository, log *logger.Logger) serviceprice.Service {
	return &PriceService{repo: repo, logger: log}
}

// Get returns the latest price table or an empty one
func (s *PriceService) Get(ctx context.Context, userID string) (*serviceprice.Prices, error) {
	p, err := s.repo.GetLatest(ctx, userID)
	if errors.IsNotFound(err) {
		return &serviceprice.Prices{
			UserID:             userID,
			InstallationPrices: map[string]map[string]string{},
			CleaningPrices:     map[string]string{},
		}, nil
	}
	return p, err
}

// Save updates the latest table in place, or creates the first one
func (s *PriceService) Save(ctx context.Context, p *serviceprice.Prices) (*serviceprice.Prices, error) {
	if p.ID == "" {
		current, err := s.repo.GetLatest(ctx, p.UserID)
		switch {
		case err == nil:
			p.ID = current.ID
		case !errors.IsNotFound(err):
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, p); err != nil {
		s.logger.ErrorWithErr(err, "Failed to save service prices")
		return nil, err
	}
	return p, nil
}
