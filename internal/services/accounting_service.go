package services

import (
	"context"

	"github.com/fbos/fieldservice/internal/domain/accounting"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
)

// AccountingService implements accounting.Service
type AccountingService struct {
	repo   accounting.Repository
	logger *logger.Logger
}

// NewAccountingService creates a new accounting service
func NewAccountingService(repo accounting.Repository, log *logger.Logger) accounting.Service {
	return &AccountingService{repo: repo, logger: log}
}

// MonthlySummary rolls up the orders created during month (UTC)
func (s *AccountingService) MonthlySummary(ctx context.Context, userID, month string) (*accounting.Summary, error) {
	from, to, err := accounting.MonthRange(month)
	if err != nil {
		return nil, errors.BadRequest("Month must be formatted as YYYY-MM")
	}

	revenue, costs, count, err := s.repo.Totals(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	byService, err := s.repo.RevenueByService(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	return &accounting.Summary{
		Month:            month,
		TotalRevenue:     revenue,
		TotalCosts:       costs,
		Profit:           revenue - costs,
		OrderCount:       count,
		RevenueByService: byService,
	}, nil
}
