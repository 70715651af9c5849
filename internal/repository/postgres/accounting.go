package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/fbos/fieldservice/internal/domain/accounting"
	"github.com/fbos/fieldservice/internal/pkg/errors"
)

// AccountingRepository implements accounting.Repository
type AccountingRepository struct {
	db *sql.DB
}

// NewAccountingRepository creates a new accounting repository
func NewAccountingRepository(db *sql.DB) accounting.Repository {
	return &AccountingRepository{db: db}
}

// Totals sums order totals and material costs for orders created in [from, to)
func (r *AccountingRepository) Totals(ctx context.Context, userID string, from, to time.Time) (float64, float64, int, error) {
	defer observe("aggregate", "service_orders", time.Now())

	var revenue float64
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM service_orders
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
	`, userID, from.UTC(), to.UTC()).Scan(&revenue, &count)
	if err != nil {
		return 0, 0, 0, errors.DatabaseError("Failed to sum revenue", err)
	}

	var costs float64
	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(som.quantity * som.unit_price), 0)
		FROM service_order_materials som
		JOIN service_orders so ON so.id = som.order_id
		WHERE so.user_id = $1 AND so.created_at >= $2 AND so.created_at < $3
	`, userID, from.UTC(), to.UTC()).Scan(&costs)
	if err != nil {
		return 0, 0, 0, errors.DatabaseError("Failed to sum material costs", err)
	}

	return revenue, costs, count, nil
}

// RevenueByService sums item values per service type in [from, to)
func (r *AccountingRepository) RevenueByService(ctx context.Context, userID string, from, to time.Time) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT soi.service_type, COALESCE(SUM(soi.value), 0)
		FROM service_order_items soi
		JOIN service_orders so ON so.id = soi.order_id
		WHERE so.user_id = $1 AND so.created_at >= $2 AND so.created_at < $3
		GROUP BY soi.service_type
	`, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, errors.DatabaseError("Failed to group revenue by service", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var serviceType string
		var total float64
		if err := rows.Scan(&serviceType, &total); err != nil {
			return nil, errors.DatabaseError("Failed to scan revenue row", err)
		}
		out[serviceType] = total
	}
	return out, rows.Err()
}
