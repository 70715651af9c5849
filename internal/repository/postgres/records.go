package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fbos/fieldservice/internal/domain/company"
	"github.com/fbos/fieldservice/internal/domain/serviceprice"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/google/uuid"
)

// PriceRepository implements serviceprice.Repository
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new price table repository
func NewPriceRepository(db *sql.DB) serviceprice.Repository {
	return &PriceRepository{db: db}
}

// GetLatest returns the most recently saved price table
func (r *PriceRepository) GetLatest(ctx context.Context, userID string) (*serviceprice.Prices, error) {
	query := `
		SELECT id, installation_prices, cleaning_prices, updated_at
		FROM service_prices
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var p serviceprice.Prices
	var installation, cleaning string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &installation, &cleaning, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Service prices")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get service prices", err)
	}

	p.UserID = userID
	if err := json.Unmarshal([]byte(installation), &p.InstallationPrices); err != nil {
		return nil, errors.Internal("Stored installation prices are corrupt", err)
	}
	if err := json.Unmarshal([]byte(cleaning), &p.CleaningPrices); err != nil {
		return nil, errors.Internal("Stored cleaning prices are corrupt", err)
	}
	return &p, nil
}

// Save updates the table in place when p.ID is set, otherwise inserts it
func (r *PriceRepository) Save(ctx context.Context, p *serviceprice.Prices) error {
	installation, err := json.Marshal(nonNilInstallation(p.InstallationPrices))
	if err != nil {
		return errors.BadRequest("Invalid installation prices")
	}
	cleaning, err := json.Marshal(nonNilCleaning(p.CleaningPrices))
	if err != nil {
		return errors.BadRequest("Invalid cleaning prices")
	}

	now := time.Now().UTC()
	p.UpdatedAt = now

	if p.ID != "" {
		result, err := r.db.ExecContext(ctx, `
			UPDATE service_prices
			SET installation_prices = $1, cleaning_prices = $2, updated_at = $3
			WHERE id = $4 AND user_id = $5
		`, string(installation), string(cleaning), now, p.ID, p.UserID)
		if err != nil {
			return errors.DatabaseError("Failed to update service prices", err)
		}
		return expectRows(result, "Service prices")
	}

	p.ID = uuid.NewString()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO service_prices (id, user_id, installation_prices, cleaning_prices, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, p.ID, p.UserID, string(installation), string(cleaning), now)
	if err != nil {
		return errors.DatabaseError("Failed to create service prices", err)
	}
	return nil
}

func nonNilInstallation(m map[string]map[string]string) map[string]map[string]string {
	if m == nil {
		return map[string]map[string]string{}
	}
	return m
}

func nonNilCleaning(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// CompanyRepository implements company.Repository
type CompanyRepository struct {
	db *sql.DB
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *sql.DB) company.Repository {
	return &CompanyRepository{db: db}
}

// Get retrieves the user's company profile
func (r *CompanyRepository) Get(ctx context.Context, userID string) (*company.Info, error) {
	var c company.Info
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, cnpj, phone, email, logo, updated_at
		FROM company_info WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.Name, &c.CNPJ, &c.Phone, &c.Email, &c.Logo, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Company information")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get company information", err)
	}
	return &c, nil
}

// Upsert creates or replaces the company profile
func (r *CompanyRepository) Upsert(ctx context.Context, c *company.Info) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO company_info (user_id, name, cnpj, phone, email, logo, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			name = excluded.name,
			cnpj = excluded.cnpj,
			phone = excluded.phone,
			email = excluded.email,
			logo = excluded.logo,
			updated_at = excluded.updated_at
	`, c.UserID, c.Name, c.CNPJ, c.Phone, c.Email, c.Logo, c.UpdatedAt)
	if err != nil {
		return errors.DatabaseError("Failed to save company information", err)
	}
	return nil
}
