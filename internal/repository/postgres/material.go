package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/fbos/fieldservice/internal/domain/material"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/google/uuid"
)

// MaterialRepository implements material.Repository
type MaterialRepository struct {
	db *sql.DB
}

// NewMaterialRepository creates a new material repository
func NewMaterialRepository(db *sql.DB) material.Repository {
	return &MaterialRepository{db: db}
}

// List retrieves the user's materials ordered by name
func (r *MaterialRepository) List(ctx context.Context, userID string) ([]*material.Material, error) {
	query := `
		SELECT id, user_id, name, unit, default_price, is_custom, created_at, updated_at
		FROM materials
		WHERE user_id = $1
		ORDER BY name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list materials", err)
	}
	defer rows.Close()

	var out []*material.Material
	for rows.Next() {
		var m material.Material
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Unit, &m.DefaultPrice, &m.IsCustom, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, errors.DatabaseError("Failed to scan material", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// GetByID retrieves a material owned by the user
func (r *MaterialRepository) GetByID(ctx context.Context, userID, id string) (*material.Material, error) {
	query := `
		SELECT id, user_id, name, unit, default_price, is_custom, created_at, updated_at
		FROM materials WHERE id = $1 AND user_id = $2
	`
	var m material.Material
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&m.ID, &m.UserID, &m.Name, &m.Unit, &m.DefaultPrice, &m.IsCustom, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Material")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get material", err)
	}
	return &m, nil
}

// Create creates a new material
func (r *MaterialRepository) Create(ctx context.Context, m *material.Material) error {
	now := time.Now().UTC()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	query := `
		INSERT INTO materials (id, user_id, name, unit, default_price, is_custom, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.UserID, m.Name, m.Unit, m.DefaultPrice, m.IsCustom, now, now)
	if err != nil {
		return errors.DatabaseError("Failed to create material", err)
	}
	return nil
}

// Update updates name, unit and default price
func (r *MaterialRepository) Update(ctx context.Context, m *material.Material) error {
	m.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE materials
		SET name = $1, unit = $2, default_price = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6
	`
	result, err := r.db.ExecContext(ctx, query, m.Name, m.Unit, m.DefaultPrice, m.UpdatedAt, m.ID, m.UserID)
	if err != nil {
		return errors.DatabaseError("Failed to update material", err)
	}
	return expectRows(result, "Material")
}

// Delete deletes a material
func (r *MaterialRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.DatabaseError("Failed to delete material", err)
	}
	return expectRows(result, "Material")
}

// InUse reports whether any order line references the material
func (r *MaterialRepository) InUse(ctx context.Context, userID, id string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM service_order_materials som
		JOIN service_orders so ON so.id = som.order_id
		WHERE som.material_id = $1 AND so.user_id = $2
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&n); err != nil {
		return false, errors.DatabaseError("Failed to check material usage", err)
	}
	return n > 0, nil
}

// expectRows turns a zero-row update or delete into a not found error
func expectRows(result sql.Result, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
