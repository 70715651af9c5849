package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/fbos/fieldservice/internal/domain/serviceorder"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/google/uuid"
)

// ServiceOrderRepository implements serviceorder.Repository
type ServiceOrderRepository struct {
	db *sql.DB
}

// NewServiceOrderRepository creates a new service order repository
func NewServiceOrderRepository(db *sql.DB) serviceorder.Repository {
	return &ServiceOrderRepository{db: db}
}

const orderColumns = `id, user_id, customer_id, street, number, complement, neighborhood, city, state, zip_code,
	status, include_photos, location_lat, location_lng, total_amount, created_at, updated_at`

// Create stores the order, its items and its material lines in one transaction
func (r *ServiceOrderRepository) Create(ctx context.Context, o *serviceorder.Order) error {
	defer observe("insert", "service_orders", time.Now())

	now := time.Now().UTC()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = now
	o.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to start transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO service_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		o.ID, o.UserID, o.CustomerID, o.Address.Street, o.Address.Number, o.Address.Complement,
		o.Address.Neighborhood, o.Address.City, o.Address.State, o.Address.ZipCode,
		o.Status, o.IncludePhotos, nullFloat(o.LocationLat), nullFloat(o.LocationLng), o.TotalAmount, now, now,
	)
	if err != nil {
		return errors.DatabaseError("Failed to create service order", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO service_order_items (id, order_id, position, service_type, equipment_type, equipment_power, value, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, it.ID, o.ID, i, it.ServiceType, it.EquipmentType, it.EquipmentPower, it.Value, it.Description)
		if err != nil {
			return errors.DatabaseError("Failed to create service order item", err)
		}
	}

	for i := range o.Materials {
		m := &o.Materials[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO service_order_materials (id, order_id, material_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, m.ID, o.ID, m.MaterialID, m.Quantity, m.UnitPrice)
		if err != nil {
			return errors.DatabaseError("Failed to create service order material", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit service order", err)
	}
	return nil
}

// GetByID loads an order with its children
func (r *ServiceOrderRepository) GetByID(ctx context.Context, userID, id string) (*serviceorder.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM service_orders WHERE id = $1 AND user_id = $2`, id, userID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Service order")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get service order", err)
	}

	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	if err := r.loadMaterials(ctx, o); err != nil {
		return nil, err
	}
	if err := r.loadPhotos(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *ServiceOrderRepository) loadItems(ctx context.Context, o *serviceorder.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, service_type, equipment_type, equipment_power, value, description
		FROM service_order_items WHERE order_id = $1 ORDER BY position ASC
	`, o.ID)
	if err != nil {
		return errors.DatabaseError("Failed to load service order items", err)
	}
	defer rows.Close()

	o.Items = []serviceorder.Item{}
	for rows.Next() {
		var it serviceorder.Item
		if err := rows.Scan(&it.ID, &it.ServiceType, &it.EquipmentType, &it.EquipmentPower, &it.Value, &it.Description); err != nil {
			return errors.DatabaseError("Failed to scan service order item", err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *ServiceOrderRepository) loadMaterials(ctx context.Context, o *serviceorder.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, material_id, quantity, unit_price
		FROM service_order_materials WHERE order_id = $1 ORDER BY id ASC
	`, o.ID)
	if err != nil {
		return errors.DatabaseError("Failed to load service order materials", err)
	}
	defer rows.Close()

	o.Materials = []serviceorder.MaterialLine{}
	for rows.Next() {
		var m serviceorder.MaterialLine
		if err := rows.Scan(&m.ID, &m.MaterialID, &m.Quantity, &m.UnitPrice); err != nil {
			return errors.DatabaseError("Failed to scan service order material", err)
		}
		o.Materials = append(o.Materials, m)
	}
	return rows.Err()
}

func (r *ServiceOrderRepository) loadPhotos(ctx context.Context, o *serviceorder.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, photo_url, photo_type, created_at
		FROM service_order_photos WHERE order_id = $1 ORDER BY created_at ASC
	`, o.ID)
	if err != nil {
		return errors.DatabaseError("Failed to load service order photos", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p serviceorder.Photo
		if err := rows.Scan(&p.ID, &p.PhotoURL, &p.PhotoType, &p.CreatedAt); err != nil {
			return errors.DatabaseError("Failed to scan service order photo", err)
		}
		o.Photos = append(o.Photos, p)
	}
	return rows.Err()
}

// List returns orders newest first without their children
func (r *ServiceOrderRepository) List(ctx context.Context, userID string, filter serviceorder.Filter, limit, offset int) ([]*serviceorder.Order, int64, error) {
	where := "WHERE user_id = $1"
	args := []interface{}{userID}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where += " AND " + clause + " $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		add("status =", filter.Status)
	}
	if filter.CustomerID != "" {
		add("customer_id =", filter.CustomerID)
	}
	if filter.From != nil {
		add("created_at >=", filter.From.UTC())
	}
	if filter.To != nil {
		add("created_at <", filter.To.UTC())
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM service_orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count service orders", err)
	}

	n := len(args)
	query := `SELECT ` + orderColumns + ` FROM service_orders ` + where + `
		ORDER BY created_at DESC
		LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list service orders", err)
	}
	defer rows.Close()

	var out []*serviceorder.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan service order", err)
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// UpdateStatus changes an order's status
func (r *ServiceOrderRepository) UpdateStatus(ctx context.Context, userID, id, status string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE service_orders SET status = $1, updated_at = $2 WHERE id = $3 AND user_id = $4
	`, status, time.Now().UTC(), id, userID)
	if err != nil {
		return errors.DatabaseError("Failed to update service order", err)
	}
	return expectRows(result, "Service order")
}

// Delete removes an order and its children
func (r *ServiceOrderRepository) Delete(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("Failed to start transaction", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM service_orders WHERE id = $1 AND user_id = $2`, id, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return errors.NotFound("Service order")
	}
	if err != nil {
		return errors.DatabaseError("Failed to get service order", err)
	}

	for _, table := range []string{"service_order_items", "service_order_materials", "service_order_photos"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE order_id = $1`, id); err != nil {
			return errors.DatabaseError("Failed to delete "+table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM service_orders WHERE id = $1`, id); err != nil {
		return errors.DatabaseError("Failed to delete service order", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("Failed to commit delete", err)
	}
	return nil
}

// AddPhoto attaches a stored photo to the order
func (r *ServiceOrderRepository) AddPhoto(ctx context.Context, orderID string, p *serviceorder.Photo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_order_photos (id, order_id, photo_url, photo_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, orderID, p.PhotoURL, p.PhotoType, p.CreatedAt)
	if err != nil {
		return errors.DatabaseError("Failed to add service order photo", err)
	}
	return nil
}

func scanOrder(row rowScanner) (*serviceorder.Order, error) {
	var o serviceorder.Order
	var lat, lng sql.NullFloat64

	err := row.Scan(
		&o.ID, &o.UserID, &o.CustomerID, &o.Address.Street, &o.Address.Number, &o.Address.Complement,
		&o.Address.Neighborhood, &o.Address.City, &o.Address.State, &o.Address.ZipCode,
		&o.Status, &o.IncludePhotos, &lat, &lng, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat.Valid {
		o.LocationLat = &lat.Float64
	}
	if lng.Valid {
		o.LocationLng = &lng.Float64
	}
	return &o, nil
}
