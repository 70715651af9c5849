package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/fbos/fieldservice/internal/domain/customer"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/google/uuid"
)

// CustomerRepository implements customer.Repository
type CustomerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sql.DB) customer.Repository {
	return &CustomerRepository{db: db}
}

// List retrieves customers with pagination, filtered by name prefix
func (r *CustomerRepository) List(ctx context.Context, userID, search string, limit, offset int) ([]*customer.Customer, int64, error) {
	where := "WHERE user_id = $1"
	args := []interface{}{userID}
	if search = strings.TrimSpace(search); search != "" {
		where += " AND LOWER(name) LIKE $2"
		args = append(args, strings.ToLower(search)+"%")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.DatabaseError("Failed to count customers", err)
	}

	n := len(args)
	query := `
		SELECT id, user_id, name, email, phone, address, created_at, updated_at
		FROM customers ` + where + `
		ORDER BY name ASC
		LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to list customers", err)
	}
	defer rows.Close()

	var out []*customer.Customer
	for rows.Next() {
		var c customer.Customer
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, errors.DatabaseError("Failed to scan customer", err)
		}
		out = append(out, &c)
	}
	return out, total, rows.Err()
}

// GetByID retrieves a customer owned by the user
func (r *CustomerRepository) GetByID(ctx context.Context, userID, id string) (*customer.Customer, error) {
	query := `
		SELECT id, user_id, name, email, phone, address, created_at, updated_at
		FROM customers WHERE id = $1 AND user_id = $2
	`
	var c customer.Customer
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Customer")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get customer", err)
	}
	return &c, nil
}

// Create creates a new customer
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO customers (id, user_id, name, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Address, now, now); err != nil {
		return errors.DatabaseError("Failed to create customer", err)
	}
	return nil
}

// Update updates a customer
func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE customers
		SET name = $1, email = $2, phone = $3, address = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7
	`
	result, err := r.db.ExecContext(ctx, query, c.Name, c.Email, c.Phone, c.Address, c.UpdatedAt, c.ID, c.UserID)
	if err != nil {
		return errors.DatabaseError("Failed to update customer", err)
	}
	return expectRows(result, "Customer")
}

// Delete deletes a customer that has no service orders
func (r *CustomerRepository) Delete(ctx context.Context, userID, id string) error {
	var orders int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM service_orders WHERE customer_id = $1 AND user_id = $2`, id, userID,
	).Scan(&orders)
	if err != nil {
		return errors.DatabaseError("Failed to check customer orders", err)
	}
	if orders > 0 {
		return errors.Conflict("Customer has service orders and cannot be deleted")
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.DatabaseError("Failed to delete customer", err)
	}
	return expectRows(result, "Customer")
}
