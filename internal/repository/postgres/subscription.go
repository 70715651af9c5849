package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/fbos/fieldservice/internal/billing"
	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/metrics"
)

func observe(operation, table string, start time.Time) {
	metrics.RecordDBQuery(operation, table, time.Since(start))
}

// ProfileRepository implements subscription.ProfileRepository
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB) subscription.ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetCustomerID returns the linked billing customer id or ""
func (r *ProfileRepository) GetCustomerID(ctx context.Context, userID string) (string, error) {
	defer observe("select", "profiles", time.Now())

	var customerID sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT stripe_customer_id FROM profiles WHERE user_id = $1`, userID,
	).Scan(&customerID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.DatabaseError("Failed to get profile", err)
	}
	return customerID.String, nil
}

// SetCustomerID stores customerID for the user unless another one is
// already linked, then returns the stored id
func (r *ProfileRepository) SetCustomerID(ctx context.Context, userID, email, customerID string) (string, error) {
	defer observe("upsert", "profiles", time.Now())

	now := time.Now().UTC()
	query := `
		INSERT INTO profiles (user_id, email, stripe_customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			stripe_customer_id = excluded.stripe_customer_id,
			email = COALESCE(profiles.email, excluded.email),
			updated_at = excluded.updated_at
		WHERE profiles.stripe_customer_id IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, userID, nullString(email), customerID, now); err != nil {
		return "", errors.DatabaseError("Failed to link billing customer", err)
	}

	stored, err := r.GetCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if stored == "" {
		return "", errors.Internal("Billing customer was not stored", nil)
	}
	return stored, nil
}

// GetUserIDByCustomerID returns the owner of a billing customer or ""
func (r *ProfileRepository) GetUserIDByCustomerID(ctx context.Context, customerID string) (string, error) {
	defer observe("select", "profiles", time.Now())

	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM profiles WHERE stripe_customer_id = $1`, customerID,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.DatabaseError("Failed to get profile", err)
	}
	return userID, nil
}

// SubscriptionRepository implements subscription.Repository
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *sql.DB) subscription.Repository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, customer_id, user_id, status, current_period_end, cancel_at_period_end,
	plan_id, product_id, last_event_at, updated_at`

// Upsert inserts or updates the mirror row. Rows last written by a newer
// event are left alone. Empty linkage fields never erase stored ones.
func (r *SubscriptionRepository) Upsert(ctx context.Context, rec *subscription.Record) (bool, error) {
	defer observe("upsert", "subscriptions", time.Now())

	rec.UpdatedAt = time.Now().UTC()
	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = CASE WHEN excluded.customer_id = '' THEN subscriptions.customer_id ELSE excluded.customer_id END,
			user_id = CASE WHEN excluded.user_id = '' THEN subscriptions.user_id ELSE excluded.user_id END,
			status = excluded.status,
			current_period_end = excluded.current_period_end,
			cancel_at_period_end = excluded.cancel_at_period_end,
			plan_id = CASE WHEN excluded.plan_id = '' THEN subscriptions.plan_id ELSE excluded.plan_id END,
			product_id = CASE WHEN excluded.product_id = '' THEN subscriptions.product_id ELSE excluded.product_id END,
			last_event_at = excluded.last_event_at,
			updated_at = excluded.updated_at
		WHERE subscriptions.last_event_at <= excluded.last_event_at
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.CustomerID, rec.UserID, rec.Status, nullTime(rec.CurrentPeriodEnd),
		rec.CancelAtPeriodEnd, rec.PlanID, rec.ProductID, rec.LastEventAt.UTC(), rec.UpdatedAt,
	)
	if err != nil {
		return false, errors.DatabaseError("Failed to upsert subscription", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	return rows > 0, nil
}

// GetByID retrieves a subscription by billing id
func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Record, error) {
	defer observe("select", "subscriptions", time.Now())

	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	rec, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Subscription")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get subscription", err)
	}
	return rec, nil
}

// GetLatestForUser returns the user's active subscription if any,
// otherwise the most recently changed one
func (r *SubscriptionRepository) GetLatestForUser(ctx context.Context, userID string) (*subscription.Record, error) {
	defer observe("select", "subscriptions", time.Now())

	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY CASE WHEN status = $2 THEN 0 ELSE 1 END, last_event_at DESC
		LIMIT 1
	`
	rec, err := scanSubscription(r.db.QueryRowContext(ctx, query, userID, billing.StatusActive))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Subscription")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get subscription", err)
	}
	return rec, nil
}

// ListNonTerminal lists subscriptions that can still change, never-checked
// first, then least recently checked
func (r *SubscriptionRepository) ListNonTerminal(ctx context.Context, limit int) ([]*subscription.Record, error) {
	defer observe("select", "subscriptions", time.Now())

	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status NOT IN ($1, $2)
		ORDER BY CASE WHEN last_checked_at IS NULL THEN 0 ELSE 1 END, last_checked_at ASC, id ASC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, billing.StatusCanceled, billing.StatusIncompleteExpired, limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list subscriptions", err)
	}
	defer rows.Close()

	var out []*subscription.Record
	for rows.Next() {
		rec, err := scanSubscription(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan subscription", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to list subscriptions", err)
	}
	return out, nil
}

// MarkChecked stamps last_checked_at without touching the mirrored state
func (r *SubscriptionRepository) MarkChecked(ctx context.Context, id string, at time.Time) error {
	defer observe("update", "subscriptions", time.Now())

	_, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET last_checked_at = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		return errors.DatabaseError("Failed to mark subscription checked", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*subscription.Record, error) {
	var rec subscription.Record
	var periodEnd sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.CustomerID, &rec.UserID, &rec.Status, &periodEnd, &rec.CancelAtPeriodEnd,
		&rec.PlanID, &rec.ProductID, &rec.LastEventAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if periodEnd.Valid {
		t := periodEnd.Time.UTC()
		rec.CurrentPeriodEnd = &t
	}
	rec.LastEventAt = rec.LastEventAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

// WebhookEventRepository implements subscription.EventRepository
type WebhookEventRepository struct {
	db *sql.DB
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *sql.DB) subscription.EventRepository {
	return &WebhookEventRepository{db: db}
}

// IsProcessed reports whether the event was already applied
func (r *WebhookEventRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM webhook_events WHERE id = $1`, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.DatabaseError("Failed to look up webhook event", err)
	}
	return true, nil
}

// MarkProcessed records the event, returning false when it already existed
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string, created time.Time) (bool, error) {
	query := `
		INSERT INTO webhook_events (id, type, event_created_at, processed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, eventID, eventType, created.UTC(), time.Now().UTC())
	if err != nil {
		return false, errors.DatabaseError("Failed to record webhook event", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get affected rows", err)
	}
	return rows > 0, nil
}
