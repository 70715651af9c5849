package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func assertDatabaseError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.ErrCodeDatabase, appErr.Code)
	assert.Equal(t, 500, appErr.StatusCode)
}

func TestProfileRepository_DatabaseErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT stripe_customer_id FROM profiles`).
		WithArgs("u1").
		WillReturnError(stderrors.New("connection reset"))
	_, err := repo.GetCustomerID(ctx, "u1")
	assertDatabaseError(t, err)

	mock.ExpectExec(`INSERT INTO profiles`).
		WillReturnError(stderrors.New("connection reset"))
	_, err = repo.SetCustomerID(ctx, "u1", "tech@example.com", "cus_1")
	assertDatabaseError(t, err)
}

func TestProfileRepository_SetCustomerIDNotStored(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectExec(`INSERT INTO profiles`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT stripe_customer_id FROM profiles`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"stripe_customer_id"}).AddRow(nil))

	_, err := repo.SetCustomerID(context.Background(), "u1", "", "cus_1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternal, errors.From(err).Code)
}

func TestSubscriptionRepository_DatabaseErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO subscriptions`).
		WillReturnError(stderrors.New("deadlock detected"))
	_, err := repo.Upsert(ctx, record("sub_1", "active", time.Now()))
	assertDatabaseError(t, err)

	mock.ExpectQuery(`FROM subscriptions`).
		WillReturnError(stderrors.New("timeout"))
	_, err = repo.ListNonTerminal(ctx, 10)
	assertDatabaseError(t, err)

	mock.ExpectQuery(`FROM subscriptions WHERE id = \$1`).
		WithArgs("sub_1").
		WillReturnError(stderrors.New("timeout"))
	_, err = repo.GetByID(ctx, "sub_1")
	assertDatabaseError(t, err)
}

func TestWebhookEventRepository_DatabaseErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT 1 FROM webhook_events`).
		WithArgs("evt_1").
		WillReturnError(stderrors.New("timeout"))
	_, err := repo.IsProcessed(ctx, "evt_1")
	assertDatabaseError(t, err)

	mock.ExpectExec(`INSERT INTO webhook_events`).
		WillReturnError(stderrors.New("timeout"))
	_, err = repo.MarkProcessed(ctx, "evt_1", "customer.subscription.created", time.Now())
	assertDatabaseError(t, err)
}

func TestSubscriptionRepository_MarkCheckedError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubscriptionRepository(db)

	mock.ExpectExec(`UPDATE subscriptions SET last_checked_at = \$1 WHERE id = \$2`).
		WithArgs(sqlmock.AnyArg(), "sub_1").
		WillReturnError(stderrors.New("timeout"))
	err := repo.MarkChecked(context.Background(), "sub_1", time.Now())
	assertDatabaseError(t, err)
}
