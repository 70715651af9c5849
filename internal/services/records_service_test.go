package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fbos/fieldservice/internal/domain/customer"
	"github.com/fbos/fieldservice/internal/domain/material"
	"github.com/fbos/fieldservice/internal/domain/serviceorder"
	"github.com/fbos/fieldservice/internal/domain/serviceprice"
	apperrors "github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/repository/postgres"
	"github.com/fbos/fieldservice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordsFixture struct {
	materials  material.Service
	customers  customer.Service
	orders     serviceorder.Service
	photos     *testutil.MockPhotoStore
	accounting *AccountingService
}

func newRecordsFixture(t *testing.T) *recordsFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	t.Cleanup(func() { testutil.CleanupDB(db) })

	log := testutil.NewTestLogger()
	materialRepo := postgres.NewMaterialRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)
	photos := testutil.NewMockPhotoStore()

	return &recordsFixture{
		materials:  NewMaterialService(materialRepo, log),
		customers:  NewCustomerService(customerRepo, log),
		orders:     NewServiceOrderService(postgres.NewServiceOrderRepository(db), customerRepo, materialRepo, photos, log),
		photos:     photos,
		accounting: NewAccountingService(postgres.NewAccountingRepository(db), log).(*AccountingService),
	}
}

func (f *recordsFixture) seed(t *testing.T, userID string) (*customer.Customer, *material.Material) {
	t.Helper()
	ctx := context.Background()
	c, err := f.customers.Create(ctx, &customer.Customer{UserID: userID, Name: "Padaria Central", Phone: "11 99999-0000"})
	require.NoError(t, err)
	m, err := f.materials.Create(ctx, &material.Material{UserID: userID, Name: "Copper pipe", Unit: "m", DefaultPrice: 12.5})
	require.NoError(t, err)
	return c, m
}

func newOrder(userID, customerID, materialID string) *serviceorder.Order {
	return &serviceorder.Order{
		UserID:     userID,
		CustomerID: customerID,
		Address:    serviceorder.Address{Street: "Rua A", Number: "10", City: "Campinas", State: "SP", ZipCode: "13000-000"},
		Items: []serviceorder.Item{
			{ServiceType: serviceorder.ServiceInstallation, EquipmentType: "split", EquipmentPower: "12000", Value: 450},
			{ServiceType: serviceorder.ServiceCleaning, EquipmentType: "split", Value: 150},
		},
		Materials: []serviceorder.MaterialLine{
			{MaterialID: materialID, Quantity: 4},
		},
	}
}

func TestMaterialService(t *testing.T) {
	f := newRecordsFixture(t)
	ctx := context.Background()

	_, err := f.materials.Create(ctx, &material.Material{UserID: "u1", Name: "Gas", Unit: "kg", DefaultPrice: -1})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.From(err).StatusCode)

	m, err := f.materials.Create(ctx, &material.Material{UserID: "u1", Name: "Gas", Unit: "kg", DefaultPrice: 80})
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)

	price := 95.0
	unit := "cylinder"
	updated, err := f.materials.Update(ctx, "u1", m.ID, material.Update{DefaultPrice: &price, Unit: &unit})
	require.NoError(t, err)
	assert.Equal(t, 95.0, updated.DefaultPrice)
	assert.Equal(t, "cylinder", updated.Unit)
	assert.Equal(t, "Gas", updated.Name)

	_, err = f.materials.Update(ctx, "u2", m.ID, material.Update{DefaultPrice: &price})
	assert.True(t, apperrors.IsNotFound(err), "materials are scoped to their owner")

	list, err := f.materials.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.materials.Delete(ctx, "u1", m.ID))
	list, err = f.materials.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMaterialService_DeleteInUse(t *testing.T) {
	f := newRecordsFixture(t)
	ctx := context.Background()
	c, m := f.seed(t, "u1")

	_, err := f.orders.Create(ctx, newOrder("u1", c.ID, m.ID))
	require.NoError(t, err)

	err = f.materials.Delete(ctx, "u1", m.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.From(err).Code)
}

func TestServiceOrderService_Create(t *testing.T) {
	f := newRecordsFixture(t)
	ctx := context.Background()
	c, m := f.seed(t, "u1")

	o := newOrder("u1", c.ID, m.ID)
	o.TotalAmount = 1 // recomputed server-side

	got, err := f.orders.Create(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusPending, got.Status)
	assert.Equal(t, 600.0, got.TotalAmount)
	require.Len(t, got.Items, 2)
	assert.Equal(t, serviceorder.ServiceInstallation, got.Items[0].ServiceType)
	require.Len(t, got.Materials, 1)
	assert.Equal(t, 12.5, got.Materials[0].UnitPrice, "unit price defaults to the material price")
	assert.Equal(t, "Campinas", got.Address.City)

	tests := []struct {
		name   string
		mutate func(o *serviceorder.Order)
		status int
	}{
		{name: "no services", mutate: func(o *serviceorder.Order) { o.Items = nil }, status: http.StatusBadRequest},
		{name: "bad status", mutate: func(o *serviceorder.Order) { o.Status = "archived" }, status: http.StatusBadRequest},
		{name: "unknown customer", mutate: func(o *serviceorder.Order) { o.CustomerID = "missing" }, status: http.StatusNotFound},
		{name: "unknown material", mutate: func(o *serviceorder.Order) { o.Materials[0].MaterialID = "missing" }, status: http.StatusNotFound},
		{name: "another user's customer", mutate: func(o *serviceorder.Order) { o.UserID = "u2" }, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrder("u1", c.ID, m.ID)
			tt.mutate(o)
			_, err := f.orders.Create(ctx, o)
			require.Error(t, err)
			assert.Equal(t, tt.status, apperrors.From(err).StatusCode)
		})
	}
}

func TestServiceOrderService_ListAndStatus(t *testing.T) {
	f := newRecordsFixture(t)
	ctx := context.Background()
	c, m := f.seed(t, "u1")

	first, err := f.orders.Create(ctx, newOrder("u1", c.ID, m.ID))
	require.NoError(t, err)
	second, err := f.orders.Create(ctx, newOrder("u1", c.ID, m.ID))
	require.NoError(t, err)

	require.NoError(t, f.orders.UpdateStatus(ctx, "u1", first.ID, serviceorder.StatusCompleted))
	err = f.orders.UpdateStatus(ctx, "u1", first.ID, "done")
	assert.Equal(t, http.StatusBadRequest, apperrors.From(err).StatusCode)

	all, total, err := f.orders.List(ctx, "u1", serviceorder.Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	done, total, err := f.orders.List(ctx, "u1", serviceorder.Filter{Status: serviceorder.StatusCompleted}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, done, 1)
	assert.Equal(t, first.ID, done[0].ID)

	_, _, err = f.orders.List(ctx, "u1", serviceorder.Filter{Status: "nope"}, 10, 0)
	assert.Equal(t, http.StatusBadRequest, apperrors.From(err).StatusCode)

	require.NoError(t, f.orders.Delete(ctx, "u1", second.ID))
	_, err = f.orders.Get(ctx, "u1", second.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestServiceOrderService_AddPhoto(t *testing.T) {
	f := newRecordsFixture(t)
	ctx := context.Background()
	c, m := f.seed(t, "u1")
	o, err := f.orders.Create(ctx, newOrder("u1", c.ID, m.ID))
	require.NoError(t, err)

	upload := func(photoType, contentType string) serviceorder.PhotoUpload {
		return serviceorder.PhotoUpload{
			PhotoType:   photoType,
			Filename:    "unit.JPG",
			ContentType: contentType,
			Size:        4,
			Body:        strings.NewReader("\xff\xd8\xff\xe0"),
		}
	}

	photo, err := f.orders.AddPhoto(ctx, "u1", o.ID, upload(serviceorder.PhotoBefore, "image/jpeg"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(photo.PhotoURL, "https://photos.test/"))
	assert.True(t, strings.HasSuffix(photo.PhotoURL, ".jpg"))
	assert.Len(t, f.photos.Objects, 1)

	got, err := f.orders.Get(ctx, "u1", o.ID)
	require.NoError(t, err)
	require.Len(t, got.Photos, 1)
	assert.Equal(t, serviceorder.PhotoBefore, got.Photos[0].PhotoType)

	_, err = f.orders.AddPhoto(ctx, "u1", o.ID, upload("sideways", "image/jpeg"))
	assert.Equal(t, http.StatusBadRequest, apperrors.From(err).StatusCode)

	_, err = f.orders.AddPhoto(ctx, "u1", o.ID, upload(serviceorder.PhotoAfter, "application/pdf"))
	assert.Equal(t, http.StatusBadRequest, apperrors.From(err).StatusCode)

	_, err = f.orders.AddPhoto(ctx, "u2", o.ID, upload(serviceorder.PhotoAfter, "image/png"))
	assert.True(t, apperrors.IsNotFound(err))

	f.photos.Err = errors.New("bucket unreachable")
	_, err = f.orders.AddPhoto(ctx, "u1", o.ID, upload(serviceorder.PhotoAfter, "image/png"))
	assert.Equal(t, http.StatusInternalServerError, apperrors.From(err).StatusCode)
}

func TestServiceOrderService_AddPhotoWithoutStorage(t *testing.T) {
	svc := NewServiceOrderService(nil, nil, nil, nil, testutil.NewTestLogger())
	_, err := svc.AddPhoto(context.Background(), "u1", "o1", serviceorder.PhotoUpload{PhotoType: serviceorder.PhotoBefore})
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.From(err).StatusCode)
}

func TestAccountingService_MonthlySummary(t *testing.T) {
	f := newRecordsFixture(t)
	ctx := context.Background()
	c, m := f.seed(t, "u1")

	for i := 0; i < 2; i++ {
		_, err := f.orders.Create(ctx, newOrder("u1", c.ID, m.ID))
		require.NoError(t, err)
	}
	// Another user's order never shows up
	c2, m2 := f.seed(t, "u2")
	_, err := f.orders.Create(ctx, newOrder("u2", c2.ID, m2.ID))
	require.NoError(t, err)

	month := time.Now().UTC().Format("2006-01")
	s, err := f.accounting.MonthlySummary(ctx, "u1", month)
	require.NoError(t, err)
	assert.Equal(t, month, s.Month)
	assert.Equal(t, 2, s.OrderCount)
	assert.Equal(t, 1200.0, s.TotalRevenue)
	assert.Equal(t, 100.0, s.TotalCosts)
	assert.Equal(t, 1100.0, s.Profit)
	assert.Equal(t, map[string]float64{
		serviceorder.ServiceInstallation: 900,
		serviceorder.ServiceCleaning:     300,
	}, s.RevenueByService)

	empty, err := f.accounting.MonthlySummary(ctx, "u1", "1999-01")
	require.NoError(t, err)
	assert.Zero(t, empty.OrderCount)
	assert.Zero(t, empty.TotalRevenue)

	_, err = f.accounting.MonthlySummary(ctx, "u1", "January")
	assert.Equal(t, http.StatusBadRequest, apperrors.From(err).StatusCode)
}

func TestPriceService(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.CleanupDB(db)
	ctx := context.Background()
	svc := NewPriceService(postgres.NewPriceRepository(db), testutil.NewTestLogger())

	empty, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, empty.ID)
	assert.Empty(t, empty.CleaningPrices)

	first, err := svc.Save(ctx, &serviceprice.Prices{
		UserID:         "u1",
		CleaningPrices: map[string]string{"split": "150"},
		InstallationPrices: map[string]map[string]string{
			"split": {"9000": "400", "12000": "450"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := svc.Save(ctx, &serviceprice.Prices{
		UserID:             "u1",
		CleaningPrices:     map[string]string{"split": "180"},
		InstallationPrices: map[string]map[string]string{},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "saving updates the existing table")

	got, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "180", got.CleaningPrices["split"])
}
