package router

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/fbos/fieldservice/internal/api/handlers"
	"github.com/fbos/fieldservice/internal/billing"
	"github.com/fbos/fieldservice/internal/config"
	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/cache"
	"github.com/fbos/fieldservice/internal/pkg/validator"
	"github.com/fbos/fieldservice/internal/repository/postgres"
	"github.com/fbos/fieldservice/internal/services"
	"github.com/fbos/fieldservice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler  http.Handler
	db       *sql.DB
	provider *testutil.MockBillingProvider
	photos   *testutil.MockPhotoStore
}

func newTestServer(t *testing.T, statusSource string, legacy bool) *testServer {
	t.Helper()

	db := testutil.NewTestDB(t)
	t.Cleanup(func() { testutil.CleanupDB(db) })

	log := testutil.NewTestLogger()
	val := validator.New()

	verifier := testutil.NewMockVerifier()
	verifier.AddUser("token-u1", "u1", "tech@example.com")
	verifier.AddUser("token-u2", "u2", "other@example.com")

	provider := testutil.NewMockBillingProvider()
	photos := testutil.NewMockPhotoStore()
	statusCache, err := cache.NewMemoryCache(64)
	require.NoError(t, err)

	profiles := postgres.NewProfileRepository(db)
	subs := postgres.NewSubscriptionRepository(db)
	events := postgres.NewWebhookEventRepository(db)
	materialRepo := postgres.NewMaterialRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)

	billingSvc := services.NewBillingService(provider, profiles, subs, services.BillingOptions{
		PriceID:      "price_pro",
		PublicAppURL: "https://app.example.com",
		StatusSource: statusSource,
		Cache:        statusCache,
		CacheTTL:     time.Minute,
	}, log)
	webhookSvc := services.NewWebhookService(provider, profiles, subs, events, statusCache, log)

	cfg := &config.Config{
		Server:  config.ServerConfig{Environment: "test", AllowedOrigins: []string{"https://app.example.com"}},
		Billing: config.BillingConfig{LegacyCheckEnabled: legacy},
	}

	h := &Handlers{
		Health:   handlers.NewHealthHandler(db, log),
		Billing:  handlers.NewBillingHandler(billingSvc, webhookSvc, log, val, 0),
		Material: handlers.NewMaterialHandler(services.NewMaterialService(materialRepo, log), log, val),
		Customer: handlers.NewCustomerHandler(services.NewCustomerService(customerRepo, log), log, val),
		Settings: handlers.NewSettingsHandler(
			services.NewPriceService(postgres.NewPriceRepository(db), log),
			services.NewCompanyService(postgres.NewCompanyRepository(db), log),
			log, val,
		),
		ServiceOrder: handlers.NewServiceOrderHandler(
			services.NewServiceOrderService(postgres.NewServiceOrderRepository(db), customerRepo, materialRepo, photos, log),
			log, val,
		),
		Accounting: handlers.NewAccountingHandler(services.NewAccountingService(postgres.NewAccountingRepository(db), log), log, val),
	}

	return &testServer{
		handler:  New(cfg, log, verifier, h),
		db:       db,
		provider: provider,
		photos:   photos,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) webhook(t *testing.T, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set(handlers.SignatureHeader, signature)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_StatusAndHealth(t *testing.T) {
	s := newTestServer(t, subscription.SourceStripe, false)

	for _, path := range []string{"/status", "/api/status"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ok", body["status"])
		_, err := time.Parse(time.RFC3339Nano, body["timestamp"].(string))
		assert.NoError(t, err)
	}

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/nope", "", nil).Code)
}

func TestRouter_ErrorTaxonomy(t *testing.T) {
	s := newTestServer(t, subscription.SourceStripe, false)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{name: "wrong method on status lookup", method: http.MethodPost, path: "/subscription-status", want: http.StatusMethodNotAllowed},
		{name: "wrong method on checkout", method: http.MethodGet, path: "/create-checkout", want: http.StatusMethodNotAllowed},
		{name: "wrong method on webhook", method: http.MethodGet, path: "/webhook", want: http.StatusMethodNotAllowed},
		{name: "missing token", method: http.MethodGet, path: "/subscription-status", want: http.StatusUnauthorized},
		{name: "invalid token", method: http.MethodGet, path: "/subscription-status", token: "forged", want: http.StatusUnauthorized},
		{name: "checkout without token", method: http.MethodPost, path: "/create-checkout-session", want: http.StatusUnauthorized},
		{name: "portal without customer", method: http.MethodPost, path: "/create-portal-session", token: "token-u1", want: http.StatusNotFound},
		{name: "records without token", method: http.MethodGet, path: "/api/v1/materials", want: http.StatusUnauthorized},
		{name: "legacy check disabled", method: http.MethodGet, path: "/check-subscription?customerId=cus_1", token: "token-u1", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestRouter_CheckoutFlow(t *testing.T) {
	s := newTestServer(t, subscription.SourceStripe, false)

	rec := s.do(t, http.MethodGet, "/subscription-status", "token-u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"never_subscribed"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/create-checkout", nil)
	req.Header.Set("Authorization", "Bearer token-u1")
	req.Header.Set("Origin", "https://app.example.com")
	first := httptest.NewRecorder()
	s.handler.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	body := decode(t, first)
	assert.NotEmpty(t, body["sessionId"])
	assert.NotEmpty(t, body["url"])

	second := s.do(t, http.MethodPost, "/api/create-checkout-session", "token-u1", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, s.provider.CustomerCount(), "one billing customer per user")

	// Linked customer, nothing active yet
	rec = s.do(t, http.MethodGet, "/api/subscription-status", "token-u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"inactive"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/create-portal-session", "token-u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://billing.stripe.test/session/cus_1", decode(t, rec)["url"])

	// Other users are unaffected
	rec = s.do(t, http.MethodGet, "/subscription-status", "token-u2", nil)
	assert.JSONEq(t, `{"status":"never_subscribed"}`, rec.Body.String())
}

func TestRouter_WebhookFlow(t *testing.T) {
	s := newTestServer(t, subscription.SourceLocal, false)
	t0 := time.Now().UTC().Truncate(time.Second)

	sub := &billing.Subscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		UserID:           "u1",
		Status:           billing.StatusActive,
		CurrentPeriodEnd: t0.Add(30 * 24 * time.Hour),
		PlanID:           "price_pro",
		ProductID:        "prod_hvac",
	}

	rec := s.webhook(t, testutil.SubscriptionEvent("evt_1", billing.EventSubscriptionCreated, t0, sub), "bad-signature")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Webhook Error")

	rec = s.do(t, http.MethodGet, "/subscription-status", "token-u1", nil)
	assert.JSONEq(t, `{"status":"never_subscribed"}`, rec.Body.String(), "rejected delivery changes nothing")

	rec = s.webhook(t, testutil.SubscriptionEvent("evt_1", billing.EventSubscriptionCreated, t0, sub), "valid-signature")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["received"])

	rec = s.do(t, http.MethodGet, "/subscription-status", "token-u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "active", body["status"])
	detail := body["subscription"].(map[string]interface{})
	assert.Equal(t, "sub_1", detail["id"])
	assert.Equal(t, map[string]interface{}{"id": "price_pro", "product": "prod_hvac"}, detail["plan"])

	deleted := *sub
	deleted.Status = billing.StatusCanceled
	rec = s.webhook(t, testutil.SubscriptionEvent("evt_2", billing.EventSubscriptionDeleted, t0.Add(time.Minute), &deleted), "valid-signature")
	require.Equal(t, http.StatusOK, rec.Code)

	// A late, older update must not bring the subscription back
	rec = s.webhook(t, testutil.SubscriptionEvent("evt_0", billing.EventSubscriptionUpdated, t0.Add(-time.Minute), sub), "valid-signature")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/subscription-status", "token-u1", nil)
	assert.JSONEq(t, `{"status":"inactive"}`, rec.Body.String())

	rec = s.webhook(t, testutil.SubscriptionEvent("evt_3", "invoice.payment_succeeded", t0, nil), "valid-signature")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["received"])
}

func TestRouter_LegacyCheck(t *testing.T) {
	s := newTestServer(t, subscription.SourceStripe, true)

	rec := s.do(t, http.MethodPost, "/create-checkout", "token-u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name   string
		query  string
		active bool
		want   int
		body   string
	}{
		{name: "missing customer id", query: "", want: http.StatusBadRequest},
		{name: "foreign customer", query: "?customerId=cus_999", want: http.StatusForbidden},
		{name: "own customer inactive", query: "?customerId=cus_1", want: http.StatusOK, body: `{"hasActiveSubscription":false}`},
		{name: "own customer active", query: "?customerId=cus_1", active: true, want: http.StatusOK, body: `{"hasActiveSubscription":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.active {
				s.provider.Active["cus_1"] = &billing.Subscription{ID: "sub_1", CustomerID: "cus_1", Status: billing.StatusActive}
			}
			rec := s.do(t, http.MethodGet, "/check-subscription"+tt.query, "token-u1", nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRouter_Records(t *testing.T) {
	s := newTestServer(t, subscription.SourceStripe, false)

	rec := s.do(t, http.MethodPost, "/api/v1/customers", "token-u1", map[string]string{"name": "Padaria Central", "email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["detail"].(map[string]interface{})["code"])

	rec = s.do(t, http.MethodPost, "/api/v1/customers", "token-u1", map[string]string{"name": "Padaria Central"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	customerID := decode(t, rec)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/v1/materials", "token-u1", map[string]interface{}{"name": "Copper pipe", "unit": "m", "default_price": 12.5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	materialID := decode(t, rec)["id"].(string)

	order := map[string]interface{}{
		"customer_id": customerID,
		"address":     map[string]string{"street": "Rua A", "number": "10", "city": "Campinas", "state": "SP"},
		"services": []map[string]interface{}{
			{"service_type": "installation", "custom_service_value": 450},
			{"service_type": "gas_recharge", "custom_service_value": 200},
		},
		"materials":    []map[string]interface{}{{"material_id": materialID, "quantity": 2}},
		"total_amount": 1,
	}
	rec = s.do(t, http.MethodPost, "/api/v1/service-orders", "token-u1", order)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	orderID := created["id"].(string)
	assert.Equal(t, 650.0, created["total_amount"])

	// Other users see nothing
	rec = s.do(t, http.MethodGet, "/api/v1/service-orders/"+orderID, "token-u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/materials/"+materialID, "token-u1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/v1/service-orders/"+orderID+"/status", "token-u1", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode(t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/api/v1/service-orders?status=completed", "token-u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["total_items"])

	month := time.Now().UTC().Format("2006-01")
	rec = s.do(t, http.MethodGet, "/api/v1/accounting/summary?month="+month, "token-u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode(t, rec)
	assert.Equal(t, 650.0, summary["total_revenue"])
	assert.Equal(t, 25.0, summary["total_costs"])
	assert.Equal(t, 625.0, summary["profit"])

	rec = s.do(t, http.MethodGet, "/api/v1/accounting/summary?month=2024-13", "token-u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/company", "token-u1", map[string]string{"name": "FB Climatização", "cnpj": "12.345.678/0001-90"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodGet, "/api/v1/company", "token-u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FB Climatização", decode(t, rec)["name"])

	rec = s.do(t, http.MethodGet, "/api/v1/service-prices", "token-u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_PhotoUpload(t *testing.T) {
	s := newTestServer(t, subscription.SourceStripe, false)

	rec := s.do(t, http.MethodPost, "/api/v1/customers", "token-u1", map[string]string{"name": "Oficina"})
	require.Equal(t, http.StatusCreated, rec.Code)
	customerID := decode(t, rec)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/v1/service-orders", "token-u1", map[string]interface{}{
		"customer_id": customerID,
		"address":     map[string]string{"street": "Rua B", "number": "1", "city": "Campinas", "state": "SP"},
		"services":    []map[string]interface{}{{"service_type": "cleaning", "custom_service_value": 150}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := decode(t, rec)["id"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("photo_type", "after"))
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="photo"; filename="unit.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/service-orders/"+orderID+"/photos", &buf)
	req.Header.Set("Authorization", "Bearer token-u1")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "after", decode(t, rec)["photo_type"])
	assert.Len(t, s.photos.Objects, 1)
}
