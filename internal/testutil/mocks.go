package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/fbos/fieldservice/internal/auth"
	"github.com/fbos/fieldservice/internal/billing"
	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/errors"
)

// MockVerifier is a mock implementation of auth.Verifier
type MockVerifier struct {
	Users map[string]*auth.User
	Err   error
}

func NewMockVerifier() *MockVerifier {
	return &MockVerifier{Users: make(map[string]*auth.User)}
}

// AddUser registers a token for the user
func (m *MockVerifier) AddUser(token, id, email string) {
	m.Users[token] = &auth.User{ID: id, Email: email}
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (*auth.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	u, ok := m.Users[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return u, nil
}

// MockBillingProvider is a mock implementation of billing.Provider
type MockBillingProvider struct {
	mu sync.Mutex

	// Active maps customer id to its active subscription
	Active map[string]*billing.Subscription
	// Subscriptions maps subscription id to the provider's current view
	Subscriptions map[string]*billing.Subscription
	// WebhookSignature is the only signature ConstructEvent accepts
	WebhookSignature string
	// ConstructEventFunc overrides the default payload decoding
	ConstructEventFunc func(payload []byte, signature string) (*billing.Event, error)

	CustomersCreated []string
	CheckoutParams   []billing.CheckoutParams
	PortalCustomers  []string

	CreateCustomerError error
	ListError           error
	// GetErrors fails GetSubscription for the given subscription ids
	GetErrors map[string]error
	CheckoutError       error
	PortalError         error

	nextID int
}

func NewMockBillingProvider() *MockBillingProvider {
	return &MockBillingProvider{
		Active:           make(map[string]*billing.Subscription),
		Subscriptions:    make(map[string]*billing.Subscription),
		WebhookSignature: "valid-signature",
	}
}

func (m *MockBillingProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateCustomerError != nil {
		return "", m.CreateCustomerError
	}
	m.nextID++
	id := fmt.Sprintf("cus_%d", m.nextID)
	m.CustomersCreated = append(m.CustomersCreated, id)
	return id, nil
}

func (m *MockBillingProvider) ActiveSubscription(ctx context.Context, customerID string) (*billing.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Active[customerID], nil
}

func (m *MockBillingProvider) GetSubscription(ctx context.Context, id string) (*billing.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.GetErrors[id]; err != nil {
		return nil, err
	}
	s, ok := m.Subscriptions[id]
	if !ok {
		return nil, billing.ErrNotFound
	}
	return s, nil
}

func (m *MockBillingProvider) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CheckoutError != nil {
		return nil, m.CheckoutError
	}
	m.CheckoutParams = append(m.CheckoutParams, params)
	id := fmt.Sprintf("cs_test_%d", len(m.CheckoutParams))
	return &billing.CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (m *MockBillingProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PortalError != nil {
		return "", m.PortalError
	}
	m.PortalCustomers = append(m.PortalCustomers, customerID)
	return "https://billing.stripe.test/session/" + customerID, nil
}

// ConstructEvent accepts WebhookSignature and decodes payload as JSON of billing.Event
func (m *MockBillingProvider) ConstructEvent(payload []byte, signature string) (*billing.Event, error) {
	if m.ConstructEventFunc != nil {
		return m.ConstructEventFunc(payload, signature)
	}
	if signature == "" || signature != m.WebhookSignature {
		return nil, billing.ErrInvalidSignature
	}
	var e billing.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidSignature, err)
	}
	return &e, nil
}

// CustomerCount returns the number of customers created so far
func (m *MockBillingProvider) CustomerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CustomersCreated)
}

// MockProfileRepository is a mock implementation of subscription.ProfileRepository
type MockProfileRepository struct {
	mu        sync.Mutex
	Customers map[string]string
	GetError  error
	SetError  error
	// BeforeSet runs before SetCustomerID applies, under no lock
	BeforeSet func(userID string)
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{Customers: make(map[string]string)}
}

func (m *MockProfileRepository) GetCustomerID(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return "", m.GetError
	}
	return m.Customers[userID], nil
}

func (m *MockProfileRepository) SetCustomerID(ctx context.Context, userID, email, customerID string) (string, error) {
	if m.BeforeSet != nil {
		m.BeforeSet(userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetError != nil {
		return "", m.SetError
	}
	if existing := m.Customers[userID]; existing != "" {
		return existing, nil
	}
	m.Customers[userID] = customerID
	return customerID, nil
}

func (m *MockProfileRepository) GetUserIDByCustomerID(ctx context.Context, customerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, c := range m.Customers {
		if c == customerID {
			return userID, nil
		}
	}
	return "", nil
}

// MockSubscriptionRepository is a mock implementation of subscription.Repository
type MockSubscriptionRepository struct {
	mu          sync.Mutex
	Records     map[string]*subscription.Record
	CheckedAt   map[string]time.Time
	UpsertError error
	UpsertCalls int
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{
		Records:   make(map[string]*subscription.Record),
		CheckedAt: make(map[string]time.Time),
	}
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, r *subscription.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if m.UpsertError != nil {
		return false, m.UpsertError
	}
	if existing, ok := m.Records[r.ID]; ok {
		if existing.LastEventAt.After(r.LastEventAt) {
			return false, nil
		}
		if r.UserID == "" {
			r.UserID = existing.UserID
		}
		if r.CustomerID == "" {
			r.CustomerID = existing.CustomerID
		}
	}
	cp := *r
	cp.UpdatedAt = time.Now().UTC()
	m.Records[r.ID] = &cp
	return true, nil
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id string) (*subscription.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Records[id]
	if !ok {
		return nil, errors.NotFound("Subscription")
	}
	cp := *r
	return &cp, nil
}

func (m *MockSubscriptionRepository) GetLatestForUser(ctx context.Context, userID string) (*subscription.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *subscription.Record
	for _, r := range m.Records {
		if r.UserID != userID {
			continue
		}
		if best == nil ||
			(r.IsActive() && !best.IsActive()) ||
			(r.IsActive() == best.IsActive() && r.LastEventAt.After(best.LastEventAt)) {
			best = r
		}
	}
	if best == nil {
		return nil, errors.NotFound("Subscription")
	}
	cp := *best
	return &cp, nil
}

func (m *MockSubscriptionRepository) ListNonTerminal(ctx context.Context, limit int) ([]*subscription.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*subscription.Record
	for _, r := range m.Records {
		if r.Status == billing.StatusCanceled || r.Status == billing.StatusIncompleteExpired {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, iChecked := m.CheckedAt[out[i].ID]
		cj, jChecked := m.CheckedAt[out[j].ID]
		switch {
		case iChecked != jChecked:
			return !iChecked
		case !ci.Equal(cj):
			return ci.Before(cj)
		default:
			return out[i].ID < out[j].ID
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockSubscriptionRepository) MarkChecked(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckedAt[id] = at
	return nil
}

// MockEventRepository is a mock implementation of subscription.EventRepository
type MockEventRepository struct {
	mu     sync.Mutex
	Events map[string]string
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{Events: make(map[string]string)}
}

func (m *MockEventRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Events[eventID]
	return ok, nil
}

func (m *MockEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string, created time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Events[eventID]; ok {
		return false, nil
	}
	m.Events[eventID] = eventType
	return true, nil
}

// MockPhotoStore records uploaded objects in memory
type MockPhotoStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func NewMockPhotoStore() *MockPhotoStore {
	return &MockPhotoStore{Objects: make(map[string][]byte)}
}

func (m *MockPhotoStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = buf.Bytes()
	return "https://photos.test/" + key, nil
}

// SubscriptionEvent builds a webhook payload accepted by MockBillingProvider
func SubscriptionEvent(eventID, eventType string, created time.Time, sub *billing.Subscription) []byte {
	b, _ := json.Marshal(&billing.Event{ID: eventID, Type: eventType, Created: created, Subscription: sub})
	return b
}
