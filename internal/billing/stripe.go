package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeProvider implements Provider on top of the Stripe API
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider creates a provider using the given secret key and
// webhook signing secret
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripeProvider{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// NewStripeProviderWithBackends is used to point the client at a custom
// backend, such as stripe-mock in tests
func NewStripeProviderWithBackends(secretKey, webhookSecret string, backends *stripe.Backends) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, backends)

	return &StripeProvider{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// CreateCustomer implements Provider. The idempotency key is derived from the
// user id so that retried requests for the same user do not create twins.
func (p *StripeProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata(MetadataUserID, userID)
	params.SetIdempotencyKey("customer-" + userID)

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return c.ID, nil
}

// ActiveSubscription implements Provider
func (p *StripeProvider) ActiveSubscription(ctx context.Context, customerID string) (*Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true

	it := p.api.Subscriptions.List(params)
	for it.Next() {
		return fromStripeSubscription(it.Subscription()), nil
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return nil, nil
}

// GetSubscription implements Provider
func (p *StripeProvider) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := p.api.Subscriptions.Get(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return fromStripeSubscription(s), nil
}

// CreateCheckoutSession implements Provider. The user id is stamped on the
// resulting subscription's metadata so webhook events can be attributed.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, cp CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:            stripe.String(cp.CustomerID),
		ClientReferenceID:   stripe.String(cp.UserID),
		Mode:                stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes:  stripe.StringSlice([]string{"card"}),
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(cp.SuccessURL),
		CancelURL:           stripe.String(cp.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(cp.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserID: cp.UserID},
		},
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// CreatePortalSession implements Provider
func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return s.URL, nil
}

// ConstructEvent implements Provider. API version mismatches are tolerated;
// only the subscription fields listed in Subscription are read.
func (p *StripeProvider) ConstructEvent(payload []byte, signature string) (*Event, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	e, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return decodeEvent(&e)
}

func decodeEvent(e *stripe.Event) (*Event, error) {
	out := &Event{
		ID:      e.ID,
		Type:    string(e.Type),
		Created: time.Unix(e.Created, 0).UTC(),
	}

	if !strings.HasPrefix(out.Type, "customer.subscription.") || e.Data == nil {
		return out, nil
	}

	var s stripe.Subscription
	if err := json.Unmarshal(e.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", out.Type, err)
	}
	out.Subscription = fromStripeSubscription(&s)
	return out, nil
}

func fromStripeSubscription(s *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		UserID:            s.Metadata[MetadataUserID],
	}
	if s.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(s.CurrentPeriodEnd, 0).UTC()
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		price := s.Items.Data[0].Price
		out.PlanID = price.ID
		if price.Product != nil {
			out.ProductID = price.Product.ID
		}
	}
	return out
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
