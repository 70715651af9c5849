package subscription

import (
	"time"

	"github.com/fbos/fieldservice/internal/billing"
)

// Status is the caller-facing subscription state
type Status string

// Subscription states
const (
	StatusNeverSubscribed Status = "never_subscribed"
	StatusInactive        Status = "inactive"
	StatusActive          Status = "active"
)

// Status sources
const (
	SourceStripe = "stripe"
	SourceLocal  = "local"
)

// Plan identifies the price and product a subscription is for
type Plan struct {
	ID      string `json:"id"`
	Product string `json:"product"`
}

// Details is the subscription projection returned for active callers
type Details struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	CurrentPeriodEnd  time.Time `json:"current_period_end"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	Plan              Plan      `json:"plan"`
}

// StatusResult is the outcome of resolving a user's subscription state.
// Subscription is only set when Status is StatusActive.
type StatusResult struct {
	Status       Status   `json:"status"`
	Subscription *Details `json:"subscription,omitempty"`
}

// Record is the locally mirrored copy of a billing subscription
type Record struct {
	ID                string     `json:"id"`
	CustomerID        string     `json:"customer_id"`
	UserID            string     `json:"user_id"`
	Status            string     `json:"status"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	PlanID            string     `json:"plan_id,omitempty"`
	ProductID         string     `json:"product_id,omitempty"`
	LastEventAt       time.Time  `json:"last_event_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsActive reports whether the mirrored subscription grants access
func (r *Record) IsActive() bool {
	return r.Status == billing.StatusActive
}

// RecordFromBilling converts a provider subscription into a mirror record
// stamped with the time of the event that produced it.
func RecordFromBilling(s *billing.Subscription, eventAt time.Time) *Record {
	r := &Record{
		ID:                s.ID,
		CustomerID:        s.CustomerID,
		UserID:            s.UserID,
		Status:            s.Status,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		PlanID:            s.PlanID,
		ProductID:         s.ProductID,
		LastEventAt:       eventAt.UTC(),
	}
	if !s.CurrentPeriodEnd.IsZero() {
		end := s.CurrentPeriodEnd.UTC()
		r.CurrentPeriodEnd = &end
	}
	return r
}

// DetailsFromBilling projects a provider subscription to the returned fields
func DetailsFromBilling(s *billing.Subscription) *Details {
	return &Details{
		ID:                s.ID,
		Status:            s.Status,
		CurrentPeriodEnd:  s.CurrentPeriodEnd,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		Plan:              Plan{ID: s.PlanID, Product: s.ProductID},
	}
}

// DetailsFromRecord projects a mirror record to the returned fields
func DetailsFromRecord(r *Record) *Details {
	d := &Details{
		ID:                r.ID,
		Status:            r.Status,
		CancelAtPeriodEnd: r.CancelAtPeriodEnd,
		Plan:              Plan{ID: r.PlanID, Product: r.ProductID},
	}
	if r.CurrentPeriodEnd != nil {
		d.CurrentPeriodEnd = *r.CurrentPeriodEnd
	}
	return d
}

// CheckoutResult carries both redirect styles supported by the front end
type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// WebhookOutcome describes what happened to a delivered event
type WebhookOutcome string

// Webhook outcomes
const (
	OutcomeApplied   WebhookOutcome = "applied"
	OutcomeStale     WebhookOutcome = "stale"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeIgnored   WebhookOutcome = "ignored"
)

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}
