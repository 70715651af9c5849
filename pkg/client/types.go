package client

import "time"

// Subscription status labels
const (
	StatusNeverSubscribed = "never_subscribed"
	StatusInactive        = "inactive"
	StatusActive          = "active"
)

// ServerStatus is the liveness response of /status
type ServerStatus struct {
	Status    string `json:"status" yaml:"status"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// Plan identifies the price and product of a subscription
type Plan struct {
	ID      string `json:"id" yaml:"id"`
	Product string `json:"product" yaml:"product"`
}

// SubscriptionDetails is present when the caller has an active subscription
type SubscriptionDetails struct {
	ID                string    `json:"id" yaml:"id"`
	Status            string    `json:"status" yaml:"status"`
	CurrentPeriodEnd  time.Time `json:"current_period_end" yaml:"current_period_end"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end" yaml:"cancel_at_period_end"`
	Plan              Plan      `json:"plan" yaml:"plan"`
}

// SubscriptionStatus is the response of /subscription-status
type SubscriptionStatus struct {
	Status       string               `json:"status" yaml:"status"`
	Subscription *SubscriptionDetails `json:"subscription,omitempty" yaml:"subscription,omitempty"`
}

// CheckoutSession is a created checkout session
type CheckoutSession struct {
	SessionID string `json:"sessionId" yaml:"sessionId"`
	URL       string `json:"url" yaml:"url"`
}

// PortalSession is a created billing portal session
type PortalSession struct {
	URL string `json:"url" yaml:"url"`
}

// AccountingSummary aggregates a calendar month of service orders
type AccountingSummary struct {
	Month            string             `json:"month" yaml:"month"`
	TotalRevenue     float64            `json:"total_revenue" yaml:"total_revenue"`
	TotalCosts       float64            `json:"total_costs" yaml:"total_costs"`
	Profit           float64            `json:"profit" yaml:"profit"`
	OrderCount       int                `json:"order_count" yaml:"order_count"`
	RevenueByService map[string]float64 `json:"revenue_by_service" yaml:"revenue_by_service"`
}
