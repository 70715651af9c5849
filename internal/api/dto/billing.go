package dto

// PortalResponse carries the billing portal URL
type PortalResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledges a webhook delivery
type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}

// CheckSubscriptionRequest holds the legacy check's query parameters
type CheckSubscriptionRequest struct {
	CustomerID string `json:"customerId" validate:"required,max=255"`
}

// CheckSubscriptionResponse is the legacy check result
type CheckSubscriptionResponse struct {
	HasActiveSubscription bool `json:"hasActiveSubscription"`
}

// StatusResponse is the liveness payload of GET /status
type StatusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
