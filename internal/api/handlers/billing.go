package handlers

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/fbos/fieldservice/internal/api/dto"
	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/utils"
	"github.com/fbos/fieldservice/internal/pkg/validator"
)

// SignatureHeader carries the webhook signature
const SignatureHeader = "Stripe-Signature"

// BillingHandler handles subscription status, checkout, portal and
// webhook endpoints
type BillingHandler struct {
	service         subscription.Service
	webhooks        subscription.WebhookService
	logger          *logger.Logger
	validator       *validator.Validator
	maxWebhookBytes int64
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(
	service subscription.Service,
	webhooks subscription.WebhookService,
	log *logger.Logger,
	val *validator.Validator,
	maxWebhookBytes int64,
) *BillingHandler {
	if maxWebhookBytes <= 0 {
		maxWebhookBytes = 64 << 10
	}
	return &BillingHandler{
		service:         service,
		webhooks:        webhooks,
		logger:          log,
		validator:       val,
		maxWebhookBytes: maxWebhookBytes,
	}
}

// SubscriptionStatus returns never_subscribed, inactive or active for the caller
func (h *BillingHandler) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.service.Status(r.Context(), user)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to resolve subscription status")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, result)
}

// CreateCheckout opens a subscription checkout. Redirects go back to the
// calling page's origin.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	result, err := h.service.CreateCheckout(r.Context(), user, r.Header.Get("Origin"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create checkout session")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, result)
}

// CreatePortal opens a billing portal session for the caller's customer
func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	url, err := h.service.CreatePortal(r.Context(), user)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create portal session")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.PortalResponse{URL: url})
}

// Webhook verifies and applies a billing event. The body is read raw
// because the signature covers the exact bytes.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			utils.WriteError(w, errors.BadRequest("Webhook Error: payload too large"))
			return
		}
		utils.WriteError(w, errors.BadRequest("Webhook Error: failed to read body"))
		return
	}

	outcome, err := h.webhooks.Handle(r.Context(), payload, r.Header.Get(SignatureHeader))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to process webhook")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.WebhookResponse{Received: true, Outcome: string(outcome)})
}

// CheckSubscription is the legacy per-customer check. Callers may only
// ask about their own customer.
func (h *BillingHandler) CheckSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	req := dto.CheckSubscriptionRequest{CustomerID: r.URL.Query().Get("customerId")}
	if req.CustomerID == "" {
		utils.WriteError(w, errors.BadRequest("Customer ID is required"))
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	active, err := h.service.HasActiveSubscription(r.Context(), user, req.CustomerID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to check subscription")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.CheckSubscriptionResponse{HasActiveSubscription: active})
}
