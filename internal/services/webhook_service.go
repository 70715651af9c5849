package services

import (
	"context"
	stderrors "errors"

	"github.com/fbos/fieldservice/internal/billing"
	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/cache"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/metrics"
)

// WebhookService implements subscription.WebhookService
type WebhookService struct {
	provider billing.Provider
	profiles subscription.ProfileRepository
	subs     subscription.Repository
	events   subscription.EventRepository
	cache    cache.Cache
	logger   *logger.Logger
}

// NewWebhookService creates a new webhook service. c may be nil.
func NewWebhookService(
	provider billing.Provider,
	profiles subscription.ProfileRepository,
	subs subscription.Repository,
	events subscription.EventRepository,
	c cache.Cache,
	log *logger.Logger,
) *WebhookService {
	return &WebhookService{
		provider: provider,
		profiles: profiles,
		subs:     subs,
		events:   events,
		cache:    c,
		logger:   log,
	}
}

// Handle verifies and applies one delivery. Verification failures are
// reported as bad requests and never touch the store. Storage failures
// surface as 500 so the provider redelivers.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) (subscription.WebhookOutcome, error) {
	event, err := s.provider.ConstructEvent(payload, signature)
	if err != nil {
		metrics.RecordWebhookEvent("unknown", "rejected")
		s.logger.WithError(err).Warn("Webhook verification failed")
		if !stderrors.Is(err, billing.ErrInvalidSignature) {
			err = stderrors.Join(billing.ErrInvalidSignature, err)
		}
		return "", errors.BadRequest("Webhook Error: " + err.Error())
	}

	log := s.logger.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	switch event.Type {
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
	default:
		metrics.RecordWebhookEvent(event.Type, string(subscription.OutcomeIgnored))
		log.Debug("Unhandled webhook event type")
		return subscription.OutcomeIgnored, nil
	}

	if event.Subscription == nil || event.Subscription.ID == "" {
		metrics.RecordWebhookEvent(event.Type, "rejected")
		return "", errors.BadRequest("Webhook Error: event carries no subscription")
	}

	seen, err := s.events.IsProcessed(ctx, event.ID)
	if err != nil {
		metrics.RecordWebhookEvent(event.Type, "error")
		return "", err
	}
	if seen {
		metrics.RecordWebhookEvent(event.Type, string(subscription.OutcomeDuplicate))
		log.Info("Duplicate webhook event ignored")
		return subscription.OutcomeDuplicate, nil
	}

	rec := subscription.RecordFromBilling(event.Subscription, event.Created)
	if rec.UserID == "" && rec.CustomerID != "" {
		userID, err := s.profiles.GetUserIDByCustomerID(ctx, rec.CustomerID)
		if err != nil {
			metrics.RecordWebhookEvent(event.Type, "error")
			return "", err
		}
		rec.UserID = userID
	}

	applied, err := s.subs.Upsert(ctx, rec)
	if err != nil {
		metrics.RecordWebhookEvent(event.Type, "error")
		log.ErrorWithErr(err, "Failed to store subscription")
		return "", err
	}

	if _, err := s.events.MarkProcessed(ctx, event.ID, event.Type, event.Created); err != nil {
		// A replay will rewrite identical data
		log.WithError(err).Warn("Failed to record processed webhook event")
	}

	outcome := subscription.OutcomeApplied
	if !applied {
		outcome = subscription.OutcomeStale
	}
	metrics.RecordWebhookEvent(event.Type, string(outcome))

	invalidateStatus(ctx, s.cache, rec.UserID, s.logger)

	log.WithFields(map[string]interface{}{
		"subscription_id": rec.ID,
		"user_id":         rec.UserID,
		"status":          rec.Status,
		"outcome":         string(outcome),
	}).Info("Subscription webhook processed")

	return outcome, nil
}
