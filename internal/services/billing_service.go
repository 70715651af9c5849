package services

import (
	"context"
	"strings"
	"time"

	"github.com/fbos/fieldservice/internal/auth"
	"github.com/fbos/fieldservice/internal/billing"
	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/cache"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/metrics"
	"github.com/google/uuid"
)

const providerName = "Stripe"

// statusGenerationTTL outlives any status cache entry
const statusGenerationTTL = 24 * time.Hour

// BillingOptions configures BillingService
type BillingOptions struct {
	PriceID      string
	PublicAppURL string
	// StatusSource is subscription.SourceStripe or subscription.SourceLocal
	StatusSource string
	Cache        cache.Cache
	CacheTTL     time.Duration
}

// BillingService implements subscription.Service
type BillingService struct {
	provider billing.Provider
	profiles subscription.ProfileRepository
	subs     subscription.Repository
	opts     BillingOptions
	logger   *logger.Logger
}

// NewBillingService creates a new billing service
func NewBillingService(
	provider billing.Provider,
	profiles subscription.ProfileRepository,
	subs subscription.Repository,
	opts BillingOptions,
	log *logger.Logger,
) *BillingService {
	if opts.StatusSource == "" {
		opts.StatusSource = subscription.SourceStripe
	}
	return &BillingService{
		provider: provider,
		profiles: profiles,
		subs:     subs,
		opts:     opts,
		logger:   log,
	}
}

func statusCacheKey(userID string) string {
	return "subscription-status:" + userID
}

// statusGenerationKey holds a token replaced on every invalidation, so a
// lookup that raced with one can tell its result is stale
func statusGenerationKey(userID string) string {
	return "subscription-status-gen:" + userID
}

// Status resolves the caller's subscription state. Callers without a
// linked billing customer are never_subscribed, not an error.
func (s *BillingService) Status(ctx context.Context, user *auth.User) (*subscription.StatusResult, error) {
	if s.opts.Cache != nil {
		var cached subscription.StatusResult
		hit, err := s.opts.Cache.Get(ctx, statusCacheKey(user.ID), &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Subscription status cache read failed")
		}
		if hit {
			metrics.RecordStatusLookup(string(cached.Status), true)
			return &cached, nil
		}
	}

	var generation string
	if s.opts.Cache != nil {
		generation = statusGeneration(ctx, s.opts.Cache, user.ID, s.logger)
	}

	result, err := s.resolveStatus(ctx, user)
	if err != nil {
		return nil, err
	}
	metrics.RecordStatusLookup(string(result.Status), false)

	if s.opts.Cache != nil && s.opts.CacheTTL > 0 {
		if err := s.opts.Cache.Set(ctx, statusCacheKey(user.ID), result, s.opts.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Subscription status cache write failed")
		}
		// An invalidation since the lookup started means result may predate it
		if statusGeneration(ctx, s.opts.Cache, user.ID, s.logger) != generation {
			if err := s.opts.Cache.Delete(ctx, statusCacheKey(user.ID)); err != nil {
				s.logger.WithError(err).Warn("Subscription status cache invalidation failed")
			}
		}
	}
	return result, nil
}

func (s *BillingService) resolveStatus(ctx context.Context, user *auth.User) (*subscription.StatusResult, error) {
	customerID, err := s.profiles.GetCustomerID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if s.opts.StatusSource == subscription.SourceLocal {
		rec, err := s.subs.GetLatestForUser(ctx, user.ID)
		switch {
		case errors.IsNotFound(err):
			if customerID == "" {
				return &subscription.StatusResult{Status: subscription.StatusNeverSubscribed}, nil
			}
			return &subscription.StatusResult{Status: subscription.StatusInactive}, nil
		case err != nil:
			return nil, err
		case rec.IsActive():
			return &subscription.StatusResult{
				Status:       subscription.StatusActive,
				Subscription: subscription.DetailsFromRecord(rec),
			}, nil
		default:
			return &subscription.StatusResult{Status: subscription.StatusInactive}, nil
		}
	}

	if customerID == "" {
		return &subscription.StatusResult{Status: subscription.StatusNeverSubscribed}, nil
	}

	sub, err := s.provider.ActiveSubscription(ctx, customerID)
	if err != nil {
		return nil, errors.ProviderAPIError(providerName, err)
	}
	if sub == nil {
		return &subscription.StatusResult{Status: subscription.StatusInactive}, nil
	}
	return &subscription.StatusResult{
		Status:       subscription.StatusActive,
		Subscription: subscription.DetailsFromBilling(sub),
	}, nil
}

// CreateCheckout opens a subscription checkout for the caller, creating
// and linking a billing customer first when none is linked.
func (s *BillingService) CreateCheckout(ctx context.Context, user *auth.User, origin string) (*subscription.CheckoutResult, error) {
	if s.opts.PriceID == "" {
		return nil, errors.Internal("Billing price is not configured", nil)
	}

	origin = strings.TrimRight(origin, "/")
	if origin == "" {
		origin = strings.TrimRight(s.opts.PublicAppURL, "/")
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		UserID:     user.ID,
		PriceID:    s.opts.PriceID,
		SuccessURL: origin + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin + "/pricing",
	})
	if err != nil {
		return nil, errors.ProviderAPIError(providerName, err)
	}
	metrics.RecordCheckoutSession()

	s.logger.WithFields(map[string]interface{}{
		"user_id":     user.ID,
		"customer_id": customerID,
		"session_id":  session.ID,
	}).Info("Checkout session created")

	return &subscription.CheckoutResult{SessionID: session.ID, URL: session.URL}, nil
}

// ensureCustomer returns the linked customer id, creating one if needed.
// When two requests race, the first stored link wins and the other
// customer is left unused.
func (s *BillingService) ensureCustomer(ctx context.Context, user *auth.User) (string, error) {
	customerID, err := s.profiles.GetCustomerID(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if customerID != "" {
		return customerID, nil
	}

	created, err := s.provider.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", errors.ProviderAPIError(providerName, err)
	}
	metrics.RecordCustomerCreated()

	stored, err := s.profiles.SetCustomerID(ctx, user.ID, user.Email, created)
	if err != nil {
		return "", err
	}
	// A cached never_subscribed is wrong once any customer is linked
	s.InvalidateStatus(ctx, user.ID)
	if stored != created {
		s.logger.WithFields(map[string]interface{}{
			"user_id":         user.ID,
			"linked_customer": stored,
			"orphan_customer": created,
		}).Warn("Concurrent checkout linked a different billing customer")
	}
	return stored, nil
}

// CreatePortal opens a billing portal session. It never creates a customer.
func (s *BillingService) CreatePortal(ctx context.Context, user *auth.User) (string, error) {
	customerID, err := s.profiles.GetCustomerID(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		return "", errors.NotFound("Customer")
	}

	url, err := s.provider.CreatePortalSession(ctx, customerID, s.opts.PublicAppURL)
	if err != nil {
		return "", errors.ProviderAPIError(providerName, err)
	}
	return url, nil
}

// HasActiveSubscription answers the legacy check for the caller's own customer
func (s *BillingService) HasActiveSubscription(ctx context.Context, user *auth.User, customerID string) (bool, error) {
	if customerID == "" {
		return false, errors.BadRequest("Customer ID is required")
	}

	own, err := s.profiles.GetCustomerID(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if own != customerID {
		return false, errors.Forbidden("Customer does not belong to the caller")
	}

	sub, err := s.provider.ActiveSubscription(ctx, customerID)
	if err != nil {
		return false, errors.ProviderAPIError(providerName, err)
	}
	return sub != nil, nil
}

// InvalidateStatus drops the cached status for a user
func (s *BillingService) InvalidateStatus(ctx context.Context, userID string) {
	invalidateStatus(ctx, s.opts.Cache, userID, s.logger)
}

// invalidateStatus bumps the user's generation before dropping the entry,
// so a concurrent Status either sees the new generation or is followed by
// this delete.
func invalidateStatus(ctx context.Context, c cache.Cache, userID string, log *logger.Logger) {
	if c == nil || userID == "" {
		return
	}
	if err := c.Set(ctx, statusGenerationKey(userID), uuid.NewString(), statusGenerationTTL); err != nil {
		log.WithError(err).Warn("Subscription status generation write failed")
	}
	if err := c.Delete(ctx, statusCacheKey(userID)); err != nil {
		log.WithError(err).Warn("Subscription status cache invalidation failed")
	}
}

func statusGeneration(ctx context.Context, c cache.Cache, userID string, log *logger.Logger) string {
	var generation string
	if _, err := c.Get(ctx, statusGenerationKey(userID), &generation); err != nil {
		log.WithError(err).Warn("Subscription status generation read failed")
	}
	return generation
}
