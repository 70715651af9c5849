package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/fbos/fieldservice/internal/billing"
	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/cache"
	"github.com/fbos/fieldservice/internal/pkg/logger"
)

// reconcileBatch bounds the subscriptions refreshed per run. Runs rotate
// through the mirror by last check time.
const reconcileBatch = 500

// ReconcileService implements subscription.Reconciler
type ReconcileService struct {
	provider billing.Provider
	subs     subscription.Repository
	cache    cache.Cache
	logger   *logger.Logger
	now      func() time.Time
	batch    int
}

// NewReconcileService creates a new reconcile service. c may be nil.
func NewReconcileService(provider billing.Provider, subs subscription.Repository, c cache.Cache, log *logger.Logger) *ReconcileService {
	return &ReconcileService{
		provider: provider,
		subs:     subs,
		cache:    c,
		logger:   log,
		now:      time.Now,
		batch:    reconcileBatch,
	}
}

type reconcileOutcome int

const (
	outcomeUnchanged reconcileOutcome = iota
	outcomeUpdated
	outcomeFailed
)

// Reconcile refreshes the least recently checked non-terminal mirrored
// subscriptions from the billing provider. A failing subscription is logged
// and skipped. Every checked subscription is stamped so the next run moves on.
func (s *ReconcileService) Reconcile(ctx context.Context) (*subscription.ReconcileReport, error) {
	records, err := s.subs.ListNonTerminal(ctx, s.batch)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &subscription.ReconcileReport{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		switch s.reconcileOne(ctx, rec, now) {
		case outcomeUpdated:
			report.Updated++
		case outcomeFailed:
			report.Failed++
		}

		if err := s.subs.MarkChecked(ctx, rec.ID, now); err != nil {
			s.logger.With("subscription_id", rec.ID).ErrorWithErr(err, "Failed to mark subscription checked")
		}
	}

	return report, nil
}

func (s *ReconcileService) reconcileOne(ctx context.Context, rec *subscription.Record, now time.Time) reconcileOutcome {
	log := s.logger.With("subscription_id", rec.ID)

	var next *subscription.Record
	remote, err := s.provider.GetSubscription(ctx, rec.ID)
	switch {
	case stderrors.Is(err, billing.ErrNotFound):
		// Gone at the provider; a terminal status stops further checks
		gone := *rec
		gone.Status = billing.StatusCanceled
		gone.LastEventAt = now
		next = &gone
		log.Warn("Mirrored subscription no longer exists at the billing provider, marking canceled")
	case err != nil:
		log.ErrorWithErr(err, "Failed to fetch subscription")
		return outcomeFailed
	case remote.Status == rec.Status && remote.CancelAtPeriodEnd == rec.CancelAtPeriodEnd &&
		samePeriodEnd(rec.CurrentPeriodEnd, remote.CurrentPeriodEnd):
		return outcomeUnchanged
	default:
		next = subscription.RecordFromBilling(remote, now)
	}

	applied, err := s.subs.Upsert(ctx, next)
	if err != nil {
		log.ErrorWithErr(err, "Failed to store reconciled subscription")
		return outcomeFailed
	}
	if !applied {
		return outcomeUnchanged
	}

	userID := next.UserID
	if userID == "" {
		userID = rec.UserID
	}
	invalidateStatus(ctx, s.cache, userID, s.logger)
	log.WithFields(map[string]interface{}{
		"old_status": rec.Status,
		"new_status": next.Status,
	}).Info("Subscription reconciled")
	return outcomeUpdated
}

func samePeriodEnd(stored *time.Time, remote time.Time) bool {
	if stored == nil {
		return remote.IsZero()
	}
	return stored.Equal(remote)
}
