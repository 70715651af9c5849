package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// SubscriptionReconciler periodically refreshes the subscription mirror
type SubscriptionReconciler struct {
	reconciler subscription.Reconciler
	schedule   string
	timeout    time.Duration
	logger     *logger.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
	running   bool
}

// NewSubscriptionReconciler creates a reconciler worker. schedule accepts
// standard cron expressions and descriptors such as "@every 6h".
func NewSubscriptionReconciler(r subscription.Reconciler, schedule string, log *logger.Logger) *SubscriptionReconciler {
	return &SubscriptionReconciler{
		reconciler: r,
		schedule:   schedule,
		timeout:    10 * time.Minute,
		logger:     log,
	}
}

// Start schedules the job. Runs never overlap.
func (w *SubscriptionReconciler) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("reconciler is already running")
	}

	if _, err := cron.ParseStandard(w.schedule); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", w.schedule, err)
	}

	w.scheduler = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := w.scheduler.AddFunc(w.schedule, func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule reconciler: %w", err)
	}
	w.scheduler.Start()
	w.running = true

	w.logger.WithFields(map[string]interface{}{
		"schedule": w.schedule,
	}).Info("Subscription reconciler started")

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}

// Stop stops scheduling and waits for a running pass to finish
func (w *SubscriptionReconciler) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	<-w.scheduler.Stop().Done()
	w.running = false
	w.logger.Info("Subscription reconciler stopped")
}

// RunOnce performs a single reconciliation pass
func (w *SubscriptionReconciler) RunOnce(ctx context.Context) *subscription.ReconcileReport {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	report, err := w.reconciler.Reconcile(ctx)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordReconcileRun("error", duration)
		w.logger.ErrorWithErr(err, "Subscription reconciliation failed")
		return report
	}

	outcome := "success"
	if report.Failed > 0 {
		outcome = "partial"
	}
	metrics.RecordReconcileRun(outcome, duration)

	w.logger.WithFields(map[string]interface{}{
		"checked":     report.Checked,
		"updated":     report.Updated,
		"failed":      report.Failed,
		"duration_ms": duration.Milliseconds(),
	}).Info("Subscription reconciliation completed")

	return report
}
