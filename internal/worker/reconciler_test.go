package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/fbos/fieldservice/internal/domain/subscription"
	"github.com/fbos/fieldservice/internal/pkg/logger"
)

type stubReconciler struct {
	calls  atomic.Int32
	report *subscription.ReconcileReport
	err    error
}

func (s *stubReconciler) Reconcile(ctx context.Context) (*subscription.ReconcileReport, error) {
	s.calls.Add(1)
	return s.report, s.err
}

func TestSubscriptionReconciler_RunOnce(t *testing.T) {
	tests := []struct {
		name string
		stub *stubReconciler
	}{
		{
			name: "success",
			stub: &stubReconciler{report: &subscription.ReconcileReport{Checked: 3, Updated: 1}},
		},
		{
			name: "partial failure",
			stub: &stubReconciler{report: &subscription.ReconcileReport{Checked: 2, Failed: 1}},
		},
		{
			name: "listing failed",
			stub: &stubReconciler{err: errors.New("db down")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewSubscriptionReconciler(tt.stub, "@every 1h", logger.Nop())
			got := w.RunOnce(context.Background())

			if tt.stub.calls.Load() != 1 {
				t.Errorf("Reconcile called %d times, want 1", tt.stub.calls.Load())
			}
			if got != tt.stub.report {
				t.Errorf("RunOnce() = %v, want %v", got, tt.stub.report)
			}
		})
	}
}

func TestSubscriptionReconciler_StartStop(t *testing.T) {
	stub := &stubReconciler{report: &subscription.ReconcileReport{}}

	w := NewSubscriptionReconciler(stub, "not a schedule", logger.Nop())
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("Start() with an invalid schedule should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w = NewSubscriptionReconciler(stub, "@every 1h", logger.Nop())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Error("second Start() should fail while running")
	}
	w.Stop()
	w.Stop()
}
