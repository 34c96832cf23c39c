package blockchain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultReconcileSchedule = "@every 1m"

// Ledger is the credit store side of reconciliation
type Ledger interface {
	// PendingTransactions returns ids of credits whose blockchain status is pending.
	PendingTransactions(ctx context.Context) ([]string, error)
	ApplyReceipt(ctx context.Context, receipt Receipt) error
}

// Submitter schedules a confirmation for a credit
type Submitter interface {
	Submit(ctx context.Context, creditID string, done func(Receipt)) error
}

// Reconciler periodically resubmits credits left pending, e.g. after a
// restart dropped their timers.
type Reconciler struct {
	cron      *cron.Cron
	ledger    Ledger
	submitter Submitter
	schedule  string
	logger    *zap.Logger
	running   bool
	mu        sync.Mutex
}

// NewReconciler creates a reconciler running on schedule (standard cron
// syntax or a descriptor such as "@every 30s").
func NewReconciler(ledger Ledger, submitter Submitter, schedule string, logger *zap.Logger) *Reconciler {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		cron:      cron.New(),
		ledger:    ledger,
		submitter: submitter,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start registers the job and starts the scheduler
func (r *Reconciler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reconciler already running")
	}

	_, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add reconcile job: %w", err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("Started blockchain reconciler", zap.String("schedule", r.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running job
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
}

// RunOnce resubmits every pending credit and returns how many were submitted.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	ids, err := r.ledger.PendingTransactions(ctx)
	if err != nil {
		r.logger.Error("Failed to list pending transactions", zap.Error(err))
		return 0
	}

	submitted := 0
	for _, id := range ids {
		err := r.submitter.Submit(ctx, id, r.apply)
		switch {
		case errors.Is(err, ErrAlreadySubmitted):
			continue
		case err != nil:
			r.logger.Warn("Failed to resubmit credit",
				zap.String("credit_id", id), zap.Error(err))
			continue
		}
		submitted++
	}

	if submitted > 0 {
		r.logger.Info("Resubmitted pending credits", zap.Int("count", submitted))
	}
	return submitted
}

func (r *Reconciler) apply(receipt Receipt) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.ledger.ApplyReceipt(ctx, receipt); err != nil {
		r.logger.Error("Failed to apply receipt",
			zap.String("credit_id", receipt.CreditID), zap.Error(err))
	}
}
