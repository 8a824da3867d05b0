package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readquest/internal/database/ledger"
	"github.com/mrlokans/readquest/internal/logger"
)

// DriftFinder reports accounts whose balance disagrees with their ledger.
type DriftFinder interface {
	FindDrift(ctx context.Context) ([]ledger.Drift, error)
}

// ReconcileLedgerTask compares every account balance with its ledger entries.
// Drift is reported, never repaired automatically.
type ReconcileLedgerTask struct {
	TriggeredBy string `json:"triggered_by,omitempty"`
}

// Config returns the queue configuration for ledger reconciliation tasks.
func (t ReconcileLedgerTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_ledger",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
		},
	}
}

// Reconcile runs one reconciliation pass and logs each drifted account.
func Reconcile(ctx context.Context, finder DriftFinder, log *logger.Logger) ([]ledger.Drift, error) {
	started := time.Now()
	drifts, err := finder.FindDrift(ctx)
	if err != nil {
		return nil, fmt.Errorf("find ledger drift: %w", err)
	}
	for _, d := range drifts {
		log.Error("ledger drift detected",
			"account_id", d.AccountID,
			"stored_balance", d.StoredBalance,
			"ledger_balance", d.LedgerBalance,
			"delta", d.Delta(),
		)
	}
	log.Info("ledger reconciled", "drifted_accounts", len(drifts), "took", time.Since(started).Round(time.Millisecond))
	return drifts, nil
}

// ReconcileLedgerProcessor creates a processor function for ReconcileLedgerTask.
func ReconcileLedgerProcessor(finder DriftFinder, log *logger.Logger) backlite.QueueProcessor[ReconcileLedgerTask] {
	if log == nil {
		log = logger.NewNop()
	}
	return func(ctx context.Context, task ReconcileLedgerTask) error {
		if finder == nil {
			return fmt.Errorf("ledger reconciliation not configured")
		}
		_, err := Reconcile(ctx, finder, log.With("triggered_by", task.TriggeredBy))
		return err
	}
}

// NewReconcileLedgerQueue creates a backlite queue for ledger reconciliation.
func NewReconcileLedgerQueue(finder DriftFinder, log *logger.Logger) backlite.Queue {
	return backlite.NewQueue(ReconcileLedgerProcessor(finder, log))
}
