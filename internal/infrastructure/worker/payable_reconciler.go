package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// ReconcilerActorID is recorded as the creator of entries the reconciler repairs
const ReconcilerActorID = "system:payable-reconciler"

// Settler creates the payable entry for an approved document, idempotently
type Settler interface {
	Settle(ctx context.Context, documentID, actorID string) (*entity.AccountsPayableEntry, error)
}

// ReconcilerConfig holds configuration for the payable reconciler
type ReconcilerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultReconcilerConfig returns default configuration
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval:  5 * time.Minute,
		BatchSize: 100,
	}
}

// PayableReconciler sweeps APPROVED documents and settles any that have no
// accounts-payable entry.
type PayableReconciler struct {
	config  ReconcilerConfig
	docs    port.DocumentRepository
	ledger  port.PayableLedger
	settler Settler
	logger  *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	repaired int
	lastRun  time.Time
	lastErr  error
}

// NewPayableReconciler creates a new reconciler
func NewPayableReconciler(
	config ReconcilerConfig,
	docs port.DocumentRepository,
	ledger port.PayableLedger,
	settler Settler,
	logger *zap.Logger,
) *PayableReconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReconcilerConfig().BatchSize
	}
	return &PayableReconciler{
		config:  config,
		docs:    docs,
		ledger:  ledger,
		settler: settler,
		logger:  logger,
	}
}

// Name returns the worker name for identification
func (r *PayableReconciler) Name() string {
	return "PayableReconciler"
}

// Start runs one sweep immediately and then one per interval until ctx is done or Stop is called
func (r *PayableReconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return fmt.Errorf("payable reconciler already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	r.logger.Info("PayableReconciler started",
		zap.Duration("interval", r.config.Interval),
		zap.Int("batch_size", r.config.BatchSize))

	go r.loop(loopCtx, r.done)
	return nil
}

// Stop cancels the loop and waits for the current sweep to finish
func (r *PayableReconciler) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	r.logger.Info("PayableReconciler stopped", zap.Int("repaired", r.Repaired()))
	return nil
}

func (r *PayableReconciler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Payable reconciliation failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce sweeps every APPROVED document once and returns how many entries it created
func (r *PayableReconciler) RunOnce(ctx context.Context) (int, error) {
	repaired := 0
	var sweepErr error

	for offset := 0; ; offset += r.config.BatchSize {
		if err := ctx.Err(); err != nil {
			sweepErr = err
			break
		}

		docs, err := r.docs.ListByStage(ctx, workflow.StageApproved, r.config.BatchSize, offset)
		if err != nil {
			sweepErr = fmt.Errorf("failed to list approved documents: %w", err)
			break
		}

		for _, doc := range docs {
			fixed, err := r.reconcile(ctx, doc)
			if err != nil {
				r.logger.Error("Failed to reconcile document",
					zap.String("document_id", doc.ID),
					zap.Error(err))
				sweepErr = err
				continue
			}
			if fixed {
				repaired++
			}
		}

		if len(docs) < r.config.BatchSize {
			break
		}
	}

	r.mu.Lock()
	r.repaired += repaired
	r.lastRun = time.Now()
	r.lastErr = sweepErr
	r.mu.Unlock()

	if repaired > 0 {
		r.logger.Info("Payable entries repaired", zap.Int("count", repaired))
	}
	return repaired, sweepErr
}

// reconcile settles doc when the ledger has no entry for it and reports whether
// an entry was created. A present entry with a lowered flag only gets the flag raised.
func (r *PayableReconciler) reconcile(ctx context.Context, doc *entity.Document) (bool, error) {
	existing, err := r.ledger.GetBySourceDocumentID(ctx, doc.ID)
	if err != nil {
		return false, err
	}
	if existing != nil && doc.AccountsPayableCreated {
		return false, nil
	}

	entry, err := r.settler.Settle(ctx, doc.ID, ReconcilerActorID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		r.logger.Info("Raised payable flag for existing entry",
			zap.String("document_id", doc.ID),
			zap.String("entry_id", entry.ID))
		return false, nil
	}

	r.logger.Info("Settled approved document without a payable entry",
		zap.String("document_id", doc.ID),
		zap.String("entry_id", entry.ID),
		zap.String("bill_number", entry.BillNumber))
	return true, nil
}

// Repaired returns how many entries the reconciler has created since it was built
func (r *PayableReconciler) Repaired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repaired
}

// LastRun returns when the last sweep finished and its error, if any
func (r *PayableReconciler) LastRun() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastErr
}
