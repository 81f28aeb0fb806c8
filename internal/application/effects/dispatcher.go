// Package effects applies the one-time financial consequences of a terminal approval.
package effects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/event"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// Effect names the downstream consequence of a transition
type Effect string

const (
	EffectNone                   Effect = "NONE"
	EffectAccountsPayableCreated Effect = "ACCOUNTS_PAYABLE_CREATED"
	EffectSentToFinance          Effect = "SENT_TO_FINANCE"
)

// DefaultDueDays is the payment window for new payable entries.
const DefaultDueDays = 30

// Decision is where a transition really lands and what it triggers
type Decision struct {
	Destination workflow.Stage
	Effect      Effect
}

// ApplyTo moves doc to the decided stage and raises the matching flag
func (d Decision) ApplyTo(doc *entity.Document) {
	doc.Stage = d.Destination
	switch d.Effect {
	case EffectSentToFinance:
		doc.SentToFinance = true
	case EffectAccountsPayableCreated:
		doc.AccountsPayableCreated = true
	}
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Dispatcher decides and records terminal-approval effects
type Dispatcher struct {
	docs      port.DocumentRepository
	ledger    port.PayableLedger
	tx        port.TransactionManager
	publisher dispatcher.Publisher
	logger    Logger
	dueDays   int
	now       func() time.Time
}

// Option configures the Dispatcher
type Option func(*Dispatcher)

// WithDueDays sets the payment window for new entries
func WithDueDays(days int) Option {
	return func(d *Dispatcher) {
		if days > 0 {
			d.dueDays = days
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithPublisher publishes payable.created events after Settle creates an entry
func WithPublisher(p dispatcher.Publisher) Option {
	return func(d *Dispatcher) {
		d.publisher = p
	}
}

// WithLogger sets the logger
func WithLogger(l Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates a side-effect dispatcher
func NewDispatcher(docs port.DocumentRepository, ledger port.PayableLedger, tx port.TransactionManager, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		docs:    docs,
		ledger:  ledger,
		tx:      tx,
		dueDays: DefaultDueDays,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsAdvancePayment reports whether the payment terms describe a full or partial advance.
// Any mention of "advance", in any case, counts.
func IsAdvancePayment(terms string) bool {
	return strings.Contains(strings.ToLower(terms), "advance")
}

// Decide resolves the real destination of a transition the table routed to next.
// It must run before the document is persisted at its new stage.
func (d *Dispatcher) Decide(doc *entity.Document, next workflow.Stage) Decision {
	if next != workflow.StageApproved {
		return Decision{Destination: next, Effect: EffectNone}
	}
	// documents already re-routed to Finance are not checked again
	if !doc.SentToFinance && IsAdvancePayment(doc.PaymentTerms) {
		return Decision{Destination: workflow.StageSentToFinance, Effect: EffectSentToFinance}
	}
	return Decision{Destination: workflow.StageApproved, Effect: EffectAccountsPayableCreated}
}

// RecordPayable writes the ledger entry for doc. It runs inside the caller's transaction
// and returns the existing entry when one is already recorded.
func (d *Dispatcher) RecordPayable(ctx context.Context, doc *entity.Document, actorID string) (*entity.AccountsPayableEntry, bool, error) {
	entry := NewPayableEntry(doc, actorID, d.now(), d.dueDays)

	stored, err := d.ledger.CreateEntry(ctx, entry)
	if errors.Is(err, port.ErrEntryAlreadyExists) {
		d.logInfo("Payable entry already recorded",
			"document_id", doc.ID,
			"entry_id", stored.ID,
		)
		return stored, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to create payable entry: %w", err)
	}

	d.logInfo("Payable entry created",
		"document_id", doc.ID,
		"entry_id", stored.ID,
		"bill_number", stored.BillNumber,
		"amount", stored.Amount.String(),
	)
	return stored, true, nil
}

// Settle re-invokes the dispatcher on an approved document. It is idempotent: every call
// returns the same entry, and the entry is created if an earlier write never landed.
func (d *Dispatcher) Settle(ctx context.Context, documentID, actorID string) (*entity.AccountsPayableEntry, error) {
	var (
		entry   *entity.AccountsPayableEntry
		created bool
	)

	err := d.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := d.docs.GetByID(txCtx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return workflow.ErrDocumentNotFound
		}
		if doc.Stage != workflow.StageApproved {
			return fmt.Errorf("%w: document is at %s", workflow.ErrNotApproved, doc.Stage)
		}

		if doc.AccountsPayableCreated {
			existing, err := d.ledger.GetBySourceDocumentID(txCtx, doc.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				entry = existing
				return nil
			}
			d.logError("Payable flag set without an entry, recreating", "document_id", doc.ID)
		} else {
			updated := doc.Clone()
			updated.AccountsPayableCreated = true
			updated.UpdatedAt = d.now()
			if err := d.docs.CompareAndSwap(txCtx, updated, doc.Version); err != nil {
				return err
			}
		}

		entry, created, err = d.RecordPayable(txCtx, doc, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created && d.publisher != nil {
		d.publisher.DispatchAsync(ctx, PayableCreatedEvent(entry, ""))
	}
	return entry, nil
}

// PayableCreatedEvent builds the event announcing a new ledger entry
func PayableCreatedEvent(entry *entity.AccountsPayableEntry, correlationID string) *event.Event {
	payload := map[string]interface{}{
		event.KeyEntryID:    entry.ID,
		event.KeyBillNumber: entry.BillNumber,
		event.KeyAmount:     entry.Amount.String(),
	}
	if correlationID == "" {
		return event.NewEvent(event.TypePayableCreated, entry.SourceDocumentID, payload)
	}
	return event.NewEventWithCorrelation(event.TypePayableCreated, entry.SourceDocumentID, payload, correlationID)
}

func (d *Dispatcher) logInfo(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *Dispatcher) logError(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
