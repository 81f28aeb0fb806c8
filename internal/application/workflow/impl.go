package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/application/effects"
	"github.com/garyjia/finance-approval/internal/application/observation"
	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/event"
	"github.com/garyjia/finance-approval/internal/domain/signature"
	domainwf "github.com/garyjia/finance-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	docs         port.DocumentRepository
	history      port.HistoryRepository
	txManager    port.TransactionManager
	observations *observation.Service
	effects      *effects.Dispatcher
	tables       *TransitionTables
	dispatcher   dispatcher.Publisher
	logger       Logger
	now          func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Publisher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	docs port.DocumentRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	observations *observation.Service,
	sideEffects *effects.Dispatcher,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		docs:         docs,
		history:      history,
		txManager:    txManager,
		observations: observations,
		effects:      sideEffects,
		tables:       NewTransitionTables(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ApplyAction validates and applies one action against the version the caller last saw
func (e *engineImpl) ApplyAction(ctx context.Context, req ActionRequest) (*TransitionOutcome, error) {
	if !req.Action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", domainwf.ErrInvalidTransition, req.Action)
	}
	if err := signature.Validate(signature.Request{
		Signature:       req.DigitalSignature,
		Comments:        req.Comments,
		RequireComments: req.Action.RequiresComments(),
	}); err != nil {
		return nil, err
	}

	var (
		outcome *TransitionOutcome
		payable *entity.AccountsPayableEntry
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := e.docs.GetByID(txCtx, req.DocumentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return domainwf.ErrDocumentNotFound
		}
		if doc.Version != req.ExpectedVersion {
			return fmt.Errorf("%w: expected %d, stored %d", domainwf.ErrStaleVersion, req.ExpectedVersion, doc.Version)
		}

		machine, err := e.tables.Build(doc.Kind, doc.Stage, doc.Facts())
		if err != nil {
			return err
		}
		if err := machine.Fire(txCtx, req.Action, req.ActorRole); err != nil {
			return err
		}
		if req.Action == domainwf.ActionResubmit {
			if err := e.observations.CheckResubmit(txCtx, doc); err != nil {
				return err
			}
		}

		now := e.now()
		decision := e.effects.Decide(doc, machine.State())

		updated := doc.Clone()
		decision.ApplyTo(updated)
		updated.ReturnedFrom = machine.Facts().ReturnedFrom
		updated.BusinessStatus = entity.DeriveBusinessStatus(updated.Stage)
		updated.UpdatedAt = now
		switch req.Action {
		case domainwf.ActionSubmit:
			updated.Cycle++
		case domainwf.ActionResubmit:
			updated.Cycle++
			if summary := strings.TrimSpace(req.ChangeSummary); summary != "" {
				updated.ResubmissionChangeSummary = summary
			}
		}

		if err := e.docs.CompareAndSwap(txCtx, updated, req.ExpectedVersion); err != nil {
			return err
		}
		updated.Version = req.ExpectedVersion + 1

		record := &entity.WorkflowEvent{
			DocumentID:       doc.ID,
			FromStage:        doc.Stage,
			ToStage:          updated.Stage,
			Action:           req.Action,
			ActorID:          req.ActorID,
			ActorRole:        req.ActorRole,
			DigitalSignature: strings.TrimSpace(req.DigitalSignature),
			Comments:         strings.TrimSpace(req.Comments),
			Timestamp:        now,
		}
		if err := e.history.Append(txCtx, record); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}

		outcome = &TransitionOutcome{
			Document: updated,
			Stage:    updated.Stage,
			Version:  updated.Version,
			Effect:   decision.Effect,
			Event:    record,
		}

		if decision.Effect == effects.EffectAccountsPayableCreated {
			entry, isNew, err := e.effects.RecordPayable(txCtx, updated, req.ActorID)
			if err != nil {
				return err
			}
			outcome.PayableEntryID = entry.ID
			if isNew {
				payable = entry
			}
		}
		return nil
	})
	if err != nil {
		e.logFailure(req, err)
		return nil, err
	}

	e.logInfo("Document transitioned",
		"document_id", req.DocumentID,
		"action", req.Action,
		"actor_role", req.ActorRole,
		"from_stage", outcome.Event.FromStage,
		"to_stage", outcome.Stage,
		"version", outcome.Version,
		"effect", outcome.Effect,
	)
	e.publish(ctx, outcome, payable)

	return outcome, nil
}

// PermittedActions lists what role may do to the document right now. RESUBMIT is left
// out while critical observations are open.
func (e *engineImpl) PermittedActions(ctx context.Context, documentID string, role domainwf.Role) ([]domainwf.Action, error) {
	doc, err := e.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domainwf.ErrDocumentNotFound
	}

	machine, err := e.tables.Build(doc.Kind, doc.Stage, doc.Facts())
	if err != nil {
		return nil, err
	}

	actions := machine.PermittedActions(ctx, role)
	permitted := actions[:0]
	for _, action := range actions {
		if action == domainwf.ActionResubmit {
			if err := e.observations.CheckResubmit(ctx, doc); err != nil {
				if errors.Is(err, domainwf.ErrObservationsUnresolved) {
					continue
				}
				return nil, err
			}
		}
		permitted = append(permitted, action)
	}
	return permitted, nil
}

// publish emits the transition events once the transaction has committed
func (e *engineImpl) publish(ctx context.Context, outcome *TransitionOutcome, payable *entity.AccountsPayableEntry) {
	if e.dispatcher == nil {
		return
	}

	rec := outcome.Event
	payload := map[string]interface{}{
		event.KeyFromStage: string(rec.FromStage),
		event.KeyToStage:   string(rec.ToStage),
		event.KeyAction:    string(rec.Action),
		event.KeyActorID:   rec.ActorID,
		event.KeyActorRole: string(rec.ActorRole),
		event.KeyVersion:   outcome.Version,
		event.KeyKind:      string(outcome.Document.Kind),
		event.KeyReference: outcome.Document.ReferenceNumber,
		event.KeyComments:  rec.Comments,
	}
	transitioned := event.NewEvent(event.TypeDocumentTransitioned, rec.DocumentID, payload)
	e.dispatcher.DispatchAsync(ctx, transitioned)

	var specific event.Type
	switch {
	case outcome.Effect == effects.EffectSentToFinance:
		specific = event.TypeDocumentSentToFinance
	case outcome.Stage == domainwf.StageApproved:
		specific = event.TypeDocumentApproved
	case outcome.Stage == domainwf.StageRejected:
		specific = event.TypeDocumentRejected
	case outcome.Stage == domainwf.StageReturned:
		specific = event.TypeDocumentReturned
	}
	if specific != "" {
		e.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(specific, rec.DocumentID, payload, transitioned.ID))
	}

	if payable != nil {
		e.dispatcher.DispatchAsync(ctx, effects.PayableCreatedEvent(payable, transitioned.ID))
	}
}

func (e *engineImpl) logFailure(req ActionRequest, err error) {
	if e.logger == nil {
		return
	}
	kv := []interface{}{
		"document_id", req.DocumentID,
		"action", req.Action,
		"actor_role", req.ActorRole,
		"expected_version", req.ExpectedVersion,
		"category", domainwf.Classify(err),
		"error", err,
	}
	if domainwf.Classify(err) == domainwf.CategoryInternal {
		e.logger.Error("Failed to apply action", kv...)
		return
	}
	e.logger.Info("Action refused", kv...)
}

func (e *engineImpl) logInfo(msg string, kv ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, kv...)
	}
}
