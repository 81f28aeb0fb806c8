// Package observation manages auditor findings and the answers that resolve them.
package observation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/event"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Service raises and answers observations
type Service struct {
	docs         port.DocumentRepository
	observations port.ObservationRepository
	tx           port.TransactionManager
	publisher    dispatcher.Publisher
	logger       Logger
	now          func() time.Time
}

// NewService creates an observation service. publisher may be nil.
func NewService(
	docs port.DocumentRepository,
	observations port.ObservationRepository,
	tx port.TransactionManager,
	publisher dispatcher.Publisher,
	logger Logger,
) *Service {
	return &Service{
		docs:         docs,
		observations: observations,
		tx:           tx,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// Raise records a finding against the document's current cycle. Only the role that owns
// an audit-capable stage may raise while the document sits there. The stage check and the
// insert share one transaction.
func (s *Service) Raise(ctx context.Context, documentID, text string, severity entity.Severity, actorID string, role workflow.Role) (*entity.Observation, error) {
	var obs *entity.Observation
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.loadDocument(txCtx, documentID)
		if err != nil {
			return err
		}
		if !doc.Stage.IsAuditCapable() {
			return fmt.Errorf("%w: document is at %s", workflow.ErrObservationNotPermitted, doc.Stage)
		}
		if owner, _ := doc.Stage.Owner(); role != owner {
			return fmt.Errorf("%w: %s cannot raise observations at %s", workflow.ErrObservationNotPermitted, role, doc.Stage)
		}

		obs, err = entity.NewObservation(doc, text, severity, actorID, s.now())
		if err != nil {
			return err
		}
		return s.observations.Create(txCtx, obs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Observation raised",
		"document_id", documentID,
		"observation_id", obs.ID,
		"severity", obs.Severity,
		"cycle", obs.Cycle,
	)
	s.publish(ctx, event.NewEvent(event.TypeObservationRaised, documentID, map[string]interface{}{
		event.KeyObservationID: obs.ID,
		event.KeySeverity:      string(obs.Severity),
		event.KeyActorID:       actorID,
	}))

	return obs, nil
}

// Answer records the write-once answer to an observation
func (s *Service) Answer(ctx context.Context, documentID, observationID, answer, actorID string) (*entity.Observation, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: answer is required", workflow.ErrEmptyObservation)
	}
	if _, err := s.loadDocument(ctx, documentID); err != nil {
		return nil, err
	}

	if err := s.observations.Answer(ctx, documentID, observationID, answer, actorID, s.now()); err != nil {
		return nil, err
	}

	obs, err := s.observations.GetByID(ctx, documentID, observationID)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return nil, workflow.ErrObservationNotFound
	}

	s.logger.Info("Observation answered",
		"document_id", documentID,
		"observation_id", observationID,
	)
	s.publish(ctx, event.NewEvent(event.TypeObservationAnswered, documentID, map[string]interface{}{
		event.KeyObservationID: observationID,
		event.KeyActorID:       actorID,
	}))

	return obs, nil
}

// List returns every observation on the document, across all cycles, in the order raised
func (s *Service) List(ctx context.Context, documentID string) ([]entity.Observation, error) {
	if _, err := s.loadDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.observations.GetByDocumentID(ctx, documentID)
}

// UnresolvedCriticalCount counts unanswered critical observations in the document's current cycle
func (s *Service) UnresolvedCriticalCount(ctx context.Context, documentID string) (int, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return s.observations.CountUnresolvedCritical(ctx, documentID, doc.Cycle)
}

// CheckResubmit fails with ErrObservationsUnresolved while the document's current cycle
// has unanswered critical observations.
func (s *Service) CheckResubmit(ctx context.Context, doc *entity.Document) error {
	count, err := s.observations.CountUnresolvedCritical(ctx, doc.ID, doc.Cycle)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d critical observation(s) open", workflow.ErrObservationsUnresolved, count)
	}
	return nil
}

func (s *Service) loadDocument(ctx context.Context, documentID string) (*entity.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, workflow.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *Service) publish(ctx context.Context, evt *event.Event) {
	if s.publisher != nil {
		s.publisher.DispatchAsync(ctx, evt)
	}
}
