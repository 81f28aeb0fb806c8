package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/event"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
	"github.com/garyjia/finance-approval/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DefaultPageSize is used when a listing asks for zero or fewer rows
const DefaultPageSize = 50

// CreateDocumentRequest carries the intake fields of a new settlement or purchase order
type CreateDocumentRequest struct {
	Kind            workflow.Kind   `json:"kind"`
	ReferenceNumber string          `json:"reference_number"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentTerms    string          `json:"payment_terms"`
	VendorName      string          `json:"vendor_name"`
	Department      string          `json:"department"`
	CreatedBy       string          `json:"-"`
}

// DocumentService is the intake and read side of the approval engine
type DocumentService interface {
	Create(ctx context.Context, req CreateDocumentRequest) (*entity.Document, error)
	// Get returns the document with its history and observations
	Get(ctx context.Context, id string) (*entity.Document, error)
	// List lists documents, only those at stage when stage is non-empty
	List(ctx context.Context, stage workflow.Stage, limit, offset int) ([]*entity.Document, error)
	History(ctx context.Context, id string) ([]entity.WorkflowEvent, error)
	// Payable returns the ledger entry of an approved document, or ErrDocumentNotFound
	// when the document has none yet
	Payable(ctx context.Context, id string) (*entity.AccountsPayableEntry, error)
	ListPayables(ctx context.Context, limit, offset int) ([]*entity.AccountsPayableEntry, error)
}

type documentServiceImpl struct {
	docs         port.DocumentRepository
	history      port.HistoryRepository
	observations port.ObservationRepository
	ledger       port.PayableLedger
	publisher    dispatcher.Publisher
	logger       Logger
	now          func() time.Time
}

// NewDocumentService creates a new DocumentService. publisher may be nil.
func NewDocumentService(
	docs port.DocumentRepository,
	history port.HistoryRepository,
	observations port.ObservationRepository,
	ledger port.PayableLedger,
	publisher dispatcher.Publisher,
	logger Logger,
) DocumentService {
	return &documentServiceImpl{
		docs:         docs,
		history:      history,
		observations: observations,
		ledger:       ledger,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// Create stores a new DRAFT document
func (s *documentServiceImpl) Create(ctx context.Context, req CreateDocumentRequest) (*entity.Document, error) {
	ref := utils.SanitizeString(req.ReferenceNumber)
	if err := utils.ValidateReference(ref); err != nil {
		return nil, fmt.Errorf("%w: %v", workflow.ErrInvalidDocument, err)
	}

	doc, err := entity.NewDocument(entity.NewDocumentParams{
		Kind:            req.Kind,
		ReferenceNumber: ref,
		Amount:          req.Amount,
		PaymentTerms:    utils.SanitizeString(req.PaymentTerms),
		VendorName:      utils.SanitizeString(req.VendorName),
		Department:      utils.SanitizeString(req.Department),
		CreatedBy:       req.CreatedBy,
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		s.logger.Error("Failed to create document", "error", err, "kind", req.Kind)
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.logger.Info("Document created",
		"document_id", doc.ID,
		"kind", doc.Kind,
		"reference_number", doc.ReferenceNumber,
		"amount", doc.Amount.String(),
	)

	if s.publisher != nil {
		s.publisher.DispatchAsync(ctx, event.NewEvent(event.TypeDocumentCreated, doc.ID, map[string]interface{}{
			event.KeyKind:      string(doc.Kind),
			event.KeyReference: doc.ReferenceNumber,
			event.KeyActorID:   doc.CreatedBy,
			event.KeyAmount:    doc.Amount.String(),
		}))
	}
	return doc, nil
}

// Get returns the document with its history and observations
func (s *documentServiceImpl) Get(ctx context.Context, id string) (*entity.Document, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	doc.History, err = s.history.GetByDocumentID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	doc.Observations, err = s.observations.GetByDocumentID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get observations: %w", err)
	}
	return doc, nil
}

// List lists documents, optionally at one stage
func (s *documentServiceImpl) List(ctx context.Context, stage workflow.Stage, limit, offset int) ([]*entity.Document, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if stage == "" {
		return s.docs.List(ctx, limit, offset)
	}
	if !stage.IsValid() {
		return nil, fmt.Errorf("%w: %q", workflow.ErrInvalidState, stage)
	}
	return s.docs.ListByStage(ctx, stage, limit, offset)
}

// History returns the document's workflow events in order
func (s *documentServiceImpl) History(ctx context.Context, id string) ([]entity.WorkflowEvent, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	return s.history.GetByDocumentID(ctx, id)
}

// Payable returns the document's ledger entry
func (s *documentServiceImpl) Payable(ctx context.Context, id string) (*entity.AccountsPayableEntry, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	entry, err := s.ledger.GetBySourceDocumentID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: no payable entry for %s", workflow.ErrDocumentNotFound, id)
	}
	return entry, nil
}

// ListPayables lists ledger entries by due date
func (s *documentServiceImpl) ListPayables(ctx context.Context, limit, offset int) ([]*entity.AccountsPayableEntry, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return s.ledger.List(ctx, limit, offset)
}

func (s *documentServiceImpl) load(ctx context.Context, id string) (*entity.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, workflow.ErrDocumentNotFound
	}
	return doc, nil
}
