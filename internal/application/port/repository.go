package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// ErrEntryAlreadyExists is returned by PayableLedger.CreateEntry alongside the existing
// entry when the source document already has one.
var ErrEntryAlreadyExists = errors.New("accounts payable entry already exists")

// DocumentRepository defines persistence operations for Document
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	// GetByID returns nil, nil when the document does not exist
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	ListByStage(ctx context.Context, stage workflow.Stage, limit, offset int) ([]*entity.Document, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Document, error)
	// CompareAndSwap writes doc's mutable fields and sets its version to expectedVersion+1,
	// only if the stored version still equals expectedVersion. It returns
	// workflow.ErrStaleVersion or workflow.ErrDocumentNotFound otherwise.
	CompareAndSwap(ctx context.Context, doc *entity.Document, expectedVersion int64) error
}

// HistoryRepository defines persistence operations for WorkflowEvent
type HistoryRepository interface {
	Append(ctx context.Context, evt *entity.WorkflowEvent) error
	GetByDocumentID(ctx context.Context, documentID string) ([]entity.WorkflowEvent, error)
}

// ObservationRepository defines persistence operations for Observation
type ObservationRepository interface {
	Create(ctx context.Context, obs *entity.Observation) error
	// GetByID returns nil, nil when the observation does not exist on the document
	GetByID(ctx context.Context, documentID, observationID string) (*entity.Observation, error)
	GetByDocumentID(ctx context.Context, documentID string) ([]entity.Observation, error)
	// Answer records an answer only if none is present. It returns
	// workflow.ErrAlreadyAnswered or workflow.ErrObservationNotFound otherwise.
	Answer(ctx context.Context, documentID, observationID, answer, answeredBy string, answeredAt time.Time) error
	CountUnresolvedCritical(ctx context.Context, documentID string, cycle int) (int, error)
}

// PayableLedger is the accounts-payable store
type PayableLedger interface {
	CreateEntry(ctx context.Context, entry *entity.AccountsPayableEntry) (*entity.AccountsPayableEntry, error)
	// GetBySourceDocumentID returns nil, nil when the document has no entry
	GetBySourceDocumentID(ctx context.Context, documentID string) (*entity.AccountsPayableEntry, error)
	List(ctx context.Context, limit, offset int) ([]*entity.AccountsPayableEntry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
