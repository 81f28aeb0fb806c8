package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
)

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

const documentColumns = `
	id, kind, reference_number, amount, payment_terms, vendor_name, department,
	stage, returned_from, business_status, version, cycle,
	accounts_payable_created, sent_to_finance, resubmission_change_summary,
	created_by, created_at, updated_at`

// Create inserts a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		doc.ID,
		doc.Kind,
		doc.ReferenceNumber,
		doc.Amount,
		doc.PaymentTerms,
		doc.VendorName,
		doc.Department,
		doc.Stage,
		doc.ReturnedFrom,
		doc.BusinessStatus,
		doc.Version,
		doc.Cycle,
		doc.AccountsPayableCreated,
		doc.SentToFinance,
		doc.ResubmissionChangeSummary,
		doc.CreatedBy,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create document", zap.String("document_id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID, or nil if it does not exist
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`

	doc, err := scanDocument(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.String("document_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByStage lists documents sitting at stage, oldest first
func (r *DocumentRepository) ListByStage(ctx context.Context, stage workflow.Stage, limit, offset int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE stage = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`
	return r.list(ctx, query, stage, limit, offset)
}

// List lists all documents, newest first
func (r *DocumentRepository) List(ctx context.Context, limit, offset int) ([]*entity.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?`
	return r.list(ctx, query, limit, offset)
}

// CompareAndSwap writes the mutable fields of doc if the stored version equals
// expectedVersion. The payable and finance flags can only be raised, never cleared.
func (r *DocumentRepository) CompareAndSwap(ctx context.Context, doc *entity.Document, expectedVersion int64) error {
	query := `
		UPDATE documents SET
			stage = ?,
			returned_from = ?,
			business_status = ?,
			cycle = ?,
			accounts_payable_created = (accounts_payable_created OR ?),
			sent_to_finance = (sent_to_finance OR ?),
			resubmission_change_summary = ?,
			updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`

	conn := sqlite.Conn(ctx, r.db)
	result, err := conn.ExecContext(ctx, query,
		doc.Stage,
		doc.ReturnedFrom,
		doc.BusinessStatus,
		doc.Cycle,
		doc.AccountsPayableCreated,
		doc.SentToFinance,
		doc.ResubmissionChangeSummary,
		doc.UpdatedAt,
		doc.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update document", zap.String("document_id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to update document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var stored int64
	err = conn.QueryRowContext(ctx, `SELECT version FROM documents WHERE id = ?`, doc.ID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return workflow.ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read document version: %w", err)
	}
	return fmt.Errorf("%w: expected %d, stored %d", workflow.ErrStaleVersion, expectedVersion, stored)
}

func (r *DocumentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Document, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list documents", zap.Error(err))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var doc entity.Document
	err := row.Scan(
		&doc.ID,
		&doc.Kind,
		&doc.ReferenceNumber,
		&doc.Amount,
		&doc.PaymentTerms,
		&doc.VendorName,
		&doc.Department,
		&doc.Stage,
		&doc.ReturnedFrom,
		&doc.BusinessStatus,
		&doc.Version,
		&doc.Cycle,
		&doc.AccountsPayableCreated,
		&doc.SentToFinance,
		&doc.ResubmissionChangeSummary,
		&doc.CreatedBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
