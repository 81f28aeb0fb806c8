package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
)

// PayableRepository implements port.PayableLedger on the accounts_payable_entries table
type PayableRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPayableRepository creates a new accounts-payable repository
func NewPayableRepository(db *sql.DB, logger *zap.Logger) *PayableRepository {
	return &PayableRepository{
		db:     db,
		logger: logger,
	}
}

const payableColumns = `id, source_document_id, bill_number, vendor_name, department, amount, bill_date, due_date, created_by, created_at`

// CreateEntry inserts entry unless its source document already has one, in which case the
// stored entry is returned with port.ErrEntryAlreadyExists. A bill number already used by
// another document gets a suffix.
func (r *PayableRepository) CreateEntry(ctx context.Context, entry *entity.AccountsPayableEntry) (*entity.AccountsPayableEntry, error) {
	existing, err := r.GetBySourceDocumentID(ctx, entry.SourceDocumentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, port.ErrEntryAlreadyExists
	}

	conn := sqlite.Conn(ctx, r.db)

	var taken int
	err = conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts_payable_entries WHERE bill_number = ?`, entry.BillNumber,
	).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("failed to check bill number: %w", err)
	}
	if taken > 0 {
		suffix := entry.ID
		if len(suffix) > 6 {
			suffix = suffix[:6]
		}
		entry.BillNumber = entry.BillNumber + "-" + suffix
	}

	result, err := conn.ExecContext(ctx, `
		INSERT INTO accounts_payable_entries (`+payableColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_document_id) DO NOTHING
	`,
		entry.ID,
		entry.SourceDocumentID,
		entry.BillNumber,
		entry.VendorName,
		entry.Department,
		entry.Amount,
		entry.BillDate,
		entry.DueDate,
		entry.CreatedBy,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payable entry",
			zap.String("document_id", entry.SourceDocumentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create payable entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		existing, err := r.GetBySourceDocumentID(ctx, entry.SourceDocumentID)
		if err != nil {
			return nil, err
		}
		return existing, port.ErrEntryAlreadyExists
	}
	return entry, nil
}

// GetBySourceDocumentID returns the entry created for a document, or nil
func (r *PayableRepository) GetBySourceDocumentID(ctx context.Context, documentID string) (*entity.AccountsPayableEntry, error) {
	query := `SELECT ` + payableColumns + ` FROM accounts_payable_entries WHERE source_document_id = ?`

	entry, err := scanPayable(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payable entry", zap.String("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get payable entry: %w", err)
	}
	return entry, nil
}

// List returns entries ordered by due date
func (r *PayableRepository) List(ctx context.Context, limit, offset int) ([]*entity.AccountsPayableEntry, error) {
	query := `SELECT ` + payableColumns + `
		FROM accounts_payable_entries
		ORDER BY due_date ASC, bill_number ASC
		LIMIT ? OFFSET ?`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list payable entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list payable entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AccountsPayableEntry
	for rows.Next() {
		entry, err := scanPayable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payable entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanPayable(row rowScanner) (*entity.AccountsPayableEntry, error) {
	var entry entity.AccountsPayableEntry
	if err := row.Scan(
		&entry.ID,
		&entry.SourceDocumentID,
		&entry.BillNumber,
		&entry.VendorName,
		&entry.Department,
		&entry.Amount,
		&entry.BillDate,
		&entry.DueDate,
		&entry.CreatedBy,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Verify interface compliance
var _ port.PayableLedger = (*PayableRepository)(nil)
