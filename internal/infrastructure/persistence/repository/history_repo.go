package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository over the append-only workflow_events table
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append records a workflow event and sets its sequence
func (r *HistoryRepository) Append(ctx context.Context, evt *entity.WorkflowEvent) error {
	query := `
		INSERT INTO workflow_events (
			document_id, from_stage, to_stage, action, actor_id, actor_role,
			digital_signature, comments, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		evt.DocumentID,
		evt.FromStage,
		evt.ToStage,
		evt.Action,
		evt.ActorID,
		evt.ActorRole,
		evt.DigitalSignature,
		evt.Comments,
		evt.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append workflow event",
			zap.String("document_id", evt.DocumentID),
			zap.Error(err))
		return fmt.Errorf("failed to append workflow event: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	evt.Sequence = seq
	return nil
}

// GetByDocumentID returns a document's history in the order it happened
func (r *HistoryRepository) GetByDocumentID(ctx context.Context, documentID string) ([]entity.WorkflowEvent, error) {
	query := `
		SELECT sequence, document_id, from_stage, to_stage, action, actor_id, actor_role,
			digital_signature, comments, timestamp
		FROM workflow_events
		WHERE document_id = ?
		ORDER BY sequence ASC
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to get workflow events", zap.String("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow events: %w", err)
	}
	defer rows.Close()

	var events []entity.WorkflowEvent
	for rows.Next() {
		var evt entity.WorkflowEvent
		if err := rows.Scan(
			&evt.Sequence,
			&evt.DocumentID,
			&evt.FromStage,
			&evt.ToStage,
			&evt.Action,
			&evt.ActorID,
			&evt.ActorRole,
			&evt.DigitalSignature,
			&evt.Comments,
			&evt.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workflow event: %w", err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
