package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
)

// ObservationRepository implements port.ObservationRepository
type ObservationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *sql.DB, logger *zap.Logger) *ObservationRepository {
	return &ObservationRepository{
		db:     db,
		logger: logger,
	}
}

const observationColumns = `id, document_id, cycle, text, severity, raised_by, raised_at, answer, answered_by, answered_at`

// Create inserts a new, unanswered observation
func (r *ObservationRepository) Create(ctx context.Context, obs *entity.Observation) error {
	query := `
		INSERT INTO observations (id, document_id, cycle, text, severity, raised_by, raised_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		obs.ID,
		obs.DocumentID,
		obs.Cycle,
		obs.Text,
		obs.Severity,
		obs.RaisedBy,
		obs.RaisedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create observation", zap.String("document_id", obs.DocumentID), zap.Error(err))
		return fmt.Errorf("failed to create observation: %w", err)
	}
	return nil
}

// GetByID returns the observation, or nil if the document has no such observation
func (r *ObservationRepository) GetByID(ctx context.Context, documentID, observationID string) (*entity.Observation, error) {
	query := `SELECT ` + observationColumns + ` FROM observations WHERE document_id = ? AND id = ?`

	obs, err := scanObservation(sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, documentID, observationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get observation", zap.String("observation_id", observationID), zap.Error(err))
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}
	return obs, nil
}

// GetByDocumentID returns every observation on a document in the order raised
func (r *ObservationRepository) GetByDocumentID(ctx context.Context, documentID string) ([]entity.Observation, error) {
	query := `SELECT ` + observationColumns + ` FROM observations WHERE document_id = ? ORDER BY seq ASC`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to list observations", zap.String("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	var out []entity.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		out = append(out, *obs)
	}
	return out, rows.Err()
}

// Answer records the answer only while none is stored
func (r *ObservationRepository) Answer(ctx context.Context, documentID, observationID, answer, answeredBy string, answeredAt time.Time) error {
	conn := sqlite.Conn(ctx, r.db)
	result, err := conn.ExecContext(ctx, `
		UPDATE observations
		SET answer = ?, answered_by = ?, answered_at = ?
		WHERE document_id = ? AND id = ? AND answer IS NULL
	`, answer, answeredBy, answeredAt, documentID, observationID)
	if err != nil {
		r.logger.Error("Failed to answer observation", zap.String("observation_id", observationID), zap.Error(err))
		return fmt.Errorf("failed to answer observation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists int
	err = conn.QueryRowContext(ctx,
		`SELECT 1 FROM observations WHERE document_id = ? AND id = ?`, documentID, observationID,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return workflow.ErrObservationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check observation: %w", err)
	}
	return workflow.ErrAlreadyAnswered
}

// CountUnresolvedCritical counts unanswered critical observations raised in cycle
func (r *ObservationRepository) CountUnresolvedCritical(ctx context.Context, documentID string, cycle int) (int, error) {
	var count int
	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM observations
		WHERE document_id = ? AND cycle = ? AND severity = ? AND answer IS NULL
	`, documentID, cycle, entity.SeverityCritical).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count unresolved observations", zap.String("document_id", documentID), zap.Error(err))
		return 0, fmt.Errorf("failed to count unresolved observations: %w", err)
	}
	return count, nil
}

func scanObservation(row rowScanner) (*entity.Observation, error) {
	var (
		obs        entity.Observation
		answer     sql.NullString
		answeredBy sql.NullString
		answeredAt sql.NullTime
	)
	if err := row.Scan(
		&obs.ID,
		&obs.DocumentID,
		&obs.Cycle,
		&obs.Text,
		&obs.Severity,
		&obs.RaisedBy,
		&obs.RaisedAt,
		&answer,
		&answeredBy,
		&answeredAt,
	); err != nil {
		return nil, err
	}

	obs.Answer = answer.String
	obs.AnsweredBy = answeredBy.String
	if answeredAt.Valid {
		t := answeredAt.Time
		obs.AnsweredAt = &t
	}
	return &obs, nil
}

// Verify interface compliance
var _ port.ObservationRepository = (*ObservationRepository)(nil)
