package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"phi/internal/domain/reasoning"
	"phi/pkg/errors"
)

// Compile-time check
var _ reasoning.Repository = (*ReasoningRepository)(nil)

// ReasoningRepository implements reasoning.Repository using sqlx
type ReasoningRepository struct {
	db DBTX
}

// NewReasoningRepository creates a new reasoning repository
func NewReasoningRepository(db DBTX) *ReasoningRepository {
	return &ReasoningRepository{db: db}
}

// Create inserts a new reasoning log entry
func (r *ReasoningRepository) Create(ctx context.Context, entry *reasoning.LogEntry) error {
	query := `
		INSERT INTO forecast_reasoning_logs (
			id, prediction_id, user_id, event_id, session_id, model,
			reasoning_steps, failed, tokens_used, duration_ms, tool_calls_count,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.PredictionID, entry.UserID, entry.EventID, entry.SessionID, entry.Model,
		entry.ReasoningSteps, entry.Failed, entry.TokensUsed, entry.DurationMs, entry.ToolCallsCount,
		entry.CreatedAt,
	)

	return err
}

// GetByPrediction retrieves the log of the run that produced predictionID
func (r *ReasoningRepository) GetByPrediction(ctx context.Context, predictionID uuid.UUID) (*reasoning.LogEntry, error) {
	var entry reasoning.LogEntry

	query := `SELECT * FROM forecast_reasoning_logs WHERE prediction_id = $1`

	err := r.db.GetContext(ctx, &entry, query, predictionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "reasoning log for %s", predictionID)
	}
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// GetByUser retrieves reasoning logs for a user, newest first
func (r *ReasoningRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*reasoning.LogEntry, error) {
	var entries []*reasoning.LogEntry

	query := `
		SELECT * FROM forecast_reasoning_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	err := r.db.SelectContext(ctx, &entries, query, userID, limit)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
