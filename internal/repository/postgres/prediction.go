package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"phi/internal/domain/prediction"
	"phi/pkg/errors"
)

// Compile-time check
var _ prediction.Repository = (*PredictionRepository)(nil)

const predictionColumns = `
	id, user_id, event_id, probability_up, confidence, risk_tier, explanation_bullets,
	seed, source, agent_version, tx_hash, content_object_id, created_at`

// PredictionRepository implements prediction.Repository using sqlx.
// Rows are insert-only apart from the anchor columns.
type PredictionRepository struct {
	db DBTX
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db DBTX) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Append inserts a new prediction
func (r *PredictionRepository) Append(ctx context.Context, p *prediction.Prediction) error {
	query := `
		INSERT INTO predictions (` + predictionColumns + `)
		VALUES (
			:id, :user_id, :event_id, :probability_up, :confidence, :risk_tier, :explanation_bullets,
			:seed, :source, :agent_version, :tx_hash, :content_object_id, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, p)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return errors.Wrapf(errors.ErrAlreadyExists, "prediction %s", p.ID)
	}
	return errors.Wrap(err, "insert prediction")
}

// GetByID retrieves a prediction by id
func (r *PredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prediction.Prediction, error) {
	var p prediction.Prediction

	err := r.db.GetContext(ctx, &p, `SELECT `+predictionColumns+` FROM predictions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "prediction %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select prediction")
	}

	return &p, nil
}

// ListByUser retrieves a user's predictions, newest first
func (r *PredictionRepository) ListByUser(ctx context.Context, userID string) ([]*prediction.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE user_id = $1
		ORDER BY created_at DESC`

	return r.list(ctx, query, userID)
}

// ListByEvent retrieves an event's predictions, newest first
func (r *PredictionRepository) ListByEvent(ctx context.Context, eventID string) ([]*prediction.Prediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE event_id = $1
		ORDER BY created_at DESC`

	return r.list(ctx, query, eventID)
}

// UpdateAnchor sets tx_hash and content_object_id
func (r *PredictionRepository) UpdateAnchor(ctx context.Context, id uuid.UUID, txHash, contentObjectID string) error {
	query := `
		UPDATE predictions
		SET tx_hash = $2, content_object_id = $3
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, txHash, contentObjectID)
	if err != nil {
		return errors.Wrap(err, "update prediction anchor")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "prediction %s", id)
	}
	return nil
}

// Count returns the number of predictions
func (r *PredictionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM predictions`)
	return n, err
}

func (r *PredictionRepository) list(ctx context.Context, query string, arg interface{}) ([]*prediction.Prediction, error) {
	predictions := make([]*prediction.Prediction, 0)
	if err := r.db.SelectContext(ctx, &predictions, query, arg); err != nil {
		return nil, errors.Wrap(err, "select predictions")
	}
	return predictions, nil
}
