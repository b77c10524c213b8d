package reasoning

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for reasoning log data access
type Repository interface {
	Create(ctx context.Context, entry *LogEntry) error
	GetByPrediction(ctx context.Context, predictionID uuid.UUID) (*LogEntry, error)
	GetByUser(ctx context.Context, userID string, limit int) ([]*LogEntry, error)
}
