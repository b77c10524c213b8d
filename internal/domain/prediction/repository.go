package prediction

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the append-only prediction store.
// Implementations must serialize appends so concurrent writers never lose records.
type Repository interface {
	Append(ctx context.Context, p *Prediction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prediction, error)
	// ListByUser and ListByEvent return newest first
	ListByUser(ctx context.Context, userID string) ([]*Prediction, error)
	ListByEvent(ctx context.Context, eventID string) ([]*Prediction, error)
	// UpdateAnchor attaches the ledger references; the only permitted mutation
	UpdateAnchor(ctx context.Context, id uuid.UUID, txHash, contentObjectID string) error
}
