package events

import (
	"time"

	"github.com/google/uuid"

	"phi/internal/domain/prediction"
)

// BaseEvent carries the envelope fields shared by every event
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	UserID    string    `json:"userId"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a new base event with defaults
func NewBaseEvent(eventType, source, userID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    source,
		UserID:    userID,
		Version:   "1.0",
	}
}

// PredictionCreatedEvent is emitted once a prediction is durably stored
type PredictionCreatedEvent struct {
	Base         BaseEvent         `json:"base"`
	PredictionID string            `json:"predictionId"`
	EventID      string            `json:"eventId"`
	Result       prediction.Result `json:"result"`
	Seed         float64           `json:"seed"`
	Source       prediction.Source `json:"source"`
	AgentVersion string            `json:"agentVersion"`
}

// PredictionAnchoredEvent is emitted after a successful ledger registration
type PredictionAnchoredEvent struct {
	Base            BaseEvent `json:"base"`
	PredictionID    string    `json:"predictionId"`
	TxHash          string    `json:"txHash"`
	ContentObjectID string    `json:"contentObjectId"`
}
