package reasoning

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"phi/pkg/errors"
)

// Service persists orchestrator traces
type Service struct {
	repo Repository
}

// NewService constructs a reasoning service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record stores the trace that produced predictionID. Without a repository it does nothing.
func (s *Service) Record(ctx context.Context, predictionID uuid.UUID, userID, eventID string, trace *Trace) error {
	if s == nil || s.repo == nil || trace == nil {
		return nil
	}

	steps, err := json.Marshal(trace.Steps)
	if err != nil {
		return errors.Wrap(err, "marshal reasoning steps")
	}

	entry := &LogEntry{
		ID:             uuid.New(),
		PredictionID:   predictionID,
		UserID:         userID,
		EventID:        eventID,
		SessionID:      trace.SessionID,
		Model:          trace.Model,
		ReasoningSteps: steps,
		Failed:         trace.Failed,
		TokensUsed:     trace.TokensUsed,
		DurationMs:     int(trace.Duration / time.Millisecond),
		ToolCallsCount: trace.ToolCallCount,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return errors.Wrap(err, "create reasoning log")
	}
	return nil
}
