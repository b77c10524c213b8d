package forecast

import (
	"time"

	"github.com/google/uuid"

	"phi/internal/domain/prediction"
)

// RecordBuilder turns a normalized result into a new prediction record
type RecordBuilder struct {
	agentVersion string
	now          func() time.Time
	newID        func() uuid.UUID
}

// NewRecordBuilder creates a builder that stamps every record with agentVersion
func NewRecordBuilder(agentVersion string) *RecordBuilder {
	return &RecordBuilder{
		agentVersion: agentVersion,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.New,
	}
}

// Build assigns identity and creation time. Anchor fields stay nil.
func (b *RecordBuilder) Build(userID, eventID string, seed float64, n Normalized) *prediction.Prediction {
	bullets := make([]string, len(n.Result.ExplanationBullets))
	copy(bullets, n.Result.ExplanationBullets)

	return &prediction.Prediction{
		ID:                 b.newID(),
		UserID:             userID,
		EventID:            eventID,
		ProbabilityUp:      n.Result.ProbabilityUp,
		Confidence:         n.Result.Confidence,
		RiskTier:           n.Result.RiskTier,
		ExplanationBullets: bullets,
		Seed:               seed,
		Source:             n.Source,
		AgentVersion:       b.agentVersion,
		CreatedAt:          b.now(),
	}
}
