package prediction

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RiskTier is the forecast's risk classification
type RiskTier string

const (
	TierLow        RiskTier = "low"
	TierMedium     RiskTier = "medium"
	TierMediumHigh RiskTier = "medium-high"
	TierHigh       RiskTier = "high"
)

// Code maps a tier to its ledger integer. ok is false for tiers outside the known set.
func (t RiskTier) Code() (code int64, ok bool) {
	switch t {
	case TierLow:
		return 0, true
	case TierMedium:
		return 1, true
	case TierMediumHigh:
		return 2, true
	case TierHigh:
		return 3, true
	}
	return -1, false
}

// Result is a normalized forecast. Fallback results always satisfy
// probability/confidence in [0,1] and 2-4 bullets.
type Result struct {
	ProbabilityUp      float64  `json:"probabilityUp"`
	Confidence         float64  `json:"confidence"`
	RiskTier           RiskTier `json:"riskTier"`
	ExplanationBullets []string `json:"explanationBullets"`
}

// Source records which path produced a Result
type Source string

const (
	SourceAgent    Source = "agent"
	SourceFallback Source = "fallback"
)

// Prediction is the durable forecast record. Append-only: only TxHash and
// ContentObjectID are set after creation, once anchoring succeeds.
type Prediction struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	UserID             string         `db:"user_id" json:"userId"`
	EventID            string         `db:"event_id" json:"eventId"`
	ProbabilityUp      float64        `db:"probability_up" json:"probabilityUp"`
	Confidence         float64        `db:"confidence" json:"confidence"`
	RiskTier           RiskTier       `db:"risk_tier" json:"riskTier"`
	ExplanationBullets pq.StringArray `db:"explanation_bullets" json:"explanationBullets"`
	Seed               float64        `db:"seed" json:"seed"`
	Source             Source         `db:"source" json:"source"`
	AgentVersion       string         `db:"agent_version" json:"agentVersion"`
	TxHash             *string        `db:"tx_hash" json:"txHash"`
	ContentObjectID    *string        `db:"content_object_id" json:"contentObjectId"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
}

// Result returns the embedded forecast fields
func (p *Prediction) Result() Result {
	return Result{
		ProbabilityUp:      p.ProbabilityUp,
		Confidence:         p.Confidence,
		RiskTier:           p.RiskTier,
		ExplanationBullets: []string(p.ExplanationBullets),
	}
}

// Anchored reports whether the record carries a ledger reference
func (p *Prediction) Anchored() bool {
	return p.TxHash != nil && p.ContentObjectID != nil
}
