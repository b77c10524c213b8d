package persona

import (
	"strings"
	"time"

	"github.com/lib/pq"

	"phi/pkg/errors"
)

// RiskTolerance is the user's declared appetite for risk
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// Valid reports whether r is one of the accepted tolerances
func (r RiskTolerance) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Horizon is the forecast window the user cares about
type Horizon string

const (
	Horizon24h Horizon = "24h"
	Horizon7d  Horizon = "7d"
	Horizon30d Horizon = "30d"
)

// Valid reports whether h is one of the accepted horizons
func (h Horizon) Valid() bool {
	switch h {
	case Horizon24h, Horizon7d, Horizon30d:
		return true
	}
	return false
}

// Persona is a user's risk profile. Read-only to the forecast pipeline.
type Persona struct {
	UserID        string         `db:"user_id" json:"userId"`
	RiskTolerance RiskTolerance  `db:"risk_tolerance" json:"riskTolerance"`
	Markets       pq.StringArray `db:"markets" json:"markets"`
	Horizon       Horizon        `db:"horizon" json:"horizon"`
	DomainTags    pq.StringArray `db:"domain_tags" json:"domainTags"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// Validate checks the enumerated fields and required identifiers
func (p *Persona) Validate() error {
	if p == nil {
		return errors.NewValidationError("persona", "is required", nil)
	}
	if strings.TrimSpace(p.UserID) == "" {
		return errors.NewValidationError("userId", "is required", p.UserID)
	}
	if !p.RiskTolerance.Valid() {
		return errors.NewValidationError("riskTolerance", "must be one of low, medium, high", p.RiskTolerance)
	}
	if !p.Horizon.Valid() {
		return errors.NewValidationError("horizon", "must be one of 24h, 7d, 30d", p.Horizon)
	}
	return nil
}

// Normalize trims and de-duplicates markets and tags, keeping first-seen order.
// Market symbols are upper-cased.
func (p *Persona) Normalize() {
	p.UserID = strings.TrimSpace(p.UserID)
	p.Markets = dedupe(p.Markets, strings.ToUpper)
	p.DomainTags = dedupe(p.DomainTags, strings.ToLower)
}

func dedupe(in []string, canon func(string) string) pq.StringArray {
	out := make(pq.StringArray, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = canon(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
