package seeds

import (
	"context"

	"phi/internal/domain/persona"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

// PersonaWriter is the persona service surface seeding needs
type PersonaWriter interface {
	Upsert(ctx context.Context, p *persona.Persona) (*persona.Persona, error)
}

// PersonaBuilder assembles a fixture persona
type PersonaBuilder struct {
	p persona.Persona
}

// Persona starts a fixture for userID
func Persona(userID string) *PersonaBuilder {
	return &PersonaBuilder{p: persona.Persona{UserID: userID}}
}

func (b *PersonaBuilder) WithRisk(r persona.RiskTolerance) *PersonaBuilder {
	b.p.RiskTolerance = r
	return b
}

func (b *PersonaBuilder) WithHorizon(h persona.Horizon) *PersonaBuilder {
	b.p.Horizon = h
	return b
}

func (b *PersonaBuilder) WithMarkets(markets ...string) *PersonaBuilder {
	b.p.Markets = markets
	return b
}

func (b *PersonaBuilder) WithTags(tags ...string) *PersonaBuilder {
	b.p.DomainTags = tags
	return b
}

// Build returns a copy of the fixture
func (b *PersonaBuilder) Build() persona.Persona {
	return b.p
}

// ForEnv returns the persona fixtures for env: dev or test. Unknown envs get none.
func ForEnv(env string) []persona.Persona {
	switch env {
	case "dev":
		return []persona.Persona{
			Persona("alice").WithRisk(persona.RiskMedium).WithHorizon(persona.Horizon24h).
				WithMarkets("BTC", "ETH").WithTags("crypto", "macro").Build(),
			Persona("bob").WithRisk(persona.RiskLow).WithHorizon(persona.Horizon30d).
				WithMarkets("SPX").WithTags("equities").Build(),
			Persona("carol").WithRisk(persona.RiskHigh).WithHorizon(persona.Horizon7d).
				WithMarkets("SOL", "DOGE").WithTags("memecoins", "defi").Build(),
		}
	case "test":
		return []persona.Persona{
			Persona("test_user").WithRisk(persona.RiskMedium).WithHorizon(persona.Horizon24h).
				WithMarkets("BTC").Build(),
		}
	default:
		return nil
	}
}

// Apply upserts every fixture in order, stopping at the first failure.
// Re-running is idempotent.
func Apply(ctx context.Context, w PersonaWriter, fixtures []persona.Persona) error {
	log := logger.Component("seeder")

	for i := range fixtures {
		p := fixtures[i]
		if _, err := w.Upsert(ctx, &p); err != nil {
			return errors.Wrapf(err, "seed persona %s", p.UserID)
		}
		log.Infow("Seeded persona", "user_id", p.UserID, "step", i+1, "total", len(fixtures))
	}
	return nil
}
