package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phi/internal/agents"
	"phi/internal/domain/prediction"
	"phi/pkg/errors"
)

func TestDeterministicFallback_Reproducible(t *testing.T) {
	seeds := []float64{0, 0.437, 0.5, 0.999999, 1e-12, 0.123456789}

	for _, seed := range seeds {
		a := DeterministicFallback(seed)
		b := DeterministicFallback(seed)

		assert.Equal(t, a, b, "seed %v", seed)
		assert.GreaterOrEqual(t, a.ProbabilityUp, 0.45)
		assert.LessOrEqual(t, a.ProbabilityUp, 0.75)
		assert.GreaterOrEqual(t, a.Confidence, 0.6)
		assert.LessOrEqual(t, a.Confidence, 0.9)
		assert.Equal(t, prediction.TierMedium, a.RiskTier)
		assert.Len(t, a.ExplanationBullets, 2)
	}
}

func TestDeterministicFallback_TwoDecimals(t *testing.T) {
	for i := 0; i < 200; i++ {
		r := DeterministicFallback(float64(i) / 200)
		assert.InDelta(t, r.ProbabilityUp, round2(r.ProbabilityUp), 1e-12)
		assert.InDelta(t, r.Confidence, round2(r.Confidence), 1e-12)
	}
}

func TestDeterministicFallback_SeedsDiffer(t *testing.T) {
	seen := map[[2]float64]struct{}{}
	for i := 0; i < 50; i++ {
		r := DeterministicFallback(float64(i) / 50)
		seen[[2]float64{r.ProbabilityUp, r.Confidence}] = struct{}{}
	}
	assert.Greater(t, len(seen), 10)
}

func TestNormalize_NonJSONIncludesSeed(t *testing.T) {
	n := Normalize(agents.RawOutput("I think BTC goes up, trust me."), 0.437)

	assert.Equal(t, DeterministicFallback(0.437), n.Result)
	assert.Equal(t, prediction.SourceFallback, n.Source)
	assert.Equal(t, ReasonMalformedOutput, n.Reason)
	assert.Contains(t, n.Result.ExplanationBullets[1], "0.437")
	assert.Equal(t, "Seed used: 0.437", n.Result.ExplanationBullets[1])
}

func TestNormalize_AgentFailure(t *testing.T) {
	n := Normalize(agents.Fail(agents.StageChat, errors.ErrTimeout), 0.2)

	assert.Equal(t, DeterministicFallback(0.2), n.Result)
	assert.Equal(t, prediction.SourceFallback, n.Source)
	assert.Equal(t, ReasonAgentFailure, n.Reason)
}

func TestNormalize_FullObject(t *testing.T) {
	raw := "Here you go:\n```json\n" +
		`{"probabilityUp": 0.62, "confidence": "0.71", "riskTier": "medium-high", "explanationBullets": ["ETF inflows", "funding neutral", "low vol"]}` +
		"\n```"

	n := Normalize(agents.RawOutput(raw), 0.9)

	require.Equal(t, prediction.SourceAgent, n.Source)
	assert.Empty(t, n.Reason)
	assert.Empty(t, n.Defaulted)
	assert.Equal(t, prediction.Result{
		ProbabilityUp:      0.62,
		Confidence:         0.71,
		RiskTier:           prediction.TierMediumHigh,
		ExplanationBullets: []string{"ETF inflows", "funding neutral", "low vol"},
	}, n.Result)
}

func TestNormalize_PerFieldMerge(t *testing.T) {
	fallback := DeterministicFallback(0.3)

	n := Normalize(agents.RawOutput(`{"probabilityUp": 0.8}`), 0.3)

	assert.Equal(t, prediction.SourceAgent, n.Source)
	assert.Equal(t, 0.8, n.Result.ProbabilityUp)
	assert.Equal(t, fallback.Confidence, n.Result.Confidence)
	assert.Equal(t, fallback.RiskTier, n.Result.RiskTier)
	assert.Equal(t, fallback.ExplanationBullets, n.Result.ExplanationBullets)
	assert.Empty(t, n.Defaulted, "absent fields are not reported as defaulted")
}

func TestNormalize_InvalidFieldsFallBackIndividually(t *testing.T) {
	fallback := DeterministicFallback(0.5)

	tests := []struct {
		name      string
		raw       string
		defaulted []string
		check     func(t *testing.T, r prediction.Result)
	}{
		{
			name:      "probability above one",
			raw:       `{"probabilityUp": 1.4, "confidence": 0.7}`,
			defaulted: []string{"probabilityUp"},
			check: func(t *testing.T, r prediction.Result) {
				assert.Equal(t, fallback.ProbabilityUp, r.ProbabilityUp)
				assert.Equal(t, 0.7, r.Confidence)
			},
		},
		{
			name:      "negative confidence",
			raw:       `{"confidence": -0.1}`,
			defaulted: []string{"confidence"},
			check: func(t *testing.T, r prediction.Result) {
				assert.Equal(t, fallback.Confidence, r.Confidence)
			},
		},
		{
			name:      "non numeric probability",
			raw:       `{"probabilityUp": "likely"}`,
			defaulted: []string{"probabilityUp"},
			check: func(t *testing.T, r prediction.Result) {
				assert.Equal(t, fallback.ProbabilityUp, r.ProbabilityUp)
			},
		},
		{
			name:      "unknown tier",
			raw:       `{"riskTier": "extreme"}`,
			defaulted: []string{"riskTier"},
			check: func(t *testing.T, r prediction.Result) {
				assert.Equal(t, prediction.TierMedium, r.RiskTier)
			},
		},
		{
			name:      "tier normalised",
			raw:       `{"riskTier": " HIGH "}`,
			defaulted: nil,
			check: func(t *testing.T, r prediction.Result) {
				assert.Equal(t, prediction.TierHigh, r.RiskTier)
			},
		},
		{
			name:      "single bullet",
			raw:       `{"explanationBullets": ["only one"]}`,
			defaulted: []string{"explanationBullets"},
			check: func(t *testing.T, r prediction.Result) {
				assert.Equal(t, fallback.ExplanationBullets, r.ExplanationBullets)
			},
		},
		{
			name:      "too many bullets",
			raw:       `{"explanationBullets": ["a","b","c","d","e"]}`,
			defaulted: []string{"explanationBullets"},
			check: func(t *testing.T, r prediction.Result) {
				assert.Equal(t, fallback.ExplanationBullets, r.ExplanationBullets)
			},
		},
		{
			name:      "bullets not strings",
			raw:       `{"explanationBullets": [1, 2]}`,
			defaulted: []string{"explanationBullets"},
			check: func(t *testing.T, r prediction.Result) {
				assert.Equal(t, fallback.ExplanationBullets, r.ExplanationBullets)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(agents.RawOutput(tt.raw), 0.5)
			assert.Equal(t, prediction.SourceAgent, n.Source)
			assert.Equal(t, tt.defaulted, n.Defaulted)
			tt.check(t, n.Result)
		})
	}
}

func TestNormalize_MalformedShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"array", `[1,2,3]`},
		{"number", `0.65`},
		{"null", `null`},
		{"broken object", `{"probabilityUp": 0.6,`},
		{"reversed braces", `} nothing {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(agents.RawOutput(tt.raw), 0.437)
			assert.Equal(t, prediction.SourceFallback, n.Source)
			assert.Equal(t, ReasonMalformedOutput, n.Reason)
			assert.Equal(t, DeterministicFallback(0.437), n.Result)
		})
	}
}

func TestFormatSeed(t *testing.T) {
	assert.Equal(t, "0.437", FormatSeed(0.437))
	assert.Equal(t, "0", FormatSeed(0))
	assert.Equal(t, "0.1", FormatSeed(0.1))
}
