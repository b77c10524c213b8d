package forecast

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"phi/internal/agents"
	"phi/internal/domain/prediction"
)

// Fallback reasons
const (
	ReasonAgentFailure    = "agent_failure"
	ReasonMalformedOutput = "malformed_output"
)

const (
	fallbackBullet = "Using fallback stub because agent output was not valid JSON or tool failed."

	minBullets = 2
	maxBullets = 4

	// PCG stream selector; changing it changes every fallback value.
	fallbackStream = 0x7068692e666f7265
)

// Normalized is a validated result together with how it was obtained.
type Normalized struct {
	Result prediction.Result
	Source prediction.Source
	// Reason is set when the whole result is the fallback.
	Reason string
	// Defaulted lists parsed-path fields replaced by their fallback value.
	Defaulted []string
}

// DeterministicFallback derives a forecast purely from seed. A fresh generator
// is built per call so identical seeds give identical results in any process.
func DeterministicFallback(seed float64) prediction.Result {
	rng := rand.New(rand.NewPCG(math.Float64bits(seed), fallbackStream))

	prob := round2(0.45 + rng.Float64()*0.30)
	conf := round2(0.60 + rng.Float64()*0.30)

	return prediction.Result{
		ProbabilityUp: prob,
		Confidence:    conf,
		RiskTier:      prediction.TierMedium,
		ExplanationBullets: []string{
			fallbackBullet,
			"Seed used: " + FormatSeed(seed),
		},
	}
}

// FormatSeed renders seed with the shortest exact decimal form (0.437 -> "0.437").
func FormatSeed(seed float64) string {
	return strconv.FormatFloat(seed, 'f', -1, 64)
}

// Normalize turns an orchestrator outcome into a valid result. It is total and
// has no side effects; callers log and count based on the returned metadata.
func Normalize(outcome agents.Outcome, seed float64) Normalized {
	fallback := DeterministicFallback(seed)

	if outcome.Failed() {
		return Normalized{Result: fallback, Source: prediction.SourceFallback, Reason: ReasonAgentFailure}
	}

	parsed, ok := parseObject(outcome.Raw)
	if !ok {
		return Normalized{Result: fallback, Source: prediction.SourceFallback, Reason: ReasonMalformedOutput}
	}

	return merge(parsed, fallback)
}

// parseObject decodes the text between the first '{' and the last '}', or the
// whole text when no such pair exists. Anything but a JSON object fails.
func parseObject(raw string) (map[string]any, bool) {
	text := raw
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		text = raw[start : end+1]
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// merge takes each field from parsed when present and valid, otherwise from fallback.
func merge(parsed map[string]any, fallback prediction.Result) Normalized {
	out := Normalized{Result: fallback, Source: prediction.SourceAgent}

	if v, present := parsed["probabilityUp"]; present {
		if f, ok := unitInterval(v); ok {
			out.Result.ProbabilityUp = f
		} else {
			out.Defaulted = append(out.Defaulted, "probabilityUp")
		}
	}

	if v, present := parsed["confidence"]; present {
		if f, ok := unitInterval(v); ok {
			out.Result.Confidence = f
		} else {
			out.Defaulted = append(out.Defaulted, "confidence")
		}
	}

	if v, present := parsed["riskTier"]; present {
		if tier, ok := riskTier(v); ok {
			out.Result.RiskTier = tier
		} else {
			out.Defaulted = append(out.Defaulted, "riskTier")
		}
	}

	if v, present := parsed["explanationBullets"]; present {
		if bullets, ok := bulletList(v); ok {
			out.Result.ExplanationBullets = bullets
		} else {
			out.Defaulted = append(out.Defaulted, "explanationBullets")
		}
	}

	return out
}

// unitInterval coerces JSON numbers and numeric strings, rejecting values outside [0,1].
func unitInterval(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}

func riskTier(v any) (prediction.RiskTier, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	tier := prediction.RiskTier(strings.ToLower(strings.TrimSpace(s)))
	if _, known := tier.Code(); !known {
		return "", false
	}
	return tier, true
}

func bulletList(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}

	bullets := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		if s = strings.TrimSpace(s); s != "" {
			bullets = append(bullets, s)
		}
	}

	if len(bullets) < minBullets || len(bullets) > maxBullets {
		return nil, false
	}
	return bullets, true
}

func round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}
