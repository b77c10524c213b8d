package anchoring

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phi/internal/adapters/badgerdb"
	"phi/internal/adapters/contentstore"
	"phi/internal/domain/persona"
	"phi/internal/domain/prediction"
	"phi/internal/ledger"
	"phi/pkg/errors"
)

type fixture struct {
	svc      *Service
	registry *ledger.Registry
	content  *contentstore.Store
	signer   *ledger.Signer
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ledgerDB, err := badgerdb.Open("", true)
	require.NoError(t, err)
	contentDB, err := badgerdb.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ledgerDB.Close()
		_ = contentDB.Close()
	})

	signer, err := ledger.GenerateSigner()
	require.NoError(t, err)

	registry := ledger.NewRegistry(ledgerDB, nil)
	content := contentstore.New(contentDB)
	return fixture{
		svc:      NewService(registry, content, signer),
		registry: registry,
		content:  content,
		signer:   signer,
	}
}

func testPersona() *persona.Persona {
	now := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	return &persona.Persona{
		UserID:        "alice",
		RiskTolerance: persona.RiskMedium,
		Markets:       []string{"BTC"},
		Horizon:       persona.Horizon24h,
		DomainTags:    []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func testPrediction() *prediction.Prediction {
	return &prediction.Prediction{
		ID:                 uuid.New(),
		UserID:             "alice",
		EventID:            "BTC_24h",
		ProbabilityUp:      0.65,
		Confidence:         0.8,
		RiskTier:           prediction.TierMediumHigh,
		ExplanationBullets: []string{"a", "b"},
		Seed:               0.437,
		Source:             prediction.SourceFallback,
		AgentVersion:       "v0.1-spoon",
		CreatedAt:          time.Now().UTC(),
	}
}

func TestAnchor_RegistersRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pred := testPrediction()
	p := testPersona()

	anchor, err := f.svc.Anchor(ctx, pred, p)
	require.NoError(t, err)
	assert.NotEmpty(t, anchor.TxHash)

	rec, found, err := f.registry.Get(ctx, pred.ID.String())
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, f.signer.Address(), rec.User)
	assert.Equal(t, int64(6500), rec.ProbabilityBp)
	assert.Equal(t, int64(8000), rec.ConfidenceBp)
	assert.Equal(t, int64(2), rec.RiskTierCode)
	assert.Equal(t, 0.437, DecodeSeed(rec.Seed))
	assert.Equal(t, anchor.ContentID, rec.ContentID)
	assert.Equal(t, "v0.1-spoon", rec.AgentVersion)

	wantHash, err := ProfileHash(p)
	require.NoError(t, err)
	assert.Equal(t, wantHash, rec.ProfileHash)

	doc, err := f.content.Get(ctx, anchor.ContentID)
	require.NoError(t, err)
	var stored prediction.Prediction
	require.NoError(t, json.Unmarshal(doc, &stored))
	assert.Equal(t, pred.ID, stored.ID)
	assert.Nil(t, stored.TxHash)
}

func TestAnchor_SecondAttemptRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pred := testPrediction()

	_, err := f.svc.Anchor(ctx, pred, testPersona())
	require.NoError(t, err)

	_, err = f.svc.Anchor(ctx, pred, testPersona())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAnchorFailed))
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))
}

func TestAnchor_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *prediction.Prediction)
		sentinel error
	}{
		{"unknown tier", func(p *prediction.Prediction) { p.RiskTier = "extreme" }, errors.ErrInvalidInput},
		{"probability out of range", func(p *prediction.Prediction) { p.ProbabilityUp = 1.4 }, errors.ErrInvalidInput},
		{"empty event", func(p *prediction.Prediction) { p.EventID = "" }, errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			pred := testPrediction()
			tt.mutate(pred)

			_, err := f.svc.Anchor(ctx, pred, testPersona())
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrAnchorFailed))
			assert.True(t, errors.Is(err, tt.sentinel))

			exists, err := f.registry.Exists(ctx, pred.ID.String())
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestAnchor_NotConfigured(t *testing.T) {
	_, err := NewService(nil, nil, nil).Anchor(context.Background(), testPrediction(), testPersona())
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestBasisPoints(t *testing.T) {
	tests := map[float64]int64{
		0:       0,
		1:       10000,
		0.65:    6500,
		0.8:     8000,
		0.12345: 1235,
		0.29:    2900,
	}
	for in, want := range tests {
		assert.Equal(t, want, BasisPoints(in), "input %v", in)
	}
}

func TestSeedEncoding(t *testing.T) {
	for _, seed := range []float64{0, 0.437, 0.1, 0.9999999999} {
		assert.Equal(t, seed, DecodeSeed(EncodeSeed(seed)))
	}
}
