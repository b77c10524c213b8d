package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phi/internal/domain/persona"
	"phi/internal/domain/prediction"
	"phi/pkg/errors"
)

func TestPersonaRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewPersonaRepository(dir)

	_, err := repo.Get(ctx, "alice")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	p := &persona.Persona{
		UserID:        "alice",
		RiskTolerance: persona.RiskHigh,
		Markets:       []string{"BTC", "ETH"},
		Horizon:       persona.Horizon7d,
		DomainTags:    []string{"defi"},
		CreatedAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Upsert(ctx, p))

	// a fresh repository reads what the first one wrote
	got, err := NewPersonaRepository(dir).Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.RiskTolerance = persona.RiskLow
	require.NoError(t, repo.Upsert(ctx, p))
	got, err = repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, persona.RiskLow, got.RiskTolerance)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(dir, "personas.json"))
	assert.NoError(t, err)
}

func newPrediction(user, event string, created time.Time) *prediction.Prediction {
	return &prediction.Prediction{
		ID:                 uuid.New(),
		UserID:             user,
		EventID:            event,
		ProbabilityUp:      0.55,
		Confidence:         0.7,
		RiskTier:           prediction.TierMedium,
		ExplanationBullets: []string{"a", "b"},
		Seed:               0.437,
		Source:             prediction.SourceFallback,
		AgentVersion:       "v0.1-spoon",
		CreatedAt:          created,
	}
}

func TestPredictionRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewPredictionRepository(t.TempDir())
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	first := newPrediction("alice", "BTC_24h", base)
	second := newPrediction("alice", "ETH_7d", base.Add(time.Minute))
	third := newPrediction("bob", "BTC_24h", base.Add(2*time.Minute))
	for _, p := range []*prediction.Prediction{first, second, third} {
		require.NoError(t, repo.Append(ctx, p))
	}

	byUser, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, second.ID, byUser[0].ID)
	assert.Equal(t, first.ID, byUser[1].ID)

	byEvent, err := repo.ListByEvent(ctx, "BTC_24h")
	require.NoError(t, err)
	require.Len(t, byEvent, 2)
	assert.Equal(t, third.ID, byEvent[0].ID)

	none, err := repo.ListByUser(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.437, got.Seed)
	assert.Nil(t, got.TxHash)

	err = repo.Append(ctx, first)
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))
}

func TestPredictionRepository_UpdateAnchor(t *testing.T) {
	ctx := context.Background()
	repo := NewPredictionRepository(t.TempDir())
	p := newPrediction("alice", "BTC_24h", time.Now().UTC())
	require.NoError(t, repo.Append(ctx, p))

	require.NoError(t, repo.UpdateAnchor(ctx, p.ID, "0xtx", "0xcid"))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, got.Anchored())
	assert.Equal(t, "0xtx", *got.TxHash)
	assert.Equal(t, "0xcid", *got.ContentObjectID)
	assert.Equal(t, p.ProbabilityUp, got.ProbabilityUp)

	err = repo.UpdateAnchor(ctx, uuid.New(), "0xtx", "0xcid")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPredictionRepository_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewPredictionRepository(t.TempDir())

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := newPrediction(fmt.Sprintf("user-%d", i), "BTC_24h", time.Now().UTC())
			assert.NoError(t, repo.Append(ctx, p))
		}(i)
	}
	wg.Wait()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers, n)
}

func TestReadJSON_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "predictions.json"), []byte("{broken"), 0o644))

	_, err := NewPredictionRepository(dir).ListByUser(context.Background(), "alice")
	assert.Error(t, err)
}
