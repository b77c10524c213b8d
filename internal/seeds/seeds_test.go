package seeds

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phi/internal/domain/persona"
	"phi/pkg/errors"
)

type memoryWriter struct {
	saved map[string]persona.Persona
	fail  string
}

func (m *memoryWriter) Upsert(_ context.Context, p *persona.Persona) (*persona.Persona, error) {
	if p.UserID == m.fail {
		return nil, errors.ErrUnavailable
	}
	m.saved[p.UserID] = *p
	return p, nil
}

func TestForEnv_FixturesAreValid(t *testing.T) {
	for _, env := range []string{"dev", "test"} {
		fixtures := ForEnv(env)
		require.NotEmpty(t, fixtures, env)
		for _, p := range fixtures {
			assert.NoError(t, p.Validate(), "%s/%s", env, p.UserID)
		}
	}
	assert.Empty(t, ForEnv("prod"))
}

func TestApply(t *testing.T) {
	w := &memoryWriter{saved: map[string]persona.Persona{}}

	require.NoError(t, Apply(context.Background(), w, ForEnv("dev")))
	require.NoError(t, Apply(context.Background(), w, ForEnv("dev")))

	assert.Len(t, w.saved, 3)
	assert.Equal(t, persona.Horizon30d, w.saved["bob"].Horizon)
}

func TestApply_StopsOnError(t *testing.T) {
	w := &memoryWriter{saved: map[string]persona.Persona{}, fail: "bob"}

	err := Apply(context.Background(), w, ForEnv("dev"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
	assert.Contains(t, err.Error(), "bob")
	assert.NotContains(t, w.saved, "carol")
}
