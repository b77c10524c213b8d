package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"phi/pkg/errors"
)

type recordingTracker struct {
	captured []error
}

func (r *recordingTracker) CaptureError(_ context.Context, err error, _ map[string]string) error {
	r.captured = append(r.captured, err)
	return nil
}

func (r *recordingTracker) Flush(context.Context) error { return nil }

func TestComponentLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core))

	Component("normalizer").With("seed", 0.437).Warn("fallback used")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "normalizer", fields["component"])
	assert.Equal(t, 0.437, fields["seed"])
}

func TestErrorForwardsToTracker(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core))

	tracker := &recordingTracker{}
	SetErrorTracker(tracker)
	t.Cleanup(func() { SetErrorTracker(nil) })

	Component("ledger").Errorf("register %s failed", "p1")
	Get().ErrorWithContext(context.Background(), errors.ErrAnchorFailed, nil)

	require.Len(t, tracker.captured, 2)
	assert.Equal(t, "register p1 failed", tracker.captured[0].Error())
	assert.True(t, errors.Is(tracker.captured[1], errors.ErrAnchorFailed))
}

func TestInitFallsBackToInfoLevel(t *testing.T) {
	require.NoError(t, Init("not-a-level", "development"))
	assert.True(t, Get().Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Get().Desugar().Core().Enabled(zapcore.DebugLevel))
}
