package middleware

import (
	"context"
	"fmt"
	"time"

	"phi/internal/tools"
	"phi/pkg/errors"
)

// TimeoutMiddleware bounds a single tool call. A zero Timeout leaves the tool
// untouched and the agent's own deadline applies.
type TimeoutMiddleware struct {
	Timeout time.Duration
}

// Wrap returns a tool whose calls fail with ErrTimeout once Timeout elapses.
// Cancellation of the caller's context is passed through unchanged.
func (m TimeoutMiddleware) Wrap(t tools.Tool) tools.Tool {
	if m.Timeout <= 0 {
		return t
	}

	return tools.New(t.Name(), t.Description(), t.Parameters(), func(ctx context.Context, args map[string]interface{}) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, m.Timeout)
		defer cancel()

		out, err := t.Execute(callCtx, args)
		if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("tool %s after %s: %w: %w", t.Name(), m.Timeout, errors.ErrTimeout, err)
		}
		return out, err
	})
}
