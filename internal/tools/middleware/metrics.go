package middleware

import (
	"context"
	"time"

	"phi/internal/metrics"
	"phi/internal/tools"
)

// MetricsMiddleware records call counts and latency per tool.
type MetricsMiddleware struct{}

// Wrap instruments the tool with prometheus counters.
func (MetricsMiddleware) Wrap(t tools.Tool) tools.Tool {
	return tools.New(t.Name(), t.Description(), t.Parameters(), func(ctx context.Context, args map[string]interface{}) (string, error) {
		start := time.Now()
		out, err := t.Execute(ctx, args)

		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ToolCalls.WithLabelValues(t.Name(), status).Inc()
		metrics.ToolLatency.WithLabelValues(t.Name()).Observe(time.Since(start).Seconds())

		return out, err
	})
}

// Wrapper decorates a tool
type Wrapper interface {
	Wrap(tools.Tool) tools.Tool
}

// Chain applies wrappers so that the first one is outermost.
func Chain(t tools.Tool, wrappers ...Wrapper) tools.Tool {
	for i := len(wrappers) - 1; i >= 0; i-- {
		t = wrappers[i].Wrap(t)
	}
	return t
}
