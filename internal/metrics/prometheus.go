package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Forecast pipeline metrics
	Forecasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_forecasts_total",
			Help: "Total number of forecasts produced",
		},
		[]string{"source"}, // source: agent|fallback
	)

	ForecastRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_forecast_rejections_total",
			Help: "Forecast requests rejected before any work was done",
		},
		[]string{"reason"}, // reason: validation|persona_not_found|cancelled
	)

	FallbackReasons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_forecast_fallbacks_total",
			Help: "Fallback results by cause",
		},
		[]string{"reason"}, // reason: agent_failure|malformed_output
	)

	// Agent metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_agent_calls_total",
			Help: "Total number of forecast agent runs",
		},
		[]string{"model", "status"}, // status: success|failure
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phi_agent_latency_seconds",
			Help:    "Forecast agent run latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)

	AgentTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_agent_tokens_total",
			Help: "Total tokens used by the forecast agent",
		},
		[]string{"model"},
	)

	// Tool metrics
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_tool_calls_total",
			Help: "Total number of agent tool calls",
		},
		[]string{"tool", "status"},
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phi_tool_latency_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	// Ledger metrics
	AnchorAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_anchor_attempts_total",
			Help: "Ledger anchoring attempts",
		},
		[]string{"status"}, // status: registered|rejected|error
	)

	// Storage metrics
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_store_operations_total",
			Help: "Persona/prediction store operations",
		},
		[]string{"store", "operation", "status"},
	)

	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phi_events_published_total",
			Help: "Kafka events published",
		},
		[]string{"topic", "status"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			Forecasts,
			ForecastRejections,
			FallbackReasons,
			AgentCalls,
			AgentLatency,
			AgentTokens,
			ToolCalls,
			ToolLatency,
			AnchorAttempts,
			StoreOperations,
			EventsPublished,
		)
	})
}

// Handler returns the /metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAgentRun records latency, tokens and outcome of one agent run
func RecordAgentRun(model string, latency time.Duration, tokens int, failed bool) {
	status := "success"
	if failed {
		status = "failure"
	}
	AgentCalls.WithLabelValues(model, status).Inc()
	AgentLatency.WithLabelValues(model).Observe(latency.Seconds())
	if tokens > 0 {
		AgentTokens.WithLabelValues(model).Add(float64(tokens))
	}
}

// RecordStoreOperation counts a store call by outcome
func RecordStoreOperation(store, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperations.WithLabelValues(store, operation, status).Inc()
}
