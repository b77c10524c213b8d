package reasoning

import (
	"time"

	"github.com/google/uuid"
)

// Step actions
const (
	ActionThinking = "thinking"
	ActionToolCall = "tool_call"
	ActionDecision = "decision"
	ActionFailure  = "failure"
)

// Step is one turn of the forecast agent's reasoning loop
type Step struct {
	Step      int       `json:"step"`
	Action    string    `json:"action"`
	Tool      string    `json:"tool,omitempty"`
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Trace is the in-memory record of one orchestrator run
type Trace struct {
	SessionID     string
	Model         string
	Steps         []Step
	ToolCallCount int
	TokensUsed    int
	Duration      time.Duration
	Failed        bool
}

// Add appends a step numbered after the existing ones
func (t *Trace) Add(action, tool, input, output, content string) {
	t.Steps = append(t.Steps, Step{
		Step:      len(t.Steps) + 1,
		Action:    action,
		Tool:      tool,
		Input:     input,
		Output:    output,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// LogEntry is the persisted form of a Trace, linked to the prediction it produced
type LogEntry struct {
	ID             uuid.UUID `db:"id"`
	PredictionID   uuid.UUID `db:"prediction_id"`
	UserID         string    `db:"user_id"`
	EventID        string    `db:"event_id"`
	SessionID      string    `db:"session_id"`
	Model          string    `db:"model"`
	ReasoningSteps []byte    `db:"reasoning_steps"` // JSON array of Step
	Failed         bool      `db:"failed"`
	TokensUsed     int       `db:"tokens_used"`
	DurationMs     int       `db:"duration_ms"`
	ToolCallsCount int       `db:"tool_calls_count"`
	CreatedAt      time.Time `db:"created_at"`
}
