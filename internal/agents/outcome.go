package agents

import (
	"fmt"

	"phi/internal/domain/reasoning"
)

// Failure stages
const (
	StageChat     = "chat"
	StageTool     = "tool"
	StagePrompt   = "prompt"
	StageMaxSteps = "max_steps"
	StagePanic    = "panic"
	StageTimeout  = "timeout"
)

// AgentFailure describes why a reasoning run produced no usable text.
type AgentFailure struct {
	Stage string
	Err   error
}

func (f *AgentFailure) Error() string {
	return fmt.Sprintf("agent failure at %s: %v", f.Stage, f.Err)
}

func (f *AgentFailure) Unwrap() error { return f.Err }

// Outcome is the result of one orchestrator run: either Raw text or a Failure.
// Exactly one of the two is meaningful; Failure takes precedence.
type Outcome struct {
	Raw     string
	Failure *AgentFailure
	Trace   *reasoning.Trace
}

// Failed reports whether the run ended in an AgentFailure
func (o Outcome) Failed() bool {
	return o.Failure != nil
}

// RawOutput builds a successful outcome
func RawOutput(text string) Outcome {
	return Outcome{Raw: text}
}

// Fail builds a failure outcome
func Fail(stage string, err error) Outcome {
	return Outcome{Failure: &AgentFailure{Stage: stage, Err: err}}
}
