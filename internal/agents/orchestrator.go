package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"phi/internal/adapters/ai"
	"phi/internal/adapters/config"
	"phi/internal/domain/persona"
	"phi/internal/domain/reasoning"
	"phi/internal/metrics"
	"phi/internal/tools"
	"phi/pkg/errors"
	"phi/pkg/logger"
	"phi/pkg/templates"
)

const defaultMaxSteps = 4

// Config controls the forecast reasoning loop
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	MaxSteps    int
	Timeout     time.Duration
	SearchTool  string
}

// NewConfig builds orchestrator config from the app's AI and agent sections
func NewConfig(aiCfg config.AIConfig, agentCfg config.AgentConfig) Config {
	return Config{
		Model:       aiCfg.Model,
		Temperature: aiCfg.Temperature,
		MaxTokens:   aiCfg.MaxTokens,
		MaxSteps:    agentCfg.MaxSteps,
		Timeout:     agentCfg.ExecutionTimeout,
		SearchTool:  agentCfg.SearchToolName,
	}
}

// Orchestrator drives a single bounded reasoning run per forecast request.
// It never returns an error: every failure becomes an AgentFailure outcome.
type Orchestrator struct {
	provider  ai.ChatProvider
	tools     *tools.Registry
	templates *templates.Registry
	cfg       Config
	log       *logger.Logger
}

// NewOrchestrator creates an orchestrator. registry may be nil or lack the
// search tool; the run then proceeds without search.
func NewOrchestrator(provider ai.ChatProvider, registry *tools.Registry, cfg Config) *Orchestrator {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	return &Orchestrator{
		provider:  provider,
		tools:     registry,
		templates: templates.Get(),
		cfg:       cfg,
		log:       logger.Component("forecast_orchestrator"),
	}
}

type promptRequest struct {
	Persona *persona.Persona `json:"persona"`
	EventID string           `json:"eventId"`
	Seed    json.Number      `json:"seed"`
}

// Generate runs the reasoning process for persona/eventID. seed is threaded
// into the prompt so that success and fallback paths share the same input.
func (o *Orchestrator) Generate(ctx context.Context, p *persona.Persona, eventID string, seed float64) (out Outcome) {
	start := time.Now()
	trace := &reasoning.Trace{SessionID: uuid.NewString(), Model: o.cfg.Model}

	defer func() {
		if r := recover(); r != nil {
			out = Fail(StagePanic, errors.Newf("recovered: %v", r))
		}
		trace.Duration = time.Since(start)
		if out.Failed() {
			trace.Failed = true
			trace.Add(reasoning.ActionFailure, "", "", "", out.Failure.Error())
			o.log.Warnw("Forecast agent failed",
				"event_id", eventID, "seed", seed, "stage", out.Failure.Stage, "error", out.Failure.Err)
		}
		out.Trace = trace
		metrics.RecordAgentRun(o.cfg.Model, trace.Duration, trace.TokensUsed, out.Failed())
	}()

	if o.provider == nil {
		return Fail(StageChat, errors.Wrap(errors.ErrUnavailable, "no chat provider configured"))
	}

	runCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	searchTool, hasSearch := o.tools.Get(o.cfg.SearchTool)

	messages, err := o.initialMessages(p, eventID, seed, hasSearch)
	if err != nil {
		return Fail(StagePrompt, err)
	}

	toolRoundUsed := false
	for step := 1; step <= o.cfg.MaxSteps; step++ {
		req := ai.ChatRequest{
			Model:              o.cfg.Model,
			Messages:           messages,
			Temperature:        o.cfg.Temperature,
			MaxTokens:          o.cfg.MaxTokens,
			ResponseFormatJSON: true,
		}
		offerTools := hasSearch && !toolRoundUsed
		if offerTools {
			req.Tools = []ai.ToolDefinition{tools.Definition(searchTool)}
		}

		resp, err := o.provider.Chat(runCtx, req)
		if err != nil {
			if runCtx.Err() == context.DeadlineExceeded {
				return Fail(StageTimeout, errors.Wrap(errors.ErrTimeout, err.Error()))
			}
			return Fail(StageChat, err)
		}
		trace.TokensUsed += resp.Usage.TotalTokens

		choice, ok := resp.First()
		if !ok {
			return Fail(StageChat, errors.Wrap(errors.ErrExternal, "chat response has no choices"))
		}
		msg := choice.Message

		if len(msg.ToolCalls) > 0 {
			if !offerTools {
				// Tool budget spent: ignore the request and ask for the answer.
				trace.Add(reasoning.ActionThinking, "", "", "", "tool call after tool round; nudged")
				nudge, err := o.templates.Render("forecast/nudge", map[string]any{"ToolsExhausted": true})
				if err != nil {
					return Fail(StagePrompt, err)
				}
				messages = append(messages, ai.Message{Role: ai.RoleUser, Content: nudge})
				continue
			}

			toolMessages, err := o.runToolRound(runCtx, searchTool, msg.ToolCalls, trace)
			if err != nil {
				return Fail(StageTool, err)
			}
			toolRoundUsed = true
			messages = append(messages, ai.Message{Role: ai.RoleAssistant, Content: msg.Content, ToolCalls: msg.ToolCalls})
			messages = append(messages, toolMessages...)
			continue
		}

		content := strings.TrimSpace(msg.Content)
		if content == "" {
			trace.Add(reasoning.ActionThinking, "", "", "", "empty answer; nudged")
			nudge, err := o.templates.Render("forecast/nudge", map[string]any{"ToolsExhausted": toolRoundUsed})
			if err != nil {
				return Fail(StagePrompt, err)
			}
			messages = append(messages, ai.Message{Role: ai.RoleUser, Content: nudge})
			continue
		}

		trace.Add(reasoning.ActionDecision, "", "", "", content)
		o.log.Debugw("Forecast agent answered", "event_id", eventID, "steps", step, "tool_round", toolRoundUsed)
		return RawOutput(content)
	}

	return Fail(StageMaxSteps, errors.Newf("no final answer within %d steps", o.cfg.MaxSteps))
}

func (o *Orchestrator) initialMessages(p *persona.Persona, eventID string, seed float64, hasSearch bool) ([]ai.Message, error) {
	toolName := ""
	if hasSearch {
		toolName = o.cfg.SearchTool
	}

	system, err := o.templates.Render("forecast/system", map[string]any{"SearchTool": toolName})
	if err != nil {
		return nil, err
	}

	user, err := o.templates.Render("forecast/user", map[string]any{
		"Request": promptRequest{
			Persona: p,
			EventID: eventID,
			Seed:    json.Number(strconv.FormatFloat(seed, 'f', -1, 64)),
		},
	})
	if err != nil {
		return nil, err
	}

	return []ai.Message{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: user},
	}, nil
}

// runToolRound executes every call of the single permitted tool round.
// Any unknown tool, bad arguments or tool error aborts the run.
func (o *Orchestrator) runToolRound(ctx context.Context, search tools.Tool, calls []ai.ToolCall, trace *reasoning.Trace) ([]ai.Message, error) {
	out := make([]ai.Message, 0, len(calls))

	for _, call := range calls {
		if call.Function.Name != search.Name() {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "model requested unknown tool %q", call.Function.Name)
		}

		var args map[string]interface{}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return nil, errors.Wrapf(err, "decode %s arguments", call.Function.Name)
		}

		result, err := search.Execute(ctx, args)
		if err != nil {
			return nil, errors.Wrapf(err, "execute %s", call.Function.Name)
		}

		trace.ToolCallCount++
		trace.Add(reasoning.ActionToolCall, call.Function.Name, call.Function.Arguments, truncate(result, 2000), "")

		out = append(out, ai.Message{
			Role:       ai.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
			Name:       call.Function.Name,
		})
	}

	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:n], len(s))
}
