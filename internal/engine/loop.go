// Package engine implements the task execution and orchestration core:
// the system-prompt builder, the agentic loop, the pipeline driver, and
// the router step.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/artificer-ai/artificer/internal/llm"
	"github.com/artificer-ai/artificer/internal/metrics"
	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/tasks"
	"github.com/artificer-ai/artificer/internal/tools"
)

// DefaultMaxIterations bounds the agentic loop's tool-call/LLM-call cycles
// per turn, so a model that never stops calling tools cannot pin a request
// forever.
const DefaultMaxIterations = 25

// Loop drives AgenticLoop tasks to completion.
type Loop struct {
	Catalog       *tools.Catalog
	Executor      *tools.Executor
	Invokers      map[models.ExecutionContext]*llm.Invoker
	Models        map[models.Specialist]string
	MaxIterations int
	Logger        *slog.Logger
	Metrics       *metrics.Registry
}

func (l *Loop) maxIterations() int {
	if l.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return l.MaxIterations
}

func (l *Loop) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l *Loop) invokerFor(def tasks.Definition) (*llm.Invoker, error) {
	inv, ok := l.Invokers[def.Context]
	if !ok {
		return nil, fmt.Errorf("engine: no LLM backend configured for context %s", def.Context)
	}
	return inv, nil
}

func (l *Loop) modelFor(specialist models.Specialist) string {
	if m, ok := l.Models[specialist]; ok && m != "" {
		return m
	}
	return "qwen3:8b"
}

// complete issues one LLM invocation, recording per-specialist invocation
// counts and latency.
func (l *Loop) complete(ctx context.Context, def tasks.Definition, inv *llm.Invoker, model string, messages []models.Message, wireTools []openai.Tool, streaming bool, sender llm.StreamSender) (models.ResponseMessage, error) {
	start := time.Now()
	resp, err := inv.Complete(ctx, model, messages, wireTools, streaming, sender)
	if l.Metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		l.Metrics.LLMInvocations.WithLabelValues(def.Specialist.String(), outcome).Inc()
		l.Metrics.LLMLatency.Observe(time.Since(start).Seconds())
	}
	return resp, err
}

// Run drives def (which must be an AgenticLoop-mode task) to termination,
// tail-calling into a switched task when the model calls switch_task.
func (l *Loop) Run(ctx context.Context, def tasks.Definition, messages []models.Message, deviceID int64, deviceKey string, streaming bool, emitter Emitter) (models.ResponseMessage, error) {
	emitter = emitterOrStdout(emitter)
	inv, err := l.invokerFor(def)
	if err != nil {
		return models.ResponseMessage{}, err
	}
	ctx = tools.WithDevice(ctx, deviceID, deviceKey)

	advertised := ToolsFor(def, l.Catalog)
	wireTools := tools.ToOpenAITools(advertised)
	model := l.modelFor(def.Specialist)

	iterations := 0
	for {
		iterations++
		if iterations > l.maxIterations() {
			last := messages[len(messages)-1]
			return models.ResponseMessage{
				Role:      last.Role,
				Content:   last.Content + "\n\n[engine: safety bound on loop iterations exceeded]",
				ToolCalls: nil,
			}, &LoopError{Task: def.Name, Phase: "iteration-bound", Iteration: iterations, Cause: fmt.Errorf("exceeded %d iterations", l.maxIterations())}
		}

		resp, err := l.complete(ctx, def, inv, model, messages, wireTools, streaming, emitter)
		if err != nil {
			return models.ResponseMessage{}, &LoopError{Task: def.Name, Phase: "llm-invoke", Iteration: iterations, Cause: err}
		}
		messages = append(messages, resp.ToMessage())

		if l.Metrics != nil {
			l.Metrics.LoopIterations.Observe(float64(iterations))
		}

		if len(resp.ToolCalls) == 0 {
			return resp, nil
		}

		for _, call := range resp.ToolCalls {
			emitter.ToolCall(def.Name, call.Function.Name, call.Function.Arguments)

			if isSwitchTask(call.Function.Name) {
				target, ok := parseSwitchTarget(call.Function.Arguments)
				if !ok {
					return models.ResponseMessage{}, &LoopError{Task: def.Name, Phase: "switch_task", Iteration: iterations, Cause: fmt.Errorf("missing task argument")}
				}
				next, ok := tasks.Lookup(target)
				if !ok || !tasks.CanSwitchTo(def.Name, target) {
					return models.ResponseMessage{}, &LoopError{Task: def.Name, Phase: "switch_task", Iteration: iterations, Cause: &ErrUnknownTask{Name: target}}
				}
				emitter.TaskSwitch(def.Name, target)
				messages = append(messages, models.Message{
					Role:    "system",
					Content: fmt.Sprintf("Task switch: %s -> %s. Continue with the current objective.", def.Name, target),
				})
				return l.Run(ctx, next, messages, deviceID, deviceKey, streaming, emitter)
			}

			result := l.Executor.UseTool(ctx, call.Function.Name, call.Function.Arguments)
			emitter.ToolResult(def.Name, call.Function.Name, result)
			if l.Metrics != nil {
				loc := "server"
				if schema, err := l.Catalog.GetToolSchema(call.Function.Name); err == nil && schema.Name != "" {
					if t, _ := findTool(advertised, schema.Name); t != nil && t.Location == models.LocationClient {
						loc = "client"
					}
				}
				l.Metrics.ToolCallsTotal.WithLabelValues(call.Function.Name, loc).Inc()
			}
			messages = append(messages, models.Message{
				Role:       "assistant",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}
}

func findTool(ts []models.Tool, name string) (*models.Tool, bool) {
	for i := range ts {
		if ts[i].Schema.Name == name {
			return &ts[i], true
		}
	}
	return nil, false
}
