package engine

import (
	"context"
	"encoding/json"

	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/tasks"
)

// wireStep is the plan_tasks argument shape, decoded separately from
// models.PipelineStep because the wire field is "directions" while the
// in-engine field is named Instruction.
type wireStep struct {
	Task       string `json:"task"`
	Directions string `json:"directions"`
}

// defaultChatStep is the fallback pipeline used whenever the router
// produces no usable plan_tasks call.
func defaultChatStep(message string) []models.PipelineStep {
	return []models.PipelineStep{{Task: models.TaskChat, Instruction: message}}
}

// PlanPipeline runs the router task against the user's raw message and
// returns the resulting pipeline steps, falling back to a single chat step
// when the router's response has no parseable plan_tasks call.
func (d *Driver) PlanPipeline(ctx context.Context, message string, deviceID int64, deviceKey string, emitter Emitter) []models.PipelineStep {
	emitter = emitterOrStdout(emitter)
	def, ok := tasks.Lookup(models.TaskRouter)
	if !ok {
		return defaultChatStep(message)
	}

	resp, err := d.RunStep(ctx, def, message, deviceID, deviceKey, emitter)
	if err != nil || len(resp.ToolCalls) == 0 {
		return defaultChatStep(message)
	}

	steps, ok := parsePlanTasks(resp.ToolCalls[0].Function.Arguments)
	if !ok || len(steps) == 0 {
		return defaultChatStep(message)
	}
	return steps
}

func parsePlanTasks(args json.RawMessage) ([]models.PipelineStep, bool) {
	var decoded struct {
		Steps []wireStep `json:"steps"`
	}
	if err := json.Unmarshal(args, &decoded); err != nil {
		return nil, false
	}
	out := make([]models.PipelineStep, 0, len(decoded.Steps))
	for _, s := range decoded.Steps {
		if s.Task == "" {
			continue
		}
		out = append(out, models.PipelineStep{Task: s.Task, Instruction: s.Directions})
	}
	return out, len(out) > 0
}
