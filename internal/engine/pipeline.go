package engine

import (
	"context"
	"fmt"

	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/tasks"
)

// MemorySource supplies the memories a system prompt needs for one task
// call, scoped to a device. internal/store.Store satisfies this via
// MemoriesForTask plus the general task's resolved id.
type MemorySource interface {
	MemoriesForTask(ctx context.Context, deviceID, generalTaskID, taskID int64) ([]models.Memory, error)
}

// TaskIDs resolves a task name to its persisted row id, letting the prompt
// builder join memories scoped to both a task and the general task.
type TaskIDs interface {
	TaskIDByName(ctx context.Context, name string) (int64, error)
}

// Driver runs a pipeline of steps, threading each step's terminal content
// as context into the next, and a single step directly for the router.
type Driver struct {
	Loop      *Loop
	Memories  MemorySource
	TaskIDs   TaskIDs
	Streaming bool
}

// RunStep executes one task definition as a single call: Singular tasks get
// exactly one LLM invocation (no tool loop beyond what the loop already
// handles for zero-tool-call termination), AgenticLoop tasks are driven to
// completion by the Loop.
func (d *Driver) RunStep(ctx context.Context, def tasks.Definition, userContent string, deviceID int64, deviceKey string, emitter Emitter) (models.ResponseMessage, error) {
	emitter = emitterOrStdout(emitter)

	memories, err := d.loadMemories(ctx, def, deviceID)
	if err != nil {
		return models.ResponseMessage{}, fmt.Errorf("engine: load memories for %s: %w", def.Name, err)
	}
	advertised := ToolsFor(def, d.Loop.Catalog)
	system := BuildSystemPrompt(def.Instructions, advertised, memories)

	messages := []models.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: userContent},
	}

	if def.Mode == tasks.AgenticLoop {
		return d.Loop.Run(ctx, def, messages, deviceID, deviceKey, d.Streaming, emitter)
	}

	inv, err := d.Loop.invokerFor(def)
	if err != nil {
		return models.ResponseMessage{}, err
	}
	wireTools := toolsToOpenAI(advertised)
	model := d.Loop.modelFor(def.Specialist)
	resp, err := d.Loop.complete(ctx, def, inv, model, messages, wireTools, d.Streaming, emitter)
	if err != nil {
		return models.ResponseMessage{}, fmt.Errorf("engine: invoke %s: %w", def.Name, err)
	}
	return resp, nil
}

func (d *Driver) loadMemories(ctx context.Context, def tasks.Definition, deviceID int64) ([]models.Memory, error) {
	if d.Memories == nil || d.TaskIDs == nil {
		return nil, nil
	}
	generalID, err := d.TaskIDs.TaskIDByName(ctx, models.GeneralTaskName)
	if err != nil {
		return nil, err
	}
	taskID, err := d.TaskIDs.TaskIDByName(ctx, def.Name)
	if err != nil {
		return nil, err
	}
	return d.Memories.MemoriesForTask(ctx, deviceID, generalID, taskID)
}

// Run executes an ordered list of pipeline steps, threading each step's
// terminal content into the next as "# Context from previous step", and
// returns a terminal ResponseMessage whose content is the last step's
// content. An empty steps list is an error.
func (d *Driver) Run(ctx context.Context, steps []models.PipelineStep, deviceID int64, deviceKey string, emitter Emitter) (models.ResponseMessage, error) {
	emitter = emitterOrStdout(emitter)
	if len(steps) == 0 {
		return models.ResponseMessage{}, fmt.Errorf("engine: pipeline has no steps")
	}

	carried := ""
	for _, step := range steps {
		def, ok := tasks.Lookup(step.Task)
		if !ok {
			return models.ResponseMessage{}, &ErrUnknownTask{Name: step.Task}
		}
		emitter.TaskSwitch("pipeline", step.Task)

		userContent := step.Instruction
		if carried != "" {
			userContent = fmt.Sprintf("%s\n\n# Context from previous step:\n%s", step.Instruction, carried)
		}

		resp, err := d.RunStep(ctx, def, userContent, deviceID, deviceKey, emitter)
		if err != nil {
			return models.ResponseMessage{}, err
		}
		carried = resp.Content
	}

	return models.ResponseMessage{Role: "assistant", Content: carried}, nil
}
