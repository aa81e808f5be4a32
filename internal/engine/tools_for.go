package engine

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/tasks"
	"github.com/artificer-ai/artificer/internal/tools"
)

// toolsToOpenAI wraps tools.ToOpenAITools for callers in this package that
// don't otherwise need the tools package name in scope.
func toolsToOpenAI(ts []models.Tool) []openai.Tool { return tools.ToOpenAITools(ts) }

// switchTaskTool is the synthetic tool injected for interactive tasks that
// have at least one permitted switch target. It has no catalog entry or
// handler: the agentic loop intercepts calls to it before they ever reach
// the executor.
var switchTaskTool = models.Tool{
	Schema: models.ToolSchema{
		Name:        "switch_task",
		Description: "Switch the current turn to a different task better suited to continue the work.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task": map[string]any{
					"type":        "string",
					"description": "The task name to switch to.",
				},
			},
			"required": []string{"task"},
		},
	},
	Category: "Control",
	Location: models.LocationServer,
}

// ToolsFor computes the tool set a task definition advertises to the LLM:
// ToolCaller sees the entire catalog, Coder sees only the FileSmith
// category, Reasoner and Quick see none. The router is the one exception,
// a Reasoner restricted to just its own plan_tasks tool. An interactive
// task with permitted switches also gets the synthetic switch_task tool
// appended.
func ToolsFor(def tasks.Definition, catalog *tools.Catalog) []models.Tool {
	var out []models.Tool
	switch {
	case def.Name == models.TaskRouter:
		out = catalog.GetToolsFor([]string{"Router"})
	case def.Specialist == models.SpecialistToolCaller:
		out = catalog.GetTools()
	case def.Specialist == models.SpecialistCoder:
		out = catalog.GetToolsFor([]string{"FileSmith"})
	default:
		out = nil
	}

	if def.Context == models.Interactive && len(def.Switches) > 0 {
		out = append(out, switchTaskTool)
	}
	return out
}

// isSwitchTask reports whether name is the synthetic control tool, and
// parseSwitchTarget extracts its "task" argument.
func isSwitchTask(name string) bool { return name == switchTaskTool.Schema.Name }

func parseSwitchTarget(args json.RawMessage) (string, bool) {
	var decoded struct {
		Task string `json:"task"`
	}
	if err := json.Unmarshal(args, &decoded); err != nil || decoded.Task == "" {
		return "", false
	}
	return decoded.Task, true
}
