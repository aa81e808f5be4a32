package tools

import (
	"context"
	"encoding/json"
)

// Router implements the Router tool category's single tool, plan_tasks.
// The engine parses the tool *call*'s arguments directly to build the
// pipeline (see internal/engine's router step); this handler exists only
// so the catalog's uniform dispatch contract covers plan_tasks too, and it
// simply echoes the steps argument back.
type Router struct{}

// PlanTasks echoes back the raw "steps" argument.
func (Router) PlanTasks(_ context.Context, args json.RawMessage) (string, error) {
	var decoded struct {
		Steps json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(args, &decoded); err != nil {
		return string(args), nil
	}
	if len(decoded.Steps) == 0 {
		return string(args), nil
	}
	return string(decoded.Steps), nil
}
