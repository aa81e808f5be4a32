package tools

import (
	"context"
	"encoding/json"
	"testing"
)

func TestRouterPlanTasksEchoesSteps(t *testing.T) {
	r := Router{}
	args, _ := json.Marshal(map[string]any{
		"steps": []map[string]string{{"task": "chat", "directions": "hi"}},
	})

	out, err := r.PlanTasks(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var steps []map[string]string
	if err := json.Unmarshal([]byte(out), &steps); err != nil {
		t.Fatalf("output is not the raw steps array: %v (out=%s)", err, out)
	}
	if len(steps) != 1 || steps[0]["task"] != "chat" {
		t.Errorf("got %+v", steps)
	}
}

func TestRouterPlanTasksMissingStepsEchoesArgs(t *testing.T) {
	r := Router{}
	args := json.RawMessage(`{"other":"field"}`)

	out, err := r.PlanTasks(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != string(args) {
		t.Errorf("out = %q, want the original args echoed back", out)
	}
}

func TestRouterPlanTasksMalformedArgsEchoesRaw(t *testing.T) {
	r := Router{}
	args := json.RawMessage(`not json`)

	out, err := r.PlanTasks(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != string(args) {
		t.Errorf("out = %q, want the malformed args echoed back verbatim", out)
	}
}
