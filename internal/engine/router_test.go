package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artificer-ai/artificer/internal/models"
)

func TestParsePlanTasks(t *testing.T) {
	args, _ := json.Marshal(map[string]any{
		"steps": []map[string]string{
			{"task": "web_research", "directions": "find news"},
			{"task": "summarizer", "directions": "summarize"},
		},
	})
	steps, ok := parsePlanTasks(args)
	if !ok {
		t.Fatal("expected steps to parse")
	}
	if len(steps) != 2 || steps[0].Task != "web_research" || steps[0].Instruction != "find news" {
		t.Errorf("got %+v", steps)
	}
}

func TestParsePlanTasksMalformedFallsBack(t *testing.T) {
	if _, ok := parsePlanTasks(json.RawMessage(`not json`)); ok {
		t.Error("malformed args should not parse")
	}
	if _, ok := parsePlanTasks(json.RawMessage(`{"steps":[]}`)); ok {
		t.Error("empty steps should not parse as usable")
	}
}

// TestPlanPipelineFallsBackWithoutToolCall: when the router returns no
// parseable plan_tasks call, the pipeline falls back to a single chat step
// carrying the original message.
func TestPlanPipelineFallsBackWithoutToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"no plan here"}}`)
	}))
	defer srv.Close()

	d := newDriver(t, srv.URL)
	steps := d.PlanPipeline(context.Background(), "hi", 1, "key", nil)

	if len(steps) != 1 || steps[0].Task != models.TaskChat || steps[0].Instruction != "hi" {
		t.Errorf("got %+v, want a single fallback chat step", steps)
	}
}

func TestPlanPipelineUsesRouterPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","tool_calls":[{"function":{"name":"plan_tasks","arguments":{"steps":[{"task":"web_research","directions":"find news"},{"task":"summarizer","directions":"summarize"}]}}}]}}`)
	}))
	defer srv.Close()

	d := newDriver(t, srv.URL)
	steps := d.PlanPipeline(context.Background(), "research the news", 1, "key", nil)

	if len(steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(steps))
	}
	if steps[0].Task != models.TaskWebResearch || steps[1].Task != models.TaskSummarizer {
		t.Errorf("got %+v", steps)
	}
}
