package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artificer-ai/artificer/internal/models"
)

func TestCompleteBlocking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected stream=false")
		}
		if req.Model != "qwen3:8b" {
			t.Errorf("model = %q, want qwen3:8b", req.Model)
		}
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"hello"}}`)
	}))
	defer srv.Close()

	inv := New(srv.URL, time.Second)
	resp, err := inv.Complete(context.Background(), "qwen3:8b", []models.Message{{Role: "user", Content: "hi"}}, nil, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" || resp.Role != "assistant" {
		t.Errorf("got %+v", resp)
	}
}

func TestCompleteBlockingToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","tool_calls":[{"id":"1","type":"function","function":{"name":"search","arguments":{"q":"go"}}}]}}`)
	}))
	defer srv.Close()

	inv := New(srv.URL, time.Second)
	resp, err := inv.Complete(context.Background(), "m", nil, nil, false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "search" {
		t.Fatalf("got %+v", resp.ToolCalls)
	}
}

func TestCompleteBlockingErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "backend exploded")
	}))
	defer srv.Close()

	inv := New(srv.URL, time.Second)
	_, err := inv.Complete(context.Background(), "m", nil, nil, false, nil)
	if err == nil || !strings.Contains(err.Error(), "backend exploded") {
		t.Fatalf("expected error mentioning backend body, got %v", err)
	}
}

type chunkSender struct {
	chunks []string
}

func (c *chunkSender) StreamChunk(content string) {
	c.chunks = append(c.chunks, content)
}

func TestCompleteStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The final frame deliberately has no trailing newline.
		frames := `{"message":{"role":"assistant","content":"Hel"},"done":false}
{"message":{"role":"assistant","content":"lo"},"done":false}
{"message":{"role":"assistant","content":""},"done":true}`
		fmt.Fprint(w, frames)
	}))
	defer srv.Close()

	inv := New(srv.URL, time.Second)
	sender := &chunkSender{}
	resp, err := inv.Complete(context.Background(), "m", nil, nil, true, sender)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "Hello" {
		t.Errorf("content = %q, want Hello", resp.Content)
	}
	if len(sender.chunks) != 2 || sender.chunks[0] != "Hel" || sender.chunks[1] != "lo" {
		t.Errorf("chunks = %v", sender.chunks)
	}
}

func TestCompleteStreamingToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","tool_calls":[{"function":{"name":"fetch_page","arguments":{"url":"x"}}}]},"done":true}`)
	}))
	defer srv.Close()

	inv := New(srv.URL, time.Second)
	resp, err := inv.Complete(context.Background(), "m", nil, nil, true, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "fetch_page" {
		t.Fatalf("got %+v", resp.ToolCalls)
	}
}

func TestCompleteStreamingMalformedFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all\n")
	}))
	defer srv.Close()

	inv := New(srv.URL, time.Second)
	_, err := inv.Complete(context.Background(), "m", nil, nil, true, nil)
	if err == nil || !strings.Contains(err.Error(), "malformed stream frame") {
		t.Fatalf("expected malformed stream frame error, got %v", err)
	}
}

func TestToWireMessagesDefaultsEmptyToolArgs(t *testing.T) {
	msgs := []models.Message{
		{Role: "assistant", ToolCalls: []models.ToolCall{{Function: models.FunctionCall{Name: "x"}}}},
	}
	out := toWireMessages(msgs)
	if string(out[0].ToolCalls[0].Function.Arguments) != "{}" {
		t.Errorf("expected empty arguments to default to {}, got %s", out[0].ToolCalls[0].Function.Arguments)
	}
}
