package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/artificer-ai/artificer/internal/models"
)

func TestExecutorRunsLocalHandler(t *testing.T) {
	c := NewCatalog()
	c.Register("filesmith", models.ToolSchema{Name: "echo"}, models.LocationServer,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			return "handled: " + string(args), nil
		})
	e := NewExecutor(c, RemoteConfig{})

	got := e.UseTool(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	if got != `handled: {"x":1}` {
		t.Errorf("got %q", got)
	}
}

func TestExecutorUnknownToolReturnsErrorString(t *testing.T) {
	c := NewCatalog()
	e := NewExecutor(c, RemoteConfig{})

	got := e.UseTool(context.Background(), "ghost", json.RawMessage(`{}`))
	if !strings.HasPrefix(got, "Error:") {
		t.Errorf("got %q, want an Error: string", got)
	}
}

func TestExecutorLocalHandlerErrorBecomesErrorString(t *testing.T) {
	c := NewCatalog()
	c.Register("filesmith", models.ToolSchema{Name: "boom"}, models.LocationServer,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			return "", errSentinel{}
		})
	e := NewExecutor(c, RemoteConfig{})

	got := e.UseTool(context.Background(), "boom", json.RawMessage(`{}`))
	if !strings.HasPrefix(got, "Error: ") {
		t.Errorf("got %q, want an Error: prefix", got)
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "boom failed" }

func TestExecutorDispatchesClientToolToRemote(t *testing.T) {
	var gotBody remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode remote request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(remoteResponse{Result: "remote result"})
	}))
	defer srv.Close()

	c := NewCatalog()
	c.Register("web_research", models.ToolSchema{Name: "browse"}, models.LocationClient, nil)
	e := NewExecutor(c, RemoteConfig{BaseURL: srv.URL, DeviceID: 7, DeviceKey: "key7"})

	got := e.UseTool(context.Background(), "browse", json.RawMessage(`{"url":"https://example.com"}`))
	if got != "remote result" {
		t.Errorf("got %q, want %q", got, "remote result")
	}
	if gotBody.ToolName != "browse" || gotBody.DeviceID != 7 || gotBody.DeviceKey != "key7" {
		t.Errorf("unexpected remote request body: %+v", gotBody)
	}
}

func TestExecutorRemoteUsesDeviceFromContextOverConfig(t *testing.T) {
	var gotBody remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(remoteResponse{Result: "ok"})
	}))
	defer srv.Close()

	c := NewCatalog()
	c.Register("web_research", models.ToolSchema{Name: "browse"}, models.LocationClient, nil)
	e := NewExecutor(c, RemoteConfig{BaseURL: srv.URL, DeviceID: 1, DeviceKey: "default"})

	ctx := WithDevice(context.Background(), 42, "per-call-key")
	e.UseTool(ctx, "browse", json.RawMessage(`{}`))

	if gotBody.DeviceID != 42 || gotBody.DeviceKey != "per-call-key" {
		t.Errorf("expected per-call device to override config default, got %+v", gotBody)
	}
}

func TestExecutorRemoteWithNoBaseURLReturnsError(t *testing.T) {
	c := NewCatalog()
	c.Register("web_research", models.ToolSchema{Name: "browse"}, models.LocationClient, nil)
	e := NewExecutor(c, RemoteConfig{})

	got := e.UseTool(context.Background(), "browse", json.RawMessage(`{}`))
	if !strings.Contains(got, "no remote executor configured") {
		t.Errorf("got %q", got)
	}
}

func TestExecutorValidatesArgsAgainstSchema(t *testing.T) {
	c := NewCatalog()
	c.Register("filesmith", models.ToolSchema{
		Name: "read_file",
		Parameters: map[string]any{
			"type":     "object",
			"required": []string{"path"},
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
		},
	}, models.LocationServer, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "should not be called", nil
	})
	e := NewExecutor(c, RemoteConfig{})

	got := e.UseTool(context.Background(), "read_file", json.RawMessage(`{}`))
	if !strings.HasPrefix(got, "Error:") {
		t.Errorf("got %q, want a validation Error:", got)
	}
}
