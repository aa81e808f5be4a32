package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/telemetry"
)

// RemoteConfig carries what a Remote-mode executor needs to reach the
// envoy device's tool endpoint. DeviceID/DeviceKey are a fallback for
// deployments that never vary the calling device (tests, a single paired
// device); a per-call device set via tools.WithDevice takes precedence.
type RemoteConfig struct {
	BaseURL   string
	DeviceID  int64
	DeviceKey string
	Timeout   time.Duration
}

// Executor dispatches a single tool call to its registered handler
// (Local) or to the envoy device over HTTP (Remote), choosing per call by
// looking up the tool's registered location. An unknown tool name falls
// back to Local so it fails with a clear "not found" error rather than
// silently attempting a remote call.
type Executor struct {
	catalog *Catalog
	client  *http.Client
	remote  RemoteConfig

	schemaMu sync.Mutex
	schemas  map[string]*jsonschema.Schema
}

// NewExecutor builds an Executor bound to catalog. remote may be the zero
// value if no Client-location tools are ever dispatched (e.g. in tests).
func NewExecutor(catalog *Catalog, remote RemoteConfig) *Executor {
	timeout := remote.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Executor{
		catalog: catalog,
		client:  &http.Client{Timeout: timeout},
		remote:  remote,
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// UseTool validates args against the named tool's schema, then dispatches
// to Local or Remote per the tool's registered location. The returned
// string is always safe to feed back to the model: validation and handler
// failures are rendered as "Error: <msg>" rather than returned as a Go
// error, so a failed tool never aborts the loop.
func (e *Executor) UseTool(ctx context.Context, name string, args json.RawMessage) string {
	ctx, span := telemetry.Tracer().Start(ctx, "tools.UseTool",
		oteltrace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	schema, err := e.catalog.GetToolSchema(name)
	if err == nil {
		if verr := e.validate(schema, args); verr != nil {
			return "Error: " + verr.Error()
		}
	}

	location, known := e.catalog.locationOf(name)
	if !known {
		span.SetAttributes(attribute.String("tool.location", "unknown"))
		// Unknown tool: fall back to Local, which reports a clean
		// not-found error instead of attempting a remote call with no
		// schema to validate against.
		return e.runLocal(ctx, name, args)
	}
	if location == models.LocationClient {
		span.SetAttributes(attribute.String("tool.location", "client"))
		return e.runRemote(ctx, name, args)
	}
	span.SetAttributes(attribute.String("tool.location", "server"))
	return e.runLocal(ctx, name, args)
}

func (e *Executor) runLocal(ctx context.Context, name string, args json.RawMessage) string {
	handler, ok := e.catalog.handlerFor(name)
	if !ok {
		return fmt.Sprintf("Error: tool not found: %s", name)
	}
	result, err := handler(ctx, args)
	if err != nil {
		return "Error: " + err.Error()
	}
	return result
}

// remoteRequest is the wire body POSTed to <base_url>/tools/execute.
type remoteRequest struct {
	DeviceID  int64           `json:"device_id"`
	DeviceKey string          `json:"device_key"`
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments"`
}

type remoteResponse struct {
	Result string `json:"result"`
}

func (e *Executor) runRemote(ctx context.Context, name string, args json.RawMessage) string {
	if e.remote.BaseURL == "" {
		return "Error: no remote executor configured for client tool " + name
	}
	deviceID, deviceKey := e.remote.DeviceID, e.remote.DeviceKey
	if dc, ok := deviceFromContext(ctx); ok {
		deviceID, deviceKey = dc.id, dc.key
	}
	payload, err := json.Marshal(remoteRequest{
		DeviceID:  deviceID,
		DeviceKey: deviceKey,
		ToolName:  name,
		Arguments: args,
	})
	if err != nil {
		return "Error: marshal remote tool request: " + err.Error()
	}

	url := e.remote.BaseURL + "/tools/execute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "Error: build remote tool request: " + err.Error()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "Error: remote tool call: " + err.Error()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "Error: read remote tool response: " + err.Error()
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("Error: remote tool %s returned status %d: %s", name, resp.StatusCode, string(body))
	}

	var out remoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "Error: decode remote tool response: " + err.Error()
	}
	return out.Result
}

// validate compiles (and caches) schema.Parameters as a JSON Schema
// document and validates args against it before dispatch.
func (e *Executor) validate(schema models.ToolSchema, args json.RawMessage) error {
	if schema.Parameters == nil {
		return nil
	}
	compiled, err := e.compiledSchema(schema)
	if err != nil {
		// A malformed schema is an engine bug, not a model mistake; do not
		// block the call on it.
		return nil
	}

	var decoded any
	if len(args) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(args, &decoded); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", schema.Name, err)
	}
	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("arguments for %s failed validation: %w", schema.Name, err)
	}
	return nil
}

func (e *Executor) compiledSchema(schema models.ToolSchema) (*jsonschema.Schema, error) {
	e.schemaMu.Lock()
	defer e.schemaMu.Unlock()
	if cached, ok := e.schemas[schema.Name]; ok {
		return cached, nil
	}

	raw, err := json.Marshal(schema.Parameters)
	if err != nil {
		return nil, err
	}
	resourceName := schema.Name + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, err
	}
	e.schemas[schema.Name] = compiled
	return compiled, nil
}
