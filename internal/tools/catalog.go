// Package tools implements the tool catalog and executor: a static,
// process-wide registry of tool schemas paired with server-local handlers,
// plus the dispatch logic that routes a tool call to either its in-process
// handler or a remote HTTP call on the envoy device.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/artificer-ai/artificer/internal/models"
)

// Handler executes a server-local tool call and returns its result text.
// Handler errors are never propagated as Go errors to the model; the
// executor converts them into "Error: <msg>" result strings, so a Handler
// may return a plain error and let the executor do that translation.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// entry pairs a schema with its server-local handler, if any.
type entry struct {
	tool    models.Tool
	handler Handler
}

// Catalog is the immutable-after-init registry of tools. A single Catalog
// is constructed at startup and shared process-wide; it is safe for
// concurrent read access from many goroutines (the mutex only guards the
// registration phase).
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

// NewCatalog returns an empty catalog ready for Register calls.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]entry)}
}

// Register adds a tool schema to the catalog, with handler non-nil only
// for Server-location tools. Registering a name twice replaces the prior
// entry; the Default catalog (see registry.go) never does this, but tests
// that build a smaller ad-hoc catalog may.
func (c *Catalog) Register(category string, schema models.ToolSchema, location models.ToolLocation, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[schema.Name]; !exists {
		c.order = append(c.order, schema.Name)
	}
	c.entries[schema.Name] = entry{
		tool: models.Tool{
			Schema:   schema,
			Category: category,
			Location: location,
		},
		handler: handler,
	}
}

// GetTools returns every registered tool, in registration order.
func (c *Catalog) GetTools() []models.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Tool, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name].tool)
	}
	return out
}

// GetToolsFor returns every tool whose Category equals one of the given
// categories, sorted by tool name. An empty categories list returns no
// tools.
func (c *Catalog) GetToolsFor(categories []string) []models.Tool {
	if len(categories) == 0 {
		return nil
	}
	want := make(map[string]bool, len(categories))
	for _, cat := range categories {
		want[cat] = true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Tool, 0, len(c.order))
	for _, name := range c.order {
		e := c.entries[name]
		if want[e.tool.Category] {
			out = append(out, e.tool)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Schema.Name < out[j].Schema.Name })
	return out
}

// ErrUnknownTool is returned by GetToolSchema and used by the executor when
// a tool call names a schema the catalog has never seen.
var ErrUnknownTool = fmt.Errorf("tools: unknown tool")

// GetToolSchema looks up a single tool by name.
func (c *Catalog) GetToolSchema(name string) (models.ToolSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return models.ToolSchema{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return e.tool.Schema, nil
}

// locationOf reports a tool's location and whether the name is known.
func (c *Catalog) locationOf(name string) (models.ToolLocation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return models.LocationServer, false
	}
	return e.tool.Location, true
}

func (c *Catalog) handlerFor(name string) (Handler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok || e.handler == nil {
		return nil, false
	}
	return e.handler, true
}

// ToOpenAITool converts a ToolSchema into the openai.Tool wire shape the
// LLM backend's OpenAI-compatible tool-calling format expects.
func ToOpenAITool(schema models.ToolSchema) openai.Tool {
	params := schema.Parameters
	if params == nil {
		params = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        schema.Name,
			Description: schema.Description,
			Parameters:  params,
		},
	}
}

// ToOpenAITools converts a slice of Tool into their openai.Tool wire form.
func ToOpenAITools(tools []models.Tool) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		out[i] = ToOpenAITool(t.Schema)
	}
	return out
}
