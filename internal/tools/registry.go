package tools

import (
	"context"
	"encoding/json"

	"github.com/artificer-ai/artificer/internal/models"
)

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func objectSchema(properties map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func handlerOf[T any](recv T, fn func(T, context.Context, json.RawMessage) (string, error)) Handler {
	return func(ctx context.Context, args json.RawMessage) (string, error) {
		return fn(recv, ctx, args)
	}
}

// Tool names shared between the engine's catalog and the envoy's
// client-side dispatcher.
const (
	ToolFileSmithReadFile      = "FileSmith::read_file"
	ToolFileSmithWriteFile     = "FileSmith::write_file"
	ToolFileSmithListDirectory = "FileSmith::list_directory"
)

// BuildDefault registers every concrete tool the engine ships with into
// catalog: filesmith, web_research, archivist, and router. web and
// archivist may be the zero value when a caller only needs a subset
// (e.g. unit tests exercising the router alone).
//
// FileSmith is registered Client-location with no handler: the engine
// never touches the user's filesystem itself, it dispatches to the envoy
// device over the remote executor's /tools/execute contract. The envoy's
// serve-tools command runs the FileSmith handlers on the device side.
func BuildDefault(catalog *Catalog, web WebResearch, archivist Archivist) {
	catalog.Register("FileSmith", models.ToolSchema{
		Name:        ToolFileSmithReadFile,
		Description: "Read the contents of a file as text.",
		Parameters: objectSchema(map[string]any{
			"path": stringParam("Path to the file, relative to the sandboxed root."),
		}, []string{"path"}),
	}, models.LocationClient, nil)

	catalog.Register("FileSmith", models.ToolSchema{
		Name:        ToolFileSmithWriteFile,
		Description: "Write text content to a file, creating it if needed.",
		Parameters: objectSchema(map[string]any{
			"path":    stringParam("Path to the file, relative to the sandboxed root."),
			"content": stringParam("Text content to write."),
		}, []string{"path", "content"}),
	}, models.LocationClient, nil)

	catalog.Register("FileSmith", models.ToolSchema{
		Name:        ToolFileSmithListDirectory,
		Description: "List the immediate entries of a directory.",
		Parameters: objectSchema(map[string]any{
			"path": stringParam("Path to the directory, relative to the sandboxed root."),
		}, []string{"path"}),
	}, models.LocationClient, nil)

	catalog.Register("WebResearch", models.ToolSchema{
		Name:        "WebResearch::search",
		Description: "Search the web for a query and return top results.",
		Parameters: objectSchema(map[string]any{
			"query": stringParam("The search query."),
		}, []string{"query"}),
	}, models.LocationServer, handlerOf(web, WebResearch.Search))

	catalog.Register("WebResearch", models.ToolSchema{
		Name:        "WebResearch::fetch_page",
		Description: "Fetch a web page by URL and return its text content.",
		Parameters: objectSchema(map[string]any{
			"url": stringParam("The page URL to fetch."),
		}, []string{"url"}),
	}, models.LocationServer, handlerOf(web, WebResearch.FetchPage))

	catalog.Register("Archivist", models.ToolSchema{
		Name:        "Archivist::query_memory",
		Description: "Query this device's learned memories by key pattern (SQL LIKE syntax).",
		Parameters: objectSchema(map[string]any{
			"key_like": stringParam("SQL LIKE pattern to match memory keys against; empty matches all."),
		}, nil),
	}, models.LocationServer, handlerOf(archivist, Archivist.QueryMemory))

	router := Router{}
	catalog.Register("Router", models.ToolSchema{
		Name:        "plan_tasks",
		Description: "Plan a pipeline of tasks to fulfill the user's request.",
		Parameters: objectSchema(map[string]any{
			"steps": map[string]any{
				"type":        "array",
				"description": "Ordered list of steps, each with 'task' (task name) and 'directions' (instructions for that step).",
				"items": objectSchema(map[string]any{
					"task":       stringParam("The task name to run this step under."),
					"directions": stringParam("Free-text instructions for this step."),
				}, []string{"task", "directions"}),
			},
		}, []string{"steps"}),
	}, models.LocationServer, handlerOf(router, Router.PlanTasks))
}
