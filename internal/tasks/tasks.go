// Package tasks declares the engine's fixed table of task definitions:
// the router, the interactive agentic-loop tasks, and the background
// singular tasks.
package tasks

import "github.com/artificer-ai/artificer/internal/models"

// Mode distinguishes a task that runs a single LLM call (Singular) from one
// driven to completion by the agentic loop (AgenticLoop).
type Mode int

const (
	Singular Mode = iota
	AgenticLoop
)

// Definition is one row of the task table: everything about a task that is
// fixed at compile time, independent of any one conversation.
//
// The tool set a task actually advertises is not stored here as a field:
// it is a function of Specialist (ToolCaller sees the whole catalog, Coder
// sees only FileSmith, Reasoner/Quick see none), with the router as the
// sole exception. See internal/engine.ToolsFor.
type Definition struct {
	Name         string
	Specialist   models.Specialist
	Context      models.ExecutionContext
	Mode         Mode
	Instructions string
	// Switches lists the task names this task's AgenticLoop may tail-call
	// into via the switch_task tool. Ignored for Singular tasks.
	Switches []string
}

// table is the single source of truth for every task definition. It is
// built once at init and never mutated afterward, mirroring the Tool
// Catalog's process-wide immutability.
var table = map[string]Definition{
	models.TaskRouter: {
		Name:         models.TaskRouter,
		Specialist:   models.SpecialistReasoner,
		Context:      models.Interactive,
		Mode:         Singular,
		Instructions: routerInstructions,
	},
	models.TaskChat: {
		Name:         models.TaskChat,
		Specialist:   models.SpecialistToolCaller,
		Context:      models.Interactive,
		Mode:         AgenticLoop,
		Instructions: chatInstructions,
		Switches:     []string{models.TaskWebResearch, models.TaskFileSmith},
	},
	models.TaskWebResearch: {
		Name:         models.TaskWebResearch,
		Specialist:   models.SpecialistToolCaller,
		Context:      models.Interactive,
		Mode:         AgenticLoop,
		Instructions: webResearchInstructions,
		Switches:     []string{models.TaskChat, models.TaskFileSmith},
	},
	models.TaskFileSmith: {
		Name:         models.TaskFileSmith,
		Specialist:   models.SpecialistCoder,
		Context:      models.Interactive,
		Mode:         AgenticLoop,
		Instructions: fileSmithInstructions,
		Switches:     []string{models.TaskChat, models.TaskWebResearch},
	},
	models.TaskSummarizer: {
		Name:         models.TaskSummarizer,
		Specialist:   models.SpecialistReasoner,
		Context:      models.Interactive,
		Mode:         Singular,
		Instructions: summarizerInstructions,
	},
	models.TaskTitleGeneration: {
		Name:         models.TaskTitleGeneration,
		Specialist:   models.SpecialistQuick,
		Context:      models.Background,
		Mode:         Singular,
		Instructions: titleGenerationInstructions,
	},
	models.TaskSummarization: {
		Name:         models.TaskSummarization,
		Specialist:   models.SpecialistQuick,
		Context:      models.Background,
		Mode:         Singular,
		Instructions: summarizationInstructions,
	},
	models.TaskMemoryExtraction: {
		Name:         models.TaskMemoryExtraction,
		Specialist:   models.SpecialistQuick,
		Context:      models.Background,
		Mode:         Singular,
		Instructions: memoryExtractionInstructions,
	},
	models.GeneralTaskName: {
		Name:         models.GeneralTaskName,
		Specialist:   models.SpecialistQuick,
		Context:      models.Background,
		Mode:         Singular,
		Instructions: "",
	},
}

const (
	routerInstructions = `You are the router for a local AI assistant. Given the user's message, ` +
		`decide which specialized task(s) should handle it and call plan_tasks with an ordered ` +
		`list of steps, each naming a task and the directions for that step. If the request is a ` +
		`simple conversational message, a single chat step is sufficient.`

	chatInstructions = `You are a helpful, general-purpose conversational assistant running locally ` +
		`on the user's device. Answer directly when you can. If the request needs research or file ` +
		`access beyond your own knowledge, switch to the task built for it.`

	webResearchInstructions = `You research topics using the search and fetch_page tools, and the ` +
		`archivist's query_memory tool for anything the user has told the assistant before. Gather ` +
		`what you need, then report your findings as plain text.`

	fileSmithInstructions = `You read, write, and list files on the user's device using the ` +
		`FileSmith tools, sandboxed to the configured root. Confirm the result of each operation ` +
		`in your final response.`

	summarizerInstructions = `Summarize the findings passed to you as context in two or three ` +
		`sentences suitable as a final answer to the user.`

	titleGenerationInstructions = `Generate a short, descriptive title (three to six words) for a ` +
		`conversation, given its opening user message. Reply with the title text only.`

	summarizationInstructions = `Summarize the following conversation in two to three sentences, ` +
		`capturing what the user wanted and what was done.`

	memoryExtractionInstructions = `Extract durable facts, preferences, and contextual details from ` +
		`the conversation below. Reply with JSON: {"memories": [{"key","value","kind","confidence"}], ` +
		`"keywords": ["..."]}. Kind is one of fact, preference, context. Only extract information ` +
		`worth remembering across future conversations.`
)

// Lookup returns the definition for name, or false if name is not a known
// task.
func Lookup(name string) (Definition, bool) {
	d, ok := table[name]
	return d, ok
}

// All returns every task definition, in a stable order (router first, then
// interactive tasks, then background tasks, then general).
func All() []Definition {
	order := []string{
		models.TaskRouter, models.TaskChat, models.TaskWebResearch, models.TaskFileSmith,
		models.TaskSummarizer, models.TaskTitleGeneration, models.TaskSummarization,
		models.TaskMemoryExtraction, models.GeneralTaskName,
	}
	out := make([]Definition, 0, len(order))
	for _, name := range order {
		out = append(out, table[name])
	}
	return out
}

// CanSwitchTo reports whether the task named from is permitted to
// switch_task into the task named to.
func CanSwitchTo(from, to string) bool {
	d, ok := table[from]
	if !ok {
		return false
	}
	for _, s := range d.Switches {
		if s == to {
			return true
		}
	}
	return false
}
