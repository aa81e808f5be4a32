package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/artificer-ai/artificer/internal/models"
)

// memoryKindOrder fixes the section ordering: fact, then context, then
// preference.
func memoryKindOrder(k models.MemoryKind) int {
	switch k {
	case models.MemoryFact:
		return 0
	case models.MemoryContext:
		return 1
	case models.MemoryPreference:
		return 2
	default:
		return 3
	}
}

// sortMemories orders memories by kind (fact, context, preference), then
// confidence descending, then updated-at descending.
func sortMemories(memories []models.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		a, b := memories[i], memories[j]
		if ka, kb := memoryKindOrder(a.Kind), memoryKindOrder(b.Kind); ka != kb {
			return ka < kb
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})
}

// BuildSystemPrompt composes the system prompt for one call: the task's
// instructions, an optional tool-schema section, then the device's
// memories split into three blocks: facts (only those with confidence of
// at least 0.8), context, and preferences.
func BuildSystemPrompt(instructions string, advertisedTools []models.Tool, memories []models.Memory) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(instructions))

	if len(advertisedTools) > 0 {
		b.WriteString("\n\n# Available Tools\n")
		for _, t := range advertisedTools {
			writeToolDescription(&b, t.Schema)
		}
	}

	if len(memories) == 0 {
		return b.String()
	}

	sorted := make([]models.Memory, len(memories))
	copy(sorted, memories)
	sortMemories(sorted)

	facts := make([]models.Memory, 0)
	context := make([]models.Memory, 0)
	preferences := make([]models.Memory, 0)
	for _, m := range sorted {
		switch m.Kind {
		case models.MemoryFact:
			if m.Confidence >= 0.8 {
				facts = append(facts, m)
			}
		case models.MemoryContext:
			context = append(context, m)
		case models.MemoryPreference:
			preferences = append(preferences, m)
		}
	}

	if len(facts) > 0 {
		b.WriteString("\n\n# System Information\n")
		for _, m := range facts {
			fmt.Fprintf(&b, "- %s: %s\n", m.Key, m.Value)
		}
	}
	if len(context) > 0 {
		b.WriteString("\n# Current Context\n")
		for _, m := range context {
			fmt.Fprintf(&b, "- %s: %s\n", m.Key, m.Value)
		}
	}
	if len(preferences) > 0 {
		b.WriteString("\n# User Preferences\n")
		for _, m := range preferences {
			verb := "User sometimes prefers:"
			if m.Confidence >= 0.7 {
				verb = "User prefers:"
			}
			fmt.Fprintf(&b, "- %s %s: %s\n", verb, m.Key, m.Value)
		}
		b.WriteString("These preferences are a guide, not a strict rule.\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeToolDescription(b *strings.Builder, schema models.ToolSchema) {
	fmt.Fprintf(b, "- %s: %s", schema.Name, schema.Description)
	props, _ := schema.Parameters["properties"].(map[string]any)
	required := requiredSet(schema.Parameters)
	if len(props) == 0 {
		b.WriteString("\n")
		return
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteString(" Parameters:")
	for _, name := range names {
		prop, _ := props[name].(map[string]any)
		tag, _ := prop["type"].(string)
		desc, _ := prop["description"].(string)
		reqTag := "optional"
		if required[name] {
			reqTag = "required"
		}
		fmt.Fprintf(b, " %s(%s, %s)", name, tag, reqTag)
		if desc != "" {
			fmt.Fprintf(b, ": %s", desc)
		}
	}
	b.WriteString("\n")
}

func requiredSet(params map[string]any) map[string]bool {
	out := map[string]bool{}
	raw, _ := params["required"].([]string)
	for _, r := range raw {
		out[r] = true
	}
	if raw == nil {
		if anyRaw, ok := params["required"].([]any); ok {
			for _, r := range anyRaw {
				if s, ok := r.(string); ok {
					out[s] = true
				}
			}
		}
	}
	return out
}
