package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/artificer-ai/artificer/internal/llm"
	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/tasks"
)

// HandlerStore is the slice of internal/store.Store the three job handlers
// need, beyond the Worker's own Store interface.
type HandlerStore interface {
	ConversationByID(ctx context.Context, id int64) (models.Conversation, error)
	ConversationMessages(ctx context.Context, conversationID int64) ([]models.PersistedMessage, error)
	TitleExists(ctx context.Context, deviceID int64, title string) (bool, error)
	SetConversationTitle(ctx context.Context, conversationID int64, title string) error
	SetConversationSummary(ctx context.Context, conversationID int64, summary string) error
	TaskIDByName(ctx context.Context, name string) (int64, error)
	UpsertMemory(ctx context.Context, m models.Memory) error
	UpsertKeyword(ctx context.Context, word string) (int64, error)
	LinkConversationKeyword(ctx context.Context, conversationID, keywordID int64) error
}

// HandlerDeps bundles what BuildHandlers needs to construct the three
// background job handlers.
type HandlerDeps struct {
	Store   HandlerStore
	Invoker *llm.Invoker // the Background execution-context invoker
	Model   string       // Quick specialist's model identifier
}

// BuildHandlers returns the per-task handler map the Worker dispatches
// background(method) values against.
func BuildHandlers(deps HandlerDeps) map[string]Handler {
	return map[string]Handler{
		models.TaskTitleGeneration:  deps.titleGeneration,
		models.TaskSummarization:    deps.summarization,
		models.TaskMemoryExtraction: deps.memoryExtraction,
	}
}

func (d HandlerDeps) invoke(ctx context.Context, taskName, userContent string) (string, error) {
	def, ok := tasks.Lookup(taskName)
	if !ok {
		return "", fmt.Errorf("jobs: unknown task %q", taskName)
	}
	messages := []models.Message{
		{Role: "system", Content: def.Instructions},
		{Role: "user", Content: userContent},
	}
	resp, err := d.Invoker.Complete(ctx, d.Model, messages, nil, false, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// --- title generation ---

type titleGenerationArgs struct {
	ConversationID int64  `json:"conversation_id"`
	UserMessage    string `json:"user_message"`
}

func (d HandlerDeps) titleGeneration(ctx context.Context, raw json.RawMessage) (string, error) {
	var args titleGenerationArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("jobs: decode title_generation args: %w", err)
	}

	generated, err := d.invoke(ctx, models.TaskTitleGeneration, args.UserMessage)
	if err != nil {
		return "", fmt.Errorf("jobs: title_generation invoke: %w", err)
	}

	conv, err := d.Store.ConversationByID(ctx, args.ConversationID)
	if err != nil {
		return "", fmt.Errorf("jobs: title_generation: load conversation: %w", err)
	}

	base := sanitizeTitle(generated)
	if base == "" {
		base = fallbackTitle(args.ConversationID)
	}
	title, err := d.uniqueTitle(ctx, conv.DeviceID, base)
	if err != nil {
		return "", fmt.Errorf("jobs: title_generation: uniqueness: %w", err)
	}

	if err := d.Store.SetConversationTitle(ctx, args.ConversationID, title); err != nil {
		return "", fmt.Errorf("jobs: title_generation: set title: %w", err)
	}
	return title, nil
}

var (
	nonWordRune  = regexp.MustCompile(`[^A-Za-z0-9_]`)
	underscoreRE = regexp.MustCompile(`_+`)
)

// sanitizeTitle keeps [A-Za-z0-9], maps whitespace and -./\ to underscore,
// collapses underscore runs, and trims leading/trailing underscores. It is
// idempotent: sanitizeTitle(sanitizeTitle(t)) == sanitizeTitle(t).
func sanitizeTitle(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			return '_'
		case r == '-' || r == '.' || r == '/' || r == '\\':
			return '_'
		default:
			return r
		}
	}, s)
	s = nonWordRune.ReplaceAllString(s, "_")
	s = underscoreRE.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// uniqueTitle finds a title for deviceID based on base, appending _<n> for
// n=1,2,...,1000 on collision, then falling back to a uuid suffix.
func (d HandlerDeps) uniqueTitle(ctx context.Context, deviceID int64, base string) (string, error) {
	exists, err := d.Store.TitleExists(ctx, deviceID, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}
	for n := 1; n <= 1000; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		exists, err := d.Store.TitleExists(ctx, deviceID, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return base + "_" + uuid.NewString(), nil
}

// fallbackTitle produces the conv_<8-hex> title used when a
// title-generation job exhausts its retries.
func fallbackTitle(conversationID int64) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "conv-%d-%s", conversationID, uuid.NewString())
	return fmt.Sprintf("conv_%08x", h.Sum32())
}

// --- summarization ---

type conversationIDArgs struct {
	ConversationID int64 `json:"conversation_id"`
}

func (d HandlerDeps) summarization(ctx context.Context, raw json.RawMessage) (string, error) {
	var args conversationIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("jobs: decode summarization args: %w", err)
	}
	messages, err := d.Store.ConversationMessages(ctx, args.ConversationID)
	if err != nil {
		return "", fmt.Errorf("jobs: summarization: load messages: %w", err)
	}

	var transcript strings.Builder
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}

	summary, err := d.invoke(ctx, models.TaskSummarization, transcript.String())
	if err != nil {
		return "", fmt.Errorf("jobs: summarization invoke: %w", err)
	}
	if err := d.Store.SetConversationSummary(ctx, args.ConversationID, summary); err != nil {
		return "", fmt.Errorf("jobs: summarization: set summary: %w", err)
	}
	return summary, nil
}

// --- memory extraction ---

type extractedMemory struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

type extractionResult struct {
	Memories []extractedMemory `json:"memories"`
	Keywords []string          `json:"keywords"`
}

func (d HandlerDeps) memoryExtraction(ctx context.Context, raw json.RawMessage) (string, error) {
	var args conversationIDArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("jobs: decode memory_extraction args: %w", err)
	}
	conv, err := d.Store.ConversationByID(ctx, args.ConversationID)
	if err != nil {
		return "", fmt.Errorf("jobs: memory_extraction: load conversation: %w", err)
	}
	messages, err := d.Store.ConversationMessages(ctx, args.ConversationID)
	if err != nil {
		return "", fmt.Errorf("jobs: memory_extraction: load messages: %w", err)
	}

	var transcript strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}

	generated, err := d.invoke(ctx, models.TaskMemoryExtraction, transcript.String())
	if err != nil {
		return "", fmt.Errorf("jobs: memory_extraction invoke: %w", err)
	}

	var extracted extractionResult
	if err := json.Unmarshal([]byte(extractJSONObject(generated)), &extracted); err != nil {
		return "", fmt.Errorf("jobs: memory_extraction: parse model output: %w", err)
	}

	generalTaskID, err := d.Store.TaskIDByName(ctx, models.GeneralTaskName)
	if err != nil {
		return "", fmt.Errorf("jobs: memory_extraction: resolve general task: %w", err)
	}
	// conv.TaskID is the task that has been driving this conversation, the
	// default scope for any extracted memory not on the general whitelist.
	convTaskID := conv.TaskID

	stored := 0
	for _, em := range extracted.Memories {
		if em.Key == "" || em.Value == "" || !validMemoryKind(em.Kind) {
			continue
		}
		taskID := convTaskID
		if models.IsGeneralMemoryKey(em.Key) {
			taskID = generalTaskID
		}
		m := models.Memory{
			DeviceID:   conv.DeviceID,
			TaskID:     taskID,
			Key:        em.Key,
			Value:      em.Value,
			Kind:       models.MemoryKind(em.Kind),
			Confidence: clampConfidence(em.Confidence),
		}
		if err := d.Store.UpsertMemory(ctx, m); err != nil {
			return "", fmt.Errorf("jobs: memory_extraction: upsert %s: %w", em.Key, err)
		}
		stored++
	}

	for _, kw := range extracted.Keywords {
		word := strings.ToLower(strings.TrimSpace(kw))
		if word == "" {
			continue
		}
		id, err := d.Store.UpsertKeyword(ctx, word)
		if err != nil {
			return "", fmt.Errorf("jobs: memory_extraction: upsert keyword %s: %w", word, err)
		}
		if err := d.Store.LinkConversationKeyword(ctx, args.ConversationID, id); err != nil {
			return "", fmt.Errorf("jobs: memory_extraction: link keyword %s: %w", word, err)
		}
	}

	return fmt.Sprintf("stored %d memories, %d keywords", stored, len(extracted.Keywords)), nil
}

func validMemoryKind(kind string) bool {
	switch models.MemoryKind(kind) {
	case models.MemoryFact, models.MemoryPreference, models.MemoryContext:
		return true
	default:
		return false
	}
}

// clampConfidence keeps a model-reported confidence within [0, 1], in case
// the model returns a value outside that range.
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// extractJSONObject trims any leading/trailing prose around the first
// top-level JSON object in s, tolerating a model that doesn't reply with
// pure JSON despite being asked to.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
