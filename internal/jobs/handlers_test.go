package jobs

import (
	"context"
	"strings"
	"testing"

	"github.com/artificer-ai/artificer/internal/models"
)

// fakeHandlerStore implements just enough of HandlerStore for the pure
// title-uniqueness logic, without needing a real database.
type fakeHandlerStore struct {
	existingTitles map[string]bool
}

func (f *fakeHandlerStore) ConversationByID(ctx context.Context, id int64) (models.Conversation, error) {
	return models.Conversation{}, nil
}
func (f *fakeHandlerStore) ConversationMessages(ctx context.Context, conversationID int64) ([]models.PersistedMessage, error) {
	return nil, nil
}
func (f *fakeHandlerStore) TitleExists(ctx context.Context, deviceID int64, title string) (bool, error) {
	return f.existingTitles[title], nil
}
func (f *fakeHandlerStore) SetConversationTitle(ctx context.Context, conversationID int64, title string) error {
	return nil
}
func (f *fakeHandlerStore) SetConversationSummary(ctx context.Context, conversationID int64, summary string) error {
	return nil
}
func (f *fakeHandlerStore) TaskIDByName(ctx context.Context, name string) (int64, error) { return 0, nil }
func (f *fakeHandlerStore) UpsertMemory(ctx context.Context, m models.Memory) error        { return nil }
func (f *fakeHandlerStore) UpsertKeyword(ctx context.Context, word string) (int64, error) { return 0, nil }
func (f *fakeHandlerStore) LinkConversationKeyword(ctx context.Context, conversationID, keywordID int64) error {
	return nil
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Deploy Notes", "Deploy_Notes"},
		{"  trimmed  ", "trimmed"},
		{"path/to-file.ext", "path_to_file_ext"},
		{"multiple___underscores", "multiple_underscores"},
		{"___leading and trailing___", "leading_and_trailing"},
		{"emoji 🎉 title", "emoji_title"},
		{"", ""},
	}
	for _, tt := range tests {
		got := sanitizeTitle(tt.raw)
		if got != tt.want {
			t.Errorf("sanitizeTitle(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSanitizeTitleIsIdempotent(t *testing.T) {
	inputs := []string{"Deploy Notes!!", "a--b..c", "___", "plain_title"}
	for _, in := range inputs {
		once := sanitizeTitle(in)
		twice := sanitizeTitle(once)
		if once != twice {
			t.Errorf("sanitizeTitle not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestUniqueTitle(t *testing.T) {
	t.Run("base is unused", func(t *testing.T) {
		d := HandlerDeps{Store: &fakeHandlerStore{existingTitles: map[string]bool{}}}
		got, err := d.uniqueTitle(context.Background(), 1, "deploy_notes")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "deploy_notes" {
			t.Errorf("got %q, want base unchanged", got)
		}
	})

	t.Run("base collides, suffix applied", func(t *testing.T) {
		d := HandlerDeps{Store: &fakeHandlerStore{existingTitles: map[string]bool{
			"deploy_notes":   true,
			"deploy_notes_1": true,
		}}}
		got, err := d.uniqueTitle(context.Background(), 1, "deploy_notes")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "deploy_notes_2" {
			t.Errorf("got %q, want deploy_notes_2", got)
		}
	})
}

func TestFallbackTitle(t *testing.T) {
	got := fallbackTitle(42)
	if !strings.HasPrefix(got, "conv_") {
		t.Errorf("fallback title %q should start with conv_", got)
	}
	if len(got) != len("conv_")+8 {
		t.Errorf("fallback title %q should be conv_ plus 8 hex chars", got)
	}
}

func TestValidMemoryKind(t *testing.T) {
	for _, k := range []string{"fact", "preference", "context"} {
		if !validMemoryKind(k) {
			t.Errorf("%q should be a valid memory kind", k)
		}
	}
	if validMemoryKind("nonsense") {
		t.Error("nonsense should not be a valid memory kind")
	}
}

func TestExtractJSONObject(t *testing.T) {
	in := "Sure, here you go:\n{\"memories\":[],\"keywords\":[]}\nLet me know if that helps."
	got := extractJSONObject(in)
	want := `{"memories":[],"keywords":[]}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractJSONObjectNoBraces(t *testing.T) {
	in := "no json here"
	if got := extractJSONObject(in); got != in {
		t.Errorf("got %q, want input returned unchanged", got)
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.2, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.5, 1},
	}
	for _, tt := range tests {
		if got := clampConfidence(tt.in); got != tt.want {
			t.Errorf("clampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
