package events

import (
	"strings"
	"testing"

	"github.com/artificer-ai/artificer/internal/models"
)

func TestEventSenderToolResultTruncation(t *testing.T) {
	b := New(nil)
	ch := b.CreateChannel("req-1")
	sender := NewSender(b, "req-1")

	long := strings.Repeat("x", models.MaxToolResultPreview+50)
	sender.ToolResult("chat", "search", long)

	ev := <-ch
	if !ev.Truncated {
		t.Error("expected Truncated = true for an oversized result")
	}
	if len(ev.Content) >= len(long) {
		t.Errorf("expected preview shorter than the original result")
	}
}

func TestEventSenderToolResultIsError(t *testing.T) {
	b := New(nil)
	ch := b.CreateChannel("req-1")
	sender := NewSender(b, "req-1")

	sender.ToolResult("chat", "search", "Error: backend timed out")
	ev := <-ch
	if !ev.IsError {
		t.Error("a result prefixed with Error: should set IsError")
	}
}

func TestEventSenderSequenceIsMonotonic(t *testing.T) {
	b := New(nil)
	ch := b.CreateChannel("req-1")
	sender := NewSender(b, "req-1")

	sender.StreamChunk("a")
	sender.StreamChunk("b")

	first := <-ch
	second := <-ch
	if second.Sequence <= first.Sequence {
		t.Errorf("expected increasing sequence numbers, got %d then %d", first.Sequence, second.Sequence)
	}
}

func TestEventSenderCompleteClosesChannel(t *testing.T) {
	b := New(nil)
	ch := b.CreateChannel("req-1")
	sender := NewSender(b, "req-1")

	sender.Complete(42)

	ev, ok := <-ch
	if !ok {
		t.Fatal("expected the Done event to be delivered before the channel closes")
	}
	if ev.Type != models.EventDone {
		t.Errorf("got %v, want EventDone", ev.Type)
	}
	if ev.ConversationID != 42 {
		t.Errorf("Done conversation_id = %d, want 42", ev.ConversationID)
	}

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Complete")
	}
}

func TestEventSenderErrorClosesChannel(t *testing.T) {
	b := New(nil)
	ch := b.CreateChannel("req-1")
	sender := NewSender(b, "req-1")

	sender.Error("invoker unreachable")

	ev := <-ch
	if ev.Type != models.EventError || !ev.IsError {
		t.Errorf("expected an IsError Error event, got %+v", ev)
	}
}
