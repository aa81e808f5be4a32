package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChatEventType is the snake_case wire discriminant for a ChatEvent.
type ChatEventType string

const (
	EventTaskSwitch  ChatEventType = "task_switch"
	EventToolCall    ChatEventType = "tool_call"
	EventToolResult  ChatEventType = "tool_result"
	EventStreamChunk ChatEventType = "stream_chunk"
	EventDone        ChatEventType = "done"
	EventError       ChatEventType = "error"
)

// MaxToolResultPreview is the truncation length applied to a tool result's
// content before it is embedded in a ToolResult event; the full content
// still goes to the model, only the event's preview is cut.
const MaxToolResultPreview = 500

// ChatEvent is a single item in a conversation's progress feed, fanned out
// to all listeners subscribed to a request's broadcast channel. Exactly one
// of the payload fields is populated, matching the Type discriminant.
type ChatEvent struct {
	Type           ChatEventType   `json:"type"`
	Sequence       uint64          `json:"sequence"`
	Time           time.Time       `json:"time"`
	Task           string          `json:"task,omitempty"`
	FromTask       string          `json:"from,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolCall       *ToolCall       `json:"tool_call,omitempty"`
	Content        string          `json:"content,omitempty"`
	Truncated      bool            `json:"truncated,omitempty"`
	IsError        bool            `json:"is_error,omitempty"`
	Message        string          `json:"message,omitempty"`
	ConversationID int64           `json:"conversation_id,omitempty"`
	Raw            json.RawMessage `json:"-"`
}

// TruncatePreview returns s cut to MaxToolResultPreview runes plus a suffix
// summary noting how many runes were dropped, and whether truncation
// occurred. A result of exactly MaxToolResultPreview runes is untruncated;
// MaxToolResultPreview+1 is.
func TruncatePreview(s string) (string, bool) {
	r := []rune(s)
	if len(r) <= MaxToolResultPreview {
		return s, false
	}
	dropped := len(r) - MaxToolResultPreview
	return fmt.Sprintf("%s… [truncated, %d more characters]", string(r[:MaxToolResultPreview]), dropped), true
}
