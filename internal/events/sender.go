package events

import (
	"encoding/json"
	"time"

	"github.com/artificer-ai/artificer/internal/models"
)

// EventSender holds a request id and exposes one convenience method per
// ChatEvent variant, publishing each onto the bus with a monotonic
// sequence number and the current time. It satisfies
// internal/engine.Emitter, internal/llm.StreamSender, and the engine's
// optional error/complete interfaces.
type EventSender struct {
	bus       *Bus
	requestID string
}

// NewSender builds an EventSender bound to the bus and a request id for
// which a channel has already been created via Bus.CreateChannel.
func NewSender(bus *Bus, requestID string) *EventSender {
	return &EventSender{bus: bus, requestID: requestID}
}

func (s *EventSender) send(event models.ChatEvent) {
	event.Sequence = nextSequence()
	event.Time = time.Now()
	s.bus.SendEvent(s.requestID, event)
}

// TaskSwitch emits a TaskSwitch event.
func (s *EventSender) TaskSwitch(from, to string) {
	s.send(models.ChatEvent{Type: models.EventTaskSwitch, Task: to, FromTask: from})
}

// ToolCall emits a ToolCall event.
func (s *EventSender) ToolCall(task, tool string, args json.RawMessage) {
	s.send(models.ChatEvent{
		Type:     models.EventToolCall,
		Task:     task,
		ToolName: tool,
		ToolCall: &models.ToolCall{Function: models.FunctionCall{Name: tool, Arguments: args}},
	})
}

// ToolResult emits a ToolResult event, truncating the preview content to
// MaxToolResultPreview characters (with the truncated flag set) while
// leaving the full result for the model untouched: the caller feeds the
// untruncated string to the message history separately, this method only
// ever sees what goes on the wire.
func (s *EventSender) ToolResult(task, tool, result string) {
	preview, truncated := models.TruncatePreview(result)
	s.send(models.ChatEvent{
		Type:      models.EventToolResult,
		Task:      task,
		ToolName:  tool,
		Content:   preview,
		Truncated: truncated,
		IsError:   len(result) >= 6 && result[:6] == "Error:",
	})
}

// StreamChunk emits a StreamChunk event; also satisfies llm.StreamSender.
func (s *EventSender) StreamChunk(content string) {
	s.send(models.ChatEvent{Type: models.EventStreamChunk, Content: content})
}

// Complete emits the terminal Done event, carrying the conversation id the
// turn ran under, and cleans up the channel.
func (s *EventSender) Complete(conversationID int64) {
	s.send(models.ChatEvent{Type: models.EventDone, ConversationID: conversationID})
	s.bus.CleanupChannel(s.requestID)
}

// Error emits the terminal Error event and cleans up the channel.
func (s *EventSender) Error(message string) {
	s.send(models.ChatEvent{Type: models.EventError, Message: message, IsError: true})
	s.bus.CleanupChannel(s.requestID)
}
