package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artificer-ai/artificer/internal/conversation"
	"github.com/artificer-ai/artificer/internal/logging"
	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/store"
)

// Store is the narrow slice of internal/store.Store the chat entry point
// needs: device lookup, conversation resolution, and the task-id/memory
// lookups the Driver threads through. Message persistence goes through
// Conversations, not through this interface.
type Store interface {
	MemorySource
	TaskIDs
	DeviceByKey(ctx context.Context, deviceKey string) (models.Device, error)
	ConversationByID(ctx context.Context, id int64) (models.Conversation, error)
}

var _ Store = (*store.Store)(nil)

// Conversations is the Conversation Manager contract the chat entry point
// drives: conversation creation, in-order message persistence, and
// follow-up background job enqueueing. internal/conversation.Manager
// satisfies it.
type Conversations interface {
	StartConversation(ctx context.Context, deviceID, taskID int64, provisionalTitle string) (models.Conversation, error)
	AppendUserMessage(ctx context.Context, conversationID int64, content string) (models.PersistedMessage, error)
	AppendAssistantMessage(ctx context.Context, conversationID int64, resp models.ResponseMessage) (models.PersistedMessage, error)
	QueueFollowUpJobs(ctx context.Context, deviceID, conversationID int64, isFirstAssistantMessage bool) error
}

var _ Conversations = (*conversation.Manager)(nil)

// Engine is the chat entry point: persist the user message, run the
// router, run the pipeline, persist the assistant message, queue follow-up
// jobs, emit Done.
type Engine struct {
	Store         Store
	Driver        *Driver
	Conversations Conversations
	Logger        *slog.Logger
}

func (e *Engine) logger() *slog.Logger {
	return logging.OrDefault(e.Logger)
}

// ChatRequest is one inbound turn from the envoy client.
type ChatRequest struct {
	DeviceID       int64
	DeviceKey      string
	ConversationID int64 // 0 means "start a new conversation"
	Message        string
	RequestID      string
}

// ChatResult is what the entry point hands back to the transport once the
// turn has fully run (the transport itself streams events as they occur
// via the Emitter passed to Chat; this is the terminal summary).
type ChatResult struct {
	ConversationID int64
	Content        string
}

// Chat runs one full turn: persist the user message, plan a pipeline via
// the router, drive it to completion, persist the assistant message, queue
// follow-up jobs, and emit the terminal event. emitter may be nil.
func (e *Engine) Chat(ctx context.Context, req ChatRequest, emitter Emitter) (ChatResult, error) {
	emitter = emitterOrStdout(emitter)

	// Every failure path must end the request with a terminal Error event so
	// the subscriber's channel is cleaned up rather than left to time out.
	fail := func(err error) (ChatResult, error) {
		emitterError(emitter, err)
		return ChatResult{}, err
	}

	device, err := e.Store.DeviceByKey(ctx, req.DeviceKey)
	if err != nil {
		return fail(fmt.Errorf("engine: authenticate device: %w", err))
	}
	if device.ID != req.DeviceID {
		return fail(fmt.Errorf("engine: device key does not match device id"))
	}

	conv, isNew, err := e.resolveConversation(ctx, req)
	if err != nil {
		return fail(err)
	}

	if _, err := e.Conversations.AppendUserMessage(ctx, conv.ID, req.Message); err != nil {
		return fail(fmt.Errorf("engine: persist user message: %w", err))
	}

	steps := e.Driver.PlanPipeline(ctx, req.Message, req.DeviceID, req.DeviceKey, emitter)
	resp, err := e.Driver.Run(ctx, steps, req.DeviceID, req.DeviceKey, emitter)
	if err != nil {
		return fail(err)
	}

	if _, err := e.Conversations.AppendAssistantMessage(ctx, conv.ID, resp); err != nil {
		return fail(fmt.Errorf("engine: persist assistant message: %w", err))
	}

	if err := e.Conversations.QueueFollowUpJobs(ctx, req.DeviceID, conv.ID, isNew); err != nil {
		e.logger().Warn("queue follow-up jobs failed", "conversation_id", conv.ID, "error", err)
	}

	emitterComplete(emitter, conv.ID)
	return ChatResult{ConversationID: conv.ID, Content: resp.Content}, nil
}

func (e *Engine) resolveConversation(ctx context.Context, req ChatRequest) (models.Conversation, bool, error) {
	if req.ConversationID != 0 {
		conv, err := e.Store.ConversationByID(ctx, req.ConversationID)
		if err != nil {
			return models.Conversation{}, false, fmt.Errorf("engine: load conversation: %w", err)
		}
		return conv, false, nil
	}
	chatTaskID, err := e.Store.TaskIDByName(ctx, models.TaskChat)
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("engine: resolve chat task id: %w", err)
	}
	conv, err := e.Conversations.StartConversation(ctx, req.DeviceID, chatTaskID, provisionalTitle(req.Message))
	if err != nil {
		return models.Conversation{}, false, fmt.Errorf("engine: create conversation: %w", err)
	}
	return conv, true, nil
}

// provisionalTitle gives a new conversation a placeholder title; the
// title-generation background job overwrites it once it runs.
func provisionalTitle(message string) string {
	r := []rune(message)
	if len(r) > 48 {
		return string(r[:48])
	}
	if len(r) == 0 {
		return "untitled"
	}
	return message
}

// emitterError emits an Error event if the emitter supports it; Emitter
// itself does not expose error/complete (those are request-terminal
// concerns owned by internal/events.EventSender), so callers that need them
// type-assert to a richer interface.
type errorEmitter interface {
	Error(message string)
}

func emitterError(e Emitter, err error) {
	if ee, ok := e.(errorEmitter); ok {
		ee.Error(err.Error())
	}
}

type completeEmitter interface {
	Complete(conversationID int64)
}

func emitterComplete(e Emitter, conversationID int64) {
	if ce, ok := e.(completeEmitter); ok {
		ce.Complete(conversationID)
	}
}
