// Package conversation implements the conversation manager: conversation
// creation, in-order message persistence, and follow-up background job
// enqueueing once a turn completes.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/artificer-ai/artificer/internal/models"
)

// SummarizeEvery controls how often (in assistant-message count) the
// summarization and memory-extraction jobs are re-queued for an ongoing
// conversation, so long conversations keep their summary and memory current
// without enqueueing a job after every single turn.
const SummarizeEvery = 5

// Store is the narrow slice of internal/store.Store the manager needs.
type Store interface {
	CreateConversation(ctx context.Context, deviceID, taskID int64, title string) (models.Conversation, error)
	AppendMessage(ctx context.Context, conversationID int64, m models.Message) (models.PersistedMessage, error)
	ConversationMessages(ctx context.Context, conversationID int64) ([]models.PersistedMessage, error)
	EnqueueJob(ctx context.Context, deviceID int64, method, arguments string, priority int64, maxRetries int64) (models.Job, error)
}

// Manager ties message persistence to the background jobs a completed turn
// should schedule.
type Manager struct {
	Store Store
}

// StartConversation creates a new conversation row for deviceID under
// taskID (typically the chat task), with a caller-supplied provisional
// title; the title-generation job overwrites it once it runs.
func (m *Manager) StartConversation(ctx context.Context, deviceID, taskID int64, provisionalTitle string) (models.Conversation, error) {
	return m.Store.CreateConversation(ctx, deviceID, taskID, provisionalTitle)
}

// AppendUserMessage persists a user turn.
func (m *Manager) AppendUserMessage(ctx context.Context, conversationID int64, content string) (models.PersistedMessage, error) {
	return m.Store.AppendMessage(ctx, conversationID, models.Message{Role: "user", Content: content})
}

// AppendAssistantMessage persists an assistant turn (m_order is assigned by
// the store).
func (m *Manager) AppendAssistantMessage(ctx context.Context, conversationID int64, resp models.ResponseMessage) (models.PersistedMessage, error) {
	return m.Store.AppendMessage(ctx, conversationID, resp.ToMessage())
}

// QueueFollowUpJobs enqueues title generation on the first assistant
// message of a conversation, and re-enqueues summarization plus memory
// extraction every SummarizeEvery assistant messages thereafter.
func (m *Manager) QueueFollowUpJobs(ctx context.Context, deviceID, conversationID int64, isFirstAssistantMessage bool) error {
	messages, err := m.Store.ConversationMessages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("conversation: load messages: %w", err)
	}

	assistantCount := 0
	var firstUserMessage string
	for _, msg := range messages {
		if msg.Role == "assistant" {
			assistantCount++
		}
		if msg.Role == "user" && firstUserMessage == "" {
			firstUserMessage = msg.Content
		}
	}

	if isFirstAssistantMessage || assistantCount == 1 {
		if err := m.enqueueTitleGeneration(ctx, deviceID, conversationID, firstUserMessage); err != nil {
			return err
		}
	}

	if assistantCount%SummarizeEvery == 0 {
		if err := m.enqueueSummarization(ctx, deviceID, conversationID); err != nil {
			return err
		}
		if err := m.enqueueMemoryExtraction(ctx, deviceID, conversationID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) enqueueTitleGeneration(ctx context.Context, deviceID, conversationID int64, userMessage string) error {
	args, err := json.Marshal(map[string]any{
		"conversation_id": conversationID,
		"user_message":    userMessage,
	})
	if err != nil {
		return fmt.Errorf("conversation: marshal title_generation args: %w", err)
	}
	_, err = m.Store.EnqueueJob(ctx, deviceID, models.TaskTitleGeneration, string(args), 5, 3)
	if err != nil {
		return fmt.Errorf("conversation: enqueue title_generation: %w", err)
	}
	return nil
}

func (m *Manager) enqueueSummarization(ctx context.Context, deviceID, conversationID int64) error {
	args, err := json.Marshal(map[string]any{"conversation_id": conversationID})
	if err != nil {
		return fmt.Errorf("conversation: marshal summarization args: %w", err)
	}
	_, err = m.Store.EnqueueJob(ctx, deviceID, models.TaskSummarization, string(args), 1, 3)
	if err != nil {
		return fmt.Errorf("conversation: enqueue summarization: %w", err)
	}
	return nil
}

func (m *Manager) enqueueMemoryExtraction(ctx context.Context, deviceID, conversationID int64) error {
	args, err := json.Marshal(map[string]any{"conversation_id": conversationID})
	if err != nil {
		return fmt.Errorf("conversation: marshal memory_extraction args: %w", err)
	}
	_, err = m.Store.EnqueueJob(ctx, deviceID, models.TaskMemoryExtraction, string(args), 1, 3)
	if err != nil {
		return fmt.Errorf("conversation: enqueue memory_extraction: %w", err)
	}
	return nil
}
