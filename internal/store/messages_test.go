package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/artificer-ai/artificer/internal/models"
)

func TestStore_AppendMessage_NoPriorMessages(t *testing.T) {
	s, mock := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT MAX\\(m_order\\) FROM messages WHERE conversation_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(int64(1), "user", "hi", nil, "", int64(0)).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	pm, err := s.AppendMessage(context.Background(), 1, models.Message{Role: "user", Content: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pm.ID != 5 || pm.Order != 0 {
		t.Errorf("got %+v", pm)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_AppendMessage_IncrementsOrderAndMarshalsToolCalls(t *testing.T) {
	s, mock := setupMockStore(t)

	toolCalls := []models.ToolCall{{ID: "tc1", Function: models.FunctionCall{Name: "search", Arguments: json.RawMessage(`{}`)}}}
	toolCallsJSON, _ := json.Marshal(toolCalls)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT MAX\\(m_order\\) FROM messages WHERE conversation_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(2)))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(int64(1), "assistant", "", string(toolCallsJSON), "", int64(3)).
		WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectCommit()

	pm, err := s.AppendMessage(context.Background(), 1, models.Message{Role: "assistant", ToolCalls: toolCalls})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pm.Order != 3 {
		t.Errorf("Order = %d, want 3", pm.Order)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_ConversationMessages(t *testing.T) {
	s, mock := setupMockStore(t)
	now := time.Now()

	toolCalls := []models.ToolCall{{ID: "tc1", Function: models.FunctionCall{Name: "search", Arguments: json.RawMessage(`{}`)}}}
	toolCallsJSON, _ := json.Marshal(toolCalls)

	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "tool_calls", "tool_call_id", "m_order", "created_at"}).
		AddRow(int64(1), int64(9), "user", "hi", nil, "", int64(0), now).
		AddRow(int64(2), int64(9), "assistant", "", string(toolCallsJSON), "", int64(1), now)
	mock.ExpectQuery("SELECT id, conversation_id, role, content, tool_calls, tool_call_id, m_order, created_at FROM messages WHERE conversation_id").
		WithArgs(int64(9)).
		WillReturnRows(rows)

	msgs, err := s.ConversationMessages(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "hi" {
		t.Errorf("msgs[0].Content = %q", msgs[0].Content)
	}
	if len(msgs[1].ToolCalls) != 1 || msgs[1].ToolCalls[0].Function.Name != "search" {
		t.Errorf("msgs[1].ToolCalls = %+v", msgs[1].ToolCalls)
	}
}

func TestStore_ConversationMessages_Empty(t *testing.T) {
	s, mock := setupMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "tool_calls", "tool_call_id", "m_order", "created_at"})
	mock.ExpectQuery("SELECT id, conversation_id, role, content, tool_calls, tool_call_id, m_order, created_at FROM messages WHERE conversation_id").
		WithArgs(int64(42)).
		WillReturnRows(rows)

	msgs, err := s.ConversationMessages(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages, want 0", len(msgs))
	}
}
