package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/artificer-ai/artificer/internal/models"
)

// AppendMessage inserts a message at the next m_order for its conversation,
// inside a transaction so the order-assignment read and the insert are
// atomic under sqlite's single-writer model.
func (s *Store) AppendMessage(ctx context.Context, conversationID int64, m models.Message) (models.PersistedMessage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.PersistedMessage{}, fmt.Errorf("store: append message: %w", err)
	}
	defer tx.Rollback()

	var maxOrder sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(m_order) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&maxOrder); err != nil {
		return models.PersistedMessage{}, fmt.Errorf("store: append message: next order: %w", err)
	}
	order := int64(0)
	if maxOrder.Valid {
		order = maxOrder.Int64 + 1
	}

	var toolCallsJSON sql.NullString
	if len(m.ToolCalls) > 0 {
		b, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return models.PersistedMessage{}, fmt.Errorf("store: append message: marshal tool_calls: %w", err)
		}
		toolCallsJSON = sql.NullString{String: string(b), Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, tool_calls, tool_call_id, m_order)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conversationID, m.Role, m.Content, toolCallsJSON, m.ToolCallID, order)
	if err != nil {
		return models.PersistedMessage{}, fmt.Errorf("store: append message: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.PersistedMessage{}, fmt.Errorf("store: append message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.PersistedMessage{}, fmt.Errorf("store: append message: commit: %w", err)
	}

	return models.PersistedMessage{
		ID:             id,
		ConversationID: conversationID,
		Role:           m.Role,
		Content:        m.Content,
		ToolCalls:      m.ToolCalls,
		ToolCallID:     m.ToolCallID,
		Order:          order,
	}, nil
}

// ConversationMessages returns every message for a conversation in m_order.
func (s *Store) ConversationMessages(ctx context.Context, conversationID int64) ([]models.PersistedMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, tool_calls, tool_call_id, m_order, created_at
		FROM messages WHERE conversation_id = ? ORDER BY m_order ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("store: conversation messages: %w", err)
	}
	defer rows.Close()

	var out []models.PersistedMessage
	for rows.Next() {
		var m models.PersistedMessage
		var toolCallsJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &toolCallsJSON, &m.ToolCallID, &m.Order, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: conversation messages: scan: %w", err)
		}
		if toolCallsJSON.Valid && toolCallsJSON.String != "" {
			if err := json.Unmarshal([]byte(toolCallsJSON.String), &m.ToolCalls); err != nil {
				return nil, fmt.Errorf("store: conversation messages: unmarshal tool_calls: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
