package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artificer-ai/artificer/internal/models"
)

// CreateConversation inserts a new conversation. Callers are responsible
// for ensuring title uniqueness within the device (see
// internal/jobs for the sanitize/uniqueness algorithm); a
// collision here surfaces as a wrapped sqlite UNIQUE constraint error.
func (s *Store) CreateConversation(ctx context.Context, deviceID, taskID int64, title string) (models.Conversation, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (device_id, task_id, title) VALUES (?, ?, ?)`,
		deviceID, taskID, title)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("store: create conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Conversation{}, fmt.Errorf("store: create conversation: %w", err)
	}
	return s.ConversationByID(ctx, id)
}

// ConversationByID looks up a conversation by its primary key.
func (s *Store) ConversationByID(ctx context.Context, id int64) (models.Conversation, error) {
	var c models.Conversation
	row := s.db.QueryRowContext(ctx,
		`SELECT id, device_id, task_id, title, summary, created_at, updated_at FROM conversations WHERE id = ?`, id)
	if err := row.Scan(&c.ID, &c.DeviceID, &c.TaskID, &c.Title, &c.Summary, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, ErrNotFound
		}
		return c, fmt.Errorf("store: conversation by id: %w", err)
	}
	return c, nil
}

// TitleExists reports whether a conversation with title already exists for
// deviceID, the exact check the title-uniqueness algorithm needs before
// trying an insert.
func (s *Store) TitleExists(ctx context.Context, deviceID int64, title string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE device_id = ? AND title = ?`, deviceID, title).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: title exists: %w", err)
	}
	return n > 0, nil
}

// SetConversationTitle updates a conversation's title, used by the
// title-generation background job.
func (s *Store) SetConversationTitle(ctx context.Context, conversationID int64, title string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, conversationID)
	if err != nil {
		return fmt.Errorf("store: set conversation title: %w", err)
	}
	return nil
}

// SetConversationSummary updates a conversation's summary, used by the
// summarization background job.
func (s *Store) SetConversationSummary(ctx context.Context, conversationID int64, summary string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET summary = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		summary, conversationID)
	if err != nil {
		return fmt.Errorf("store: set conversation summary: %w", err)
	}
	return nil
}
