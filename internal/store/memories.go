package store

import (
	"context"
	"fmt"

	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/tools"
)

// UpsertMemory inserts or updates a memory keyed on (device_id, task_id,
// key), per the extraction job's upsert-by-unique-key rule.
func (s *Store) UpsertMemory(ctx context.Context, m models.Memory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_data (device_id, task_id, key, value, memory_type, confidence)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id, task_id, key) DO UPDATE SET
			value = excluded.value,
			memory_type = excluded.memory_type,
			confidence = excluded.confidence,
			updated_at = CURRENT_TIMESTAMP
	`, m.DeviceID, m.TaskID, m.Key, m.Value, string(m.Kind), m.Confidence)
	if err != nil {
		return fmt.Errorf("store: upsert memory %s: %w", m.Key, err)
	}
	return nil
}

// MemoriesForTask returns a device's general memories plus the memories
// scoped to taskID, which is exactly the set the system-prompt builder
// needs (see internal/engine's prompt builder for ordering/grouping).
func (s *Store) MemoriesForTask(ctx context.Context, deviceID, generalTaskID, taskID int64) ([]models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, task_id, key, value, memory_type, confidence, created_at, updated_at
		FROM local_data
		WHERE device_id = ? AND (task_id = ? OR task_id = ?)
		ORDER BY task_id = ? DESC, confidence DESC, key ASC
	`, deviceID, generalTaskID, taskID, generalTaskID)
	if err != nil {
		return nil, fmt.Errorf("store: memories for task: %w", err)
	}
	defer rows.Close()

	var out []models.Memory
	for rows.Next() {
		var m models.Memory
		var kind string
		if err := rows.Scan(&m.ID, &m.DeviceID, &m.TaskID, &m.Key, &m.Value, &kind, &m.Confidence, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: memories for task: scan: %w", err)
		}
		m.Kind = models.MemoryKind(kind)
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertKeyword inserts word if absent and returns its id.
func (s *Store) UpsertKeyword(ctx context.Context, word string) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO keywords (word) VALUES (?)`, word); err != nil {
		return 0, fmt.Errorf("store: upsert keyword: %w", err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM keywords WHERE word = ?`, word).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: upsert keyword: lookup: %w", err)
	}
	return id, nil
}

// QueryMemory implements tools.MemoryReader directly against local_data, so
// the Archivist tool can be handed the Store itself rather than a separate
// *sql.DB, matching the rest of the engine's wiring.
func (s *Store) QueryMemory(ctx context.Context, deviceID int64, keyLike string) ([]tools.MemoryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, memory_type, confidence FROM local_data
		WHERE device_id = ? AND key LIKE ?
		ORDER BY confidence DESC, key ASC
	`, deviceID, keyLike)
	if err != nil {
		return nil, fmt.Errorf("store: query memory: %w", err)
	}
	defer rows.Close()

	var out []tools.MemoryRow
	for rows.Next() {
		var m tools.MemoryRow
		if err := rows.Scan(&m.Key, &m.Value, &m.Kind, &m.Confidence); err != nil {
			return nil, fmt.Errorf("store: query memory: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LinkConversationKeyword associates a keyword with a conversation.
func (s *Store) LinkConversationKeyword(ctx context.Context, conversationID, keywordID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversation_keywords (conversation_id, keyword_id) VALUES (?, ?)`,
		conversationID, keywordID)
	if err != nil {
		return fmt.Errorf("store: link conversation keyword: %w", err)
	}
	return nil
}
