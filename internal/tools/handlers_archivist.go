package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// MemoryReader is the read-only slice of the store that the Archivist's
// query_memory tool is allowed to touch: the local_data table, scoped to
// one device. Constrained to a narrow interface (rather than the full
// store) so the tool cannot reach conversations, devices, or jobs.
type MemoryReader interface {
	QueryMemory(ctx context.Context, deviceID int64, keyLike string) ([]MemoryRow, error)
}

// MemoryRow is one local_data row as returned to the model.
type MemoryRow struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

// Archivist implements the Archivist tool category: query_memory, a
// read-only lookup over a device's learned memories. Deliberately a single
// constrained query rather than free-form SQL, so the model can never
// reach past the memory table.
type Archivist struct {
	Reader MemoryReader
	// DeviceID is the fallback device scope used when the calling ctx
	// carries none (tests, or a single-device deployment); a per-call
	// device set via tools.WithDevice takes precedence.
	DeviceID int64
}

type queryMemoryArgs struct {
	KeyLike string `json:"key_like"`
}

// QueryMemory looks up memories whose key matches the given SQL LIKE
// pattern (empty pattern matches everything) and returns them as a JSON
// array.
func (a Archivist) QueryMemory(ctx context.Context, args json.RawMessage) (string, error) {
	var parsed queryMemoryArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &parsed); err != nil {
			return "", fmt.Errorf("decode query_memory args: %w", err)
		}
	}
	pattern := parsed.KeyLike
	if pattern == "" {
		pattern = "%"
	}
	deviceID := a.DeviceID
	if dc, ok := deviceFromContext(ctx); ok {
		deviceID = dc.id
	}
	rows, err := a.Reader.QueryMemory(ctx, deviceID, pattern)
	if err != nil {
		return "", fmt.Errorf("query memory: %w", err)
	}
	out, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode query_memory result: %w", err)
	}
	return string(out), nil
}

// SQLMemoryReader implements MemoryReader directly against a *sql.DB, for
// callers that want the archivist tool without depending on the full
// internal/store package.
type SQLMemoryReader struct {
	DB *sql.DB
}

// QueryMemory runs the constrained LIKE query against local_data.
func (r SQLMemoryReader) QueryMemory(ctx context.Context, deviceID int64, keyLike string) ([]MemoryRow, error) {
	keyLike = strings.ReplaceAll(keyLike, "%%", "%")
	rows, err := r.DB.QueryContext(ctx, `
		SELECT key, value, memory_type, confidence FROM local_data
		WHERE device_id = ? AND key LIKE ?
		ORDER BY confidence DESC, key ASC
	`, deviceID, keyLike)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemoryRow
	for rows.Next() {
		var m MemoryRow
		if err := rows.Scan(&m.Key, &m.Value, &m.Kind, &m.Confidence); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
