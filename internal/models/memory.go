package models

import "time"

// MemoryKind classifies a learned memory.
type MemoryKind string

const (
	MemoryFact       MemoryKind = "fact"
	MemoryPreference MemoryKind = "preference"
	MemoryContext    MemoryKind = "context"
)

// Memory is a single device-scoped learned fact, unique on
// (device_id, task_id, key). A memory whose TaskID is the general task's id
// is "general" and is included in every task's system prompt; all others
// are scoped to the task that produced them.
type Memory struct {
	ID         int64
	DeviceID   int64
	TaskID     int64
	Key        string
	Value      string
	Kind       MemoryKind
	Confidence float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GeneralMemoryKeys are the keys routed to the general task (TaskID == the
// general task's id) instead of the task that discovered them, because
// they describe the device rather than any one conversation.
var GeneralMemoryKeys = map[string]bool{
	"operating_system": true,
	"home_directory":   true,
	"user_name":        true,
	"timezone":         true,
	"shell":            true,
	"editor":           true,
}

// IsGeneralMemoryKey reports whether key belongs to the general-memory
// whitelist.
func IsGeneralMemoryKey(key string) bool {
	return GeneralMemoryKeys[key]
}

// Keyword is a lowercase, trimmed tag extracted from a conversation and
// linked to it via conversation_keywords.
type Keyword struct {
	ID   int64
	Word string
}
