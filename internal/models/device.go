package models

import "time"

// Device is a paired envoy client, identified to the engine by DeviceKey.
type Device struct {
	ID        int64
	Name      string
	DeviceKey string
	CreatedAt time.Time
}

// Conversation is a persisted chat thread, owned by a device and currently
// positioned at TaskID (the task the next turn will route to unless a
// switch_task tool call changes it mid-turn).
type Conversation struct {
	ID        int64
	DeviceID  int64
	TaskID    int64
	Title     string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
