package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/artificer-ai/artificer/internal/models"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("store: not found")

// DeviceByKey looks up a device by its device_key, used to authenticate an
// envoy client both on the chat entry point and on remote tool execution.
func (s *Store) DeviceByKey(ctx context.Context, deviceKey string) (models.Device, error) {
	var d models.Device
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, device_key, created_at FROM devices WHERE device_key = ?`, deviceKey)
	if err := row.Scan(&d.ID, &d.Name, &d.DeviceKey, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, ErrNotFound
		}
		return d, fmt.Errorf("store: device by key: %w", err)
	}
	return d, nil
}

// CreateDevice registers a new device.
func (s *Store) CreateDevice(ctx context.Context, name, deviceKey string) (models.Device, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (name, device_key) VALUES (?, ?)`, name, deviceKey)
	if err != nil {
		return models.Device{}, fmt.Errorf("store: create device: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Device{}, fmt.Errorf("store: create device: %w", err)
	}
	return s.DeviceByID(ctx, id)
}

// DeviceByID looks up a device by its primary key.
func (s *Store) DeviceByID(ctx context.Context, id int64) (models.Device, error) {
	var d models.Device
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, device_key, created_at FROM devices WHERE id = ?`, id)
	if err := row.Scan(&d.ID, &d.Name, &d.DeviceKey, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, ErrNotFound
		}
		return d, fmt.Errorf("store: device by id: %w", err)
	}
	return d, nil
}
