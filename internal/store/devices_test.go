package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{db: db}, mock
}

func TestStore_DeviceByKey(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		deviceKey   string
		setupMock   func(sqlmock.Sqlmock)
		wantErr     error
		wantName    string
		errContains string
	}{
		{
			name:      "found",
			deviceKey: "abc123",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name", "device_key", "created_at"}).
					AddRow(int64(1), "my-laptop", "abc123", now)
				mock.ExpectQuery("SELECT id, name, device_key, created_at FROM devices WHERE device_key").
					WithArgs("abc123").
					WillReturnRows(rows)
			},
			wantName: "my-laptop",
		},
		{
			name:      "not found",
			deviceKey: "missing",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, name, device_key, created_at FROM devices WHERE device_key").
					WithArgs("missing").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name:      "database error",
			deviceKey: "abc123",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, name, device_key, created_at FROM devices WHERE device_key").
					WithArgs("abc123").
					WillReturnError(errors.New("connection refused"))
			},
			errContains: "device by key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := setupMockStore(t)
			tt.setupMock(mock)

			d, err := s.DeviceByKey(context.Background(), tt.deviceKey)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if tt.errContains != "" {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", d.Name, tt.wantName)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestStore_CreateDevice(t *testing.T) {
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		s, mock := setupMockStore(t)
		mock.ExpectExec("INSERT INTO devices").
			WithArgs("my-laptop", "abc123").
			WillReturnResult(sqlmock.NewResult(7, 1))
		rows := sqlmock.NewRows([]string{"id", "name", "device_key", "created_at"}).
			AddRow(int64(7), "my-laptop", "abc123", now)
		mock.ExpectQuery("SELECT id, name, device_key, created_at FROM devices WHERE id").
			WithArgs(int64(7)).
			WillReturnRows(rows)

		d, err := s.CreateDevice(context.Background(), "my-laptop", "abc123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.ID != 7 {
			t.Errorf("ID = %d, want 7", d.ID)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("insert fails", func(t *testing.T) {
		s, mock := setupMockStore(t)
		mock.ExpectExec("INSERT INTO devices").
			WillReturnError(errors.New("unique constraint"))

		_, err := s.CreateDevice(context.Background(), "dup", "abc123")
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
