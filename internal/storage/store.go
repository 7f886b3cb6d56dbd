package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Reminders() ReminderStore
	Settings() SettingsStore
}

// ReminderStore persists the reminder list. The in-memory manager is the
// source of truth while the process runs; the store is rewritten on every
// mutation and read back at startup.
type ReminderStore interface {
	Upsert(ctx context.Context, item ReminderItem) error
	Get(ctx context.Context, id string) (*ReminderItem, error)
	List(ctx context.Context) ([]ReminderItem, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
}

// SettingsStore persists user-editable analysis settings.
type SettingsStore interface {
	Get(ctx context.Context) (*Settings, error)
	Put(ctx context.Context, settings Settings) error
}
