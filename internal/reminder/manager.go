// Package reminder owns the reminder list. The manager holds the working
// copy in memory and rewrites the backing store on every mutation; the store
// is read back once at startup.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goodtune/nudged/internal/metrics"
	"github.com/goodtune/nudged/internal/storage"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Manager manages reminder items.
type Manager struct {
	store  storage.ReminderStore
	items  map[string]storage.ReminderItem
	logger zerolog.Logger
	mu     sync.RWMutex
}

// NewManager creates a manager and loads persisted reminders.
func NewManager(ctx context.Context, store storage.ReminderStore, logger zerolog.Logger) (*Manager, error) {
	m := &Manager{
		store:  store,
		items:  make(map[string]storage.ReminderItem),
		logger: logger.With().Str("component", "reminders").Logger(),
	}

	persisted, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted reminders: %w", err)
	}
	for _, item := range persisted {
		m.items[item.ID] = item
	}

	metrics.RemindersActive.Set(float64(m.countPending()))

	m.logger.Info().Int("count", len(persisted)).Msg("Loaded persisted reminders")
	return m, nil
}

// NewItem constructs a pending reminder item with a fresh ID.
func NewItem(title, description string, app *storage.AppContext) storage.ReminderItem {
	return storage.ReminderItem{
		ID:          ulid.Make().String(),
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		App:         app,
		Status:      storage.StatusPending,
	}
}

// Add appends a reminder item and persists it.
func (m *Manager) Add(ctx context.Context, item storage.ReminderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == "" {
		item.ID = ulid.Make().String()
	}
	if item.Status == "" {
		item.Status = storage.StatusPending
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	if _, exists := m.items[item.ID]; exists {
		return fmt.Errorf("duplicate reminder id: %s", item.ID)
	}

	if err := m.store.Upsert(ctx, item); err != nil {
		return fmt.Errorf("persist reminder: %w", err)
	}
	m.items[item.ID] = item
	metrics.RemindersActive.Set(float64(m.countPendingLocked()))

	m.logger.Info().
		Str("id", item.ID).
		Str("title", item.Title).
		Msg("Reminder added")
	return nil
}

// MarkCompleted transitions a reminder to completed. Unknown ids are a no-op.
func (m *Manager) MarkCompleted(ctx context.Context, id string) error {
	return m.setStatus(ctx, id, storage.StatusCompleted)
}

// Dismiss transitions a reminder to dismissed. Unknown ids are a no-op.
func (m *Manager) Dismiss(ctx context.Context, id string) error {
	return m.setStatus(ctx, id, storage.StatusDismissed)
}

func (m *Manager) setStatus(ctx context.Context, id string, status storage.ReminderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.items[id]
	if !exists {
		return nil
	}

	item.Status = status
	if err := m.store.Upsert(ctx, item); err != nil {
		return fmt.Errorf("persist reminder status: %w", err)
	}
	m.items[id] = item
	metrics.RemindersActive.Set(float64(m.countPendingLocked()))
	return nil
}

// Delete removes a reminder. Unknown ids are a no-op.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[id]; !exists {
		return nil
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	delete(m.items, id)
	metrics.RemindersActive.Set(float64(m.countPendingLocked()))
	return nil
}

// Clear removes all reminders.
func (m *Manager) Clear(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted, err := m.store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear reminders: %w", err)
	}
	cleared := len(m.items)
	m.items = make(map[string]storage.ReminderItem)
	metrics.RemindersActive.Set(0)

	m.logger.Info().Int("persisted", deleted).Int("in_memory", cleared).Msg("Cleared reminders")
	return cleared, nil
}

// List returns all reminders ordered by creation time.
func (m *Manager) List() []storage.ReminderItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]storage.ReminderItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

// Get returns a reminder by id.
func (m *Manager) Get(id string) (storage.ReminderItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, exists := m.items[id]
	return item, exists
}

func (m *Manager) countPending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countPendingLocked()
}

func (m *Manager) countPendingLocked() int {
	count := 0
	for _, item := range m.items {
		if item.Status == storage.StatusPending {
			count++
		}
	}
	return count
}
