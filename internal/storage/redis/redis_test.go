package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/nudged/internal/config"
	"github.com/goodtune/nudged/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)

	// miniredis.Addr() returns "host:port"; Port stays 0 so the address is
	// used verbatim.
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store
}

func TestReminderStore_Upsert(t *testing.T) {
	store := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	reminders := store.Reminders()

	item := storage.ReminderItem{
		ID:          "reminder-1",
		Title:       "Finish PR",
		Description: "You opened the pull request and left without commenting.",
		CreatedAt:   time.Now().UTC(),
		App:         &storage.AppContext{AppName: "GitHub"},
		Status:      storage.StatusPending,
	}

	if err := reminders.Upsert(ctx, item); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := reminders.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != item.Title {
		t.Errorf("Title = %q, want %q", got.Title, item.Title)
	}
	if got.App == nil || got.App.AppName != "GitHub" {
		t.Errorf("App = %+v, want GitHub context", got.App)
	}
	if got.Status != storage.StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, storage.StatusPending)
	}
}

func TestReminderStore_GetMissing(t *testing.T) {
	store := setupTestStore(t)
	defer func() { _ = store.Close() }()

	_, err := store.Reminders().Get(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReminderStore_ListOrdered(t *testing.T) {
	store := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	reminders := store.Reminders()
	base := time.Now().UTC()

	offsets := map[string]time.Duration{"first": 0, "second": time.Minute, "third": 2 * time.Minute}
	for _, id := range []string{"third", "first", "second"} {
		item := storage.ReminderItem{
			ID:          id,
			Title:       id,
			Description: "ordering test reminder body",
			CreatedAt:   base.Add(offsets[id]),
			Status:      storage.StatusPending,
		}
		if err := reminders.Upsert(ctx, item); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	items, err := reminders.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "first" || items[1].ID != "second" || items[2].ID != "third" {
		t.Fatalf("wrong order: %s, %s, %s", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestReminderStore_DeleteAll(t *testing.T) {
	store := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	reminders := store.Reminders()

	for _, id := range []string{"one", "two", "three"} {
		if err := reminders.Upsert(ctx, storage.ReminderItem{
			ID: id, Title: id, Description: "clear me please", CreatedAt: time.Now(), Status: storage.StatusPending,
		}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	deleted, err := reminders.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}

	items, err := reminders.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d items", len(items))
	}
}

func TestSettingsStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	settings := store.Settings()

	if _, err := settings.Get(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first save, got %v", err)
	}

	saved := storage.Settings{
		ProviderType:      "local-model",
		Model:             "llama3.2",
		EndpointURL:       "http://localhost:11434",
		AnalysisFrequency: 2,
		NotifyFrequency:   10,
		UpdatedAt:         time.Now().UTC(),
	}
	if err := settings.Put(ctx, saved); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := settings.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ProviderType != "local-model" || got.AnalysisFrequency != 2 {
		t.Fatalf("unexpected settings: %+v", got)
	}
}
