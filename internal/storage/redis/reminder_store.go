package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/nudged/internal/storage"
	"github.com/redis/go-redis/v9"
)

type reminderStore struct {
	client *redis.Client
}

const reminderIndexKey = "nudged:reminders:all"

func reminderKey(id string) string {
	return fmt.Sprintf("nudged:reminder:%s", id)
}

// Upsert creates or updates a reminder item. The item hash and the index
// set must stay consistent, so both writes run in a single pipeline.
func (s *reminderStore) Upsert(ctx context.Context, item storage.ReminderItem) error {
	fields := map[string]interface{}{
		"id":          item.ID,
		"title":       item.Title,
		"description": item.Description,
		"created_at":  item.CreatedAt.Format(time.RFC3339Nano),
		"status":      string(item.Status),
	}
	if item.App != nil {
		fields["app_name"] = item.App.AppName
		fields["window_name"] = item.App.WindowName
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, reminderKey(item.ID), fields)
	pipe.ZAdd(ctx, reminderIndexKey, redis.Z{
		Score:  float64(item.CreatedAt.UnixNano()),
		Member: item.ID,
	})
	_, err := pipe.Exec(ctx)
	return err
}

func (s *reminderStore) Get(ctx context.Context, id string) (*storage.ReminderItem, error) {
	data, err := s.client.HGetAll(ctx, reminderKey(id)).Result()
	if err != nil {
		return nil, err
	}
	return parseReminderItem(data)
}

func (s *reminderStore) List(ctx context.Context) ([]storage.ReminderItem, error) {
	ids, err := s.client.ZRange(ctx, reminderIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	items := make([]storage.ReminderItem, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.HGetAll(ctx, reminderKey(id)).Result()
		if err != nil {
			return nil, err
		}
		item, err := parseReminderItem(data)
		if err != nil {
			// Index entry without a hash; skip rather than fail the listing.
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

func (s *reminderStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, reminderKey(id))
	pipe.ZRem(ctx, reminderIndexKey, id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *reminderStore) DeleteAll(ctx context.Context) (int, error) {
	ids, err := s.client.ZRange(ctx, reminderIndexKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, reminderKey(id))
	}
	pipe.Del(ctx, reminderIndexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(ids), nil
}
