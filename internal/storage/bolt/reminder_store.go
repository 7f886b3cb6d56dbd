package bolt

import (
	"context"
	"sort"

	"github.com/goodtune/nudged/internal/storage"
	"go.etcd.io/bbolt"
)

type reminderStore struct {
	db *bbolt.DB
}

func (s *reminderStore) Upsert(ctx context.Context, item storage.ReminderItem) error {
	return putBucketValue(ctx, s.db, bucketReminders, item.ID, item)
}

func (s *reminderStore) Get(ctx context.Context, id string) (*storage.ReminderItem, error) {
	return getBucketValue[storage.ReminderItem](ctx, s.db, bucketReminders, id)
}

func (s *reminderStore) List(ctx context.Context) ([]storage.ReminderItem, error) {
	items, err := listBucket[storage.ReminderItem](ctx, s.db, bucketReminders)
	if err != nil {
		return nil, err
	}
	// ULID keys already sort by creation, but the bucket iteration order is
	// byte-wise; keep the explicit sort so mixed-source IDs stay stable.
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *reminderStore) Delete(ctx context.Context, id string) error {
	return deleteBucketValue(ctx, s.db, bucketReminders, id)
}

func (s *reminderStore) DeleteAll(ctx context.Context) (int, error) {
	deleted := 0
	return deleted, s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketReminders))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
}
