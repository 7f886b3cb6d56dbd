package redis

import (
	"context"
	"time"

	"github.com/goodtune/nudged/internal/storage"
	"github.com/redis/go-redis/v9"
)

type settingsStore struct {
	client *redis.Client
}

const settingsKey = "nudged:settings"

func (s *settingsStore) Get(ctx context.Context) (*storage.Settings, error) {
	data, err := s.client.HGetAll(ctx, settingsKey).Result()
	if err != nil {
		return nil, err
	}
	return parseSettings(data)
}

func (s *settingsStore) Put(ctx context.Context, settings storage.Settings) error {
	return s.client.HSet(ctx, settingsKey, map[string]interface{}{
		"provider_type":                  settings.ProviderType,
		"model":                          settings.Model,
		"endpoint_url":                   settings.EndpointURL,
		"api_key":                        settings.APIKey,
		"analysis_frequency_minutes":     settings.AnalysisFrequency,
		"notification_frequency_minutes": settings.NotifyFrequency,
		"updated_at":                     settings.UpdatedAt.Format(time.RFC3339Nano),
	}).Err()
}
