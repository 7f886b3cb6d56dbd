package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/nudged/internal/storage"
)

// parseReminderItem converts a Redis hash to a ReminderItem.
func parseReminderItem(data map[string]string) (*storage.ReminderItem, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	createdAt, err := time.Parse(time.RFC3339Nano, data["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	item := &storage.ReminderItem{
		ID:          data["id"],
		Title:       data["title"],
		Description: data["description"],
		CreatedAt:   createdAt,
		Status:      storage.ReminderStatus(data["status"]),
	}

	if appName, ok := data["app_name"]; ok && appName != "" {
		item.App = &storage.AppContext{
			AppName:    appName,
			WindowName: data["window_name"],
		}
	}

	return item, nil
}

// parseSettings converts a Redis hash to Settings.
func parseSettings(data map[string]string) (*storage.Settings, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	analysisFreq, err := strconv.Atoi(data["analysis_frequency_minutes"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis_frequency_minutes: %w", err)
	}

	notifyFreq, err := strconv.Atoi(data["notification_frequency_minutes"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification_frequency_minutes: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &storage.Settings{
		ProviderType:      data["provider_type"],
		Model:             data["model"],
		EndpointURL:       data["endpoint_url"],
		APIKey:            data["api_key"],
		AnalysisFrequency: analysisFreq,
		NotifyFrequency:   notifyFreq,
		UpdatedAt:         updatedAt,
	}, nil
}
