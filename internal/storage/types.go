package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ReminderStatus represents the lifecycle state of a reminder item.
type ReminderStatus string

const (
	StatusPending   ReminderStatus = "PENDING"
	StatusCompleted ReminderStatus = "COMPLETED"
	StatusDismissed ReminderStatus = "DISMISSED"
)

// UnmarshalJSON implements json.Unmarshaler to normalize status to uppercase.
func (s *ReminderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	normalized := ReminderStatus(strings.ToUpper(raw))

	switch normalized {
	case StatusPending, StatusCompleted, StatusDismissed:
		*s = normalized
		return nil
	default:
		return fmt.Errorf("invalid reminder status: %s (must be PENDING, COMPLETED, or DISMISSED)", raw)
	}
}

// MarshalJSON implements json.Marshaler to ensure uppercase output.
func (s ReminderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// AppContext records which application a reminder was derived from.
type AppContext struct {
	AppName    string `json:"app_name"`
	WindowName string `json:"window_name,omitempty"`
}

// ReminderItem is a persisted, user-manageable to-do entry.
type ReminderItem struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	App         *AppContext    `json:"app,omitempty"`
	Status      ReminderStatus `json:"status"`
}

// Settings holds the user-editable analysis configuration. Values here
// override config file defaults once the user has saved them.
type Settings struct {
	ProviderType      string    `json:"provider_type"`
	Model             string    `json:"model"`
	EndpointURL       string    `json:"endpoint_url"`
	APIKey            string    `json:"api_key,omitempty"`
	AnalysisFrequency int       `json:"analysis_frequency_minutes"`
	NotifyFrequency   int       `json:"notification_frequency_minutes"`
	UpdatedAt         time.Time `json:"updated_at"`
}
