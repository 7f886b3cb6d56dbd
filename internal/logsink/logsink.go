// Package logsink forwards app-switch events to an external collector.
// Delivery is best effort: failures are logged and dropped, never retried.
package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Event is a single app-switch observation.
type Event struct {
	Timestamp  int64  `json:"timestamp"` // epoch millis
	App        string `json:"app"`
	WindowName string `json:"windowName"`
}

// Sink posts events to a collector endpoint.
type Sink struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// New creates a sink for the given endpoint. An empty endpoint returns nil
// and callers treat a nil sink as disabled.
func New(endpoint string, timeout time.Duration, logger zerolog.Logger) *Sink {
	if endpoint == "" {
		return nil
	}
	return &Sink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "logsink").Logger(),
	}
}

// Send posts one event. A nil sink drops the event silently.
func (s *Sink) Send(ctx context.Context, ev Event) {
	if s == nil {
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode app-switch event")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build app-switch request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("App-switch event delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn().
			Int("status", resp.StatusCode).
			Str("app", ev.App).
			Msg("Collector rejected app-switch event")
	}
}
