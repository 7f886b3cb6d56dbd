// Package notify posts a periodic digest of pending reminders to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/nudged/internal/reminder"
	"github.com/goodtune/nudged/internal/storage"
)

// Digest is the webhook payload.
type Digest struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Pending     int                    `json:"pending"`
	Reminders   []storage.ReminderItem `json:"reminders"`
}

// Notifier delivers pending-reminder digests on a fixed cadence.
type Notifier struct {
	webhookURL string
	interval   time.Duration
	reminders  *reminder.Manager
	client     *http.Client
	logger     zerolog.Logger
}

// New creates a notifier. An empty webhook URL returns nil; callers treat a
// nil notifier as disabled.
func New(webhookURL string, interval time.Duration, reminders *reminder.Manager, logger zerolog.Logger) *Notifier {
	if webhookURL == "" {
		return nil
	}
	return &Notifier{
		webhookURL: webhookURL,
		interval:   interval,
		reminders:  reminders,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "notify").Logger(),
	}
}

// Run delivers digests until the context is cancelled. A nil notifier
// returns immediately. Delivery failures are logged and skipped.
func (n *Notifier) Run(ctx context.Context) {
	if n == nil {
		return
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	n.logger.Info().Dur("interval", n.interval).Msg("Notifier started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.deliver(ctx)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context) {
	pending := make([]storage.ReminderItem, 0)
	for _, item := range n.reminders.List() {
		if item.Status == storage.StatusPending {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return
	}

	digest := Digest{
		GeneratedAt: time.Now().UTC(),
		Pending:     len(pending),
		Reminders:   pending,
	}
	body, err := json.Marshal(digest)
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to encode digest")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to build digest request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn().Err(err).Msg("Digest delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn().Int("status", resp.StatusCode).Msg("Webhook rejected digest")
		return
	}
	n.logger.Debug().Int("pending", len(pending)).Msg("Digest delivered")
}
