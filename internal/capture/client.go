package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Client queries the activity-capture service for OCR/audio samples.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a capture service client.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "capture").Logger(),
	}
}

// Probe checks that the capture service is reachable. Used before a tracking
// session commits to starting and by the check command.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("capture service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("capture service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Search queries samples for the half-open interval (start, end]. The
// service may return samples unsorted; callers are responsible for ordering.
func (c *Client) Search(ctx context.Context, contentType string, start, end time.Time, limit int) ([]Sample, error) {
	q := url.Values{}
	q.Set("content_type", contentType)
	q.Set("start_time", start.UTC().Format(time.RFC3339Nano))
	q.Set("end_time", end.UTC().Format(time.RFC3339Nano))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture search failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture search returned status %d", resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	samples := make([]Sample, 0, len(payload.Data))
	for _, raw := range payload.Data {
		sample, err := raw.normalize()
		if err != nil {
			c.logger.Debug().Err(err).Msg("Dropping malformed sample")
			continue
		}
		samples = append(samples, sample)
	}

	return samples, nil
}
