// Package tracker runs the activity session: it polls the capture service on
// a fixed cadence, batches samples, and periodically turns a batch into
// reminder suggestions through the analysis provider.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/goodtune/nudged/internal/capture"
	"github.com/goodtune/nudged/internal/extract"
	"github.com/goodtune/nudged/internal/logsink"
	"github.com/goodtune/nudged/internal/metrics"
	"github.com/goodtune/nudged/internal/policy"
	"github.com/goodtune/nudged/internal/prompt"
	"github.com/goodtune/nudged/internal/reminder"
	"github.com/goodtune/nudged/internal/storage"
)

// ErrCaptureUnreachable is returned by Start when the capture service probe
// fails. The session stays idle.
var ErrCaptureUnreachable = errors.New("activity capture service unreachable")

// Config holds the session controller settings.
type Config struct {
	ContentType      string
	SampleLimit      int
	PollInterval     time.Duration
	AnalysisInterval time.Duration
	DedupCacheSize   int
}

// Status is a snapshot of the session state.
type Status struct {
	Tracking      bool       `json:"tracking"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	LastPolledAt  *time.Time `json:"last_polled_at,omitempty"`
	QueueDepth    int        `json:"queue_depth"`
	CurrentApp    string     `json:"current_app,omitempty"`
	CurrentWindow string     `json:"current_window,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// Analyzer is the slice of the analysis client the tracker needs.
type Analyzer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Searcher is the slice of the capture client the tracker needs.
type Searcher interface {
	Probe(ctx context.Context) error
	Search(ctx context.Context, contentType string, start, end time.Time, limit int) ([]capture.Sample, error)
}

// Tracker is the polling and batching state machine. It is Idle until
// Start succeeds and Idle again after Stop; reminders survive both.
type Tracker struct {
	cfg       Config
	capture   Searcher
	builder   *prompt.Builder
	parser    *extract.Parser
	gate      policy.Gate
	reminders *reminder.Manager
	sink      *logsink.Sink
	clock     Clock
	logger    zerolog.Logger

	mu            sync.Mutex
	tracking      bool
	generation    uint64
	analyzer      Analyzer
	startedAt     time.Time
	lastPolledAt  time.Time
	queue         []capture.Sample
	currentApp    string
	currentWindow string
	lastErr       error
	cancel        context.CancelFunc

	dedup *lru.Cache[string, struct{}]
}

// New creates an idle tracker.
func New(
	cfg Config,
	captureClient Searcher,
	builder *prompt.Builder,
	analyzer Analyzer,
	parser *extract.Parser,
	gate policy.Gate,
	reminders *reminder.Manager,
	sink *logsink.Sink,
	clock Clock,
	logger zerolog.Logger,
) (*Tracker, error) {
	if gate == nil {
		gate = policy.AllowAll{}
	}
	if clock == nil {
		clock = RealClock{}
	}

	dedup, err := lru.New[string, struct{}](cfg.DedupCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}

	return &Tracker{
		cfg:       cfg,
		capture:   captureClient,
		builder:   builder,
		analyzer:  analyzer,
		parser:    parser,
		gate:      gate,
		reminders: reminders,
		sink:      sink,
		clock:     clock,
		logger:    logger.With().Str("component", "tracker").Logger(),
		dedup:     dedup,
	}, nil
}

// Start transitions the session from Idle to Tracking. It probes the capture
// service first and stays Idle on failure. Calling Start while already
// tracking is a no-op.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tracking {
		t.logger.Debug().Msg("Start ignored, already tracking")
		return nil
	}

	if err := t.capture.Probe(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnreachable, err)
	}

	t.generation++
	t.tracking = true
	t.startedAt = t.clock.Now()
	t.lastPolledAt = time.Time{}
	t.queue = nil
	t.currentApp = ""
	t.currentWindow = ""
	t.lastErr = nil

	runCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.pollLoop(runCtx)
	go t.analysisLoop(runCtx)

	t.logger.Info().
		Time("started_at", t.startedAt).
		Dur("poll_interval", t.cfg.PollInterval).
		Dur("analysis_interval", t.cfg.AnalysisInterval).
		Msg("Tracking started")
	return nil
}

// Stop transitions the session back to Idle. In-flight poll or analysis
// results are discarded; reminders are untouched. Stopping an idle session
// is a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.tracking {
		return
	}

	t.cancel()
	t.cancel = nil
	t.tracking = false
	t.generation++
	t.startedAt = time.Time{}
	t.lastPolledAt = time.Time{}
	t.queue = nil

	t.logger.Info().Msg("Tracking stopped")
}

func (t *Tracker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Poll(ctx); err != nil {
				t.logger.Warn().Err(err).Msg("Poll failed")
			}
		}
	}
}

func (t *Tracker) analysisLoop(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.AnalysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.RunAnalysis(ctx); err != nil {
				t.logger.Warn().Err(err).Msg("Analysis cycle failed")
			}
		}
	}
}

// Poll fetches samples since the previous poll and appends them to the
// session queue. It is a no-op while idle. Fetch failures advance the poll
// cursor anyway so a flaky capture service cannot grow the query window.
func (t *Tracker) Poll(ctx context.Context) error {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		return nil
	}
	gen := t.generation
	startedAt := t.startedAt
	since := t.lastPolledAt
	if since.IsZero() {
		since = startedAt
	}
	t.mu.Unlock()

	now := t.clock.Now()
	metrics.PollsTotal.Inc()
	samples, err := t.capture.Search(ctx, t.cfg.ContentType, since, now, t.cfg.SampleLimit)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking || t.generation != gen {
		return nil
	}
	t.lastPolledAt = now

	if err != nil {
		metrics.PollErrors.Inc()
		t.lastErr = err
		return fmt.Errorf("fetch samples: %w", err)
	}
	t.lastErr = nil

	// Keep the window half-open: strictly after the cursor, never before
	// session start, never ahead of this poll's timestamp.
	kept := samples[:0]
	for _, s := range samples {
		if !s.Timestamp.After(since) || s.Timestamp.Before(startedAt) || s.Timestamp.After(now) {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})

	events := t.ingestLocked(kept)
	if len(events) > 0 && t.sink != nil {
		go func() {
			for _, ev := range events {
				t.sink.Send(ctx, ev)
			}
		}()
	}

	t.logger.Debug().
		Int("samples", len(kept)).
		Int("queue_depth", len(t.queue)).
		Msg("Samples ingested")
	return nil
}

// ingestLocked appends sorted samples to the queue, updates the current-app
// observable, and returns derived app-switch events. Caller holds mu.
func (t *Tracker) ingestLocked(samples []capture.Sample) []logsink.Event {
	var events []logsink.Event
	for _, s := range samples {
		if s.AppName != "" && s.AppName != t.currentApp {
			events = append(events, logsink.Event{
				Timestamp:  s.Timestamp.UnixMilli(),
				App:        s.AppName,
				WindowName: s.WindowName,
			})
		}
		if s.AppName != "" {
			t.currentApp = s.AppName
			t.currentWindow = s.WindowName
		}
	}
	t.queue = append(t.queue, samples...)
	metrics.SamplesIngested.Add(float64(len(samples)))
	metrics.AppSwitches.Add(float64(len(events)))
	return events
}

// RunAnalysis swaps out the current batch, sends it through the provider,
// and promotes accepted suggestions to reminders. An empty queue is a no-op.
// Samples appended while a batch is in flight land in the next batch.
func (t *Tracker) RunAnalysis(ctx context.Context) error {
	t.mu.Lock()
	if !t.tracking || len(t.queue) == 0 {
		t.mu.Unlock()
		return nil
	}
	gen := t.generation
	batch := t.queue
	t.queue = nil
	analyzer := t.analyzer
	t.mu.Unlock()

	metrics.AnalysisCycles.Inc()
	text := t.builder.Build(batch)

	started := time.Now()
	raw, err := analyzer.Generate(ctx, text)
	metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.AnalysisErrors.Inc()
		t.mu.Lock()
		if t.generation == gen {
			t.lastErr = err
		}
		t.mu.Unlock()
		// The batch is dropped, not retried: the next cycle analyzes
		// fresh samples only.
		return fmt.Errorf("analysis provider: %w", err)
	}

	result := t.parser.Parse(raw)
	metrics.SuggestionsExtracted.Add(float64(len(result.Suggestions)))

	t.mu.Lock()
	stale := t.generation != gen
	if !stale {
		t.lastErr = nil
	}
	t.mu.Unlock()
	if stale {
		t.logger.Debug().Int("suggestions", len(result.Suggestions)).Msg("Discarding results from stopped session")
		return nil
	}

	accepted := 0
	for _, s := range result.Suggestions {
		if !s.ShouldRemind {
			continue
		}
		if !t.gate.Allow(ctx, s) {
			continue
		}
		key := dedupKey(s)
		if _, seen := t.dedup.Get(key); seen {
			t.logger.Debug().Str("title", s.Title).Msg("Duplicate suggestion skipped")
			continue
		}

		var app *storage.AppContext
		if s.AppName != "" {
			app = &storage.AppContext{AppName: s.AppName, WindowName: s.WindowName}
		}
		item := reminder.NewItem(s.Title, s.Description, app)
		if err := t.reminders.Add(ctx, item); err != nil {
			t.logger.Error().Err(err).Str("title", s.Title).Msg("Failed to add reminder")
			continue
		}
		t.dedup.Add(key, struct{}{})
		metrics.SuggestionsAccepted.WithLabelValues(s.Strategy).Inc()
		accepted++
	}

	t.logger.Info().
		Int("batch", len(batch)).
		Int("suggestions", len(result.Suggestions)).
		Int("accepted", accepted).
		Int("insights", len(result.Insights)).
		Msg("Analysis cycle complete")
	return nil
}

func dedupKey(s extract.Suggestion) string {
	return strings.ToLower(strings.TrimSpace(s.Title)) + "|" + strings.ToLower(s.AppName)
}

// SetAnalyzer swaps the analysis provider. In-flight cycles finish with the
// provider they started with.
func (t *Tracker) SetAnalyzer(a Analyzer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.analyzer = a
}

// Tracking reports whether the session is active.
func (t *Tracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// Status returns a snapshot of the session.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		Tracking:      t.tracking,
		QueueDepth:    len(t.queue),
		CurrentApp:    t.currentApp,
		CurrentWindow: t.currentWindow,
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		s.StartedAt = &started
	}
	if !t.lastPolledAt.IsZero() {
		polled := t.lastPolledAt
		s.LastPolledAt = &polled
	}
	if t.lastErr != nil {
		s.LastError = t.lastErr.Error()
	}
	return s
}

// LastError returns the most recent poll or analysis failure, nil after a
// subsequent success.
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}
