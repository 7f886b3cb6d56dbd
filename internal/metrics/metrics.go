package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Polling metrics
	PollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nudged_polls_total",
			Help: "Total activity-capture poll attempts",
		},
	)

	PollErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nudged_poll_errors_total",
			Help: "Poll attempts that failed",
		},
	)

	SamplesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nudged_samples_ingested_total",
			Help: "Activity samples appended to the session queue",
		},
	)

	AppSwitches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nudged_app_switches_total",
			Help: "Derived app-switch events",
		},
	)

	// Analysis metrics
	AnalysisCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nudged_analysis_cycles_total",
			Help: "Analysis cycles that sent a batch to the provider",
		},
	)

	AnalysisErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nudged_analysis_errors_total",
			Help: "Analysis cycles that failed at the provider",
		},
	)

	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nudged_analysis_duration_seconds",
			Help:    "Provider round-trip duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	SuggestionsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nudged_suggestions_extracted_total",
			Help: "Suggestions recovered from model output",
		},
	)

	SuggestionsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nudged_suggestions_accepted_total",
			Help: "Suggestions promoted to reminder items",
		},
		[]string{"strategy"},
	)

	// Reminder metrics
	RemindersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "nudged_reminders_active",
			Help: "Reminder items currently pending",
		},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		PollsTotal,
		PollErrors,
		SamplesIngested,
		AppSwitches,
		AnalysisCycles,
		AnalysisErrors,
		AnalysisDuration,
		SuggestionsExtracted,
		SuggestionsAccepted,
		RemindersActive,
	)
}

// Serve starts the metrics HTTP listener. It blocks until the listener
// fails, so callers run it in a goroutine.
func Serve(listener net.Listener, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info().Str("addr", listener.Addr().String()).Msg("Metrics listener started")
	return http.Serve(listener, mux)
}
