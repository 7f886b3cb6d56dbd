package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/goodtune/nudged/internal/analysis"
	"github.com/goodtune/nudged/internal/api"
	"github.com/goodtune/nudged/internal/capture"
	"github.com/goodtune/nudged/internal/config"
	"github.com/goodtune/nudged/internal/extract"
	"github.com/goodtune/nudged/internal/logsink"
	"github.com/goodtune/nudged/internal/metrics"
	"github.com/goodtune/nudged/internal/notify"
	"github.com/goodtune/nudged/internal/policy"
	"github.com/goodtune/nudged/internal/prompt"
	"github.com/goodtune/nudged/internal/reminder"
	"github.com/goodtune/nudged/internal/storage"
	"github.com/goodtune/nudged/internal/storage/bolt"
	"github.com/goodtune/nudged/internal/storage/redis"
	"github.com/goodtune/nudged/internal/systemd"
	"github.com/goodtune/nudged/internal/tracker"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the nudged daemon",
	Long:  `Start the nudged daemon with the tracking session, HTTP API, and metrics endpoints.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting nudged")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()
	logger.Info().Str("type", cfg.Storage.Type).Msg("Storage initialized")

	metrics.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager, err := reminder.NewManager(ctx, store.Reminders(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize reminder manager: %w", err)
	}

	// Stored settings win over the config file for the analysis provider
	// and scheduling frequencies.
	analysisCfg, analysisFreq, notifyFreq, err := effectiveSettings(ctx, cfg, store.Settings(), logger)
	if err != nil {
		return err
	}

	analyzer, err := analysis.New(analysisCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis client: %w", err)
	}

	var gate policy.Gate = policy.AllowAll{}
	if cfg.Policy.Enabled {
		engine, err := policy.NewEngine(cfg.Policy.PolicyDir, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize policy engine: %w", err)
		}
		gate = engine
	}

	captureTimeout := parseDuration(cfg.Capture.Timeout, 10*time.Second)
	captureClient := capture.NewClient(cfg.Capture.BaseURL, captureTimeout, logger)

	sink := logsink.New(cfg.Tracking.LogSinkURL, captureTimeout, logger)

	tr, err := tracker.New(
		tracker.Config{
			ContentType:      cfg.Capture.ContentType,
			SampleLimit:      cfg.Capture.SampleLimit,
			PollInterval:     parseDuration(cfg.Tracking.PollInterval, 10*time.Second),
			AnalysisInterval: time.Duration(analysisFreq) * time.Minute,
			DedupCacheSize:   cfg.Tracking.DedupCacheSize,
		},
		captureClient,
		prompt.NewBuilder(prompt.Config{
			SampleCap:     cfg.Tracking.PromptSampleCap,
			TextLimit:     cfg.Tracking.PromptTextLimit,
			BriefDuration: parseDuration(cfg.Tracking.BriefVisitDuration, 20*time.Second),
		}),
		analyzer,
		extract.NewParser(extract.FilterConfig{
			MinDescriptionLength: cfg.Analysis.MinDescLength,
			MinConfidence:        cfg.Analysis.MinConfidence,
			DefaultShouldRemind:  true,
		}, logger),
		gate,
		manager,
		sink,
		tracker.RealClock{},
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize tracker: %w", err)
	}

	notifier := notify.New(cfg.Notify.WebhookURL, time.Duration(notifyFreq)*time.Minute, manager, logger)
	go notifier.Run(ctx)

	apiServer := api.NewServer(api.Deps{
		Tracker:   tr,
		Reminders: manager,
		Settings:  store.Settings(),
		OnSettingsChange: func(s storage.Settings) error {
			client, err := analysis.New(analysis.Config{
				ProviderType: s.ProviderType,
				Model:        s.Model,
				EndpointURL:  s.EndpointURL,
				APIKey:       s.APIKey,
				MaxTokens:    cfg.Analysis.MaxTokens,
				Temperature:  cfg.Analysis.Temperature,
			}, logger)
			if err != nil {
				return err
			}
			tr.SetAnalyzer(client)
			logger.Info().
				Str("provider", s.ProviderType).
				Str("model", s.Model).
				Msg("Analysis provider updated from settings")
			return nil
		},
		Logger: logger,
	})

	apiListener := sdListeners.API
	if apiListener == nil {
		apiListener, err = net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.APIPort))
		if err != nil {
			return fmt.Errorf("failed to listen on API port: %w", err)
		}
	}

	metricsListener := sdListeners.Metrics
	if metricsListener == nil {
		metricsListener, err = net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort))
		if err != nil {
			return fmt.Errorf("failed to listen on metrics port: %w", err)
		}
	}

	go func() {
		if err := metrics.Serve(metricsListener, logger); err != nil {
			logger.Error().Err(err).Msg("Metrics listener failed")
		}
	}()
	go func() {
		if err := apiServer.Serve(apiListener); err != nil {
			logger.Error().Err(err).Msg("API listener failed")
		}
	}()

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd readiness")
	}

	if cfg.Tracking.AutoStart {
		if err := tr.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("Auto-start failed, waiting for API trigger")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd stopping")
	}

	tr.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API shutdown failed")
	}

	return nil
}

// effectiveSettings merges stored settings over config-file defaults.
func effectiveSettings(ctx context.Context, cfg *config.Config, settings storage.SettingsStore, logger zerolog.Logger) (analysis.Config, int, int, error) {
	analysisCfg := analysis.Config{
		ProviderType: cfg.Analysis.ProviderType,
		Model:        cfg.Analysis.Model,
		EndpointURL:  cfg.Analysis.EndpointURL,
		APIKey:       cfg.Analysis.APIKey,
		MaxTokens:    cfg.Analysis.MaxTokens,
		Temperature:  cfg.Analysis.Temperature,
	}
	analysisFreq := cfg.Tracking.AnalysisFrequency
	notifyFreq := cfg.Notify.Frequency

	stored, err := settings.Get(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return analysisCfg, analysisFreq, notifyFreq, nil
		}
		return analysisCfg, 0, 0, fmt.Errorf("failed to load stored settings: %w", err)
	}

	if stored.ProviderType != "" {
		analysisCfg.ProviderType = stored.ProviderType
	}
	if stored.Model != "" {
		analysisCfg.Model = stored.Model
	}
	if stored.EndpointURL != "" {
		analysisCfg.EndpointURL = stored.EndpointURL
	}
	if stored.APIKey != "" {
		analysisCfg.APIKey = stored.APIKey
	}
	if stored.AnalysisFrequency >= 1 && stored.AnalysisFrequency <= 10 {
		analysisFreq = stored.AnalysisFrequency
	}
	if stored.NotifyFrequency > 0 {
		notifyFreq = stored.NotifyFrequency
	}

	logger.Info().
		Str("provider", analysisCfg.ProviderType).
		Str("model", analysisCfg.Model).
		Int("analysis_frequency_minutes", analysisFreq).
		Msg("Applied stored settings")
	return analysisCfg, analysisFreq, notifyFreq, nil
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "bolt"
	}

	switch storageType {
	case "bolt":
		return bolt.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
