package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// ServerConfig defines API and metrics listener settings
type ServerConfig struct {
	APIPort     int    `mapstructure:"api_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	BindAddress string `mapstructure:"bind_address"`
}

// CaptureConfig defines the activity-capture service connection
type CaptureConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	ContentType string `mapstructure:"content_type"` // "ocr", "audio", or "all"
	SampleLimit int    `mapstructure:"sample_limit"` // max samples per poll query
	Timeout     string `mapstructure:"timeout"`
}

// TrackingConfig defines the polling/batching state machine behaviour
type TrackingConfig struct {
	PollInterval       string `mapstructure:"poll_interval"`
	AnalysisFrequency  int    `mapstructure:"analysis_frequency_minutes"` // 1-10
	PromptSampleCap    int    `mapstructure:"prompt_sample_cap"`
	PromptTextLimit    int    `mapstructure:"prompt_text_limit"` // chars of free text kept per sample
	BriefVisitDuration string `mapstructure:"brief_visit_duration"`
	DedupCacheSize     int    `mapstructure:"dedup_cache_size"`
	LogSinkURL         string `mapstructure:"log_sink_url"` // app-switch event sink, empty disables
	AutoStart          bool   `mapstructure:"auto_start"`
}

// AnalysisConfig defines the text-generation provider and acceptance gates
type AnalysisConfig struct {
	ProviderType  string  `mapstructure:"provider_type"` // "local-model" or "openai-compatible"
	Model         string  `mapstructure:"model"`
	EndpointURL   string  `mapstructure:"endpoint_url"`
	APIKey        string  `mapstructure:"api_key"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	Temperature   float64 `mapstructure:"temperature"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	MinDescLength int     `mapstructure:"min_description_length"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "bolt" or "redis"
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PolicyConfig defines the optional OPA suggestion gate
type PolicyConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	PolicyDir string `mapstructure:"policy_dir"`
}

// NotifyConfig defines the periodic pending-reminder digest
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"` // empty disables
	Frequency  int    `mapstructure:"frequency_minutes"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("NUDGED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.api_port", 3033)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.bind_address", "127.0.0.1")

	// Capture defaults
	v.SetDefault("capture.base_url", "http://localhost:3030")
	v.SetDefault("capture.content_type", "ocr")
	v.SetDefault("capture.sample_limit", 200)
	v.SetDefault("capture.timeout", "10s")

	// Tracking defaults
	v.SetDefault("tracking.poll_interval", "10s")
	v.SetDefault("tracking.analysis_frequency_minutes", 2)
	v.SetDefault("tracking.prompt_sample_cap", 40)
	v.SetDefault("tracking.prompt_text_limit", 40)
	v.SetDefault("tracking.brief_visit_duration", "20s")
	v.SetDefault("tracking.dedup_cache_size", 128)
	v.SetDefault("tracking.log_sink_url", "")
	v.SetDefault("tracking.auto_start", false)

	// Analysis defaults
	v.SetDefault("analysis.provider_type", "local-model")
	v.SetDefault("analysis.model", "llama3.2")
	v.SetDefault("analysis.endpoint_url", "")
	v.SetDefault("analysis.max_tokens", 1024)
	v.SetDefault("analysis.temperature", 0.3)
	v.SetDefault("analysis.min_confidence", 0.7)
	v.SetDefault("analysis.min_description_length", 20)

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/nudged/nudged.bolt")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 5)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Policy defaults
	v.SetDefault("policy.enabled", false)
	v.SetDefault("policy.policy_dir", "/etc/nudged/policies")

	// Notify defaults
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.frequency_minutes", 15)
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.APIPort <= 0 || cfg.Server.APIPort > 65535 {
		return fmt.Errorf("invalid API port: %d", cfg.Server.APIPort)
	}
	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	if cfg.Capture.BaseURL == "" {
		return fmt.Errorf("capture base URL is required")
	}

	switch cfg.Capture.ContentType {
	case "ocr", "audio", "all":
	default:
		return fmt.Errorf("invalid capture content type: %s (must be ocr, audio, or all)", cfg.Capture.ContentType)
	}

	if cfg.Tracking.AnalysisFrequency < 1 || cfg.Tracking.AnalysisFrequency > 10 {
		return fmt.Errorf("analysis frequency must be between 1 and 10 minutes, got %d", cfg.Tracking.AnalysisFrequency)
	}

	switch cfg.Analysis.ProviderType {
	case "local-model", "openai-compatible":
	default:
		return fmt.Errorf("invalid provider type: %s (must be local-model or openai-compatible)", cfg.Analysis.ProviderType)
	}

	if cfg.Analysis.ProviderType == "openai-compatible" && cfg.Analysis.EndpointURL == "" {
		return fmt.Errorf("endpoint URL is required for the openai-compatible provider")
	}

	if cfg.Analysis.MinConfidence < 0 || cfg.Analysis.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be within [0,1], got %f", cfg.Analysis.MinConfidence)
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "bolt"
	}

	if cfg.Storage.Type == "bolt" {
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required")
		}
		storageDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(storageDir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return nil
}
