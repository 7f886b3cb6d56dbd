// Package analysis sends prompts to a configured text-generation provider
// and returns the raw model text. Interpretation of that text lives in the
// extract package.
package analysis

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Provider types recognized in configuration.
const (
	ProviderLocalModel       = "local-model"
	ProviderOpenAICompatible = "openai-compatible"

	// DefaultLocalEndpoint is used for the local-model provider when no
	// endpoint is configured.
	DefaultLocalEndpoint = "http://localhost:11434"
)

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and parameterizes a provider.
type Config struct {
	ProviderType string
	Model        string
	EndpointURL  string
	APIKey       string
	MaxTokens    int
	Temperature  float64
}

// New builds a Client for the configured provider.
func New(cfg Config, logger zerolog.Logger) (Client, error) {
	// The controller imposes no timeout on analysis calls; a generous client
	// timeout still bounds a wedged TCP connection.
	httpClient := &http.Client{Timeout: 5 * time.Minute}

	switch cfg.ProviderType {
	case ProviderLocalModel:
		endpoint := cfg.EndpointURL
		if endpoint == "" {
			endpoint = DefaultLocalEndpoint
		}
		return &localClient{
			endpoint:   endpoint,
			model:      cfg.Model,
			httpClient: httpClient,
			logger:     logger.With().Str("component", "analysis").Str("provider", ProviderLocalModel).Logger(),
		}, nil

	case ProviderOpenAICompatible:
		if cfg.EndpointURL == "" {
			return nil, fmt.Errorf("endpoint URL is required for provider %s", ProviderOpenAICompatible)
		}
		return &openAIClient{
			endpoint:    cfg.EndpointURL,
			model:       cfg.Model,
			apiKey:      cfg.APIKey,
			maxTokens:   cfg.MaxTokens,
			temperature: cfg.Temperature,
			httpClient:  httpClient,
			logger:      logger.With().Str("component", "analysis").Str("provider", ProviderOpenAICompatible).Logger(),
		}, nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.ProviderType)
	}
}
