package embedder

import (
	"fmt"
	"strings"
	"time"
)

// Config holds embedder configuration
type Config struct {
	Provider   string
	Model      string
	BaseURL    string
	APIKey     string
	Dimension  int
	CacheSize  int
	MaxRetries int // Total attempts per request, defaults to 1
	Timeout    time.Duration
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	opts := ProviderOptions{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		Dimension: cfg.Dimension,
		Timeout:   cfg.Timeout,
		Retry:     DefaultRetryConfig().WithAttempts(cfg.MaxRetries),
	}

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderOllama, "":
		return NewOllamaProvider(opts, cache)
	case ProviderJina:
		return NewJinaProvider(opts, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(opts, cache)
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension, cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DefaultDimension returns the vector size a provider produces by default
func DefaultDimension(provider string) int {
	switch strings.ToLower(provider) {
	case ProviderJina:
		return JinaDimension
	case ProviderOpenAI:
		return OpenAIDimension
	case ProviderLocal:
		return LocalDimension
	default:
		return OllamaDimension
	}
}
