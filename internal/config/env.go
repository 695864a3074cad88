package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables recognized by ApplyEnv
const (
	EnvStoreBackend     = "DOCRAG_STORE_BACKEND"
	EnvSQLitePath       = "DOCRAG_DB_PATH"
	EnvQdrantURL        = "DOCRAG_QDRANT_URL"
	EnvQdrantAPIKey     = "DOCRAG_QDRANT_API_KEY"
	EnvProseCollection  = "DOCRAG_PROSE_COLLECTION"
	EnvCodeCollection   = "DOCRAG_CODE_COLLECTION"
	EnvVectorSize       = "DOCRAG_VECTOR_SIZE"
	EnvMaxTokens        = "DOCRAG_MAX_TOKENS"
	EnvBatchSize        = "DOCRAG_BATCH_SIZE"
	EnvEmbedConcurrency = "DOCRAG_EMBED_CONCURRENCY"
	EnvIDStrategy       = "DOCRAG_ID_STRATEGY"
	EnvSearchLimit      = "DOCRAG_SEARCH_LIMIT"
	EnvScoreThreshold   = "DOCRAG_SCORE_THRESHOLD"
	EnvInferFilters     = "DOCRAG_INFER_FILTERS"
	EnvEmbedderProvider = "DOCRAG_EMBEDDER_PROVIDER"
	EnvEmbedderModel    = "DOCRAG_EMBEDDER_MODEL"
	EnvEmbedderURL      = "DOCRAG_EMBEDDER_URL"
	EnvEmbedderAPIKey   = "DOCRAG_EMBEDDER_API_KEY"
	EnvLLMEnabled       = "DOCRAG_LLM_ENABLED"
	EnvLLMProvider      = "DOCRAG_LLM_PROVIDER"
	EnvLLMURL           = "DOCRAG_LLM_URL"
	EnvLLMModel         = "DOCRAG_LLM_MODEL"
	EnvLLMAPIKey        = "DOCRAG_LLM_API_KEY"
	EnvFilterModel      = "DOCRAG_FILTER_MODEL"
	EnvEmbedTimeout     = "DOCRAG_EMBED_TIMEOUT"
	EnvStoreTimeout     = "DOCRAG_STORE_TIMEOUT"
	EnvGenerateTimeout  = "DOCRAG_GENERATE_TIMEOUT"
)

// ApplyEnv overrides fields from DOCRAG_* environment variables. Unset
// variables leave the field untouched.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		EnvStoreBackend:     &c.Store.Backend,
		EnvSQLitePath:       &c.Store.SQLitePath,
		EnvQdrantURL:        &c.Store.QdrantURL,
		EnvQdrantAPIKey:     &c.Store.APIKey,
		EnvProseCollection:  &c.Store.ProseCollection,
		EnvCodeCollection:   &c.Store.CodeCollection,
		EnvIDStrategy:       &c.Indexing.IDStrategy,
		EnvEmbedderProvider: &c.Embedder.Provider,
		EnvEmbedderModel:    &c.Embedder.Model,
		EnvEmbedderURL:      &c.Embedder.BaseURL,
		EnvEmbedderAPIKey:   &c.Embedder.APIKey,
		EnvLLMProvider:      &c.LLM.Provider,
		EnvLLMURL:           &c.LLM.BaseURL,
		EnvLLMModel:         &c.LLM.Model,
		EnvLLMAPIKey:        &c.LLM.APIKey,
		EnvFilterModel:      &c.LLM.FilterModel,
	}
	for name, field := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		EnvVectorSize:       &c.Store.VectorSize,
		EnvBatchSize:        &c.Indexing.BatchSize,
		EnvEmbedConcurrency: &c.Indexing.EmbedConcurrency,
		EnvSearchLimit:      &c.Search.Limit,
	}
	for name, field := range ints {
		if err := lookupInt(name, field); err != nil {
			return err
		}
	}
	if v, ok := os.LookupEnv(EnvMaxTokens); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxTokens, err)
		}
		c.Chunking.MaxTokens = n
		c.Chunking.MarkdownMaxTokens = n
	}

	if v, ok := os.LookupEnv(EnvScoreThreshold); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvScoreThreshold, err)
		}
		c.Search.ScoreThreshold = f
	}

	bools := map[string]*bool{
		EnvInferFilters: &c.Search.InferFilters,
		EnvLLMEnabled:   &c.LLM.Enabled,
	}
	for name, field := range bools {
		if v, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = b
		}
	}

	durations := map[string]*time.Duration{
		EnvEmbedTimeout:    &c.Timeouts.Embed,
		EnvStoreTimeout:    &c.Timeouts.Store,
		EnvGenerateTimeout: &c.Timeouts.Generate,
	}
	for name, field := range durations {
		if v, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = d
		}
	}

	return nil
}

func lookupInt(name string, field *int) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*field = n
	return nil
}
