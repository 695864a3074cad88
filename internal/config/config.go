package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/docrag-mcp/internal/dispatch"
	"github.com/dshills/docrag-mcp/internal/embedder"
	"github.com/dshills/docrag-mcp/internal/indexer"
	"github.com/dshills/docrag-mcp/internal/llm"
	"github.com/dshills/docrag-mcp/internal/searcher"
	"github.com/dshills/docrag-mcp/internal/storage"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend         string `yaml:"backend"`
	SQLitePath      string `yaml:"sqlite_path"`
	QdrantURL       string `yaml:"qdrant_url"`
	APIKey          string `yaml:"api_key"`
	ProseCollection string `yaml:"prose_collection"`
	CodeCollection  string `yaml:"code_collection"`
	VectorSize      int    `yaml:"vector_size"` // Zero uses the embedder dimension
	Distance        string `yaml:"distance"`
}

// ChunkingConfig bounds chunk sizes.
type ChunkingConfig struct {
	MaxTokens         int `yaml:"max_tokens"`
	MarkdownMaxTokens int `yaml:"markdown_max_tokens"`
}

// IndexingConfig configures the write path.
type IndexingConfig struct {
	BatchSize        int    `yaml:"batch_size"`
	EmbedConcurrency int    `yaml:"embed_concurrency"`
	IDStrategy       string `yaml:"id_strategy"`
}

// SearchConfig configures the read path.
type SearchConfig struct {
	Limit          int           `yaml:"limit"`
	ScoreThreshold float64       `yaml:"score_threshold"`
	MaxPerKind     int           `yaml:"max_per_kind"`
	InferFilters   bool          `yaml:"infer_filters"`
	CacheSize      int           `yaml:"cache_size"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// EmbedderConfig selects and configures the embedding provider. Empty
// model and base URL use the provider defaults.
type EmbedderConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Dimension  int    `yaml:"dimension"`
	CacheSize  int    `yaml:"cache_size"`
	MaxRetries int    `yaml:"max_retries"`
}

// LLMConfig configures generation and filter inference. Empty model and
// base URL use the provider defaults.
type LLMConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Provider    string `yaml:"provider"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key"`
	FilterModel string `yaml:"filter_model"`
}

// TimeoutConfig bounds every external call. Zero disables a timeout.
type TimeoutConfig struct {
	Embed    time.Duration `yaml:"embed"`
	Store    time.Duration `yaml:"store"`
	Generate time.Duration `yaml:"generate"`
}

// Config is the root application configuration structure.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Indexing IndexingConfig `yaml:"indexing"`
	Search   SearchConfig   `yaml:"search"`
	Embedder EmbedderConfig `yaml:"embedder"`
	LLM      LLMConfig      `yaml:"llm"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:         storage.BackendSQLite,
			SQLitePath:      DefaultSQLitePath(),
			ProseCollection: indexer.DefaultProseCollection,
			CodeCollection:  indexer.DefaultCodeCollection,
			Distance:        storage.DistanceCosine,
		},
		Chunking: ChunkingConfig{
			MaxTokens:         256,
			MarkdownMaxTokens: 256,
		},
		Indexing: IndexingConfig{
			BatchSize:        indexer.DefaultBatchSize,
			EmbedConcurrency: indexer.DefaultEmbedConcurrency,
			IDStrategy:       indexer.IDStrategyRandom,
		},
		Search: SearchConfig{
			Limit:          searcher.DefaultLimit,
			ScoreThreshold: searcher.DefaultScoreThreshold,
			MaxPerKind:     searcher.DefaultMaxPerKind,
			CacheSize:      searcher.DefaultCacheSize,
			CacheTTL:       searcher.DefaultCacheTTL,
		},
		Embedder: EmbedderConfig{
			Provider:   embedder.ProviderOllama,
			CacheSize:  1000,
			MaxRetries: 1,
		},
		LLM: LLMConfig{
			Provider:    llm.ProviderOllama,
			FilterModel: llm.DefaultFilterModel,
		},
		Timeouts: TimeoutConfig{
			Embed:    30 * time.Second,
			Store:    30 * time.Second,
			Generate: 2 * time.Minute,
		},
	}
}

// DefaultSQLitePath returns ~/.docrag/docrag.db, or a relative path when
// the home directory is unknown
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "docrag.db"
	}
	return filepath.Join(home, ".docrag", "docrag.db")
}

// Load reads a config from path on top of the defaults. A missing file
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	switch strings.ToLower(c.Store.Backend) {
	case storage.BackendSQLite:
		check(c.Store.SQLitePath != "", "store.sqlite_path is required for the sqlite backend")
	case storage.BackendQdrant:
		check(c.Store.QdrantURL != "", "store.qdrant_url is required for the qdrant backend")
	default:
		problems = append(problems, fmt.Sprintf("store.backend %q must be sqlite or qdrant", c.Store.Backend))
	}
	check(c.Store.ProseCollection != "", "store.prose_collection is required")
	check(c.Store.CodeCollection != "", "store.code_collection is required")
	check(c.Store.ProseCollection != c.Store.CodeCollection, "store collections must differ")
	check(c.Store.VectorSize >= 0, "store.vector_size must not be negative")
	if _, err := storage.NormalizeDistance(c.Store.Backend, c.Store.Distance); err != nil {
		problems = append(problems, fmt.Sprintf("store.distance: %v", err))
	}

	check(c.Chunking.MaxTokens > 0, "chunking.max_tokens must be positive")
	check(c.Chunking.MarkdownMaxTokens > 0, "chunking.markdown_max_tokens must be positive")

	check(c.Indexing.BatchSize > 0, "indexing.batch_size must be positive")
	check(c.Indexing.EmbedConcurrency > 0, "indexing.embed_concurrency must be positive")
	check(c.Indexing.IDStrategy == indexer.IDStrategyRandom || c.Indexing.IDStrategy == indexer.IDStrategyContent,
		"indexing.id_strategy %q must be random or content", c.Indexing.IDStrategy)

	check(c.Search.Limit > 0, "search.limit must be positive")
	check(c.Search.ScoreThreshold >= -1 && c.Search.ScoreThreshold <= 1, "search.score_threshold must be within [-1, 1]")
	check(c.Search.MaxPerKind > 0, "search.max_per_kind must be positive")

	switch strings.ToLower(c.Embedder.Provider) {
	case embedder.ProviderOllama, embedder.ProviderJina, embedder.ProviderOpenAI, embedder.ProviderLocal:
	default:
		problems = append(problems, fmt.Sprintf("embedder.provider %q is not supported", c.Embedder.Provider))
	}
	check(c.Embedder.MaxRetries >= 1, "embedder.max_retries must be at least 1")

	if c.LLM.Enabled || c.Search.InferFilters {
		switch strings.ToLower(c.LLM.Provider) {
		case llm.ProviderOllama, llm.ProviderOpenAI:
		default:
			problems = append(problems, fmt.Sprintf("llm.provider %q is not supported", c.LLM.Provider))
		}
	}

	check(c.Timeouts.Embed >= 0 && c.Timeouts.Store >= 0 && c.Timeouts.Generate >= 0,
		"timeouts must not be negative")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// StorageConfig returns the backend configuration
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend:    c.Store.Backend,
		SQLitePath: c.Store.SQLitePath,
		QdrantURL:  c.Store.QdrantURL,
		APIKey:     c.Store.APIKey,
		Distance:   c.Store.Distance,
	}
}

// DispatchOptions returns the chunk size options
func (c *Config) DispatchOptions() dispatch.Options {
	return dispatch.Options{
		MaxTokens:         c.Chunking.MaxTokens,
		MarkdownMaxTokens: c.Chunking.MarkdownMaxTokens,
	}
}

// EmbedderConfig returns the embedding provider configuration. A non-zero
// store vector size overrides the provider dimension.
func (c *Config) EmbedderConfig() embedder.Config {
	dim := c.Embedder.Dimension
	if c.Store.VectorSize > 0 {
		dim = c.Store.VectorSize
	}
	return embedder.Config{
		Provider:   c.Embedder.Provider,
		Model:      c.Embedder.Model,
		BaseURL:    c.Embedder.BaseURL,
		APIKey:     c.Embedder.APIKey,
		Dimension:  dim,
		CacheSize:  c.Embedder.CacheSize,
		MaxRetries: c.Embedder.MaxRetries,
		Timeout:    c.Timeouts.Embed,
	}
}

// IndexerConfig returns the write path configuration
func (c *Config) IndexerConfig() indexer.Config {
	return indexer.Config{
		ProseCollection:  c.Store.ProseCollection,
		CodeCollection:   c.Store.CodeCollection,
		BatchSize:        c.Indexing.BatchSize,
		EmbedConcurrency: c.Indexing.EmbedConcurrency,
		IDStrategy:       c.Indexing.IDStrategy,
		EmbedTimeout:     c.Timeouts.Embed,
		StoreTimeout:     c.Timeouts.Store,
	}
}

// SearcherConfig returns the read path configuration
func (c *Config) SearcherConfig() searcher.Config {
	return searcher.Config{
		ProseCollection: c.Store.ProseCollection,
		CodeCollection:  c.Store.CodeCollection,
		Limit:           c.Search.Limit,
		ScoreThreshold:  c.Search.ScoreThreshold,
		MaxPerKind:      c.Search.MaxPerKind,
		InferFilters:    c.Search.InferFilters,
		CacheSize:       c.Search.CacheSize,
		CacheTTL:        c.Search.CacheTTL,
		EmbedTimeout:    c.Timeouts.Embed,
		StoreTimeout:    c.Timeouts.Store,
		GenerateTimeout: c.Timeouts.Generate,
	}
}

// GeneratorConfig returns the answer generation configuration
func (c *Config) GeneratorConfig() llm.Config {
	return llm.Config{
		Provider: c.LLM.Provider,
		BaseURL:  c.LLM.BaseURL,
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey,
	}
}

// FilterConfig returns the filter inference configuration, which shares
// the generation endpoint with its own model
func (c *Config) FilterConfig() llm.Config {
	cfg := c.GeneratorConfig()
	if c.LLM.FilterModel != "" {
		cfg.Model = c.LLM.FilterModel
	}
	cfg.Timeout = c.Timeouts.Generate
	return cfg
}
