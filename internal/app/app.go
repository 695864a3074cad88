// Package app assembles the pipeline components from a configuration.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/docrag-mcp/internal/config"
	"github.com/dshills/docrag-mcp/internal/dispatch"
	"github.com/dshills/docrag-mcp/internal/embedder"
	"github.com/dshills/docrag-mcp/internal/indexer"
	"github.com/dshills/docrag-mcp/internal/llm"
	"github.com/dshills/docrag-mcp/internal/searcher"
	"github.com/dshills/docrag-mcp/internal/storage"
)

// App holds the wired components. The indexer and searcher share one
// backend and one embedder, so embeddings cached while ingesting are
// reused by queries.
type App struct {
	Config   *config.Config
	Backend  storage.Backend
	Embedder embedder.Embedder
	Indexer  *indexer.Indexer
	Searcher *searcher.Searcher

	closeOnce sync.Once
	closeErr  error
}

// New builds every component and makes sure both collections exist
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if strings.EqualFold(cfg.Store.Backend, storage.BackendSQLite) && cfg.Store.SQLitePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	backend, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	disp, err := dispatch.New(cfg.DispatchOptions())
	if err != nil {
		_ = emb.Close()
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	a := &App{
		Config:   cfg,
		Backend:  backend,
		Embedder: emb,
		Indexer:  indexer.New(backend, emb, disp, cfg.IndexerConfig()),
		Searcher: searcher.New(backend, emb, cfg.SearcherConfig()),
	}

	if err := a.wireLLM(); err != nil {
		_ = a.Close()
		return nil, err
	}

	if err := a.Indexer.EnsureCollections(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	log.Printf("Pipeline ready: %s store, %s embedder (%s, %d dims)",
		cfg.Store.Backend, emb.Provider(), emb.Model(), emb.Dimension())
	return a, nil
}

// wireLLM attaches the answer generator and the filter inferrer when
// the configuration asks for them
func (a *App) wireLLM() error {
	cfg := a.Config
	if cfg.LLM.Enabled {
		gen, err := llm.New(cfg.GeneratorConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize generator: %w", err)
		}
		a.Searcher.WithGenerator(gen)
	}
	if cfg.Search.InferFilters {
		gen, err := llm.New(cfg.FilterConfig())
		if err != nil {
			return fmt.Errorf("failed to initialize filter inference: %w", err)
		}
		a.Searcher.WithFilterInferrer(llm.NewFilterInferrer(gen))
	}
	return nil
}

// Close releases the embedder and the backend. Later calls are no-ops.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		embErr := a.Embedder.Close()
		a.closeErr = a.Backend.Close()
		if a.closeErr == nil {
			a.closeErr = embErr
		}
	})
	return a.closeErr
}
