package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docrag-mcp/internal/embedder"
	"github.com/dshills/docrag-mcp/internal/llm"
	"github.com/dshills/docrag-mcp/internal/storage"
	"github.com/dshills/docrag-mcp/pkg/types"
)

// InsufficientInformation is returned by Assemble when no hit has content
const InsufficientInformation = "I don't have enough information to answer that question."

// Defaults
const (
	DefaultLimit          = 500
	DefaultScoreThreshold = 0.7
	DefaultMaxPerKind     = 5
	DefaultCacheSize      = 1000
	DefaultCacheTTL       = 5 * time.Minute
)

// Config contains configuration for the searcher
type Config struct {
	ProseCollection string
	CodeCollection  string
	Limit           int     // Hits requested per collection (default: 500)
	ScoreThreshold  float64 // Minimum similarity (default: 0.7)
	MaxPerKind      int     // Entries per kind in assembled context (default: 5)
	InferFilters    bool    // Ask the filter inferrer when a query has no filter
	CacheSize       int     // Cached search results, negative disables
	CacheTTL        time.Duration
	EmbedTimeout    time.Duration
	StoreTimeout    time.Duration
	GenerateTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProseCollection == "" {
		c.ProseCollection = "data_history"
	}
	if c.CodeCollection == "" {
		c.CodeCollection = "code_snippets"
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.MaxPerKind <= 0 {
		c.MaxPerKind = DefaultMaxPerKind
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	return c
}

// QueryRequest contains parameters for a query
type QueryRequest struct {
	Query          string
	Filter         *types.Filter // Nil lets the inferrer decide when enabled
	Limit          int           // Zero uses the configured limit
	ScoreThreshold float64       // Zero uses the configured threshold
	MaxPerKind     int           // Zero uses the configured value
	Generate       bool          // Produce an answer with the generator
	History        []llm.Message
	OnFragment     func(text string) // Receives streamed answer text when set
}

// QueryResponse contains the assembled context and optional answer
type QueryResponse struct {
	Context  string
	Answer   string
	Results  *types.SearchResults
	Filter   *types.Filter // Filter actually applied
	Inferred bool          // Filter came from the inferrer
	Duration time.Duration
	CacheHit bool
}

// cacheEntry represents cached search results with expiration time
type cacheEntry struct {
	results   *types.SearchResults
	expiresAt time.Time
}

// Searcher coordinates the read path: embed -> search both collections -> assemble
type Searcher struct {
	backend   storage.Backend
	embedder  embedder.Embedder
	generator llm.Generator
	inferrer  llm.FilterInferrer
	config    Config

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// New creates a new Searcher instance
func New(backend storage.Backend, emb embedder.Embedder, config Config) *Searcher {
	s := &Searcher{
		backend:  backend,
		embedder: emb,
		config:   config.withDefaults(),
	}

	if s.config.CacheSize > 0 {
		cache, err := lru.New[[32]byte, *cacheEntry](s.config.CacheSize)
		if err != nil {
			// This should never happen with valid size parameter
			panic(fmt.Sprintf("failed to create LRU cache: %v", err))
		}
		s.cache = cache
	}

	return s
}

// WithGenerator sets the generation service used by Query
func (s *Searcher) WithGenerator(gen llm.Generator) *Searcher {
	s.generator = gen
	return s
}

// WithFilterInferrer sets the filter inferrer used by Query
func (s *Searcher) WithFilterInferrer(inf llm.FilterInferrer) *Searcher {
	s.inferrer = inf
	return s
}

// Config returns the effective configuration
func (s *Searcher) Config() Config {
	return s.config
}

// Search queries both collections concurrently with the same vector and
// filter. Either search failing fails the call.
func (s *Searcher) Search(ctx context.Context, vector []float32, filter *types.Filter,
	limit int, threshold float64) (*types.SearchResults, error) {

	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreSearch, types.ErrEmptyVector)
	}
	params := storage.SearchParams{
		Vector:         vector,
		Limit:          limit,
		ScoreThreshold: threshold,
		Filter:         filter,
	}

	results := &types.SearchResults{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := s.searchCollection(gctx, s.config.ProseCollection, params)
		results.Text = hits
		return err
	})
	g.Go(func() error {
		hits, err := s.searchCollection(gctx, s.config.CodeCollection, params)
		results.Code = hits
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Searcher) searchCollection(ctx context.Context, collection string, params storage.SearchParams) ([]types.SearchHit, error) {
	sctx, cancel := withTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	hits, err := s.backend.Search(sctx, collection, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrStoreSearch, collection, err)
	}
	return hits, nil
}

// Assemble renders the top hits of each kind as grounding context, code
// first. Hits with blank content are skipped; with nothing left the
// InsufficientInformation sentinel is returned.
func Assemble(code, text []types.SearchHit, maxPerKind int) string {
	if maxPerKind <= 0 {
		maxPerKind = DefaultMaxPerKind
	}

	var parts []string
	parts = appendEntries(parts, "Code", code, maxPerKind)
	parts = appendEntries(parts, "Text", text, maxPerKind)

	if len(parts) == 0 {
		return InsufficientInformation
	}
	return strings.Join(parts, "\n\n")
}

func appendEntries(parts []string, label string, hits []types.SearchHit, max int) []string {
	if len(hits) > max {
		hits = hits[:max]
	}
	for i, hit := range hits {
		if hit.IsBlank() {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s %d]\n%s", label, i+1, hit.Content()))
	}
	return parts
}

// Query embeds the question, searches both collections and assembles the
// context. With Generate set and a generator configured, the answer is
// streamed to OnFragment and returned in full.
func (s *Searcher) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid query request: %w", err)
	}

	resp := &QueryResponse{Filter: req.Filter}
	if resp.Filter.IsEmpty() && s.config.InferFilters && s.inferrer != nil {
		if f, ok := s.inferrer.InferFilter(ctx, req.Query); ok {
			resp.Filter = &f
			resp.Inferred = true
		}
	}

	key := computeQueryHash(req, resp.Filter)
	if cached, ok := s.checkCache(key); ok {
		resp.Results = cached
		resp.CacheHit = true
	} else {
		vector, err := s.embedQuery(ctx, req.Query)
		if err != nil {
			return nil, err
		}

		results, err := s.Search(ctx, vector, resp.Filter, req.Limit, req.ScoreThreshold)
		if err != nil {
			return nil, err
		}
		resp.Results = results
		s.storeInCache(key, results)
	}

	resp.Context = Assemble(resp.Results.Code, resp.Results.Text, req.MaxPerKind)

	switch {
	case !req.Generate || s.generator == nil:
	case resp.Context == InsufficientInformation:
		resp.Answer = InsufficientInformation
	default:
		answer, err := s.generate(ctx, req, resp.Context)
		if err != nil {
			return nil, err
		}
		resp.Answer = answer
	}

	resp.Duration = time.Since(startTime)
	log.Printf("Query answered in %v: %d code, %d text hits",
		resp.Duration.Round(time.Millisecond), len(resp.Results.Code), len(resp.Results.Text))
	return resp, nil
}

func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	ectx, cancel := withTimeout(ctx, s.config.EmbedTimeout)
	defer cancel()

	emb, err := s.embedder.GenerateEmbedding(ectx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate query embedding: %v", types.ErrEmbeddingFailure, err)
	}
	return emb.Vector, nil
}

func (s *Searcher) generate(ctx context.Context, req QueryRequest, contextText string) (string, error) {
	gctx, cancel := withTimeout(ctx, s.config.GenerateTimeout)
	defer cancel()

	stream, err := s.generator.Stream(gctx, llm.Prompt{
		Context:  contextText,
		Question: req.Query,
		History:  req.History,
	})
	if err != nil {
		return "", err
	}

	var answer strings.Builder
	for frag := range stream {
		if frag.Err != nil {
			return answer.String(), frag.Err
		}
		answer.WriteString(frag.Text)
		if req.OnFragment != nil && frag.Text != "" {
			req.OnFragment(frag.Text)
		}
		if frag.Done {
			break
		}
	}
	if err := gctx.Err(); err != nil {
		return answer.String(), fmt.Errorf("%w: %v", llm.ErrGeneration, err)
	}
	return answer.String(), nil
}

// validateRequest ensures the query request is valid and fills defaults
func (s *Searcher) validateRequest(req *QueryRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = s.config.Limit
	}
	if req.ScoreThreshold == 0 {
		req.ScoreThreshold = s.config.ScoreThreshold
	}
	if req.ScoreThreshold < -1 || req.ScoreThreshold > 1 {
		return fmt.Errorf("score threshold must be between -1 and 1")
	}
	if req.MaxPerKind <= 0 {
		req.MaxPerKind = s.config.MaxPerKind
	}
	return nil
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(key [32]byte) (*types.SearchResults, bool) {
	if s.cache == nil {
		return nil, false
	}

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil, false
	}

	results := copySearchResults(entry.results)
	s.cacheMu.RUnlock()
	return results, true
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(key [32]byte, results *types.SearchResults) {
	if s.cache == nil {
		return
	}

	entry := &cacheEntry{
		results:   copySearchResults(results),
		expiresAt: time.Now().Add(s.config.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached result. Called after new points are stored.
func (s *Searcher) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// copySearchResults creates a copy whose hit slices and payloads are not shared
func copySearchResults(src *types.SearchResults) *types.SearchResults {
	if src == nil {
		return nil
	}
	return &types.SearchResults{
		Code: copyHits(src.Code),
		Text: copyHits(src.Text),
	}
}

func copyHits(src []types.SearchHit) []types.SearchHit {
	if src == nil {
		return nil
	}
	dst := make([]types.SearchHit, len(src))
	for i, hit := range src {
		dst[i] = hit
		dst[i].Payload = hit.Payload.Clone()
	}
	return dst
}

// computeQueryHash computes a unique hash for a query and its effective filter
func computeQueryHash(req QueryRequest, filter *types.Filter) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	fmt.Fprintf(&data, "%d|", req.Limit)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(req.ScoreThreshold))
	data.Write(buf[:])

	if !filter.IsEmpty() {
		data.WriteString("|filters:")
		for _, c := range filter.Must {
			fmt.Fprintf(&data, "%s=%T:%v;", c.Key, c.Value, c.Value)
		}
	}

	return sha256.Sum256([]byte(data.String()))
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
