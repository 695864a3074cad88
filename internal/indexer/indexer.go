package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docrag-mcp/internal/dispatch"
	"github.com/dshills/docrag-mcp/internal/embedder"
	"github.com/dshills/docrag-mcp/internal/storage"
	"github.com/dshills/docrag-mcp/pkg/types"
)

// Defaults
const (
	DefaultProseCollection  = "data_history"
	DefaultCodeCollection   = "code_snippets"
	DefaultBatchSize        = 200
	DefaultEmbedConcurrency = 4
)

// ID strategies
const (
	IDStrategyRandom  = "random"
	IDStrategyContent = "content"
)

// ErrIngestInProgress is returned when the same source is already being ingested
var ErrIngestInProgress = errors.New("ingestion already in progress for source")

// contentNamespace scopes content-derived point ids
var contentNamespace = uuid.MustParse("6f2a3c1e-8d4b-5e7f-9a0b-1c2d3e4f5a6b")

// Config contains configuration for the indexer
type Config struct {
	ProseCollection  string        // Collection for text, html and markdown chunks
	CodeCollection   string        // Collection for code chunks and snippets
	BatchSize        int           // Points per backend upsert (default: 200)
	EmbedConcurrency int           // Parallel embedding calls within a batch (default: 4)
	IDStrategy       string        // "random" (default) or "content"
	EmbedTimeout     time.Duration // Per embedding call, zero disables
	StoreTimeout     time.Duration // Per backend call, zero disables
}

func (c Config) withDefaults() Config {
	if c.ProseCollection == "" {
		c.ProseCollection = DefaultProseCollection
	}
	if c.CodeCollection == "" {
		c.CodeCollection = DefaultCodeCollection
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.EmbedConcurrency <= 0 {
		c.EmbedConcurrency = DefaultEmbedConcurrency
	}
	if c.IDStrategy == "" {
		c.IDStrategy = IDStrategyRandom
	}
	return c
}

// BatchError reports the chunk range of a failed batch. Collection names
// the collection whose write failed and is empty when embedding failed.
type BatchError struct {
	Start      int // First chunk index of the batch
	End        int // Last chunk index of the batch (inclusive)
	Collection string
	Err        error
}

func (e *BatchError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("batch %d-%d (%s): %v", e.Start, e.End, e.Collection, e.Err)
	}
	return fmt.Sprintf("batch %d-%d: %v", e.Start, e.End, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// UpsertResult summarizes a completed UpsertChunks call
type UpsertResult struct {
	Points   map[string]int // Points written per collection
	Batches  int
	PointIDs []string // In chunk order
}

// Total returns the number of points written across collections
func (r *UpsertResult) Total() int {
	total := 0
	for _, n := range r.Points {
		total += n
	}
	return total
}

// IngestReport summarizes a completed IngestFile call
type IngestReport struct {
	Filename string
	SourceID string
	Kind     types.FileKind
	Chunks   int
	Result   *UpsertResult
	Duration time.Duration
}

// Statistics contains per-collection point counts
type Statistics struct {
	Collections map[string]int
	Provider    string
	Model       string
	Dimension   int
}

// Indexer coordinates the write path: dispatch -> embed -> store
type Indexer struct {
	backend    storage.Backend
	embedder   embedder.Embedder
	dispatcher *dispatch.Dispatcher
	config     Config
	locks      *sourceLocks

	mu      sync.Mutex
	ensured bool
}

// New creates a new Indexer instance
func New(backend storage.Backend, emb embedder.Embedder, dispatcher *dispatch.Dispatcher, config Config) *Indexer {
	return &Indexer{
		backend:    backend,
		embedder:   emb,
		dispatcher: dispatcher,
		config:     config.withDefaults(),
		locks:      newSourceLocks(),
	}
}

// Config returns the effective configuration
func (idx *Indexer) Config() Config {
	return idx.config
}

// EnsureCollections creates both collections sized for the embedder
func (idx *Indexer) EnsureCollections(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.ensured {
		return nil
	}
	for _, name := range []string{idx.config.ProseCollection, idx.config.CodeCollection} {
		sctx, cancel := withTimeout(ctx, idx.config.StoreTimeout)
		err := idx.backend.EnsureCollection(sctx, name, idx.embedder.Dimension())
		cancel()
		if err != nil {
			return fmt.Errorf("%w: ensure collection %s: %v", types.ErrStoreWrite, name, err)
		}
	}
	idx.ensured = true
	return nil
}

// CollectionFor returns the collection a chunk is routed to
func (idx *Indexer) CollectionFor(c types.Chunk) string {
	if c.IsCode() {
		return idx.config.CodeCollection
	}
	return idx.config.ProseCollection
}

// UpsertChunks embeds and stores chunks in batches of batchSize (zero uses
// the configured size). Batches are written in order; when one fails the
// call stops with a *BatchError and earlier batches stay committed. A batch
// mixing prose and code is written with one upsert per collection, so a
// failed batch can be half applied: the returned result then counts the
// collections of that batch that were committed, but not the batch itself.
func (idx *Indexer) UpsertChunks(ctx context.Context, chunks []types.Chunk, sourceID string,
	metadata types.Metadata, batchSize int) (*UpsertResult, error) {

	if batchSize <= 0 {
		batchSize = idx.config.BatchSize
	}
	if err := idx.EnsureCollections(ctx); err != nil {
		return nil, err
	}

	result := &UpsertResult{
		Points:   make(map[string]int),
		PointIDs: make([]string, 0, len(chunks)),
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		written, ids, failed, err := idx.upsertBatch(ctx, chunks[start:end], start, sourceID, metadata)
		for coll, n := range written {
			result.Points[coll] += n
		}
		result.PointIDs = append(result.PointIDs, ids...)
		if err != nil {
			if len(written) > 0 {
				log.Printf("Batch %d-%d for %s partially stored: %v", start, end-1, sourceID, written)
			}
			return result, &BatchError{Start: start, End: end - 1, Collection: failed, Err: err}
		}
		result.Batches++
		log.Printf("Stored batch %d-%d for %s", start, end-1, sourceID)
	}

	return result, nil
}

// upsertBatch embeds one batch and writes it with one upsert per collection.
// On a write failure it still returns the counts and point ids of the
// collections already committed, plus the name of the failing collection.
func (idx *Indexer) upsertBatch(ctx context.Context, batch []types.Chunk, offset int,
	sourceID string, metadata types.Metadata) (map[string]int, []string, string, error) {

	vectors, err := idx.embedAll(ctx, batch)
	if err != nil {
		return nil, nil, "", err
	}

	byCollection := make(map[string][]types.Point)
	order := make([]string, 0, 2)
	ids := make([]string, len(batch))
	routes := make([]string, len(batch))

	for i, c := range batch {
		index := offset + i
		payload := types.Metadata{
			types.MetaSourceID:   sourceID,
			types.MetaChunkIndex: index,
		}
		payload.Merge(metadata)
		payload.Merge(c.Metadata)
		payload[types.MetaContent] = c.Content
		payload[types.MetaType] = string(c.Kind)

		point := types.Point{
			ID:      idx.pointID(sourceID, index, c.Content),
			Vector:  vectors[i],
			Payload: payload,
		}
		ids[i] = point.ID

		coll := idx.CollectionFor(c)
		routes[i] = coll
		if _, ok := byCollection[coll]; !ok {
			order = append(order, coll)
		}
		byCollection[coll] = append(byCollection[coll], point)
	}

	written := make(map[string]int, len(order))
	for _, coll := range order {
		points := byCollection[coll]
		sctx, cancel := withTimeout(ctx, idx.config.StoreTimeout)
		err := idx.backend.Upsert(sctx, coll, points, true)
		cancel()
		if err != nil {
			return written, committedIDs(ids, routes, written), coll,
				fmt.Errorf("%w: %s: %v", types.ErrStoreWrite, coll, err)
		}
		written[coll] = len(points)
	}

	return written, ids, "", nil
}

// committedIDs keeps the ids routed to a collection present in written
func committedIDs(ids, routes []string, written map[string]int) []string {
	out := make([]string, 0, len(ids))
	for i, id := range ids {
		if _, ok := written[routes[i]]; ok {
			out = append(out, id)
		}
	}
	return out
}

// embedAll embeds every chunk with bounded concurrency, preserving order
func (idx *Indexer) embedAll(ctx context.Context, batch []types.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.config.EmbedConcurrency)

	for i, c := range batch {
		g.Go(func() error {
			vec, err := idx.embed(gctx, c.Content)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// embed generates one embedding under the embed timeout
func (idx *Indexer) embed(ctx context.Context, text string) ([]float32, error) {
	ectx, cancel := withTimeout(ctx, idx.config.EmbedTimeout)
	defer cancel()

	emb, err := idx.embedder.GenerateEmbedding(ectx, embedder.EmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingFailure, err)
	}
	if err := embedder.CheckDimension(emb.Vector, idx.embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingFailure, err)
	}
	return emb.Vector, nil
}

func (idx *Indexer) pointID(sourceID string, index int, content string) string {
	if idx.config.IDStrategy == IDStrategyContent {
		key := fmt.Sprintf("%s|%d|%s", sourceID, index, content)
		return uuid.NewSHA1(contentNamespace, []byte(key)).String()
	}
	return uuid.New().String()
}

// StoreSnippet embeds content as a single point in the code collection
func (idx *Indexer) StoreSnippet(ctx context.Context, content string, metadata types.Metadata) (*types.Point, error) {
	chunk := types.NewChunk(content, types.KindCode, nil)
	if err := chunk.Validate(); err != nil {
		return nil, err
	}
	if err := idx.EnsureCollections(ctx); err != nil {
		return nil, err
	}

	vector, err := idx.embed(ctx, content)
	if err != nil {
		return nil, err
	}

	payload := types.Metadata{types.MetaContent: content}
	payload.Merge(metadata)
	payload[types.MetaType] = string(types.KindCode)

	point := &types.Point{
		ID:      uuid.New().String(),
		Vector:  vector,
		Payload: payload,
	}

	sctx, cancel := withTimeout(ctx, idx.config.StoreTimeout)
	defer cancel()
	if err := idx.backend.Upsert(sctx, idx.config.CodeCollection, []types.Point{*point}, true); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrStoreWrite, idx.config.CodeCollection, err)
	}

	log.Printf("Stored code snippet %s", point.ID)
	return point, nil
}

// IngestFile dispatches, embeds and stores one uploaded file. progress, when
// set, receives one line per stage and a final success line. When a batch
// fails after earlier writes were committed, the error comes with a partial
// report whose Result counts those points.
func (idx *Indexer) IngestFile(ctx context.Context, data []byte, filename string,
	progress func(string)) (*IngestReport, error) {

	if progress == nil {
		progress = func(string) {}
	}
	startTime := time.Now()
	sourceID := filepath.Base(filename)

	release, ok := idx.locks.tryAcquire(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIngestInProgress, sourceID)
	}
	defer release()

	kind, chunks, err := idx.dispatcher.Parse(ctx, data, filename)
	if err != nil {
		return nil, err
	}
	progress(fmt.Sprintf("Parsed %d chunks from %s (%s)", len(chunks), sourceID, kind))

	result, err := idx.UpsertChunks(ctx, chunks, sourceID, nil, 0)
	if err != nil {
		if result == nil || result.Total() == 0 {
			return nil, err
		}
		return &IngestReport{
			Filename: filename,
			SourceID: sourceID,
			Kind:     kind,
			Chunks:   len(chunks),
			Result:   result,
			Duration: time.Since(startTime),
		}, err
	}

	if n := result.Points[idx.config.ProseCollection]; n > 0 {
		progress(fmt.Sprintf("Stored %d text chunks in %s", n, idx.config.ProseCollection))
	}
	if n := result.Points[idx.config.CodeCollection]; n > 0 {
		progress(fmt.Sprintf("Stored %d code chunks in %s", n, idx.config.CodeCollection))
	}

	report := &IngestReport{
		Filename: filename,
		SourceID: sourceID,
		Kind:     kind,
		Chunks:   len(chunks),
		Result:   result,
		Duration: time.Since(startTime),
	}
	progress(fmt.Sprintf("Ingested %s: %d chunks in %d batches (%v)",
		sourceID, report.Chunks, result.Batches, report.Duration.Round(time.Millisecond)))

	return report, nil
}

// Stats returns point counts for both collections
func (idx *Indexer) Stats(ctx context.Context) (*Statistics, error) {
	if err := idx.EnsureCollections(ctx); err != nil {
		return nil, err
	}

	stats := &Statistics{
		Collections: make(map[string]int, 2),
		Provider:    idx.embedder.Provider(),
		Model:       idx.embedder.Model(),
		Dimension:   idx.embedder.Dimension(),
	}
	for _, name := range []string{idx.config.ProseCollection, idx.config.CodeCollection} {
		sctx, cancel := withTimeout(ctx, idx.config.StoreTimeout)
		n, err := idx.backend.Count(sctx, name)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		stats.Collections[name] = n
	}
	return stats, nil
}

// withTimeout derives a context bounded by d; zero leaves ctx unbounded
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
