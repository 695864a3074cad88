package searcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docrag-mcp/internal/embedder"
	"github.com/dshills/docrag-mcp/internal/llm"
	"github.com/dshills/docrag-mcp/internal/storage"
	"github.com/dshills/docrag-mcp/pkg/types"
)

// mockEmbedder implements the Embedder interface for testing
type mockEmbedder struct {
	generateFunc func(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error)
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &embedder.Embedding{
		Vector:    embedder.HashVector(req.Text, 4),
		Dimension: 4,
		Model:     "mock-model",
		Provider:  "mock",
	}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	return nil, errors.New("not used")
}

func (m *mockEmbedder) Dimension() int   { return 4 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-model" }
func (m *mockEmbedder) Close() error     { return nil }

// mockBackend returns canned hits per collection
type mockBackend struct {
	mu       sync.Mutex
	hits     map[string][]types.SearchHit
	errs     map[string]error
	searches []storage.SearchParams
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		hits: make(map[string][]types.SearchHit),
		errs: make(map[string]error),
	}
}

func (m *mockBackend) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	return nil
}

func (m *mockBackend) Upsert(ctx context.Context, collection string, points []types.Point, wait bool) error {
	return nil
}

func (m *mockBackend) Search(ctx context.Context, collection string, params storage.SearchParams) ([]types.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, params)
	if err := m.errs[collection]; err != nil {
		return nil, err
	}
	var out []types.SearchHit
	for _, h := range m.hits[collection] {
		if h.Score >= params.ScoreThreshold && params.Filter.Matches(h.Payload) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockBackend) Count(ctx context.Context, collection string) (int, error) {
	return len(m.hits[collection]), nil
}

func (m *mockBackend) Close() error { return nil }

func (m *mockBackend) searchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searches)
}

func hit(id, content string, score float64) types.SearchHit {
	return types.SearchHit{ID: id, Score: score, Payload: types.Metadata{types.MetaContent: content}}
}

// staticGenerator streams fixed fragments
type staticGenerator struct {
	fragments []string
	calls     int
	prompt    llm.Prompt
}

func (g *staticGenerator) Stream(ctx context.Context, prompt llm.Prompt) (<-chan llm.Fragment, error) {
	g.calls++
	g.prompt = prompt
	out := make(chan llm.Fragment, len(g.fragments)+1)
	for _, f := range g.fragments {
		out <- llm.Fragment{Text: f}
	}
	out <- llm.Fragment{Done: true}
	close(out)
	return out, nil
}

type staticInferrer struct {
	filter types.Filter
	ok     bool
}

func (s staticInferrer) InferFilter(ctx context.Context, query string) (types.Filter, bool) {
	return s.filter, s.ok
}

func TestSearch_BothCollections(t *testing.T) {
	backend := newMockBackend()
	backend.hits["code_snippets"] = []types.SearchHit{hit("c1", "func a()", 0.9)}
	backend.hits["data_history"] = []types.SearchHit{hit("t1", "some text", 0.8), hit("t2", "low", 0.5)}

	s := New(backend, &mockEmbedder{}, Config{})
	results, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, nil, 10, 0.7)
	require.NoError(t, err)

	require.Len(t, results.Code, 1)
	require.Len(t, results.Text, 1)
	assert.Equal(t, "c1", results.Code[0].ID)
	assert.Equal(t, "t1", results.Text[0].ID)
	assert.Equal(t, 2, backend.searchCount())
}

func TestSearch_SameFilterForBoth(t *testing.T) {
	backend := newMockBackend()
	s := New(backend, &mockEmbedder{}, Config{})

	filter := &types.Filter{Must: []types.Condition{{Key: "language", Value: "go"}}}
	_, err := s.Search(context.Background(), []float32{1}, filter, 5, 0.7)
	require.NoError(t, err)

	require.Len(t, backend.searches, 2)
	for _, p := range backend.searches {
		assert.Same(t, filter, p.Filter)
		assert.Equal(t, 5, p.Limit)
	}
}

func TestSearch_OneCollectionFails(t *testing.T) {
	backend := newMockBackend()
	backend.hits["data_history"] = []types.SearchHit{hit("t1", "text", 0.9)}
	backend.errs["code_snippets"] = errors.New("connection refused")

	s := New(backend, &mockEmbedder{}, Config{})
	results, err := s.Search(context.Background(), []float32{1}, nil, 10, 0.7)

	assert.Nil(t, results)
	assert.ErrorIs(t, err, types.ErrStoreSearch)
	assert.Contains(t, err.Error(), "code_snippets")
}

func TestSearch_EmptyVector(t *testing.T) {
	s := New(newMockBackend(), &mockEmbedder{}, Config{})
	_, err := s.Search(context.Background(), nil, nil, 10, 0.7)
	assert.ErrorIs(t, err, types.ErrStoreSearch)
}

func TestAssemble(t *testing.T) {
	code := []types.SearchHit{hit("c1", "func a() {}", 0.9), hit("c2", "func b() {}", 0.8)}
	text := []types.SearchHit{hit("t1", "Binary search halves the range.", 0.85)}

	got := Assemble(code, text, 5)
	want := "[Code 1]\nfunc a() {}\n\n[Code 2]\nfunc b() {}\n\n[Text 1]\nBinary search halves the range."
	assert.Equal(t, want, got)
}

func TestAssemble_Truncates(t *testing.T) {
	var code []types.SearchHit
	for i := 0; i < 8; i++ {
		code = append(code, hit("c", "code", 0.9))
	}

	got := Assemble(code, nil, 3)
	assert.Equal(t, 3, strings.Count(got, "[Code "))
	assert.NotContains(t, got, "[Code 4]")

	got = Assemble(code, nil, 0)
	assert.Equal(t, DefaultMaxPerKind, strings.Count(got, "[Code "))
}

func TestAssemble_SkipsBlank(t *testing.T) {
	text := []types.SearchHit{hit("t1", "   ", 0.9), hit("t2", "kept", 0.8)}
	got := Assemble(nil, text, 5)
	assert.Equal(t, "[Text 2]\nkept", got)
}

func TestAssemble_Sentinel(t *testing.T) {
	assert.Equal(t, InsufficientInformation, Assemble(nil, nil, 5))
	assert.Equal(t, InsufficientInformation, Assemble([]types.SearchHit{hit("c", "\n\t", 0.9)}, nil, 5))
}

// Both collections empty yields the sentinel
func TestQuery_EmptyStore(t *testing.T) {
	ctx := context.Background()
	backend, err := storage.NewSQLiteBackend(":memory:")
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.EnsureCollection(ctx, "data_history", 4))
	require.NoError(t, backend.EnsureCollection(ctx, "code_snippets", 4))

	gen := &staticGenerator{fragments: []string{"made up"}}
	s := New(backend, &mockEmbedder{}, Config{}).WithGenerator(gen)

	resp, err := s.Query(ctx, QueryRequest{Query: "binary search implementation", Generate: true})
	require.NoError(t, err)
	assert.Equal(t, InsufficientInformation, resp.Context)
	assert.Equal(t, InsufficientInformation, resp.Answer)
	assert.Zero(t, gen.calls, "generator is not asked without context")
}

func TestQuery_Generate(t *testing.T) {
	backend := newMockBackend()
	backend.hits["code_snippets"] = []types.SearchHit{hit("c1", "func search()", 0.9)}

	gen := &staticGenerator{fragments: []string{"Use ", "search()."}}
	s := New(backend, &mockEmbedder{}, Config{}).WithGenerator(gen)

	var streamed []string
	resp, err := s.Query(context.Background(), QueryRequest{
		Query:      "how do I search?",
		Generate:   true,
		OnFragment: func(text string) { streamed = append(streamed, text) },
	})
	require.NoError(t, err)

	assert.Equal(t, "Use search().", resp.Answer)
	assert.Equal(t, []string{"Use ", "search()."}, streamed)
	assert.Equal(t, "how do I search?", gen.prompt.Question)
	assert.Equal(t, "[Code 1]\nfunc search()", gen.prompt.Context)
}

func TestQuery_NoGenerate(t *testing.T) {
	backend := newMockBackend()
	backend.hits["data_history"] = []types.SearchHit{hit("t1", "text", 0.9)}

	gen := &staticGenerator{fragments: []string{"x"}}
	s := New(backend, &mockEmbedder{}, Config{}).WithGenerator(gen)

	resp, err := s.Query(context.Background(), QueryRequest{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.Answer)
	assert.Zero(t, gen.calls)
}

func TestQuery_Validation(t *testing.T) {
	s := New(newMockBackend(), &mockEmbedder{}, Config{})

	_, err := s.Query(context.Background(), QueryRequest{Query: "   "})
	assert.Error(t, err)

	_, err = s.Query(context.Background(), QueryRequest{Query: "q", ScoreThreshold: 2})
	assert.Error(t, err)
}

func TestQuery_Defaults(t *testing.T) {
	backend := newMockBackend()
	s := New(backend, &mockEmbedder{}, Config{})

	_, err := s.Query(context.Background(), QueryRequest{Query: "q"})
	require.NoError(t, err)

	require.Len(t, backend.searches, 2)
	assert.Equal(t, DefaultLimit, backend.searches[0].Limit)
	assert.Equal(t, DefaultScoreThreshold, backend.searches[0].ScoreThreshold)
}

func TestQuery_EmbeddingFailure(t *testing.T) {
	emb := &mockEmbedder{generateFunc: func(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
		return nil, errors.New("ollama down")
	}}
	s := New(newMockBackend(), emb, Config{})

	_, err := s.Query(context.Background(), QueryRequest{Query: "q"})
	assert.ErrorIs(t, err, types.ErrEmbeddingFailure)
}

func TestQuery_InferredFilter(t *testing.T) {
	backend := newMockBackend()
	backend.hits["code_snippets"] = []types.SearchHit{
		{ID: "c1", Score: 0.9, Payload: types.Metadata{types.MetaContent: "jsx", "language": "tsx"}},
		{ID: "c2", Score: 0.9, Payload: types.Metadata{types.MetaContent: "go", "language": "go"}},
	}

	inferred := types.Filter{Must: []types.Condition{{Key: "language", Value: "tsx"}}}
	s := New(backend, &mockEmbedder{}, Config{InferFilters: true}).
		WithFilterInferrer(staticInferrer{filter: inferred, ok: true})

	resp, err := s.Query(context.Background(), QueryRequest{Query: "dialog in tsx"})
	require.NoError(t, err)
	assert.True(t, resp.Inferred)
	require.Len(t, resp.Results.Code, 1)
	assert.Equal(t, "c1", resp.Results.Code[0].ID)
}

func TestQuery_ExplicitFilterWins(t *testing.T) {
	backend := newMockBackend()
	explicit := &types.Filter{Must: []types.Condition{{Key: "type", Value: "code"}}}

	s := New(backend, &mockEmbedder{}, Config{InferFilters: true}).
		WithFilterInferrer(staticInferrer{filter: types.Filter{Must: []types.Condition{{Key: "x", Value: "y"}}}, ok: true})

	resp, err := s.Query(context.Background(), QueryRequest{Query: "q", Filter: explicit})
	require.NoError(t, err)
	assert.False(t, resp.Inferred)
	assert.Same(t, explicit, resp.Filter)
}

func TestQuery_InferenceDisabled(t *testing.T) {
	s := New(newMockBackend(), &mockEmbedder{}, Config{}).
		WithFilterInferrer(staticInferrer{filter: types.Filter{Must: []types.Condition{{Key: "x", Value: "y"}}}, ok: true})

	resp, err := s.Query(context.Background(), QueryRequest{Query: "q"})
	require.NoError(t, err)
	assert.Nil(t, resp.Filter)
}

func TestQuery_Cache(t *testing.T) {
	backend := newMockBackend()
	backend.hits["data_history"] = []types.SearchHit{hit("t1", "text", 0.9)}
	s := New(backend, &mockEmbedder{}, Config{})
	ctx := context.Background()

	first, err := s.Query(ctx, QueryRequest{Query: "q"})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.Query(ctx, QueryRequest{Query: "q"})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Context, second.Context)
	assert.Equal(t, 2, backend.searchCount(), "cached query does not search again")

	second.Results.Text[0].Payload[types.MetaContent] = "mutated"
	third, err := s.Query(ctx, QueryRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "text", third.Results.Text[0].Content(), "cache hands out copies")

	s.InvalidateCache()
	_, err = s.Query(ctx, QueryRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, 4, backend.searchCount())
}

func TestQuery_CacheExpiry(t *testing.T) {
	backend := newMockBackend()
	s := New(backend, &mockEmbedder{}, Config{CacheTTL: time.Millisecond})
	ctx := context.Background()

	_, err := s.Query(ctx, QueryRequest{Query: "q"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	resp, err := s.Query(ctx, QueryRequest{Query: "q"})
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
}

func TestQuery_CacheDisabled(t *testing.T) {
	backend := newMockBackend()
	s := New(backend, &mockEmbedder{}, Config{CacheSize: -1})

	for i := 0; i < 2; i++ {
		resp, err := s.Query(context.Background(), QueryRequest{Query: "q"})
		require.NoError(t, err)
		assert.False(t, resp.CacheHit)
	}
	assert.Equal(t, 4, backend.searchCount())
}

func TestComputeQueryHash(t *testing.T) {
	req := QueryRequest{Query: "q", Limit: 10, ScoreThreshold: 0.7}
	f1 := &types.Filter{Must: []types.Condition{{Key: "n", Value: 1}}}
	f2 := &types.Filter{Must: []types.Condition{{Key: "n", Value: "1"}}}

	assert.Equal(t, computeQueryHash(req, nil), computeQueryHash(req, nil))
	assert.NotEqual(t, computeQueryHash(req, f1), computeQueryHash(req, f2))
	assert.NotEqual(t, computeQueryHash(req, nil), computeQueryHash(QueryRequest{Query: "q", Limit: 11, ScoreThreshold: 0.7}, nil))
}
