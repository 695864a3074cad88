package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docrag-mcp/internal/config"
	"github.com/dshills/docrag-mcp/internal/dispatch"
	"github.com/dshills/docrag-mcp/internal/embedder"
	"github.com/dshills/docrag-mcp/internal/indexer"
	"github.com/dshills/docrag-mcp/internal/searcher"
	"github.com/dshills/docrag-mcp/internal/storage"
	"github.com/dshills/docrag-mcp/pkg/types"
)

const testDimension = 16

func setupServer(t *testing.T) *Server {
	t.Helper()

	backend, err := storage.NewSQLiteBackend(":memory:")
	require.NoError(t, err)

	emb, err := embedder.NewLocalProvider(testDimension, nil)
	require.NoError(t, err)

	disp, err := dispatch.New(dispatch.Options{})
	require.NoError(t, err)

	idx := indexer.New(backend, emb, disp, indexer.Config{})
	require.NoError(t, idx.EnsureCollections(context.Background()))
	srch := searcher.New(backend, emb, searcher.Config{ScoreThreshold: -1})

	s := newServer(backend, idx, srch)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Arguments = args
	return request
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func TestNewServer_FromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "docrag.db")
	cfg.Embedder.Provider = embedder.ProviderLocal
	cfg.Embedder.Dimension = testDimension

	s, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.indexer, "Indexer should be created")
	assert.NotNil(t, s.searcher, "Searcher should be created")
	assert.NotNil(t, s.backend, "Backend should be created")
}

func TestNewServer_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Indexing.BatchSize = 0

	_, err := NewServer(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestIngestFile_Content(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	doc := "# Guide\n\nRun the installer before the first start.\n"
	result, err := s.handleIngestFile(ctx, callRequest(map[string]interface{}{
		"content":  doc,
		"filename": "guide.md",
	}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Equal(t, true, out["ingested"])
	assert.Equal(t, "guide.md", out["filename"])
	assert.Equal(t, "markdown", out["kind"])
	assert.NotEmpty(t, out["progress"])

	points := out["points"].(map[string]interface{})
	assert.Equal(t, float64(1), points["data_history"])
}

func TestIngestFile_Path(t *testing.T) {
	s := setupServer(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("First paragraph.\n\nSecond paragraph."), 0o644))

	result, err := s.handleIngestFile(context.Background(), callRequest(map[string]interface{}{
		"path": path,
	}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Equal(t, "notes.txt", out["filename"])
	assert.Equal(t, "text", out["kind"])
}

func TestIngestFile_Base64(t *testing.T) {
	s := setupServer(t)
	encoded := base64.StdEncoding.EncodeToString([]byte("package demo\n\nfunc One() int { return 1 }\n"))

	result, err := s.handleIngestFile(context.Background(), callRequest(map[string]interface{}{
		"content":  encoded,
		"filename": "demo.go",
		"encoding": "base64",
	}))
	require.NoError(t, err)
	assert.Equal(t, "go", resultJSON(t, result)["kind"])
}

func TestIngestFile_Errors(t *testing.T) {
	s := setupServer(t)
	dir := t.TempDir()
	unsupported := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(unsupported, []byte{0x89}, 0o644))

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"no input", map[string]interface{}{}, ErrorCodeInvalidParams},
		{"both inputs", map[string]interface{}{"path": unsupported, "content": "x", "filename": "a.txt"}, ErrorCodeInvalidParams},
		{"relative path", map[string]interface{}{"path": "notes.txt"}, ErrorCodeInvalidParams},
		{"missing file", map[string]interface{}{"path": filepath.Join(dir, "missing.txt")}, ErrorCodeFileNotFound},
		{"directory", map[string]interface{}{"path": dir}, ErrorCodeFileNotFound},
		{"unsupported path", map[string]interface{}{"path": unsupported}, ErrorCodeUnsupportedFile},
		{"unsupported content", map[string]interface{}{"content": "x", "filename": "a.xyz"}, ErrorCodeUnsupportedFile},
		{"content without filename", map[string]interface{}{"content": "x"}, ErrorCodeInvalidParams},
		{"bad base64", map[string]interface{}{"content": "!!", "filename": "a.txt", "encoding": "base64"}, ErrorCodeInvalidParams},
		{"bad encoding", map[string]interface{}{"content": "x", "filename": "a.txt", "encoding": "rot13"}, ErrorCodeInvalidParams},
		{"whitespace only", map[string]interface{}{"content": "   \n\n  ", "filename": "a.txt"}, ErrorCodeNoValidChunks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleIngestFile(context.Background(), callRequest(tt.args))
			requireMCPError(t, err, tt.code)
		})
	}
}

func TestQueryContext_AfterIngest(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	_, err := s.handleIngestFile(ctx, callRequest(map[string]interface{}{
		"content":  "package demo\n\nfunc Add(a, b int) int { return a + b }\n",
		"filename": "demo.go",
	}))
	require.NoError(t, err)

	result, err := s.handleQueryContext(ctx, callRequest(map[string]interface{}{
		"query":   "func Add(a, b int) int { return a + b }",
		"filters": map[string]interface{}{"filename": "demo.go"},
	}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Contains(t, out["context"], "[Code 1]")
	assert.Contains(t, out["context"], "func Add")
	assert.NotEmpty(t, out["code_hits"])
	assert.Empty(t, out["text_hits"])
	assert.NotEmpty(t, out["filter"])
	assert.NotContains(t, out, "answer", "answer is only reported when generation was requested")
}

func TestQueryContext_FilterExcludesEverything(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	_, err := s.handleStoreSnippet(ctx, callRequest(map[string]interface{}{
		"content":  "SELECT 1",
		"metadata": map[string]interface{}{"language": "sql"},
	}))
	require.NoError(t, err)

	result, err := s.handleQueryContext(ctx, callRequest(map[string]interface{}{
		"query":   "SELECT 1",
		"filters": map[string]interface{}{"language": "go"},
	}))
	require.NoError(t, err)
	assert.Equal(t, searcher.InsufficientInformation, resultJSON(t, result)["context"])
}

func TestQueryContext_Validation(t *testing.T) {
	s := setupServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing query", map[string]interface{}{}, ErrorCodeEmptyQuery},
		{"empty query", map[string]interface{}{"query": ""}, ErrorCodeEmptyQuery},
		{"negative limit", map[string]interface{}{"query": "q", "limit": float64(-1)}, ErrorCodeInvalidParams},
		{"threshold too high", map[string]interface{}{"query": "q", "score_threshold": 1.5}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleQueryContext(context.Background(), callRequest(tt.args))
			requireMCPError(t, err, tt.code)
		})
	}
}

func TestQueryContext_CacheInvalidatedByWrites(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()
	args := map[string]interface{}{"query": "binary search"}

	_, err := s.handleQueryContext(ctx, callRequest(args))
	require.NoError(t, err)

	result, err := s.handleQueryContext(ctx, callRequest(args))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["cache_hit"])

	_, err = s.handleStoreSnippet(ctx, callRequest(map[string]interface{}{"content": "func search() {}"}))
	require.NoError(t, err)

	result, err = s.handleQueryContext(ctx, callRequest(args))
	require.NoError(t, err)
	out := resultJSON(t, result)
	assert.Equal(t, false, out["cache_hit"])
	assert.Len(t, out["code_hits"], 1)
}

// flakyBackend fails the nth Upsert call
type flakyBackend struct {
	storage.Backend
	failOnCall int
	calls      int
}

func (f *flakyBackend) Upsert(ctx context.Context, collection string, points []types.Point, wait bool) error {
	f.calls++
	if f.calls == f.failOnCall {
		return errors.New("connection reset")
	}
	return f.Backend.Upsert(ctx, collection, points, wait)
}

func TestIngestFile_PartialCommitInvalidatesCache(t *testing.T) {
	ctx := context.Background()

	sqlite, err := storage.NewSQLiteBackend(":memory:")
	require.NoError(t, err)
	backend := &flakyBackend{Backend: sqlite, failOnCall: 2}

	emb, err := embedder.NewLocalProvider(testDimension, nil)
	require.NoError(t, err)
	disp, err := dispatch.New(dispatch.Options{})
	require.NoError(t, err)

	idx := indexer.New(backend, emb, disp, indexer.Config{BatchSize: 1})
	require.NoError(t, idx.EnsureCollections(ctx))
	srch := searcher.New(backend, emb, searcher.Config{ScoreThreshold: -1})
	s := newServer(backend, idx, srch)
	t.Cleanup(func() { _ = s.Close() })

	args := map[string]interface{}{"query": "binary search"}
	result, err := s.handleQueryContext(ctx, callRequest(args))
	require.NoError(t, err)
	assert.Empty(t, resultJSON(t, result)["text_hits"])

	_, err = s.handleIngestFile(ctx, callRequest(map[string]interface{}{
		"content":  "<p>binary search</p>",
		"filename": "page.html",
	}))
	mcpErr := requireMCPError(t, err, ErrorCodeServiceUnavailable)
	data := mcpErr.Data.(map[string]interface{})
	assert.Equal(t, 1, data["batch_start"])
	assert.Equal(t, map[string]int{"data_history": 1}, data["committed_points"])

	result, err = s.handleQueryContext(ctx, callRequest(args))
	require.NoError(t, err)
	out := resultJSON(t, result)
	assert.Equal(t, false, out["cache_hit"])
	assert.Len(t, out["text_hits"], 1)
}

func TestStoreSnippet(t *testing.T) {
	s := setupServer(t)

	result, err := s.handleStoreSnippet(context.Background(), callRequest(map[string]interface{}{
		"content":  "const x = 1;",
		"metadata": map[string]interface{}{"language": "javascript", "tags": []interface{}{"demo"}},
	}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Equal(t, true, out["stored"])
	assert.Equal(t, "code_snippets", out["collection"])
	assert.NotEmpty(t, out["id"])

	_, err = s.handleStoreSnippet(context.Background(), callRequest(map[string]interface{}{"content": ""}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleStoreSnippet(context.Background(), callRequest(map[string]interface{}{"content": "  \n "}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestGetStatus(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	_, err := s.handleStoreSnippet(ctx, callRequest(map[string]interface{}{"content": "fmt.Println(1)"}))
	require.NoError(t, err)

	result, err := s.handleGetStatus(ctx, callRequest(map[string]interface{}{}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	collections := out["collections"].(map[string]interface{})
	assert.Equal(t, float64(1), collections["code_snippets"])
	assert.Equal(t, float64(0), collections["data_history"])
	assert.Equal(t, float64(1), out["total_points"])

	emb := out["embedder"].(map[string]interface{})
	assert.Equal(t, "local", emb["provider"])
	assert.Equal(t, float64(testDimension), emb["dimension"])
}

func TestInvalidArguments(t *testing.T) {
	s := setupServer(t)
	var request mcp.CallToolRequest
	request.Params.Arguments = "not an object"

	_, err := s.handleIngestFile(context.Background(), request)
	requireMCPError(t, err, ErrorCodeInvalidParams)
	_, err = s.handleQueryContext(context.Background(), request)
	requireMCPError(t, err, ErrorCodeInvalidParams)
	_, err = s.handleStoreSnippet(context.Background(), request)
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestMCPError(t *testing.T) {
	err := newMCPError(ErrorCodeEmptyQuery, "query parameter is required", nil)
	assert.Equal(t, "MCP error -32004: query parameter is required", err.Error())
}
