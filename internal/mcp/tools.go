package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docrag-mcp/internal/dispatch"
	"github.com/dshills/docrag-mcp/internal/indexer"
	"github.com/dshills/docrag-mcp/internal/searcher"
	"github.com/dshills/docrag-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeFileNotFound       = -32001 // Path does not name a readable file
	ErrorCodeIngestInProgress   = -32002 // The same source is already being ingested
	ErrorCodeUnsupportedFile    = -32003 // Extension has no chunker
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeNoValidChunks      = -32005 // File produced no usable chunks
	ErrorCodeServiceUnavailable = -32006 // Embedding service or vector store failed
)

// MaxFileSize bounds files read from disk by ingest_file
const MaxFileSize = 64 << 20

// handleIngestFile handles the ingest_file tool invocation
func (s *Server) handleIngestFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	data, filename, err := readIngestInput(args)
	if err != nil {
		return nil, err
	}

	var progress []string
	report, err := s.indexer.IngestFile(ctx, data, filename, func(line string) {
		log.Print(line)
		progress = append(progress, line)
	})
	if report != nil && report.Result.Total() > 0 {
		s.searcher.InvalidateCache()
	}
	if err != nil {
		return nil, ingestError(err, report, filename)
	}

	response := map[string]interface{}{
		"ingested":    true,
		"filename":    report.SourceID,
		"kind":        string(report.Kind),
		"chunks":      report.Chunks,
		"batches":     report.Result.Batches,
		"points":      report.Result.Points,
		"duration_ms": report.Duration.Milliseconds(),
		"progress":    progress,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// readIngestInput resolves the file bytes from either path or content
func readIngestInput(args map[string]interface{}) ([]byte, string, error) {
	path := getStringDefault(args, "path", "")
	content, hasContent := args["content"].(string)

	switch {
	case path != "" && hasContent:
		return nil, "", newMCPError(ErrorCodeInvalidParams, "path and content are mutually exclusive", map[string]interface{}{
			"param":  "path",
			"reason": "both path and content given",
		})

	case path != "":
		if err := validateFile(path); err != nil {
			code := ErrorCodeFileNotFound
			if errors.Is(err, ErrPathNotAbsolute) || errors.Is(err, ErrFileTooLarge) {
				code = ErrorCodeInvalidParams
			}
			return nil, "", newMCPError(code, "invalid path", map[string]interface{}{
				"param":  "path",
				"reason": err.Error(),
			})
		}
		if dispatch.Classify(path) == types.FileUnsupported {
			return nil, "", newMCPError(ErrorCodeUnsupportedFile, "unsupported file type", map[string]interface{}{
				"param": "path",
				"ext":   filepath.Ext(path),
			})
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", newMCPError(ErrorCodeFileNotFound, "failed to read file", map[string]interface{}{
				"param":  "path",
				"reason": err.Error(),
			})
		}
		return data, path, nil

	case hasContent:
		filename := getStringDefault(args, "filename", "")
		if filename == "" {
			return nil, "", newMCPError(ErrorCodeInvalidParams, "filename parameter is required with content", map[string]interface{}{
				"param":  "filename",
				"reason": "missing or empty",
			})
		}
		switch enc := getStringDefault(args, "encoding", "text"); enc {
		case "text":
			return []byte(content), filename, nil
		case "base64":
			data, err := base64.StdEncoding.DecodeString(content)
			if err != nil {
				return nil, "", newMCPError(ErrorCodeInvalidParams, "content is not valid base64", map[string]interface{}{
					"param":  "content",
					"reason": err.Error(),
				})
			}
			return data, filename, nil
		default:
			return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid encoding", map[string]interface{}{
				"param":   "encoding",
				"value":   enc,
				"allowed": []string{"text", "base64"},
			})
		}

	default:
		return nil, "", newMCPError(ErrorCodeInvalidParams, "path or content parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
}

// ingestError maps a pipeline failure to its MCP error code
func ingestError(err error, partial *indexer.IngestReport, filename string) error {
	data := map[string]interface{}{
		"filename": filepath.Base(filename),
		"error":    err.Error(),
	}

	var batchErr *indexer.BatchError
	if errors.As(err, &batchErr) {
		data["batch_start"] = batchErr.Start
		data["batch_end"] = batchErr.End
		if batchErr.Collection != "" {
			data["collection"] = batchErr.Collection
		}
	}
	if partial != nil {
		data["committed_points"] = partial.Result.Points
	}

	switch {
	case errors.Is(err, indexer.ErrIngestInProgress):
		return newMCPError(ErrorCodeIngestInProgress, "file is already being ingested", data)
	case errors.Is(err, types.ErrUnsupportedFileType):
		return newMCPError(ErrorCodeUnsupportedFile, "unsupported file type", data)
	case errors.Is(err, types.ErrNoValidChunks):
		return newMCPError(ErrorCodeNoValidChunks, "file produced no valid chunks", data)
	case errors.Is(err, types.ErrEmbeddingFailure), errors.Is(err, types.ErrStoreWrite):
		return newMCPError(ErrorCodeServiceUnavailable, "ingestion failed", data)
	default:
		return newMCPError(ErrorCodeInternalError, "ingestion failed", data)
	}
}

// handleQueryContext handles the query_context tool invocation
func (s *Server) handleQueryContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	req := searcher.QueryRequest{
		Query:          query,
		Limit:          getIntDefault(args, "limit", 0),
		ScoreThreshold: getFloatDefault(args, "score_threshold", 0),
		MaxPerKind:     getIntDefault(args, "max_per_kind", 0),
		Generate:       getBoolDefault(args, "generate", false),
	}
	if req.Limit < 0 || req.MaxPerKind < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit and max_per_kind must be positive", map[string]interface{}{
			"limit":        req.Limit,
			"max_per_kind": req.MaxPerKind,
		})
	}
	if req.ScoreThreshold < -1 || req.ScoreThreshold > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "score_threshold must be between -1 and 1", map[string]interface{}{
			"param": "score_threshold",
			"value": req.ScoreThreshold,
		})
	}
	if filters, ok := args["filters"].(map[string]interface{}); ok {
		req.Filter = types.FilterFromMetadata(filters)
	}

	resp, err := s.searcher.Query(ctx, req)
	if err != nil {
		code := ErrorCodeInternalError
		if errors.Is(err, types.ErrEmbeddingFailure) || errors.Is(err, types.ErrStoreSearch) {
			code = ErrorCodeServiceUnavailable
		}
		return nil, newMCPError(code, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"context":         resp.Context,
		"code_hits":       hitSummaries(resp.Results.Code),
		"text_hits":       hitSummaries(resp.Results.Text),
		"filter":          filterSummary(resp.Filter),
		"filter_inferred": resp.Inferred,
		"cache_hit":       resp.CacheHit,
		"duration_ms":     resp.Duration.Milliseconds(),
	}
	if req.Generate {
		response["answer"] = resp.Answer
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleStoreSnippet handles the store_snippet tool invocation
func (s *Server) handleStoreSnippet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}
	metadata, _ := args["metadata"].(map[string]interface{})

	point, err := s.indexer.StoreSnippet(ctx, content, types.Metadata(metadata))
	if err != nil {
		code := ErrorCodeInternalError
		switch {
		case errors.Is(err, types.ErrEmptyContent):
			code = ErrorCodeInvalidParams
		case errors.Is(err, types.ErrEmbeddingFailure), errors.Is(err, types.ErrStoreWrite):
			code = ErrorCodeServiceUnavailable
		}
		return nil, newMCPError(code, "failed to store snippet", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"stored":     true,
		"id":         point.ID,
		"collection": s.indexer.Config().CodeCollection,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.indexer.Stats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeServiceUnavailable, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	total := 0
	for _, n := range stats.Collections {
		total += n
	}

	response := map[string]interface{}{
		"collections":  stats.Collections,
		"total_points": total,
		"embedder": map[string]interface{}{
			"provider":  stats.Provider,
			"model":     stats.Model,
			"dimension": stats.Dimension,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// hitSummaries lists the identifying payload fields of each hit
func hitSummaries(hits []types.SearchHit) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(hits))
	for _, h := range hits {
		summary := map[string]interface{}{
			"id":    h.ID,
			"score": h.Score,
		}
		for _, key := range []string{types.MetaFilename, types.MetaSourceID, types.MetaChunkIndex, types.MetaLanguage} {
			if v, ok := h.Payload[key]; ok {
				summary[key] = v
			}
		}
		out = append(out, summary)
	}
	return out
}

// filterSummary renders a filter as key/value conditions
func filterSummary(f *types.Filter) []map[string]interface{} {
	if f.IsEmpty() {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(f.Must))
	for _, c := range f.Must {
		out = append(out, map[string]interface{}{"key": c.Key, "value": c.Value})
	}
	return out
}

// validateFile checks that path names a readable regular file
func validateFile(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.Mode().IsRegular() {
		return ErrNotRegularFile
	}
	if info.Size() > MaxFileSize {
		return ErrFileTooLarge
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotRegularFile  = errors.New("path is not a regular file")
	ErrFileTooLarge    = errors.New("file exceeds the size limit")
)
