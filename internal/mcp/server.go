package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docrag-mcp/internal/app"
	"github.com/dshills/docrag-mcp/internal/config"
	"github.com/dshills/docrag-mcp/internal/indexer"
	"github.com/dshills/docrag-mcp/internal/searcher"
	"github.com/dshills/docrag-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docrag-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	app      *app.App
	backend  storage.Backend
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
}

// NewServer builds the pipeline from cfg and registers the tools
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := newServer(a.Backend, a.Indexer, a.Searcher)
	s.app = a
	return s, nil
}

// newServer registers the tools over already wired components
func newServer(backend storage.Backend, idx *indexer.Indexer, srch *searcher.Searcher) *Server {
	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		backend:  backend,
		indexer:  idx,
		searcher: srch,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the pipeline
func (s *Server) Close() error {
	if s.app != nil {
		return s.app.Close()
	}
	if err := s.backend.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestFileTool(), s.handleIngestFile)
	s.mcp.AddTool(queryContextTool(), s.handleQueryContext)
	s.mcp.AddTool(storeSnippetTool(), s.handleStoreSnippet)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
