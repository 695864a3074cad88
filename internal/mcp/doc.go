// Package mcp implements the Model Context Protocol (MCP) server for docrag.
//
// The MCP server exposes four tools to AI assistants:
//   - ingest_file: Chunk, embed and store a file
//   - query_context: Retrieve grounding context for a question
//   - store_snippet: Store one code snippet
//   - get_status: Report collection sizes and the embedding model
//
// The server communicates with MCP clients via standard input/output.
// Logs go to stderr since stdout carries the protocol.
//
// # Tool: ingest_file
//
// A file is given either as an absolute path or inline:
//
//	Request:
//	{
//	  "name": "ingest_file",
//	  "arguments": {
//	    "content": "# Setup\n\nInstall the tool.",
//	    "filename": "README.md"
//	  }
//	}
//
//	Response:
//	{
//	  "ingested": true,
//	  "filename": "README.md",
//	  "kind": "markdown",
//	  "chunks": 1,
//	  "batches": 1,
//	  "points": {"data_history": 1},
//	  "progress": [
//	    "Parsed 1 chunks from README.md (markdown)",
//	    "Stored 1 text chunks in data_history",
//	    "Ingested README.md: 1 chunks in 1 batches (12ms)"
//	  ]
//	}
//
// Binary formats such as PDF are sent with "encoding": "base64".
//
// # Tool: query_context
//
//	Request:
//	{
//	  "name": "query_context",
//	  "arguments": {
//	    "query": "how do I install it?",
//	    "filters": {"language": "markdown"},
//	    "generate": true
//	  }
//	}
//
//	Response:
//	{
//	  "context": "[Text 1]\n# Setup\n\nInstall the tool.",
//	  "answer": "Install the tool with ...",
//	  "code_hits": [],
//	  "text_hits": [{"id": "...", "score": 0.83, "filename": "README.md"}],
//	  "filter": [{"key": "language", "value": "markdown"}],
//	  "filter_inferred": false,
//	  "cache_hit": false
//	}
//
// When nothing passes the score threshold the context is the
// "Insufficient information" sentinel and no answer is generated.
//
// # Error Handling
//
// Handlers return *MCPError values which the framework encodes as
// JSON-RPC errors. Error codes:
//   - -32602: Invalid params
//   - -32603: Internal error
//   - -32001: File not found or unreadable
//   - -32002: Same file already being ingested
//   - -32003: Unsupported file type
//   - -32004: Empty query
//   - -32005: No valid chunks
//   - -32006: Embedding service or vector store unavailable
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "docrag": {
//	      "command": "/usr/local/bin/docrag",
//	      "args": ["--config", "/etc/docrag.yaml"],
//	      "env": {
//	        "DOCRAG_STORE_BACKEND": "qdrant",
//	        "DOCRAG_QDRANT_URL": "http://localhost:6333"
//	      }
//	    }
//	  }
//	}
package mcp
