package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// filterProperties lists the payload keys a query may filter on
func filterProperties() map[string]interface{} {
	return map[string]interface{}{
		"framework": map[string]interface{}{"type": "string"},
		"language":  map[string]interface{}{"type": "string"},
		"filename":  map[string]interface{}{"type": "string"},
		"type":      map[string]interface{}{"type": "string", "enum": []string{"text", "code"}},
		"tags": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	}
}

// ingestFileTool returns the tool definition for ingest_file
func ingestFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_file",
		Description: "Chunk, embed and store a document or source file (PDF, HTML, Markdown, text, JavaScript, Go)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the file to ingest",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "File content, used instead of path. Requires filename.",
				},
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Name whose extension selects the chunker when content is given",
				},
				"encoding": map[string]interface{}{
					"type":        "string",
					"description": "Encoding of content",
					"enum":        []string{"text", "base64"},
					"default":     "text",
				},
			},
		},
	}
}

// queryContextTool returns the tool definition for query_context
func queryContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_context",
		Description: "Retrieve code and prose chunks relevant to a question, optionally answering it with the configured LLM",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question",
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Payload conditions every hit must satisfy. Omit to let the server infer them when enabled.",
					"properties":  filterProperties(),
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum hits per collection",
					"minimum":     1,
				},
				"score_threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity of a hit",
					"minimum":     -1,
					"maximum":     1,
				},
				"max_per_kind": map[string]interface{}{
					"type":        "integer",
					"description": "Hits of each kind rendered into the context",
					"minimum":     1,
				},
				"generate": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, answer the question from the retrieved context",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}
}

// storeSnippetTool returns the tool definition for store_snippet
func storeSnippetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "store_snippet",
		Description: "Store a single code snippet in the code collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Snippet source",
				},
				"metadata": map[string]interface{}{
					"type":        "object",
					"description": "Payload fields stored with the snippet (language, framework, tags...)",
				},
			},
			Required: []string{"content"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report point counts per collection and the embedding model in use",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
