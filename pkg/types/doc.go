// Package types provides shared type definitions for the docrag MCP server.
//
// This package defines the domain types that flow through the ingestion and
// retrieval pipeline: chunks produced by the chunkers, points persisted in the
// vector store, search hits returned by similarity queries and the metadata
// filters applied to those queries.
//
// # Core Types
//
// Chunk is the atomic unit of retrieval. Its Kind decides the target
// collection and how the chunk is rendered in an assembled context:
//
//	chunk := types.NewChunk(body, types.KindCode, types.Metadata{
//	    "language": "javascript",
//	    "filename": "dialog.tsx",
//	})
//
// Point is the persisted record (id, vector, payload). SearchHit is a Point
// returned by a similarity query together with its score:
//
//	for _, hit := range results.Code {
//	    fmt.Printf("%.3f %s\n", hit.Score, hit.Content())
//	}
//
// # Filters
//
// Filter is a conjunction of equality/membership conditions over payload
// keys. FilterFromMetadata builds one from a flat metadata map, expanding
// array values into one condition per element:
//
//	f := types.FilterFromMetadata(map[string]any{
//	    "framework": "oraclejet",
//	    "tags":      []string{"dialog"},
//	})
//	// f.Must == [{framework oraclejet} {tags dialog}]
//
// # Errors
//
// The pipeline error taxonomy is expressed as sentinel errors
// (ErrUnsupportedFileType, ErrNoValidChunks, ErrEmbeddingFailure,
// ErrStoreWrite, ErrStoreSearch, ErrParseFailure). Callers test for them with
// errors.Is.
package types
