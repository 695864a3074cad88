// Package storage provides the vector store backends.
//
// A Backend holds named collections of points. Each point has a string id,
// a float32 vector and a JSON payload. Two implementations exist:
//
//   - SQLiteBackend: a local database (file or ":memory:"), schema managed
//     by semver-ordered migrations
//   - QdrantBackend: a REST client for a Qdrant server
//
// # Basic Usage
//
//	backend, err := storage.Open(storage.Config{
//	    Backend:    "sqlite",
//	    SQLitePath: "~/.docrag/points.db",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	if err := backend.EnsureCollection(ctx, "code_snippets", 1024); err != nil {
//	    log.Fatal(err)
//	}
//
//	hits, err := backend.Search(ctx, "code_snippets", storage.SearchParams{
//	    Vector:         queryVector,
//	    Limit:          500,
//	    ScoreThreshold: 0.7,
//	    Filter:         types.FilterFromMetadata(map[string]any{"framework": "react"}),
//	})
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migration versions
//   - collections: name, vector size and distance
//   - points: (collection, id) primary key, vector blob, payload JSON
//
// # Filters
//
// Both backends apply types.Filter the same way: every condition must hold,
// and a condition on an array-valued payload key holds when the array
// contains the value. Qdrant evaluates the filter server side; SQLite decodes
// each candidate payload and evaluates it in Go.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite and scores in Go. Building with
// -tags sqlite_vec switches to github.com/mattn/go-sqlite3 and scores with
// vec_distance_cosine in SQL.
package storage
