package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// searchVector performs vector similarity search using cosine similarity
func searchVector(ctx context.Context, db *sql.DB, collection string, params SearchParams) ([]types.SearchHit, error) {
	// Use SQL-side scoring when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, db, collection, params)
	}
	return searchVectorFallback(ctx, db, collection, params)
}

// searchVectorOptimized orders candidates by vec_distance_cosine in SQL.
// Payload filters are still evaluated in Go, so LIMIT cannot be pushed down.
func searchVectorOptimized(ctx context.Context, db *sql.DB, collection string, params SearchParams) ([]types.SearchHit, error) {
	queryVectorBlob := serializeVector(params.Vector)

	// vec_distance_cosine returns distance (lower is better)
	query := `
		SELECT id, vector, payload, 1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM points
		WHERE collection = ? AND (1.0 - vec_distance_cosine(vector, ?)) >= ?
		ORDER BY similarity DESC
	`
	rows, err := db.QueryContext(ctx, query, queryVectorBlob, collection, queryVectorBlob, params.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]types.SearchHit, 0, params.Limit)
	for rows.Next() && len(hits) < params.Limit {
		var id string
		var blob, payload []byte
		var score float64
		if err := rows.Scan(&id, &blob, &payload, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		hit, ok, err := buildHit(id, blob, payload, score, params)
		if err != nil {
			return nil, err
		}
		if ok {
			hits = append(hits, hit)
		}
	}

	return hits, rows.Err()
}

// searchVectorFallback scores every point of the collection in Go.
// Used when the sqlite-vec extension is not available (purego builds).
func searchVectorFallback(ctx context.Context, db *sql.DB, collection string, params SearchParams) ([]types.SearchHit, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, vector, payload FROM points WHERE collection = ?", collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]types.SearchHit, 0)
	for rows.Next() {
		var id string
		var blob, payload []byte
		if err := rows.Scan(&id, &blob, &payload); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(params.Vector) {
			continue // Dimension mismatch, skip
		}

		similarity := cosineSimilarity(params.Vector, vector)
		if similarity < params.ScoreThreshold {
			continue
		}

		hit, ok, err := buildHit(id, blob, payload, similarity, params)
		if err != nil {
			return nil, err
		}
		if ok {
			candidates = append(candidates, hit)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortHits(candidates)
	if len(candidates) > params.Limit {
		candidates = candidates[:params.Limit]
	}
	return candidates, nil
}

// buildHit decodes a row and applies the payload filter
func buildHit(id string, blob, payload []byte, score float64, params SearchParams) (types.SearchHit, bool, error) {
	meta, err := decodePayload(payload)
	if err != nil {
		return types.SearchHit{}, false, fmt.Errorf("point %s: %w", id, err)
	}
	if !params.Filter.Matches(meta) {
		return types.SearchHit{}, false, nil
	}

	hit := types.SearchHit{ID: id, Score: score, Payload: meta}
	if params.WithVector {
		hit.Vector = deserializeVector(blob)
	}
	return hit, true, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortHits sorts hits by score in descending order, ties by id
func sortHits(hits []types.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
