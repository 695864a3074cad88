package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/docrag-mcp/pkg/types"
)

var (
	// ErrCollectionNotFound is returned when writing to or searching an unknown collection
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidVector is returned when a vector does not match its collection
	ErrInvalidVector = errors.New("invalid vector")
	// ErrUnsupportedDistance is returned when a backend cannot rank by the configured metric
	ErrUnsupportedDistance = errors.New("unsupported distance")
)

// Backend names
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Distance metrics, named as Qdrant names them
const (
	DistanceCosine    = "Cosine"
	DistanceDot       = "Dot"
	DistanceEuclid    = "Euclid"
	DistanceManhattan = "Manhattan"
)

// NormalizeDistance returns the canonical metric name for backend, or
// ErrUnsupportedDistance. An empty name selects cosine. SQLite ranks by
// cosine similarity only.
func NormalizeDistance(backend, distance string) (string, error) {
	if distance == "" {
		return DistanceCosine, nil
	}
	for _, d := range []string{DistanceCosine, DistanceDot, DistanceEuclid, DistanceManhattan} {
		if !strings.EqualFold(d, distance) {
			continue
		}
		if d != DistanceCosine && !strings.EqualFold(backend, BackendQdrant) {
			break
		}
		return d, nil
	}
	return "", fmt.Errorf("%w: %q for %s backend", ErrUnsupportedDistance, distance, backend)
}

// Backend is a vector store holding named collections of points
type Backend interface {
	// EnsureCollection creates the collection if it does not exist
	EnsureCollection(ctx context.Context, name string, vectorSize int) error

	// Upsert writes points into a collection. With wait set the call
	// returns only once the points are durable and searchable.
	Upsert(ctx context.Context, collection string, points []types.Point, wait bool) error

	// Search returns hits at or above the score threshold, best first
	Search(ctx context.Context, collection string, params SearchParams) ([]types.SearchHit, error)

	// Count returns the number of points in a collection
	Count(ctx context.Context, collection string) (int, error)

	// Close releases the backend
	Close() error
}

// SearchParams configures a similarity query
type SearchParams struct {
	Vector         []float32
	Limit          int
	ScoreThreshold float64
	WithVector     bool
	Filter         *types.Filter
}

// Config selects and configures a backend
type Config struct {
	Backend    string
	SQLitePath string
	QdrantURL  string
	APIKey     string
	Distance   string // Collection metric; empty selects cosine
}

// Open creates the configured backend
func Open(cfg Config) (Backend, error) {
	backend := strings.ToLower(cfg.Backend)
	if backend == "" {
		backend = BackendSQLite
	}
	distance, err := NormalizeDistance(backend, cfg.Distance)
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = ":memory:"
		}
		return NewSQLiteBackend(path)
	case BackendQdrant:
		return NewQdrantBackend(QdrantConfig{URL: cfg.QdrantURL, APIKey: cfg.APIKey, Distance: distance})
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// encodePayload serializes a payload for storage
func encodePayload(payload types.Metadata) (string, error) {
	if payload == nil {
		payload = types.Metadata{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

// decodePayload parses a stored payload, restoring string arrays
func decodePayload(data []byte) (types.Metadata, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return normalizePayload(raw), nil
}

// normalizePayload converts JSON arrays of strings back to []string
func normalizePayload(raw map[string]any) types.Metadata {
	out := make(types.Metadata, len(raw))
	for k, v := range raw {
		if arr, ok := v.([]any); ok {
			if strs, ok := stringSlice(arr); ok {
				v = strs
			}
		}
		out[k] = v
	}
	return out
}

func stringSlice(arr []any) ([]string, bool) {
	out := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
