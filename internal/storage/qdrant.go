package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// QdrantConfig configures the Qdrant REST client
type QdrantConfig struct {
	URL      string
	APIKey   string
	Timeout  time.Duration
	Distance string // Empty selects cosine
}

// QdrantBackend implements Backend over the Qdrant REST API
type QdrantBackend struct {
	url      string
	apiKey   string
	distance string
	client   *http.Client
}

// NewQdrantBackend creates a Qdrant client. No request is made until first use.
func NewQdrantBackend(cfg QdrantConfig) (*QdrantBackend, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid qdrant url: %w", err)
	}

	distance, err := NormalizeDistance(BackendQdrant, cfg.Distance)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantBackend{
		url:      strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		distance: distance,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Close releases idle connections
func (q *QdrantBackend) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

// EnsureCollection creates the collection with the configured distance if missing
func (q *QdrantBackend) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("%w: size %d", ErrInvalidVector, vectorSize)
	}

	err := q.do(ctx, http.MethodGet, q.collectionPath(name), nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": q.distance,
		},
	}
	return q.do(ctx, http.MethodPut, q.collectionPath(name), body, nil)
}

// Upsert writes points with PUT /collections/{name}/points
func (q *QdrantBackend) Upsert(ctx context.Context, collection string, points []types.Point, wait bool) error {
	body := struct {
		Points []qdrantPoint `json:"points"`
	}{Points: make([]qdrantPoint, len(points))}

	for i := range points {
		if err := points[i].Validate(); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		payload := points[i].Payload
		if payload == nil {
			payload = types.Metadata{}
		}
		body.Points[i] = qdrantPoint{ID: points[i].ID, Vector: points[i].Vector, Payload: payload}
	}

	path := q.collectionPath(collection) + "/points"
	if wait {
		path += "?wait=true"
	}
	return q.do(ctx, http.MethodPut, path, body, nil)
}

// Search runs POST /collections/{name}/points/search
func (q *QdrantBackend) Search(ctx context.Context, collection string, params SearchParams) ([]types.SearchHit, error) {
	if len(params.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrInvalidVector)
	}
	if params.Limit <= 0 {
		return []types.SearchHit{}, nil
	}

	req := map[string]any{
		"vector":          params.Vector,
		"limit":           params.Limit,
		"score_threshold": params.ScoreThreshold,
		"with_payload":    true,
		"with_vector":     params.WithVector,
	}
	if f := qdrantFilter(params.Filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []struct {
			ID      json.RawMessage `json:"id"`
			Score   float64         `json:"score"`
			Payload map[string]any  `json:"payload"`
			Vector  []float32       `json:"vector"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, q.collectionPath(collection)+"/points/search", req, &resp); err != nil {
		return nil, err
	}

	hits := make([]types.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := types.SearchHit{
			ID:      pointID(r.ID),
			Score:   r.Score,
			Payload: normalizePayload(r.Payload),
		}
		if params.WithVector {
			hit.Vector = r.Vector
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count runs POST /collections/{name}/points/count with exact counting
func (q *QdrantBackend) Count(ctx context.Context, collection string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodPost, q.collectionPath(collection)+"/points/count", map[string]any{"exact": true}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload types.Metadata `json:"payload"`
}

// qdrantFilter renders a filter as {"must": [{"key", "match": {"value"}}]}
func qdrantFilter(f *types.Filter) map[string]any {
	if f.IsEmpty() {
		return nil
	}
	must := make([]map[string]any, 0, len(f.Must))
	for _, c := range f.Must {
		must = append(must, map[string]any{
			"key":   c.Key,
			"match": map[string]any{"value": c.Value},
		})
	}
	return map[string]any{"must": must}
}

// pointID accepts both UUID string and integer ids
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (q *QdrantBackend) collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// do sends a JSON request and decodes a JSON response into out
func (q *QdrantBackend) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.url+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, path)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
