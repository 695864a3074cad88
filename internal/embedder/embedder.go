package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// DefaultCacheSize is used when NewCache is given a non-positive size
const DefaultCacheSize = 10000

// Embedding is the vector of one chunk text
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Key       string // Cache key, see CacheKey
}

// clone returns a copy whose vector does not alias e's
func (e *Embedding) clone() *Embedding {
	out := *e
	out.Vector = append([]float32(nil), e.Vector...)
	return &out
}

// EmbeddingRequest asks for the vector of one text
type EmbeddingRequest struct {
	Text  string
	Model string // Empty uses the provider model
}

// BatchEmbeddingRequest asks for the vectors of several texts, in order
type BatchEmbeddingRequest struct {
	Texts []string
	Model string
}

// BatchEmbeddingResponse holds one embedding per requested text
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder turns chunk text into vectors. Implementations are safe for
// concurrent use; the indexer calls GenerateEmbedding from several
// goroutines within a batch.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch returns embeddings in the order of req.Texts
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension is the vector size the collections are created with
	Dimension() int

	Provider() string
	Model() string
	Close() error
}

// Cache keeps recently computed embeddings keyed by model and content, so
// re-ingesting a document or repeating a query skips the provider call
type Cache struct {
	lru *lru.Cache[string, *Embedding]
}

// NewCache creates a cache holding up to size embeddings
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Embedding](size)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedding cache: %v", err))
	}
	return &Cache{lru: c}
}

// Lookup returns a copy of the embedding model produced for text
func (c *Cache) Lookup(model, text string) (*Embedding, bool) {
	if c == nil {
		return nil, false
	}
	emb, ok := c.lru.Get(CacheKey(model, text))
	if !ok {
		return nil, false
	}
	return emb.clone(), true
}

// Store records the embedding model produced for text. The cache keeps
// its own copy.
func (c *Cache) Store(model, text string, emb *Embedding) {
	if c == nil {
		return
	}
	stored := emb.clone()
	stored.Key = CacheKey(model, text)
	c.lru.Add(stored.Key, stored)
}

// Len returns the number of cached embeddings
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every cached embedding
func (c *Cache) Purge() {
	if c != nil {
		c.lru.Purge()
	}
}

// CacheKey scopes the SHA-256 of text to the model that embeds it
func CacheKey(model, text string) string {
	h := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(h[:])
}

// ValidateRequest rejects blank text
func ValidateRequest(req EmbeddingRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatchRequest rejects an empty batch or any blank text in it
func ValidateBatchRequest(req BatchEmbeddingRequest) error {
	if len(req.Texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, text := range req.Texts {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}

// CheckDimension verifies a vector matches the size a collection expects.
// A non-positive want disables the check.
func CheckDimension(vector []float32, want int) error {
	if want > 0 && len(vector) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), want)
	}
	return nil
}
