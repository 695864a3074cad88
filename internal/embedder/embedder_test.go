package embedder

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	assert.NotEqual(t, CacheKey("a", "text"), CacheKey("b", "text"))
	assert.NotEqual(t, CacheKey("a", "text"), CacheKey("a", "other"))
	assert.Equal(t, CacheKey("a", "text"), CacheKey("a", "text"))
	assert.Len(t, CacheKey("m", "text"), len("m:")+64)
}

func TestValidateRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{}), ErrEmptyText)
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{Text: " \n\t"}), ErrEmptyText)
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "x"}))
}

func TestValidateBatchRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", ""}}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", "  "}}), ErrInvalidInput)
	assert.NoError(t, ValidateBatchRequest(BatchEmbeddingRequest{Texts: []string{"a", "b"}}))
}

func TestCache(t *testing.T) {
	t.Run("lookup and store", func(t *testing.T) {
		cache := NewCache(3)

		_, ok := cache.Lookup("m", "missing")
		assert.False(t, ok)

		cache.Store("m", "chunk", &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3})
		got, ok := cache.Lookup("m", "chunk")
		require.True(t, ok)
		assert.Equal(t, CacheKey("m", "chunk"), got.Key)
		assert.Equal(t, 1, cache.Len())

		_, ok = cache.Lookup("other-model", "chunk")
		assert.False(t, ok, "entries are scoped to their model")
	})

	t.Run("stored and returned vectors are copies", func(t *testing.T) {
		cache := NewCache(3)
		emb := &Embedding{Vector: []float32{1, 2}}
		cache.Store("m", "k", emb)
		emb.Vector[0] = 42

		got, _ := cache.Lookup("m", "k")
		assert.Equal(t, float32(1), got.Vector[0])
		got.Vector[0] = 99

		again, _ := cache.Lookup("m", "k")
		assert.Equal(t, float32(1), again.Vector[0])
	})

	t.Run("eviction on capacity", func(t *testing.T) {
		cache := NewCache(2)
		cache.Store("m", "one", &Embedding{})
		cache.Store("m", "two", &Embedding{})
		cache.Store("m", "three", &Embedding{})

		assert.Equal(t, 2, cache.Len())
		_, ok := cache.Lookup("m", "one")
		assert.False(t, ok)
	})

	t.Run("purge", func(t *testing.T) {
		cache := NewCache(10)
		cache.Store("m", "one", &Embedding{})
		cache.Purge()
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("nil cache is a no-op", func(t *testing.T) {
		var cache *Cache
		cache.Store("m", "one", &Embedding{})
		_, ok := cache.Lookup("m", "one")
		assert.False(t, ok)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("concurrent access", func(t *testing.T) {
		cache := NewCache(100)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					text := string(rune('a'+id)) + string(rune(j))
					cache.Store("m", text, &Embedding{Vector: []float32{float32(id)}})
					cache.Lookup("m", text)
				}
			}(i)
		}
		wg.Wait()
		assert.NotZero(t, cache.Len())
	})
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	p, err := NewLocalProvider(16, NewCache(10))
	require.NoError(t, err)

	assert.Equal(t, ProviderLocal, p.Provider())
	assert.Equal(t, 16, p.Dimension())

	a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "alpha"})
	require.NoError(t, err)
	b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "alpha"})
	require.NoError(t, err)
	c, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "beta"})
	require.NoError(t, err)

	assert.Len(t, a.Vector, 16)
	assert.Equal(t, a.Vector, b.Vector)
	assert.NotEqual(t, a.Vector, c.Vector)

	batch, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"alpha", "beta"}})
	require.NoError(t, err)
	require.Len(t, batch.Embeddings, 2)
	assert.Equal(t, a.Vector, batch.Embeddings[0].Vector)

	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProvider_DefaultDimension(t *testing.T) {
	p, err := NewLocalProvider(0, nil)
	require.NoError(t, err)
	assert.Equal(t, LocalDimension, p.Dimension())
}

func TestHashVector(t *testing.T) {
	v := HashVector("some text", 100)
	require.Len(t, v, 100)

	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
	assert.Equal(t, v, HashVector("some text", 100))
}

func TestNormalizeVector(t *testing.T) {
	assert.Equal(t, []float32{0.6, 0.8}, NormalizeVector([]float32{3, 4}))
	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))
}

func TestCheckDimension(t *testing.T) {
	assert.NoError(t, CheckDimension([]float32{1, 2}, 2))
	assert.NoError(t, CheckDimension([]float32{1, 2}, 0))
	assert.ErrorIs(t, CheckDimension([]float32{1}, 2), ErrDimensionMismatch)
}
