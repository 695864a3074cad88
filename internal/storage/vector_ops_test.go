package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/docrag-mcp/pkg/types"
)

func TestSerializeVector(t *testing.T) {
	vectors := [][]float32{
		{},
		{1.5},
		{0, -1, float32(math.Pi), math.MaxFloat32},
	}
	for _, v := range vectors {
		blob := serializeVector(v)
		assert.Len(t, blob, len(v)*4)
		assert.Equal(t, v, deserializeVector(blob))
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSortHits(t *testing.T) {
	hits := []types.SearchHit{{ID: "b", Score: 0.5}, {ID: "a", Score: 0.9}, {ID: "a2", Score: 0.5}}
	sortHits(hits)
	assert.Equal(t, []string{"a", "a2", "b"}, []string{hits[0].ID, hits[1].ID, hits[2].ID})
}

func TestDecodePayload(t *testing.T) {
	meta, err := decodePayload([]byte(`{"tags":["a","b"],"mixed":["a",1],"n":3}`))
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, meta["tags"])
	assert.Equal(t, []any{"a", float64(1)}, meta["mixed"])
	assert.Equal(t, float64(3), meta["n"])
}
