package types

import "strings"

// Point is a persisted vector-store record
type Point struct {
	ID      string
	Vector  []float32
	Payload Metadata
}

// Validate checks that the point can be written
func (p *Point) Validate() error {
	if p.ID == "" {
		return ErrMissingPointID
	}
	if len(p.Vector) == 0 {
		return ErrEmptyVector
	}
	return nil
}

// Content returns the chunk text carried in the payload
func (p *Point) Content() string {
	return p.Payload.String(MetaContent)
}

// SearchHit is a point returned by a similarity query with its score
type SearchHit struct {
	ID      string
	Score   float64
	Payload Metadata
	Vector  []float32 // Only populated when requested
}

// Content returns the chunk text carried in the payload
func (h SearchHit) Content() string {
	return h.Payload.String(MetaContent)
}

// Kind returns the payload kind discriminator
func (h SearchHit) Kind() ChunkKind {
	return ChunkKind(h.Payload.String(MetaType))
}

// IsBlank reports whether the hit carries no usable content
func (h SearchHit) IsBlank() bool {
	return strings.TrimSpace(h.Content()) == ""
}

// SearchResults holds the independently ranked hits of both collections
type SearchResults struct {
	Code []SearchHit
	Text []SearchHit
}

// Empty reports whether neither collection returned a hit
func (r *SearchResults) Empty() bool {
	return r == nil || (len(r.Code) == 0 && len(r.Text) == 0)
}
