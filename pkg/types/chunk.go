package types

import (
	"fmt"
	"strings"
)

// ChunkKind represents the content kind of a chunk
type ChunkKind string

const (
	KindCode     ChunkKind = "code"
	KindText     ChunkKind = "text"
	KindHTML     ChunkKind = "html"
	KindMarkdown ChunkKind = "markdown"
)

// FenceMarker delimits fenced code blocks inside free text
const FenceMarker = "```"

// Recognized metadata keys
const (
	MetaFramework  = "framework"
	MetaTags       = "tags"
	MetaLanguage   = "language"
	MetaFilename   = "filename"
	MetaType       = "type"
	MetaContent    = "content"
	MetaSourceID   = "sourceId"
	MetaChunkIndex = "chunkIndex"
	MetaLineNumber = "lineNumber"
	MetaTagName    = "tagName"
	MetaAttributes = "attributes"
	MetaComments   = "comments"
	MetaFallback   = "fallback"
)

// Metadata maps string keys to scalar or []string values
type Metadata map[string]any

// Clone returns a shallow copy with copied string slices
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		if s, ok := v.([]string); ok {
			cp := make([]string, len(s))
			copy(cp, s)
			v = cp
		}
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into m, overwriting existing keys
func (m Metadata) Merge(other map[string]any) Metadata {
	for k, v := range other {
		m[k] = v
	}
	return m
}

// String returns the value for key when it is a string
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Chunk is a bounded unit of source content destined for embedding
type Chunk struct {
	Content  string
	Kind     ChunkKind
	Metadata Metadata
}

// NewChunk creates a chunk with a private copy of meta
func NewChunk(content string, kind ChunkKind, meta Metadata) Chunk {
	return Chunk{
		Content:  content,
		Kind:     kind,
		Metadata: meta.Clone(),
	}
}

// IsFenced reports whether the chunk content is itself a fenced code block
func (c Chunk) IsFenced() bool {
	return strings.HasPrefix(strings.TrimSpace(c.Content), FenceMarker)
}

// IsCode reports whether the chunk belongs in the code collection
func (c Chunk) IsCode() bool {
	return c.Kind == KindCode || c.IsFenced()
}

// Validate checks the chunk invariants
func (c Chunk) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return ErrEmptyContent
	}
	return ValidateKind(c.Kind)
}

// ValidateKind checks if kind is one of the known chunk kinds
func ValidateKind(kind ChunkKind) error {
	switch kind {
	case KindCode, KindText, KindHTML, KindMarkdown:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
}
