package types

import "errors"

// Pipeline errors
var (
	// ErrUnsupportedFileType is returned when a filename's extension is not recognized
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrNoValidChunks is returned when a supported file produced zero usable chunks
	ErrNoValidChunks = errors.New("no valid chunks")
	// ErrEmbeddingFailure is returned when the embedding service call failed
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrStoreWrite is returned when a batch upsert failed
	ErrStoreWrite = errors.New("vector store write failure")
	// ErrStoreSearch is returned when a collection search failed
	ErrStoreSearch = errors.New("vector store search failure")
	// ErrParseFailure marks a structural parse that could not build a syntax tree
	ErrParseFailure = errors.New("parse failure")
)

// Validation errors
var (
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrInvalidKind    = errors.New("invalid chunk kind")
	ErrMissingPointID = errors.New("point id is required")
	ErrEmptyVector    = errors.New("vector cannot be empty")
)
