//go:build sqlite_vec
// +build sqlite_vec

package storage

// Compiled with the sqlite_vec tag. Uses the cgo SQLite driver and expects
// the sqlite-vec extension, which moves cosine scoring and ordering into SQL.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
