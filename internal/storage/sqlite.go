package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/docrag-mcp/pkg/types"
)

// SQLiteBackend implements Backend on a local SQLite database.
// Similarity is computed in Go for purego builds and in SQL when the
// sqlite-vec extension is compiled in.
type SQLiteBackend struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings. A single connection also keeps an
	// in-memory database alive for the lifetime of the backend.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteBackend opens (or creates) the database at dbPath and applies migrations
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// EnsureCollection creates the collection if missing. An existing
// collection must have the same vector size.
func (s *SQLiteBackend) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("%w: size %d", ErrInvalidVector, vectorSize)
	}

	existing, err := s.vectorSize(ctx, name)
	switch {
	case err == nil:
		if existing != vectorSize {
			return fmt.Errorf("%w: collection %s has size %d, requested %d", ErrInvalidVector, name, existing, vectorSize)
		}
		return nil
	case !errors.Is(err, ErrCollectionNotFound):
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO collections (name, vector_size, distance) VALUES (?, ?, ?)",
		name, vectorSize, DistanceCosine)
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteBackend) vectorSize(ctx context.Context, name string) (int, error) {
	var size int
	err := s.db.QueryRowContext(ctx, "SELECT vector_size FROM collections WHERE name = ?", name).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read collection %s: %w", name, err)
	}
	return size, nil
}

// Upsert writes all points in one transaction. SQLite commits are
// synchronous, so wait has no further effect.
func (s *SQLiteBackend) Upsert(ctx context.Context, collection string, points []types.Point, wait bool) error {
	size, err := s.vectorSize(ctx, collection)
	if err != nil {
		return err
	}

	for i := range points {
		if err := points[i].Validate(); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		if len(points[i].Vector) != size {
			return fmt.Errorf("%w: point %s has size %d, collection expects %d",
				ErrInvalidVector, points[i].ID, len(points[i].Vector), size)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (collection, id, vector, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			vector = excluded.vector,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, p := range points {
		payload, err := encodePayload(p.Payload)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, collection, p.ID, serializeVector(p.Vector), payload, now); err != nil {
			return fmt.Errorf("failed to upsert point %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Search ranks the collection's points by cosine similarity
func (s *SQLiteBackend) Search(ctx context.Context, collection string, params SearchParams) ([]types.SearchHit, error) {
	if _, err := s.vectorSize(ctx, collection); err != nil {
		return nil, err
	}
	if len(params.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrInvalidVector)
	}
	if params.Limit <= 0 {
		return []types.SearchHit{}, nil
	}
	return searchVector(ctx, s.db, collection, params)
}

// Count returns the number of points in a collection
func (s *SQLiteBackend) Count(ctx context.Context, collection string) (int, error) {
	if _, err := s.vectorSize(ctx, collection); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM points WHERE collection = ?", collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}
