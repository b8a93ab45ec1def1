// Package store is the persistence port: collection-style access over a
// SQLite-backed database, with atomic conditional updates and compound
// unique constraints standing in for the Mongo-shaped primitives described
// by the platform's persistence port (InsertOne, FindOne,
// UpdateOneConditional, DeleteMany, CountDocuments, FindOneAndUpdate).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection and exposes the board, column, card,
// reaction, and session collections.
type Store struct {
	conn *sql.DB
}

// Open creates a new Store and applies all pending migrations.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection avoids SQLite's "database is locked" errors under
	// concurrent writers; reads and writes are serialized through it.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	migrationsFS, err := fs.Sub(MigrationFS, "migrations")
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations sub-fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, migrationsFS)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.Up(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Conn returns the underlying *sql.DB for callers that need raw access.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

// ConditionalResult reports the outcome of an UpdateOneConditional-shaped
// write: how many rows matched the filter and how many were actually
// modified. A zero-row match means the caller must re-read to classify why
// (not found, wrong state, not authorized).
type ConditionalResult struct {
	Matched  int
	Modified int
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
