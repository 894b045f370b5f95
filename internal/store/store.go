package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/existflow/taskprox/internal/config"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a key has no value
var ErrNotFound = errors.New("key not found")

// DB wraps the SQLite connection holding durable client state
type DB struct {
	*sql.DB
}

// DefaultDBPath returns the default database path (~/.taskprox/taskprox.db)
func DefaultDBPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(dir, "taskprox.db"), nil
}

// Open opens or creates the SQLite database and runs migrations.
// ":memory:" gives a private in-memory database.
func Open(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps :memory: coherent and serialises writers
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := New(sqlDB)
	if err := db.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// OpenDefault opens the database at the default path
func OpenDefault() (*DB, error) {
	path, err := DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// New wraps an existing connection without migrating it
func New(sqlDB *sql.DB) *DB {
	return &DB{DB: sqlDB}
}

// Get returns the value stored under key
func (db *DB) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, queryGet, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value
func (db *DB) Set(ctx context.Context, key, value string) error {
	if _, err := db.ExecContext(ctx, queryUpsert, key, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are ignored.
func (db *DB) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := db.ExecContext(ctx, queryDelete, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

const (
	queryGet    = `SELECT value FROM kv WHERE key = ?`
	queryUpsert = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	queryDelete = `DELETE FROM kv WHERE key = ?`
)
