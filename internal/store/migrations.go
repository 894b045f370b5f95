package store

import (
	"context"
	"fmt"
)

// migrate runs all database migrations
func (db *DB) migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateKV,
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

const migrationCreateKV = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`
