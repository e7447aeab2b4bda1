package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the local schema: issued principals and their
// private-mode review items. Collaborative sessions never touch this
// database; they live in the shared store.
func (db *DB) RunMigrations() error {
	migration := `
-- Issued anonymous principals
CREATE TABLE IF NOT EXISTS principals (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Private-mode review items, scoped to the owning principal
CREATE TABLE IF NOT EXISTS review_items (
    id TEXT NOT NULL,
    principal_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    category TEXT NOT NULL CHECK(category IN ('start', 'stop', 'continue')),
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    created_by TEXT NOT NULL,
    PRIMARY KEY (id, principal_id),
    FOREIGN KEY (principal_id) REFERENCES principals(id)
);
CREATE INDEX IF NOT EXISTS idx_principal_year ON review_items(principal_id, year);
`
	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
