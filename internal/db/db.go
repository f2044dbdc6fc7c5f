// Package db opens the workspace-local SQLite database for the development
// server. Everything lives under the workspace dot-dir next to the session
// file.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbName = "taskdeck.db"

type Config struct {
	Workspace string
}

// Path returns the database path inside the workspace dot-dir.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".taskdeck", dbName)
}

// Open creates the workspace dot-dir if missing and opens the database with
// foreign keys enforced.
func Open(cfg Config) (*sql.DB, error) {
	path := Path(cfg.Workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	return sql.Open("sqlite", fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path))
}
