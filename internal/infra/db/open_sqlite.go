package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens (creating the parent directory and file if needed) the
// embedded SQLite database used by the single-process deployment mode.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("OpenSQLite: mkdir: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLite: %w", err)
	}

	// SQLite allows only one writer at a time; a single connection avoids
	// "database is locked" errors under concurrent pipeline workers.
	database.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("OpenSQLite: ping: %w", err)
	}

	return database, nil
}
