package downloads

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS download_stats (
    day TEXT PRIMARY KEY,
    count INTEGER NOT NULL DEFAULT 0
);`

// SQLiteStore keeps counters in a local SQLite database
type SQLiteStore struct {
	base
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" opens
// an in-memory database.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{base: newBase(opts), db: db}, nil
}

func (s *SQLiteStore) IncrementToday(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO download_stats (day, count) VALUES (?, 1)
		ON CONFLICT(day) DO UPDATE SET count = count + 1
		RETURNING count`, s.today()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment downloads: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, count FROM download_stats`)
	if err != nil {
		return nil, fmt.Errorf("failed to read downloads: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan downloads: %w", err)
		}
		stats[day] = count
	}
	return stats, rows.Err()
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM download_stats`); err != nil {
		return fmt.Errorf("failed to reset downloads: %w", err)
	}
	return nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
