package downloads

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/library-dashboard/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS download_stats (
    day DATE PRIMARY KEY,
    count INTEGER NOT NULL DEFAULT 0
)`

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// PostgresStore keeps counters in a PostgreSQL table
type PostgresStore struct {
	base
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and ensures the table exists
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, opts ...Option) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 5
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{base: newBase(opts), pool: pool}, nil
}

func (s *PostgresStore) IncrementToday(ctx context.Context) (int, error) {
	query := `
		INSERT INTO download_stats (day, count) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET count = download_stats.count + 1
		RETURNING count
	`

	day, err := time.Parse(models.DayLayout, s.today())
	if err != nil {
		return 0, fmt.Errorf("failed to parse day: %w", err)
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment downloads: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ReadAll(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT to_char(day, 'YYYY-MM-DD'), count FROM download_stats`)
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

func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM download_stats`); err != nil {
		return fmt.Errorf("failed to reset downloads: %w", err)
	}
	return nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
