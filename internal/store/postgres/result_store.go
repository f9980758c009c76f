// Package postgres provides Postgres-backed persistence for run results.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkforge/linkforge/internal/engine"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for result rows.
type Config struct {
	DSN             string
	OutcomeTable    string
	RunTable        string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ResultStore writes delivery outcomes and run summaries into Postgres.
type ResultStore struct {
	pool         execCloser
	outcomeTable string
	runTable     string
}

// New creates a Postgres-backed ResultStore using the provided config.
func New(ctx context.Context, cfg Config) (*ResultStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	outcomeTable, runTable, err := tableNames(cfg.OutcomeTable, cfg.RunTable)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ResultStore{pool: pool, outcomeTable: outcomeTable, runTable: runTable}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, outcomeTable, runTable string) (*ResultStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	ot, rt, err := tableNames(outcomeTable, runTable)
	if err != nil {
		return nil, err
	}
	return &ResultStore{pool: pool, outcomeTable: ot, runTable: rt}, nil
}

func tableNames(outcomeTable, runTable string) (string, string, error) {
	if outcomeTable == "" {
		outcomeTable = "delivery_outcomes"
	}
	if runTable == "" {
		runTable = "runs"
	}
	if !validTableName.MatchString(outcomeTable) {
		return "", "", fmt.Errorf("invalid table name %q", outcomeTable)
	}
	if !validTableName.MatchString(runTable) {
		return "", "", fmt.Errorf("invalid table name %q", runTable)
	}
	return outcomeTable, runTable, nil
}

// Close releases the underlying pool resources.
func (s *ResultStore) Close() {
	s.pool.Close()
}

// RecordOutcome inserts one resolved delivery attempt.
func (s *ResultStore) RecordOutcome(ctx context.Context, rec engine.OutcomeRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, url, mode, success, attempted_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, s.outcomeTable)
	_, err := s.pool.Exec(ctx, query,
		rec.RunID,
		rec.URL,
		string(rec.Mode),
		rec.Success,
		rec.AttemptedAt,
		rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// RecordRun upserts the terminal summary of a run.
func (s *ResultStore) RecordRun(ctx context.Context, rec engine.RunRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, url, mode, status, total_tasks, done_count, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    done_count = EXCLUDED.done_count,
		    finished_at = EXCLUDED.finished_at;
	`, s.runTable)
	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.NormalizedURL,
		string(rec.Mode),
		string(rec.Status),
		rec.TotalTasks,
		rec.DoneCount,
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}
