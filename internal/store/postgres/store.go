// Package postgres is the PostgreSQL backend of the workflow-run audit store.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/copp1723/code-team-sub001/internal/store"
	"github.com/copp1723/code-team-sub001/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the PostgreSQL implementation of store.Store.
type Store struct {
	Pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open opens a connection pool and runs migrations. An empty dsn falls back
// to the DATABASE_URL environment variable.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("postgres DSN or DATABASE_URL required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	s := &Store{Pool: pool}
	if err := s.migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	s.Pool.Close()
	return nil
}

func (s *Store) SaveRun(ctx context.Context, ws *models.WorkflowState) error {
	state, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("marshal workflow state: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
INSERT INTO workflow_runs(id, started_at, status, state) VALUES($1, $2, $3, $4)
ON CONFLICT(id) DO UPDATE SET status=EXCLUDED.status, state=EXCLUDED.state`,
		ws.ID, ws.StartTime, ws.Status, state)
	return err
}

func (s *Store) GetRun(ctx context.Context, id string) (*models.WorkflowState, error) {
	return scanRun(s.Pool.QueryRow(ctx, `SELECT state FROM workflow_runs WHERE id = $1`, id))
}

func (s *Store) LastRun(ctx context.Context) (*models.WorkflowState, error) {
	return scanRun(s.Pool.QueryRow(ctx, `SELECT state FROM workflow_runs ORDER BY started_at DESC LIMIT 1`))
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.WorkflowState, error) {
	if limit <= 0 {
		limit = models.DefaultRunListLimit
	}
	rows, err := s.Pool.Query(ctx, `SELECT state FROM workflow_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.WorkflowState
	for rows.Next() {
		var state []byte
		if err := rows.Scan(&state); err != nil {
			return nil, err
		}
		var ws models.WorkflowState
		if err := json.Unmarshal(state, &ws); err != nil {
			return nil, fmt.Errorf("parse stored run: %w", err)
		}
		runs = append(runs, ws)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*models.WorkflowState, error) {
	var state []byte
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRunNotFound
		}
		return nil, err
	}
	var ws models.WorkflowState
	if err := json.Unmarshal(state, &ws); err != nil {
		return nil, fmt.Errorf("parse stored run: %w", err)
	}
	return &ws, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at BIGINT NOT NULL
);`); err != nil {
		return err
	}
	applied := make(map[int]bool)
	rows, err := s.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	migs, err := store.LoadMigrations(migrationsFS)
	if err != nil {
		return err
	}
	for _, m := range migs {
		if applied[m.Version] {
			continue
		}
		tx, err := s.Pool.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2)`, m.Version, time.Now().Unix()); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}
