// Package store persists workflow-run audit records. The default backend is
// SQLite under the state directory; a PostgreSQL backend lives in the
// postgres subpackage. Every pipeline run is saved, pass or fail.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/copp1723/code-team-sub001/pkg/models"
)

// ErrRunNotFound is returned when no run matches the query.
var ErrRunNotFound = errors.New("workflow run not found")

// Store is the audit persistence interface.
// Implementations: the SQLite store returned by Open and *postgres.Store.
type Store interface {
	SaveRun(ctx context.Context, ws *models.WorkflowState) error
	GetRun(ctx context.Context, id string) (*models.WorkflowState, error)
	LastRun(ctx context.Context) (*models.WorkflowState, error)
	ListRuns(ctx context.Context, limit int) ([]models.WorkflowState, error)
	Close() error
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// sqliteStore is the SQLite implementation of Store.
type sqliteStore struct {
	DB *sql.DB
}

// Open opens the SQLite store at dir/audit.sqlite and runs migrations.
func Open(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dir, "audit.sqlite")
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &sqliteStore{DB: db}
	if err := s.initPragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *sqliteStore) initPragmas(ctx context.Context) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveRun(ctx context.Context, ws *models.WorkflowState) error {
	state, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("marshal workflow state: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO workflow_runs(id, started_at, status, state) VALUES(?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET status=excluded.status, state=excluded.state`,
		ws.ID, ws.StartTime.UnixMilli(), ws.Status, string(state))
	return err
}

func (s *sqliteStore) GetRun(ctx context.Context, id string) (*models.WorkflowState, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT state FROM workflow_runs WHERE id = ?`, id)
	return scanRun(row)
}

func (s *sqliteStore) LastRun(ctx context.Context) (*models.WorkflowState, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT state FROM workflow_runs ORDER BY started_at DESC LIMIT 1`)
	return scanRun(row)
}

func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]models.WorkflowState, error) {
	if limit <= 0 {
		limit = models.DefaultRunListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT state FROM workflow_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []models.WorkflowState
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, err
		}
		var ws models.WorkflowState
		if err := json.Unmarshal([]byte(state), &ws); err != nil {
			return nil, fmt.Errorf("parse stored run: %w", err)
		}
		runs = append(runs, ws)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.WorkflowState, error) {
	var state string
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	var ws models.WorkflowState
	if err := json.Unmarshal([]byte(state), &ws); err != nil {
		return nil, fmt.Errorf("parse stored run: %w", err)
	}
	return &ws, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at INTEGER NOT NULL
);`); err != nil {
		return err
	}
	applied := make(map[int]bool)
	rows, err := s.DB.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	migs, err := LoadMigrations(migrationsFS)
	if err != nil {
		return err
	}
	for _, m := range migs {
		if applied[m.Version] {
			continue
		}
		tx, err := s.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)`, m.Version, time.Now().Unix()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// LoadMigrations reads and orders the .sql files in an embedded migrations dir.
func LoadMigrations(fsys embed.FS) ([]Migration, error) {
	files, err := fsys.ReadDir("migrations")
	if err != nil {
		return nil, err
	}
	var migs []Migration
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		v, err := parseMigrationVersion(name)
		if err != nil {
			return nil, err
		}
		body, err := fsys.ReadFile("migrations/" + name)
		if err != nil {
			return nil, err
		}
		migs = append(migs, Migration{Version: v, Name: name, SQL: string(body)})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].Version < migs[j].Version })
	return migs, nil
}

func parseMigrationVersion(filename string) (int, error) {
	base := strings.TrimSuffix(filename, ".sql")
	parts := strings.SplitN(base, "_", 2)
	v, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid migration version in %s", filename)
	}
	return v, nil
}
