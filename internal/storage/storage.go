// Package storage persists check runs in SQLite so later builds have a
// baseline to compare against.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nahidhasan98/perfbudget/internal/analyzer"
	"github.com/nahidhasan98/perfbudget/internal/lighthouse"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	branch      TEXT NOT NULL,
	commit_sha  TEXT NOT NULL DEFAULT '',
	pr_number   INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	total_size  INTEGER NOT NULL,
	chunk_count INTEGER NOT NULL,
	score       INTEGER NOT NULL,
	status      TEXT NOT NULL,
	budgets     TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_runs_branch_created ON runs(branch, created_at);

CREATE TABLE IF NOT EXISTS chunks (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	chunk_id     TEXT NOT NULL,
	name         TEXT NOT NULL,
	size         INTEGER NOT NULL,
	files        TEXT NOT NULL,
	modules      TEXT,
	module_sizes TEXT,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS runtime_metrics (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	url         TEXT NOT NULL,
	runs        INTEGER NOT NULL,
	lcp         REAL,
	inp         REAL,
	cls         REAL,
	tbt         REAL,
	fcp         REAL,
	ttfb        REAL,
	performance REAL,
	PRIMARY KEY (run_id, url)
);
`

// Run is one stored check
type Run struct {
	ID         string                   `json:"id" yaml:"id"`
	Branch     string                   `json:"branch" yaml:"branch"`
	Commit     string                   `json:"commit,omitempty" yaml:"commit,omitempty"`
	PRNumber   int                      `json:"prNumber,omitempty" yaml:"prNumber,omitempty"`
	CreatedAt  time.Time                `json:"createdAt" yaml:"createdAt"`
	TotalSize  int64                    `json:"totalSize" yaml:"totalSize"`
	ChunkCount int                      `json:"chunkCount" yaml:"chunkCount"`
	Score      int                      `json:"score" yaml:"score"`
	Status     string                   `json:"status" yaml:"status"`
	Budgets    []analyzer.BudgetResult  `json:"budgets,omitempty" yaml:"budgets,omitempty"`
	Chunks     []analyzer.Chunk         `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Pages      []lighthouse.PageMetrics `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// ListOptions filters ListRuns
type ListOptions struct {
	Branch string
	Limit  int
	Offset int
}

// TrendPoint is one value of a metric over time
type TrendPoint struct {
	RunID     string    `json:"runId" yaml:"runId"`
	Commit    string    `json:"commit,omitempty" yaml:"commit,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	Value     float64   `json:"value" yaml:"value"`
}

// Store is a SQLite-backed run history
type Store struct {
	db *sql.DB
}

// Open opens (and creates when missing) the database at dsn
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = "file:" + dsn + "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveRun inserts a run with its chunks and runtime metrics. An empty ID is
// replaced with a new UUID and a zero CreatedAt with the current time.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.Branch == "" {
		return fmt.Errorf("run branch is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	budgets, err := json.Marshal(nonNil(run.Budgets))
	if err != nil {
		return fmt.Errorf("failed to encode budgets: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, branch, commit_sha, pr_number, created_at, total_size, chunk_count, score, status, budgets)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Branch, run.Commit, run.PRNumber, run.CreatedAt.UnixNano(),
		run.TotalSize, run.ChunkCount, run.Score, run.Status, string(budgets))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, c := range run.Chunks {
		files, err := json.Marshal(nonNil(c.Files))
		if err != nil {
			return fmt.Errorf("failed to encode chunk files: %w", err)
		}
		var modules, moduleSizes sql.NullString
		if len(c.Modules) > 0 {
			data, err := json.Marshal(c.Modules)
			if err != nil {
				return fmt.Errorf("failed to encode chunk modules: %w", err)
			}
			modules = sql.NullString{String: string(data), Valid: true}
		}
		if len(c.ModuleSizes) > 0 {
			data, err := json.Marshal(c.ModuleSizes)
			if err != nil {
				return fmt.Errorf("failed to encode module sizes: %w", err)
			}
			moduleSizes = sql.NullString{String: string(data), Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO chunks (run_id, position, chunk_id, name, size, files, modules, module_sizes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, c.ID, c.Name, c.Size, string(files), modules, moduleSizes)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	for _, p := range run.Pages {
		m := p.Metrics
		_, err = tx.ExecContext(ctx, `
			INSERT INTO runtime_metrics (run_id, url, runs, lcp, inp, cls, tbt, fcp, ttfb, performance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, p.URL, p.Runs, nullFloat(m.LCP), nullFloat(m.INP), nullFloat(m.CLS),
			nullFloat(m.TBT), nullFloat(m.FCP), nullFloat(m.TTFB), nullFloat(m.Performance))
		if err != nil {
			return fmt.Errorf("failed to insert runtime metrics for %s: %w", p.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, branch, commit_sha, pr_number, created_at, total_size, chunk_count, score, status, budgets`

// GetRun loads a run with its chunks and runtime metrics
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadDetails(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun returns the newest run on branch, with details
func (s *Store) LatestRun(ctx context.Context, branch string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE branch = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, branch)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadDetails(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns run summaries, newest first, without chunks or pages
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []interface{}
	if opts.Branch != "" {
		query += ` WHERE branch = ?`
		args = append(args, opts.Branch)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

var trendColumns = map[string]string{
	"total_size":  "r.total_size",
	"score":       "r.score",
	"chunk_count": "r.chunk_count",
	"lcp":         "MAX(m.lcp)",
	"inp":         "MAX(m.inp)",
	"cls":         "MAX(m.cls)",
	"tbt":         "MAX(m.tbt)",
	"fcp":         "MAX(m.fcp)",
	"ttfb":        "MAX(m.ttfb)",
	"performance": "MIN(m.performance)",
}

// TrendMetrics lists the metric names accepted by Trend
func TrendMetrics() []string {
	return []string{"total_size", "score", "chunk_count", "lcp", "inp", "cls", "tbt", "fcp", "ttfb", "performance"}
}

// Trend returns the last limit values of metric, oldest first. Runtime
// metrics use the worst page of each run; runs without the metric are skipped.
func (s *Store) Trend(ctx context.Context, metric, branch string, limit int) ([]TrendPoint, error) {
	expr, ok := trendColumns[metric]
	if !ok {
		return nil, fmt.Errorf("unknown trend metric: %s", metric)
	}
	if limit <= 0 {
		limit = 30
	}

	query := `SELECT r.id, r.commit_sha, r.created_at, ` + expr + ` AS value
		FROM runs r LEFT JOIN runtime_metrics m ON m.run_id = r.id`
	var args []interface{}
	if branch != "" {
		query += ` WHERE r.branch = ?`
		args = append(args, branch)
	}
	query += ` GROUP BY r.id HAVING value IS NOT NULL ORDER BY r.created_at DESC, r.rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trend: %w", err)
	}
	defer rows.Close()

	points := []TrendPoint{}
	for rows.Next() {
		var p TrendPoint
		var created int64
		if err := rows.Scan(&p.RunID, &p.Commit, &created, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		p.CreatedAt = time.Unix(0, created).UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// Prune deletes runs created before olderThan and returns how many were removed
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := olderThan.UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"chunks", "runtime_metrics"} {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE run_id IN (SELECT id FROM runs WHERE created_at < ?)`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var created int64
	var budgets string
	err := row.Scan(&run.ID, &run.Branch, &run.Commit, &run.PRNumber, &created,
		&run.TotalSize, &run.ChunkCount, &run.Score, &run.Status, &budgets)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(budgets), &run.Budgets); err != nil {
		return nil, fmt.Errorf("failed to decode budgets for run %s: %w", run.ID, err)
	}
	return &run, nil
}

func (s *Store) loadDetails(ctx context.Context, run *Run) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, name, size, files, modules, module_sizes
		FROM chunks WHERE run_id = ? ORDER BY position`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c analyzer.Chunk
		var files string
		var modules, moduleSizes sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Size, &files, &modules, &moduleSizes); err != nil {
			return fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(files), &c.Files); err != nil {
			return fmt.Errorf("failed to decode chunk files: %w", err)
		}
		if modules.Valid {
			if err := json.Unmarshal([]byte(modules.String), &c.Modules); err != nil {
				return fmt.Errorf("failed to decode chunk modules: %w", err)
			}
		}
		if moduleSizes.Valid {
			if err := json.Unmarshal([]byte(moduleSizes.String), &c.ModuleSizes); err != nil {
				return fmt.Errorf("failed to decode module sizes: %w", err)
			}
		}
		run.Chunks = append(run.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	pages, err := s.db.QueryContext(ctx, `
		SELECT url, runs, lcp, inp, cls, tbt, fcp, ttfb, performance
		FROM runtime_metrics WHERE run_id = ? ORDER BY url`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load runtime metrics: %w", err)
	}
	defer pages.Close()

	for pages.Next() {
		var p lighthouse.PageMetrics
		var lcp, inp, cls, tbt, fcp, ttfb, perf sql.NullFloat64
		if err := pages.Scan(&p.URL, &p.Runs, &lcp, &inp, &cls, &tbt, &fcp, &ttfb, &perf); err != nil {
			return fmt.Errorf("failed to scan runtime metrics: %w", err)
		}
		p.Metrics = lighthouse.Metrics{
			LCP:         floatPtr(lcp),
			INP:         floatPtr(inp),
			CLS:         floatPtr(cls),
			TBT:         floatPtr(tbt),
			FCP:         floatPtr(fcp),
			TTFB:        floatPtr(ttfb),
			Performance: floatPtr(perf),
		}
		run.Pages = append(run.Pages, p)
	}
	return pages.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
