// Package catalog maintains a SQLite index of every run directory under the
// runs root. The index is derived state: manifests and ledgers stay the
// source of truth, and Index rebuilds rows from them at any time. Manifest
// fields are extracted tolerantly so manifests written by other versions
// still index.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"tickvault/internal/ledger"
	"tickvault/internal/logger"
	"tickvault/internal/manifest"
	"tickvault/internal/run"

	_ "modernc.org/sqlite"
)

// DBName is the catalog database filename inside the runs root.
const DBName = "catalog.db"

// Store wraps the catalog database.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	root string
	path string
}

// Run is one indexed run row.
type Run struct {
	RunID       string `json:"run_id"`
	CreatedUTC  string `json:"created_utc"`
	CodeVersion string `json:"code_version"`
	Source      string `json:"source"`
	Symbol      string `json:"symbol"`
	Timeframe   string `json:"timeframe"`
	SinceUTC    string `json:"since_utc"`
	UntilUTC    string `json:"until_utc"`
	OHLCVRows   int64  `json:"ohlcv_rows"`
	TradesRows  int64  `json:"trades_rows"`
	Notes       string `json:"notes,omitempty"`
	IndexedAt   int64  `json:"indexed_at"`
}

// Artifact is one indexed artifact row. Digest is empty when the file is not
// in the run's ledger; Size is zero when the file is missing on disk.
type Artifact struct {
	RunID  string `json:"run_id"`
	Kind   string `json:"kind"`
	Rel    string `json:"rel_path"`
	Digest string `json:"digest,omitempty"`
	Size   int64  `json:"size_bytes"`
}

// Open opens (creating if needed) the catalog database inside root.
func Open(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("catalog root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, DBName)
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, root: root, path: path}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			created_utc TEXT NOT NULL,
			code_version TEXT,
			source TEXT,
			symbol TEXT,
			timeframe TEXT,
			since_utc TEXT,
			until_utc TEXT,
			ohlcv_rows INTEGER NOT NULL DEFAULT 0,
			trades_rows INTEGER NOT NULL DEFAULT 0,
			indexed_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			rel_path TEXT NOT NULL,
			digest TEXT,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, rel_path),
			FOREIGN KEY(run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return ensureRunColumns(db)
}

func ensureRunColumns(db *sql.DB) error {
	columns := []struct {
		name string
		typ  string
	}{
		{"notes", "TEXT"},
		{"params_json", "TEXT"},
	}
	for _, col := range columns {
		if err := addColumnIfMissing(db, "runs", col.name, col.typ); err != nil {
			return err
		}
	}
	return nil
}

func addColumnIfMissing(db *sql.DB, table, column, typ string) error {
	exists, err := columnExists(db, table, column)
	if err != nil || exists {
		return err
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typ)
	_, err = db.Exec(stmt)
	return err
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(1) FROM pragma_table_info('%s') WHERE name='%s'", table, column)
	var cnt int
	if err := db.QueryRow(query).Scan(&cnt); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// Index rescans the runs root and rebuilds the catalog: every run directory
// with a manifest is (re)indexed, and rows for runs no longer on disk are
// pruned. Returns the number of runs indexed. A single unreadable run is
// logged and skipped, never fatal for the scan.
func (s *Store) Index(ctx context.Context) (int, error) {
	ids, err := run.List(s.root)
	if err != nil {
		return 0, fmt.Errorf("catalog index: %w", err)
	}
	seen := make(map[string]bool, len(ids))
	indexed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		if err := s.indexRun(ctx, id); err != nil {
			logger.Warnf("catalog: skip run %s: %v", id, err)
			continue
		}
		seen[id] = true
		indexed++
	}
	if err := s.prune(ctx, seen); err != nil {
		return indexed, err
	}
	return indexed, nil
}

func (s *Store) indexRun(ctx context.Context, id string) error {
	dir := filepath.Join(s.root, id)
	raw, err := os.ReadFile(filepath.Join(dir, manifest.Filename))
	if err != nil {
		return err
	}
	doc := gjson.ParseBytes(raw)
	runID := doc.Get("run_id").String()
	if runID == "" {
		runID = id
	}
	coll := doc.Get("parameters.data_collection")

	digests := make(map[string]string)
	if entries, err := ledger.Parse(filepath.Join(dir, ledger.Filename)); err == nil {
		for _, e := range entries {
			digests[e.Path] = e.Digest
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(run_id, created_utc, code_version, source, symbol, timeframe,
			 since_utc, until_utc, ohlcv_rows, trades_rows, notes, params_json, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		doc.Get("created_utc").String(),
		doc.Get("code_version").String(),
		coll.Get("source").String(),
		coll.Get("symbol").String(),
		coll.Get("timeframe").String(),
		coll.Get("ohlcv_window.since_utc").String(),
		coll.Get("ohlcv_window.until_utc").String(),
		coll.Get("ohlcv_rows").Int(),
		coll.Get("trades.rows").Int(),
		doc.Get("notes").String(),
		stringOrNil(doc.Get("parameters").Raw),
		now)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE run_id=?`, runID); err != nil {
		return err
	}

	for _, kind := range []string{manifest.KindData, manifest.KindFigures, manifest.KindLogs, manifest.KindTables} {
		for _, entry := range doc.Get("artifacts." + kind).Array() {
			rel := entry.String()
			if rel == "" {
				continue
			}
			var size int64
			if fi, err := os.Stat(filepath.Join(dir, rel)); err == nil {
				size = fi.Size()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO artifacts (run_id, kind, rel_path, digest, size_bytes)
				VALUES (?, ?, ?, ?, ?)`,
				runID, kind, rel, digests[rel], size)
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *Store) prune(ctx context.Context, seen map[string]bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id=?`, id); err != nil {
			return err
		}
	}
	return nil
}

// Filter narrows ListRuns. Zero fields match everything.
type Filter struct {
	Source string
	Symbol string
	Limit  int
}

// ListRuns returns indexed runs, newest created first.
func (s *Store) ListRuns(ctx context.Context, f Filter) ([]Run, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT run_id, created_utc, code_version, source, symbol, timeframe,
		       since_utc, until_utc, ohlcv_rows, trades_rows, notes, indexed_at
		FROM runs`
	var (
		where []string
		args  []interface{}
	)
	if f.Source != "" {
		where = append(where, "source=?")
		args = append(args, f.Source)
	}
	if f.Symbol != "" {
		where = append(where, "symbol=?")
		args = append(args, f.Symbol)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_utc DESC LIMIT ?"
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// GetRun returns one indexed run. sql.ErrNoRows surfaces for unknown ids.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, created_utc, code_version, source, symbol, timeframe,
		       since_utc, until_utc, ohlcv_rows, trades_rows, notes, indexed_at
		FROM runs WHERE run_id=?`, id)
	return scanRun(row)
}

// ListArtifacts returns the indexed artifact rows for one run, data first,
// then figures, logs and tables, each list in manifest order.
func (s *Store) ListArtifacts(ctx context.Context, runID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, kind, rel_path, digest, size_bytes
		FROM artifacts
		WHERE run_id=?
		ORDER BY CASE kind
			WHEN 'data' THEN 0 WHEN 'figures' THEN 1 WHEN 'logs' THEN 2 ELSE 3
		END, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Artifact
	for rows.Next() {
		var a Artifact
		var digest sql.NullString
		if err := rows.Scan(&a.RunID, &a.Kind, &a.Rel, &digest, &a.Size); err != nil {
			return nil, err
		}
		if digest.Valid {
			a.Digest = digest.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func stringOrNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var notes sql.NullString
	if err := row.Scan(&r.RunID, &r.CreatedUTC, &r.CodeVersion, &r.Source, &r.Symbol,
		&r.Timeframe, &r.SinceUTC, &r.UntilUTC, &r.OHLCVRows, &r.TradesRows,
		&notes, &r.IndexedAt); err != nil {
		return Run{}, err
	}
	if notes.Valid {
		r.Notes = notes.String
	}
	return r, nil
}
