package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pagediff/internal/compare"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by Store.Report for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at          TEXT    NOT NULL,
	duration_ms         INTEGER NOT NULL,
	original            TEXT    NOT NULL,
	converted           TEXT    NOT NULL,
	strategy            TEXT    NOT NULL,
	original_pages      INTEGER NOT NULL,
	converted_pages     INTEGER NOT NULL,
	matches             INTEGER NOT NULL,
	unmatched_original  INTEGER NOT NULL,
	unmatched_converted INTEGER NOT NULL,
	unavailable_sides   INTEGER NOT NULL,
	mean_iou            REAL    NOT NULL,
	report              TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	run_id              INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	page                INTEGER NOT NULL,
	original_status     TEXT    NOT NULL,
	converted_status    TEXT    NOT NULL,
	matches             INTEGER NOT NULL,
	unmatched_original  INTEGER NOT NULL,
	unmatched_converted INTEGER NOT NULL,
	mean_iou            REAL    NOT NULL,
	PRIMARY KEY (run_id, page)
);
`

// RunMeta describes one comparison run.
type RunMeta struct {
	Original  string        `json:"original" yaml:"original"`
	Converted string        `json:"converted" yaml:"converted"`
	Strategy  string        `json:"strategy" yaml:"strategy"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Run is a stored run without its page detail.
type Run struct {
	ID      int64 `json:"id" yaml:"id"`
	RunMeta `yaml:",inline"`
	Summary compare.Summary `json:"summary" yaml:"summary"`
}

// Store persists runs in an SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run store at path. ":memory:" gives a
// private in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// One connection keeps ":memory:" coherent and serialises writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: exec schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and its per-page rows in one transaction and
// returns the run ID.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, rep *compare.Report) (int64, error) {
	if rep == nil {
		return 0, fmt.Errorf("store: nil report")
	}
	body, err := json.Marshal(rep)
	if err != nil {
		return 0, fmt.Errorf("store: encode report: %w", err)
	}
	sum := rep.Summary()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, duration_ms, original, converted, strategy,
			original_pages, converted_pages, matches, unmatched_original,
			unmatched_converted, unavailable_sides, mean_iou, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.StartedAt.UTC().Format(time.RFC3339Nano), meta.Duration.Milliseconds(),
		meta.Original, meta.Converted, meta.Strategy,
		sum.OriginalPages, sum.ConvertedPages, sum.Matches, sum.UnmatchedOriginal,
		sum.UnmatchedConverted, sum.UnavailableSides, sum.MeanIoU, string(body))
	if err != nil {
		return 0, fmt.Errorf("store: insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (run_id, page, original_status, converted_status,
			matches, unmatched_original, unmatched_converted, mean_iou)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare pages: %w", err)
	}
	defer stmt.Close()

	for _, p := range rep.Pages {
		if _, err := stmt.ExecContext(ctx, id, p.Page, string(p.Original.Status), string(p.Converted.Status),
			len(p.Matches), len(p.UnmatchedOriginal), len(p.UnmatchedConverted), p.MeanIoU); err != nil {
			return 0, fmt.Errorf("store: insert page %d: %w", p.Page, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return id, nil
}

// Runs lists the most recent runs, newest first. limit <= 0 means 20.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, original, converted, strategy,
			original_pages, converted_pages, matches, unmatched_original,
			unmatched_converted, unavailable_sides, mean_iou
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			startedAt string
			durMS     int64
		)
		if err := rows.Scan(&r.ID, &startedAt, &durMS, &r.Original, &r.Converted, &r.Strategy,
			&r.Summary.OriginalPages, &r.Summary.ConvertedPages, &r.Summary.Matches,
			&r.Summary.UnmatchedOriginal, &r.Summary.UnmatchedConverted,
			&r.Summary.UnavailableSides, &r.Summary.MeanIoU); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("store: run %d: %w", r.ID, err)
		}
		r.Duration = time.Duration(durMS) * time.Millisecond
		r.Summary.Pages = min(r.Summary.OriginalPages, r.Summary.ConvertedPages)
		r.Summary.PageCountMismatch = r.Summary.OriginalPages != r.Summary.ConvertedPages
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}
	return runs, nil
}

// Report loads the full report of a stored run.
func (s *Store) Report(ctx context.Context, id int64) (*compare.Report, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load run %d: %w", id, err)
	}

	var rep compare.Report
	if err := json.Unmarshal([]byte(body), &rep); err != nil {
		return nil, fmt.Errorf("store: decode run %d: %w", id, err)
	}
	return &rep, nil
}

// PageStatuses returns, for one run, how many page sides ended in each status.
func (s *Store) PageStatuses(ctx context.Context, id int64) (map[compare.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM (
			SELECT original_status AS status FROM pages WHERE run_id = ?
			UNION ALL
			SELECT converted_status FROM pages WHERE run_id = ?
		) GROUP BY status`, id, id)
	if err != nil {
		return nil, fmt.Errorf("store: query statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[compare.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("store: scan status: %w", err)
		}
		out[compare.Status(status)] = n
	}
	return out, rows.Err()
}
