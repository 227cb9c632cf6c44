// Package history keeps a SQLite ledger of search runs and the matches
// each run found, so past results can be listed and inspected.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/mailscan/internal/models"
)

var (
	// ErrRunNotFound is returned when no run matches the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID is returned when an ID prefix matches more than one run.
	ErrAmbiguousRunID = errors.New("ambiguous run id")
)

// Run is one search run as stored in the ledger.
type Run struct {
	ID           string
	Root         string
	Output       string
	TargetsFile  string
	Targets      int
	Found        int
	NotFound     []string
	FilesScanned int64
	RowsScanned  int64
	DecodeErrors int64
	WalkErrors   int64
	Cancelled    bool
	Finished     bool
	StartedAt    time.Time
	Duration     time.Duration
}

// Match is a recorded first match for one target.
type Match struct {
	ID      int64
	RunID   string
	Target  string
	File    string
	Row     int
	Text    string
	FoundAt time.Time
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Store manages the SQLite run history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database.
// dbPath ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Matches are recorded from many search goroutines; one connection
	// serializes them and keeps an in-memory database shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartRun inserts run before any of its matches are recorded.
// An empty run.ID is replaced with a new one.
func (s *Store) StartRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `INSERT INTO runs (id, root, output, targets_file, targets, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Root,
		run.Output,
		run.TargetsFile,
		run.Targets,
		run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordMatch stores rec under runID.
func (s *Store) RecordMatch(ctx context.Context, runID string, rec models.MatchRecord) error {
	query := `INSERT INTO matches (run_id, target, file, row_index, row_text) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, runID, rec.Target.Value, rec.File, rec.Row, rec.Text); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// FinishRun stores the final statistics of summary on its run.
func (s *Store) FinishRun(ctx context.Context, summary models.RunSummary) error {
	notFound := make([]string, 0, len(summary.NotFound))
	for _, t := range summary.NotFound {
		notFound = append(notFound, t.Value)
	}
	notFoundJSON, err := json.Marshal(notFound)
	if err != nil {
		return fmt.Errorf("marshal not found targets: %w", err)
	}

	query := `UPDATE runs SET
		output = ?, targets = ?, found = ?, not_found = ?, files_scanned = ?, rows_scanned = ?,
		decode_errors = ?, walk_errors = ?, cancelled = ?, finished = 1, duration_ms = ?
		WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query,
		summary.Output,
		summary.Targets,
		summary.Found,
		string(notFoundJSON),
		summary.FilesScanned,
		summary.RowsScanned,
		summary.DecodeErrors,
		summary.WalkErrors,
		summary.Cancelled,
		summary.Duration.Milliseconds(),
		summary.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", summary.RunID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, root, output, targets_file, targets, found, not_found, files_scanned, rows_scanned,
	decode_errors, walk_errors, cancelled, finished, started_at, duration_ms`

// ListRuns returns up to limit runs, most recent first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// GetRun returns the run whose ID equals id or, failing that, is the
// only run whose ID starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}

	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id = ? DESC LIMIT 2`
	rows, err := s.db.QueryContext(ctx, query, id, len(id), id, id)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%s: %w", id, ErrAmbiguousRunID)
	}
}

// GetMatches returns the matches recorded for runID in the order they were found.
func (s *Store) GetMatches(ctx context.Context, runID string) ([]*Match, error) {
	query := `SELECT id, run_id, target, file, row_index, row_text, found_at
		FROM matches WHERE run_id = ? ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m := &Match{}
		if err := rows.Scan(&m.ID, &m.RunID, &m.Target, &m.File, &m.Row, &m.Text, &m.FoundAt); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match rows: %w", err)
	}
	return matches, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(rows rowScanner) (*Run, error) {
	run := &Run{}
	var output, targetsFile, notFound sql.NullString
	var durationMs int64
	err := rows.Scan(
		&run.ID,
		&run.Root,
		&output,
		&targetsFile,
		&run.Targets,
		&run.Found,
		&notFound,
		&run.FilesScanned,
		&run.RowsScanned,
		&run.DecodeErrors,
		&run.WalkErrors,
		&run.Cancelled,
		&run.Finished,
		&run.StartedAt,
		&durationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run row: %w", err)
	}

	if output.Valid {
		run.Output = output.String
	}
	if targetsFile.Valid {
		run.TargetsFile = targetsFile.String
	}
	if notFound.Valid && notFound.String != "" {
		if err := json.Unmarshal([]byte(notFound.String), &run.NotFound); err != nil {
			return nil, fmt.Errorf("unmarshal not found targets: %w", err)
		}
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond

	return run, nil
}
