// Package search implements the bulk email-match search engine.
//
// An Engine searches a directory tree for the first row matching each
// target. Targets are searched in parallel, one task per target. Matches
// are appended to a ResultSink as soon as they are confirmed, and shared
// progress and deduplication state lives in a Coordinator. Log, progress
// and completion messages are published on an Emitter.
package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/mailscan/internal/decoder"
	"github.com/harrison/mailscan/internal/fileutil"
	"github.com/harrison/mailscan/internal/models"
)

// Column positions compared against each target.
// TODO: expose as configuration once the column layout of non-standard exports is known.
const (
	PrimaryEmailColumn   = 0
	SecondaryEmailColumn = 2
)

// MatchColumns lists the field positions checked in every row.
var MatchColumns = [...]int{PrimaryEmailColumn, SecondaryEmailColumn}

// minFields is the shortest row that has every match column
const minFields = SecondaryEmailColumn + 1

// DefaultExtension is the data file extension searched when none is configured.
const DefaultExtension = ".csv"

// rowCheckInterval is how many rows are read between context checks
const rowCheckInterval = 4096

// ErrNoTargets is returned by Run for an empty target list.
var ErrNoTargets = errors.New("no targets to search for")

// Appender persists match records.
type Appender interface {
	Append(rec models.MatchRecord) error
}

// Options configures an Engine.
type Options struct {
	// Root is the directory tree to search
	Root string
	// Walk filters candidate files; Extensions defaults to DefaultExtension
	Walk fileutil.WalkOptions
	// Decode configures row decoding
	Decode decoder.Options
	// Workers bounds concurrent target searches (0 = one goroutine per target)
	Workers int
	// OnMatch is called once per written match record, from the search goroutine
	OnMatch func(models.MatchRecord)
}

// Engine runs one search over a directory tree. It holds no presentation
// state; callers observe it through the Emitter and Coordinator.
type Engine struct {
	opts   Options
	coord  *Coordinator
	sink   Appender
	events *Emitter

	progressMu   sync.Mutex
	lastProgress int64

	filesScanned atomic.Int64
	rowsScanned  atomic.Int64
	decodeErrors atomic.Int64
	walkErrors   atomic.Int64
}

// NewEngine creates an Engine. sink and events may be nil; a nil
// coordinator is replaced by a fresh one.
func NewEngine(opts Options, coord *Coordinator, sink Appender, events *Emitter) *Engine {
	if len(opts.Walk.Extensions) == 0 {
		opts.Walk.Extensions = []string{DefaultExtension}
	}
	if coord == nil {
		coord = NewCoordinator()
	}
	return &Engine{
		opts:   opts,
		coord:  coord,
		sink:   sink,
		events: events,
	}
}

// Coordinator returns the engine's shared progress and dedup state.
func (e *Engine) Coordinator() *Coordinator {
	return e.coord
}

// Run searches for every target in parallel and returns when all dispatched
// searches have returned. Per-file and per-line failures are reported as
// events and never abort the run. If ctx is cancelled, Run stops
// dispatching, waits for running searches and returns the partial summary
// together with the context error.
func (e *Engine) Run(ctx context.Context, targets []models.Target) (*models.RunSummary, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if err := checkRoot(e.opts.Root); err != nil {
		return nil, err
	}

	summary := &models.RunSummary{
		Root:      e.opts.Root,
		Targets:   len(targets),
		StartedAt: time.Now(),
	}

	e.coord.Register(len(targets))
	e.events.Logf(models.LevelInfo, "Starting search for %d target(s) in %s", len(targets), e.opts.Root)

	g := new(errgroup.Group)
	if e.opts.Workers > 0 {
		g.SetLimit(e.opts.Workers)
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			defer func() {
				e.reportProgress(e.coord.MarkTargetDone())
			}()

			if _, err := e.Search(ctx, target); err != nil && ctx.Err() == nil {
				e.events.Logf(models.LevelError, "Search for %s failed: %v", target, err)
			}
			return nil
		})
	}
	g.Wait()

	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		if seen[target.Key()] {
			continue
		}
		seen[target.Key()] = true
		if !e.coord.IsClaimed(target) {
			summary.NotFound = append(summary.NotFound, target)
		}
	}

	summary.Found = e.coord.Found()
	summary.FilesScanned = e.filesScanned.Load()
	summary.RowsScanned = e.rowsScanned.Load()
	summary.DecodeErrors = e.decodeErrors.Load()
	summary.WalkErrors = e.walkErrors.Load()
	summary.Duration = time.Since(summary.StartedAt)

	if err := ctx.Err(); err != nil {
		summary.Cancelled = true
		e.events.Done(fmt.Sprintf("Search cancelled: %d of %d target(s) found", summary.Found, len(seen)), e.coord.Snapshot())
		return summary, err
	}

	e.events.Done(fmt.Sprintf("Search complete: %d of %d target(s) found", summary.Found, len(seen)), e.coord.Snapshot())
	return summary, nil
}

// Search looks for the first row matching target under the root.
// Returns nil without error when there is no match, or when the target was
// already matched by another task in this run.
func (e *Engine) Search(ctx context.Context, target models.Target) (*models.MatchRecord, error) {
	if target.Key() == "" || e.coord.IsClaimed(target) {
		return nil, nil
	}

	for path, walkErr := range fileutil.Walk(e.opts.Root, e.opts.Walk) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if walkErr != nil {
			var we *fileutil.WalkError
			if !errors.As(walkErr, &we) {
				return nil, walkErr
			}
			e.walkErrors.Add(1)
			e.events.Logf(models.LevelWarn, "Skipping unreadable path: %v", walkErr)
			continue
		}

		// a duplicate of this target may have matched meanwhile
		if e.coord.IsClaimed(target) {
			return nil, nil
		}

		rec, err := e.searchFile(ctx, target, path)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}

		if !e.coord.TryClaim(target) {
			return nil, nil
		}
		return rec, e.record(*rec)
	}

	return nil, nil
}

// searchFile scans one file and returns the first matching row.
// Unreadable files and undecodable lines are reported and skipped; only a
// cancelled context is returned as an error.
func (e *Engine) searchFile(ctx context.Context, target models.Target, path string) (*models.MatchRecord, error) {
	r, err := decoder.Open(path, e.opts.Decode)
	if err != nil {
		e.walkErrors.Add(1)
		e.events.Logf(models.LevelWarn, "Skipping file: %v", err)
		return nil, nil
	}
	defer r.Close()

	e.filesScanned.Add(1)
	e.events.Logf(models.LevelDebug, "Searching file for %s: %s", target, path)

	rows := 0
	for row, err := range r.Rows() {
		if err != nil {
			e.decodeErrors.Add(1)
			e.events.Logf(models.LevelWarn, "%v. Skipping...", err)
			continue
		}

		rows++
		if rows%rowCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				e.rowsScanned.Add(int64(rows))
				return nil, err
			}
		}

		if matchRow(target, row.Fields) {
			e.rowsScanned.Add(int64(rows))
			return &models.MatchRecord{
				Target: target,
				File:   path,
				Row:    row.Index,
				Text:   row.Text,
			}, nil
		}
	}

	e.rowsScanned.Add(int64(rows))
	e.events.Logf(models.LevelDebug, "Finished searching file for %s: %s", target, path)
	return nil, nil
}

// reportProgress emits p unless a later count was already emitted, so the
// event stream never shows progress going backwards.
func (e *Engine) reportProgress(p models.Progress) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()

	if p.Completed <= e.lastProgress {
		return
	}
	e.lastProgress = p.Completed
	e.events.Progress(p)
}

// record persists a claimed match and announces it.
func (e *Engine) record(rec models.MatchRecord) error {
	if e.sink != nil {
		if err := e.sink.Append(rec); err != nil {
			return fmt.Errorf("failed to record match for %s: %w", rec.Target, err)
		}
	}
	e.events.Logf(models.LevelInfo, "%s", rec.Describe())
	if e.opts.OnMatch != nil {
		e.opts.OnMatch(rec)
	}
	return nil
}

// matchRow reports whether any match column of fields equals target.
// Rows too short to have every match column never match.
func matchRow(target models.Target, fields []string) bool {
	if len(fields) < minFields {
		return false
	}
	for _, col := range MatchColumns {
		if target.Matches(fields[col]) {
			return true
		}
	}
	return false
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to access search root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("search root is not a directory: %s", root)
	}
	return nil
}
