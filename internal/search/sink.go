package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/harrison/mailscan/internal/filelock"
	"github.com/harrison/mailscan/internal/models"
)

// ErrSinkLocked is returned by OpenSink when another run holds the results file.
var ErrSinkLocked = errors.New("results file is in use by another run")

// ErrSinkClosed is returned by Append after Close.
var ErrSinkClosed = errors.New("results file is closed")

// ResultSink appends match records to a results file as they are found.
// Each Append is a single write under a mutex, so lines from concurrent
// callers never interleave. Nothing is buffered between appends.
type ResultSink struct {
	path  string
	lock  *filelock.FileLock
	mu    sync.Mutex
	file  *os.File
	count int
}

// OpenSink creates or truncates the results file at path and takes an
// exclusive lock on it for the lifetime of the sink.
func OpenSink(path string) (*ResultSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create results directory %s: %w", dir, err)
		}
	}

	lock := filelock.NewFileLock(filelock.LockPathFor(path))
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return nil, fmt.Errorf("%w: %s (held via %s)", ErrSinkLocked, path, lock.Path())
		}
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to create results file %s: %w", path, err)
	}

	return &ResultSink{
		path: path,
		lock: lock,
		file: file,
	}, nil
}

// Path returns the results file path.
func (s *ResultSink) Path() string {
	return s.path
}

// Append writes one record as "<row>,<text>\n".
func (s *ResultSink) Append(rec models.MatchRecord) error {
	line := []byte(rec.ResultLine())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrSinkClosed
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("failed to append to %s: %w", s.path, err)
	}
	s.count++
	return nil
}

// Count returns the number of records appended.
func (s *ResultSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close syncs and closes the file and releases the lock.
func (s *ResultSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	var errs []error
	if err := s.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("failed to sync %s: %w", s.path, err))
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close %s: %w", s.path, err))
	}
	s.file = nil

	if err := s.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
