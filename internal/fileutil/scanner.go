package fileutil

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WalkOptions configures directory traversal
type WalkOptions struct {
	// Extensions is a list of file extensions to include (e.g., ".csv"); empty means all files
	Extensions []string
	// ExcludeDirs is a list of directory names to skip (e.g., ".git", "node_modules")
	ExcludeDirs []string
	// ExcludeFiles is a list of file paths that are never yielded
	ExcludeFiles []string
	// SkipHidden skips directories starting with "."
	SkipHidden bool
}

// WalkError reports a path that could not be read during traversal.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("error accessing %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// matcher holds the normalized filters for one walk
type matcher struct {
	extMap      map[string]bool
	excludeDirs map[string]bool
	excludeFile map[string]bool
	skipHidden  bool
}

func newMatcher(opts WalkOptions) *matcher {
	m := &matcher{
		extMap:      make(map[string]bool),
		excludeDirs: make(map[string]bool),
		excludeFile: make(map[string]bool),
		skipHidden:  opts.SkipHidden,
	}
	for _, ext := range opts.Extensions {
		// Ensure extensions start with a dot
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m.extMap[strings.ToLower(ext)] = true
	}
	for _, dir := range opts.ExcludeDirs {
		m.excludeDirs[dir] = true
	}
	for _, f := range opts.ExcludeFiles {
		if abs, err := filepath.Abs(f); err == nil {
			m.excludeFile[abs] = true
		}
	}
	return m
}

func (m *matcher) skipDir(name string) bool {
	if m.excludeDirs[name] {
		return true
	}
	return m.skipHidden && strings.HasPrefix(name, ".")
}

func (m *matcher) wantFile(path string) bool {
	if len(m.extMap) > 0 && !m.extMap[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	if len(m.excludeFile) > 0 {
		if abs, err := filepath.Abs(path); err == nil && m.excludeFile[abs] {
			return false
		}
	}
	return true
}

// Walk returns a lazy depth-first sequence of files under root.
// Unreadable directories yield a *WalkError and are skipped.
func Walk(root string, opts WalkOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		info, err := os.Stat(root)
		if err != nil {
			yield("", fmt.Errorf("failed to access directory: %w", err))
			return
		}
		if !info.IsDir() {
			yield("", fmt.Errorf("path is not a directory: %s", root))
			return
		}

		m := newMatcher(opts)

		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if !yield("", &WalkError{Path: path, Err: err}) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != root && m.skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() || !m.wantFile(path) {
				return nil
			}

			if !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// ScanResult contains the results of a directory scan
type ScanResult struct {
	// Files contains the absolute paths of all matched files
	Files []string
	// Errors contains any errors encountered during scanning
	Errors []error
}

// ScanDirectory collects Walk into a sorted list of absolute paths.
// Only a bad root is fatal; unreadable subtrees are collected in Errors.
func ScanDirectory(dir string, opts WalkOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	for path, err := range Walk(dir, opts) {
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, err))
			continue
		}
		result.Files = append(result.Files, absPath)
	}

	// Sort files for consistent output
	sort.Strings(result.Files)

	return result, nil
}
