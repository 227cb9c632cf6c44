package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewFileLock(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")

	lock := NewFileLock(lockPath)
	if lock == nil {
		t.Fatal("NewFileLock should not return nil")
	}

	if lock.Path() != lockPath {
		t.Errorf("Expected lock path %s, got %s", lockPath, lock.Path())
	}
}

func TestUnlockKeepsLockFile(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")

	lock := NewFileLock(lockPath)

	if err := lock.Lock(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("Expected lock file to exist while held: %v", err)
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("Expected lock file to remain after release, got err=%v", err)
	}

	// the same file is lockable again once released
	next := NewFileLock(lockPath)
	if err := next.Acquire(); err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	if err := next.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
}

func TestAcquireReportsHeldLock(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := LockPathFor(filepath.Join(tmpDir, "results.txt"))

	first := NewFileLock(lockPath)
	if err := first.Acquire(); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	defer first.Unlock()

	second := NewFileLock(lockPath)
	err := second.Acquire()
	if err == nil {
		t.Fatal("Expected second acquire to fail while lock is held")
	}
	if !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}
}

func TestLockPathFor(t *testing.T) {
	if got := LockPathFor("/tmp/results.txt"); got != "/tmp/results.txt.lock" {
		t.Errorf("LockPathFor() = %s", got)
	}
}

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "report.md")

	if err := AtomicWrite(path, []byte("first")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}
	if err := AtomicWrite(path, []byte("second")); err != nil {
		t.Fatalf("AtomicWrite overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Expected 'second', got %q", string(data))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("Expected permissions 0644, got %o", info.Mode().Perm())
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the target file, found %d entries", len(entries))
	}
}

func TestConcurrentLockAndWrite(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "report.md")

	const goroutines = 8
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if err := LockAndWrite(path, []byte("content")); err != nil {
				t.Errorf("LockAndWrite failed: %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("Expected 'content', got %q", string(data))
	}
	if err := NewFileLock(LockPathFor(path)).Acquire(); err != nil {
		t.Errorf("Expected lock to be released after LockAndWrite: %v", err)
	}
}
