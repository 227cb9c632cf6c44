package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/mailscan/internal/models"
)

var (
	_ Logger = (*ConsoleLogger)(nil)
	_ Logger = (*FileLogger)(nil)
)

func readRunLog(t *testing.T, fl *FileLogger) string {
	t.Helper()
	data, err := os.ReadFile(fl.RunFile())
	if err != nil {
		t.Fatalf("failed to read run log: %v", err)
	}
	return string(data)
}

// TestLogDirectoryCreation verifies .mailscan/logs/ is created on initialization
func TestLogDirectoryCreation(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	logger, err := NewFileLoggerWithDirAndLevel(filepath.Join(".mailscan", "logs"), "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer logger.Close()

	logDir := filepath.Join(tmpDir, ".mailscan", "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Expected log directory %s to exist, but it doesn't", logDir)
	}
}

// TestPerRunLogFile verifies a timestamped log file is created per run
func TestPerRunLogFile(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	first, err := NewFileLoggerWithDirAndLevel(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer first.Close()

	second, err := NewFileLoggerWithDirAndLevel(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer second.Close()

	if first.RunFile() == second.RunFile() {
		t.Errorf("two runs share log file %s", first.RunFile())
	}
	for _, fl := range []*FileLogger{first, second} {
		name := filepath.Base(fl.RunFile())
		if !strings.HasPrefix(name, "run-") || !strings.HasSuffix(name, ".log") {
			t.Errorf("unexpected run log name %q", name)
		}
	}
}

// TestLatestSymlink verifies latest.log points to the most recent run
func TestLatestSymlink(t *testing.T) {
	logDir := t.TempDir()

	first, err := NewFileLoggerWithDirAndLevel(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	first.Close()

	second, err := NewFileLoggerWithDirAndLevel(logDir, "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer second.Close()

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("Readlink() error = %v", err)
	}
	if target != filepath.Base(second.RunFile()) {
		t.Errorf("latest.log -> %q, want %q", target, filepath.Base(second.RunFile()))
	}
}

func TestFileLoggerHeaderAndLevels(t *testing.T) {
	fl, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "warn")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer fl.Close()

	fl.LogDebug("debug line")
	fl.LogInfo("info line")
	fl.LogWarn("warn line")
	fl.LogError("error line")

	content := readRunLog(t, fl)
	if !strings.HasPrefix(content, "=== mailscan Run Log ===\n") {
		t.Errorf("missing header:\n%s", content)
	}
	if strings.Contains(content, "debug line") || strings.Contains(content, "info line") {
		t.Errorf("lines below warn should be filtered:\n%s", content)
	}
	if !strings.Contains(content, "[WARN] warn line") || !strings.Contains(content, "[ERROR] error line") {
		t.Errorf("missing warn/error lines:\n%s", content)
	}
}

func TestFileLoggerLogEvent(t *testing.T) {
	fl, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "debug")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer fl.Close()

	fl.LogEvent(models.Event{Kind: models.EventLog, Level: models.LevelInfo, Message: "Found email in file: a.csv, Row 3: x"})
	fl.LogEvent(models.Event{Kind: models.EventProgress, Message: "Progress: 1/2 targets searched", Progress: models.Progress{Completed: 1, Total: 2}})
	fl.LogEvent(models.Event{Kind: models.EventDone, Message: "Search complete: 1 of 2 target(s) found"})
	fl.LogProgress(models.Progress{Completed: 2, Total: 2})

	content := readRunLog(t, fl)
	for _, want := range []string{
		"[INFO] Found email in file: a.csv, Row 3: x",
		"[DEBUG] Progress: 1/2 targets searched",
		"[INFO] Search complete: 1 of 2 target(s) found",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("run log missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "2/2") {
		t.Errorf("LogProgress should not write to the run log:\n%s", content)
	}
}

func TestFileLoggerSummary(t *testing.T) {
	fl, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	defer fl.Close()

	fl.LogSummary(models.RunSummary{
		RunID:    "run-123",
		Root:     "/data",
		Output:   "/data/email_search_results.txt",
		Targets:  2,
		Found:    1,
		NotFound: []models.Target{models.NewTarget("Bob@X.com")},
		Duration: 1500 * time.Millisecond,
	})

	content := readRunLog(t, fl)
	for _, want := range []string{
		"=== SEARCH SUMMARY ===",
		"Run ID:        run-123",
		"Found:         1",
		"Total time:    1.5s",
		"Status:        COMPLETE (1/2 targets found)",
		"not found: Bob@X.com",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("summary missing %q:\n%s", want, content)
		}
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	fl, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "info")
	if err != nil {
		t.Fatalf("NewFileLoggerWithDirAndLevel() error = %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	fl.LogInfo("after close")
}
