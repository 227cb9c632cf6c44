package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/mailscan/internal/models"
)

// FileLogger logs search runs to files in the .mailscan/logs/ directory.
// Every run gets a timestamped log file and latest.log is a symlink to the
// most recent one. It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLoggerWithDirAndLevel creates a new FileLogger with a custom log directory and log level.
// It creates the log directory if it doesn't exist, opens a timestamped
// run log file, and creates/updates the latest.log symlink.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log; a numeric suffix keeps runs in the same second apart
	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	for n := 1; os.IsExist(err); n++ {
		runFile = filepath.Join(logDir, fmt.Sprintf("run-%s-%d.log", stamp, n))
		file, err = os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== mailscan Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return enabled(fl.logLevel, messageLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogEvent writes one engine event. Progress events are written at DEBUG
// level since the console renders them as a bar.
func (fl *FileLogger) LogEvent(ev models.Event) {
	switch ev.Kind {
	case models.EventProgress:
		fl.LogDebug(ev.Message)
	case models.EventDone:
		fl.LogInfo(ev.Message)
	default:
		dispatch(fl, ev.Level, ev.Message)
	}
}

// LogProgress is a no-op for the file logger; progress lines come through LogEvent.
func (fl *FileLogger) LogProgress(models.Progress) {}

// LogSummary logs the run summary with final statistics at INFO level.
func (fl *FileLogger) LogSummary(summary models.RunSummary) {
	if !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	status := "COMPLETE"
	if summary.Cancelled {
		status = "CANCELLED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] === SEARCH SUMMARY ===\n", ts)
	if summary.RunID != "" {
		fmt.Fprintf(&b, "[%s] Run ID:        %s\n", ts, summary.RunID)
	}
	fmt.Fprintf(&b, "[%s] Root:          %s\n", ts, summary.Root)
	fmt.Fprintf(&b, "[%s] Results:       %s\n", ts, summary.Output)
	fmt.Fprintf(&b, "[%s] Targets:       %d\n", ts, summary.Targets)
	fmt.Fprintf(&b, "[%s] Found:         %d\n", ts, summary.Found)
	fmt.Fprintf(&b, "[%s] Not found:     %d\n", ts, len(summary.NotFound))
	fmt.Fprintf(&b, "[%s] Files scanned: %d\n", ts, summary.FilesScanned)
	fmt.Fprintf(&b, "[%s] Rows scanned:  %d\n", ts, summary.RowsScanned)
	fmt.Fprintf(&b, "[%s] Decode errors: %d\n", ts, summary.DecodeErrors)
	fmt.Fprintf(&b, "[%s] Walk errors:   %d\n", ts, summary.WalkErrors)
	fmt.Fprintf(&b, "[%s] Total time:    %.1fs\n", ts, summary.Duration.Seconds())
	fmt.Fprintf(&b, "[%s] Status:        %s (%d/%d targets found)\n", ts, status, summary.Found, summary.Targets)
	for _, target := range summary.NotFound {
		fmt.Fprintf(&b, "[%s]   not found: %s\n", ts, target)
	}
	fmt.Fprintf(&b, "[%s] Completed at:  %s\n", ts, time.Now().Format(time.RFC3339))

	fl.writeRunLog(b.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}
