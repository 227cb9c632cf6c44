package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/mailscan/internal/models"
)

// TestNewConsoleLogger verifies the constructor creates a ConsoleLogger with the provided writer.
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "info")

		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "info" {
			t.Errorf("expected log level %q, got %q", "info", logger.logLevel)
		}
		if logger.colorOutput || logger.inline {
			t.Error("a buffer is never a terminal")
		}
	})

	t.Run("with nil writer", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "info")
		logger.LogInfo("discarded")
		logger.LogProgress(models.Progress{Completed: 1, Total: 2})
		logger.LogSummary(models.RunSummary{})
	})

	t.Run("invalid level defaults to info", func(t *testing.T) {
		logger := NewConsoleLogger(&bytes.Buffer{}, "LOUD")
		if logger.logLevel != "info" {
			t.Errorf("expected log level %q, got %q", "info", logger.logLevel)
		}
	})
}

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		hidden   []string
	}{
		{level: "trace", expected: []string{"[TRACE] t", "[DEBUG] d", "[INFO] i", "[WARN] w", "[ERROR] e"}},
		{level: "info", expected: []string{"[INFO] i", "[WARN] w", "[ERROR] e"}, hidden: []string{"[TRACE]", "[DEBUG]"}},
		{level: "WARN", expected: []string{"[WARN] w", "[ERROR] e"}, hidden: []string{"[INFO]", "[DEBUG]"}},
		{level: "error", expected: []string{"[ERROR] e"}, hidden: []string{"[WARN]", "[INFO]"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.level)

			logger.LogTrace("t")
			logger.LogDebug("d")
			logger.LogInfo("i")
			logger.LogWarn("w")
			logger.LogError("e")

			output := buf.String()
			for _, want := range tt.expected {
				if !strings.Contains(output, want) {
					t.Errorf("output missing %q:\n%s", want, output)
				}
			}
			for _, unwanted := range tt.hidden {
				if strings.Contains(output, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, output)
				}
			}
		})
	}
}

func TestConsoleLoggerTimestampFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	NewConsoleLogger(buf, "info").LogInfo("hello")

	line := buf.String()
	// [HH:MM:SS] [INFO] hello
	if len(line) < 11 || line[0] != '[' || line[3] != ':' || line[6] != ':' || line[9] != ']' {
		t.Errorf("unexpected timestamp prefix: %q", line)
	}
	if !strings.HasSuffix(line, "[INFO] hello\n") {
		t.Errorf("unexpected line: %q", line)
	}
}

func TestConsoleLoggerLogEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogEvent(models.Event{Kind: models.EventLog, Level: models.LevelDebug, Message: "Searching file: a.csv"})
	logger.LogEvent(models.Event{Kind: models.EventLog, Level: models.LevelWarn, Message: "a.csv: line 5: bad bytes"})
	logger.LogEvent(models.Event{Kind: models.EventLog, Level: models.LevelInfo, Message: "Found email in file: a.csv, Row 3: alice@x.com,Jane,bob@x.com"})
	logger.LogEvent(models.Event{Kind: models.EventProgress, Progress: models.Progress{Completed: 1, Total: 2}})
	logger.LogEvent(models.Event{Kind: models.EventDone, Message: "Search complete: 1 of 2 target(s) found"})

	output := buf.String()
	if strings.Contains(output, "Searching file") {
		t.Errorf("debug event should be filtered at info level:\n%s", output)
	}
	for _, want := range []string{
		"[WARN] a.csv: line 5: bad bytes",
		"[INFO] Found email in file: a.csv, Row 3: alice@x.com,Jane,bob@x.com",
		"Progress: [==========          ] 1/2 (50%) targets",
		"[INFO] Search complete: 1 of 2 target(s) found",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestConsoleLoggerProgressNotInline(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogProgress(models.Progress{Completed: 0, Total: 4})
	logger.LogProgress(models.Progress{Completed: 4, Total: 4})

	output := buf.String()
	if strings.Contains(output, "\r") {
		t.Errorf("non-terminal output should not redraw lines: %q", output)
	}
	if got := strings.Count(output, "\n"); got != 2 {
		t.Errorf("expected 2 progress lines, got %d: %q", got, output)
	}
	if !strings.Contains(output, "4/4 (100%)") {
		t.Errorf("missing final progress: %q", output)
	}
}

func TestConsoleLoggerProgressInline(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")
	logger.inline = true

	logger.LogProgress(models.Progress{Completed: 1, Total: 3})
	logger.LogWarn("interrupting")
	logger.LogProgress(models.Progress{Completed: 3, Total: 3})

	output := buf.String()
	if !strings.HasPrefix(output, "\r[") {
		t.Errorf("inline progress should start with carriage return: %q", output)
	}
	if !strings.Contains(output, "\033[K\n[") {
		t.Errorf("log line should terminate the open progress line: %q", output)
	}
	if !strings.HasSuffix(output, "\033[K\n") {
		t.Errorf("completed progress should end the line: %q", output)
	}
	if logger.progressOpen {
		t.Error("progress line should be closed after completion")
	}
}

func TestConsoleLoggerSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogSummary(models.RunSummary{
		Output:       "/data/email_search_results.txt",
		Targets:      3,
		Found:        2,
		NotFound:     []models.Target{models.NewTarget("carol@x.com")},
		FilesScanned: 7,
		RowsScanned:  120,
		DecodeErrors: 1,
		Duration:     90 * time.Second,
		Cancelled:    true,
	})

	output := buf.String()
	for _, want := range []string{
		"=== Search Summary ===",
		"Targets: 3",
		"Found: 2",
		"Not found: 1",
		"Files scanned: 7",
		"Rows scanned: 120",
		"Decode errors: 1",
		"Walk errors: 0",
		"Results: /data/email_search_results.txt",
		"Duration: 1m30s",
		"Search was cancelled",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("summary missing %q:\n%s", want, output)
		}
	}

	buf.Reset()
	NewConsoleLogger(buf, "warn").LogSummary(models.RunSummary{Targets: 1})
	if buf.Len() != 0 {
		t.Errorf("summary should be filtered at warn level: %q", buf.String())
	}
}

func TestConsoleLoggerConcurrentWrites(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.LogInfo("message")
		}()
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "[INFO] message\n"); got != 50 {
		t.Errorf("expected 50 complete lines, got %d", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5s"},
		{2 * time.Minute, "2m"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour + time.Minute + time.Second, "1h1m1s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
