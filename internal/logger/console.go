package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/mailscan/internal/models"
)

// progressBarWidth is the number of cells in the console progress bar.
const progressBarWidth = 20

// ConsoleLogger logs search progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
// Color output is enabled for os.Stdout/os.Stderr unless NO_COLOR is set, and
// progress is redrawn in place on a single line when the writer is a TTY.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	inline      bool

	// progressOpen is true while an inline progress line awaits its newline.
	progressOpen bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
		inline:      isTTY(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// Returns true for os.Stdout and os.Stderr when they are TTYs.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// color.NoColor is false only for a TTY without NO_COLOR set
		return !color.NoColor
	}
	return false
}

// isTTY reports whether w is a file attached to a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return enabled(cl.logLevel, messageLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.write(formatted)
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// write emits a complete line, first terminating any open inline progress line.
// The caller must hold cl.mutex.
func (cl *ConsoleLogger) write(s string) {
	if cl.progressOpen {
		io.WriteString(cl.writer, "\n")
		cl.progressOpen = false
	}
	io.WriteString(cl.writer, s)
}

// LogEvent renders one engine event. Progress events draw the progress bar,
// everything else is logged at the event's level.
func (cl *ConsoleLogger) LogEvent(ev models.Event) {
	switch ev.Kind {
	case models.EventProgress:
		cl.LogProgress(ev.Progress)
	case models.EventDone:
		cl.LogInfo(ev.Message)
	default:
		dispatch(cl, ev.Level, ev.Message)
	}
}

// LogProgress logs search progress as a bar with counts and percentage.
// Format: "[HH:MM:SS] Progress: [====      ] 4/10 (40%) targets"
// On a TTY the line is redrawn in place until the run completes.
func (cl *ConsoleLogger) LogProgress(p models.Progress) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	pb := NewProgressBar(p.Total, progressBarWidth, cl.colorOutput)
	pb.Update(p.Completed)
	line := fmt.Sprintf("[%s] Progress: %s targets", timestamp(), pb.Render())

	if !cl.inline {
		io.WriteString(cl.writer, line+"\n")
		return
	}

	// \r returns to column 0; \033[K clears the remainder of the old line
	io.WriteString(cl.writer, "\r"+line+"\033[K")
	cl.progressOpen = true
	if p.Done() {
		io.WriteString(cl.writer, "\n")
		cl.progressOpen = false
	}
}

// LogSummary logs the run summary at INFO level.
// Format: "[HH:MM:SS] === Search Summary ===" followed by one metric per line.
func (cl *ConsoleLogger) LogSummary(summary models.RunSummary) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	notFound := int64(len(summary.NotFound))

	var lines []string
	if cl.colorOutput {
		scheme := newColorScheme()
		lines = append(lines, color.New(color.Bold).Sprint("=== Search Summary ==="))
		lines = append(lines,
			scheme.metric("Targets", summary.Targets, nil),
			scheme.metric("Found", summary.Found, scheme.success),
			scheme.metric("Not found", notFound, countColor(notFound, scheme.warn)),
			scheme.metric("Files scanned", summary.FilesScanned, nil),
			scheme.metric("Rows scanned", summary.RowsScanned, nil),
			scheme.metric("Decode errors", summary.DecodeErrors, countColor(summary.DecodeErrors, scheme.fail)),
			scheme.metric("Walk errors", summary.WalkErrors, countColor(summary.WalkErrors, scheme.fail)),
		)
		if summary.Output != "" {
			lines = append(lines, scheme.metric("Results", summary.Output, nil))
		}
		lines = append(lines, scheme.metric("Duration", formatDuration(summary.Duration), nil))
		if summary.Cancelled {
			lines = append(lines, scheme.warn.Sprint("Search was cancelled before all targets were searched"))
		}
	} else {
		lines = append(lines,
			"=== Search Summary ===",
			fmt.Sprintf("Targets: %d", summary.Targets),
			fmt.Sprintf("Found: %d", summary.Found),
			fmt.Sprintf("Not found: %d", notFound),
			fmt.Sprintf("Files scanned: %d", summary.FilesScanned),
			fmt.Sprintf("Rows scanned: %d", summary.RowsScanned),
			fmt.Sprintf("Decode errors: %d", summary.DecodeErrors),
			fmt.Sprintf("Walk errors: %d", summary.WalkErrors),
		)
		if summary.Output != "" {
			lines = append(lines, fmt.Sprintf("Results: %s", summary.Output))
		}
		lines = append(lines, fmt.Sprintf("Duration: %s", formatDuration(summary.Duration)))
		if summary.Cancelled {
			lines = append(lines, "Search was cancelled before all targets were searched")
		}
	}

	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "[%s] %s\n", ts, line)
	}
	cl.write(b.String())
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d > 0 && d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}
