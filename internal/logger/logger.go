// Package logger provides logging implementations for mailscan runs.
//
// Loggers receive the engine's event stream, render progress and print the
// final run summary. Implementations are thread-safe and write to the
// console or to per-run log files.
package logger

import (
	"strings"

	"github.com/harrison/mailscan/internal/models"
)

// Logger is implemented by every log destination used during a search run.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogEvent(ev models.Event)
	LogProgress(p models.Progress)
	LogSummary(summary models.RunSummary)
}

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

var validLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if validLevels[normalized] {
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// enabled reports whether messageLevel passes the configured threshold.
func enabled(configured, messageLevel string) bool {
	return logLevelToInt(normalizeLogLevel(messageLevel)) >= logLevelToInt(configured)
}

// dispatch routes a log event to the level method of l.
func dispatch(l Logger, level, message string) {
	switch normalizeLogLevel(level) {
	case "trace":
		l.LogTrace(message)
	case "debug":
		l.LogDebug(message)
	case "warn":
		l.LogWarn(message)
	case "error":
		l.LogError(message)
	default:
		l.LogInfo(message)
	}
}
