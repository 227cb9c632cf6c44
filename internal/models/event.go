package models

// EventKind identifies the type of message on the event channel.
type EventKind string

const (
	EventLog      EventKind = "log"
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
)

// Log levels carried by log events, matching the logger's level names.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Event is a discrete message from the search engine to its consumer.
type Event struct {
	Kind     EventKind
	Level    string
	Message  string
	Progress Progress
}
