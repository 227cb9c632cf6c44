package models

import "strings"

// Target is an email address to search for.
// Comparison is case-insensitive; Value keeps the original casing for logs.
type Target struct {
	Value string
}

// NewTarget creates a Target from a raw list entry.
func NewTarget(raw string) Target {
	return Target{Value: strings.TrimSpace(raw)}
}

// Key returns the case-folded form used for matching and deduplication.
func (t Target) Key() string {
	return strings.ToLower(t.Value)
}

// Matches reports whether field equals the target, ignoring case.
func (t Target) Matches(field string) bool {
	return strings.ToLower(field) == t.Key()
}

func (t Target) String() string {
	return t.Value
}
