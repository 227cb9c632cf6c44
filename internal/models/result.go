package models

import (
	"fmt"
	"time"
)

// MatchRecord is a confirmed match: the first row found for a target.
type MatchRecord struct {
	Target Target // The target that matched
	File   string // Source file path
	Row    int    // 1-based row index within File
	Text   string // Decoded row text as read from the file
}

// ResultLine formats the record the way it is persisted: "<row>,<text>\n".
func (m MatchRecord) ResultLine() string {
	return fmt.Sprintf("%d,%s\n", m.Row, m.Text)
}

// Describe returns the human-readable match message.
func (m MatchRecord) Describe() string {
	return fmt.Sprintf("Found email in file: %s, Row %d: %s", m.File, m.Row, m.Text)
}

// Progress is a point-in-time view of search progress.
// Completed never exceeds Total.
type Progress struct {
	Completed int64
	Total     int64
}

// Percent returns completion as an integer percentage (0-100).
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	perc := int(p.Completed * 100 / p.Total)
	if perc > 100 {
		perc = 100
	}
	return perc
}

// Done reports whether every registered target has been searched.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Completed >= p.Total
}

// RunSummary is the aggregate result of one search run.
type RunSummary struct {
	RunID        string
	Root         string
	Output       string
	Targets      int      // Number of targets dispatched
	Found        int      // Number of MatchRecords written
	NotFound     []Target // Targets with no match, in registry order
	FilesScanned int64    // Candidate files opened, summed across targets
	RowsScanned  int64
	DecodeErrors int64
	WalkErrors   int64
	Cancelled    bool
	StartedAt    time.Time
	Duration     time.Duration
}
