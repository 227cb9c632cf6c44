package models

import "testing"

func TestMatchRecordFormatting(t *testing.T) {
	rec := MatchRecord{
		Target: NewTarget("alice@x.com"),
		File:   "/data/a.csv",
		Row:    3,
		Text:   "alice@x.com,Jane,bob@x.com",
	}

	if got, want := rec.ResultLine(), "3,alice@x.com,Jane,bob@x.com\n"; got != want {
		t.Errorf("ResultLine() = %q, want %q", got, want)
	}
	if got, want := rec.Describe(), "Found email in file: /data/a.csv, Row 3: alice@x.com,Jane,bob@x.com"; got != want {
		t.Errorf("Describe() = %q, want %q", got, want)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name    string
		p       Progress
		percent int
		done    bool
	}{
		{"empty", Progress{}, 0, false},
		{"none completed", Progress{Completed: 0, Total: 4}, 0, false},
		{"partial", Progress{Completed: 1, Total: 3}, 33, false},
		{"complete", Progress{Completed: 4, Total: 4}, 100, true},
		{"clamped", Progress{Completed: 5, Total: 4}, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Percent(); got != tt.percent {
				t.Errorf("Percent() = %d, want %d", got, tt.percent)
			}
			if got := tt.p.Done(); got != tt.done {
				t.Errorf("Done() = %v, want %v", got, tt.done)
			}
		})
	}
}
