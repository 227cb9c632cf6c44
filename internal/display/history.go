package display

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/harrison/mailscan/internal/history"
)

// PrintRuns writes one line per run: ID, start time, counts and root.
func PrintRuns(out io.Writer, runs []*history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tFOUND\tTARGETS\tDURATION\tSTATUS\tROOT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Found,
			r.Targets,
			r.Duration.Round(time.Millisecond),
			runStatus(r),
			r.Root,
		)
	}
	w.Flush()
}

// PrintRun writes the details of one run followed by its matches.
func PrintRun(out io.Writer, r *history.Run, matches []*history.Match) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", r.ID)
	fmt.Fprintf(w, "Started:\t%s\n", r.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Status:\t%s\n", runStatus(r))
	fmt.Fprintf(w, "Root:\t%s\n", r.Root)
	if r.TargetsFile != "" {
		fmt.Fprintf(w, "Targets file:\t%s\n", r.TargetsFile)
	}
	if r.Output != "" {
		fmt.Fprintf(w, "Results:\t%s\n", r.Output)
	}
	fmt.Fprintf(w, "Targets:\t%d\n", r.Targets)
	fmt.Fprintf(w, "Found:\t%d\n", r.Found)
	fmt.Fprintf(w, "Files scanned:\t%d\n", r.FilesScanned)
	fmt.Fprintf(w, "Rows scanned:\t%d\n", r.RowsScanned)
	fmt.Fprintf(w, "Errors:\t%d decode, %d walk\n", r.DecodeErrors, r.WalkErrors)
	fmt.Fprintf(w, "Duration:\t%s\n", r.Duration.Round(time.Millisecond))
	w.Flush()

	if len(matches) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TARGET\tFILE\tROW\tTEXT")
		for _, m := range matches {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.Target, m.File, m.Row, truncate(m.Text, 60))
		}
		w.Flush()
	}

	if len(r.NotFound) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Not found:")
		for _, t := range r.NotFound {
			fmt.Fprintf(out, "  %s\n", t)
		}
	}
}

// shortID returns the first eight characters of id, enough for "history show".
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func runStatus(r *history.Run) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Finished:
		return "complete"
	default:
		return "incomplete"
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
