// Package display formats user-facing terminal output for the mailscan CLI.
//
// # Warning Messages
//
// Display warnings with optional components:
//
//	warning := display.Warning{
//	    Title:      "Targets Not Found",
//	    Message:    "2 of 5 targets had no match",
//	    Items:      []string{"a@x.com", "b@x.com"},
//	    Suggestion: "Check the search root",
//	}
//	warning.Display(os.Stderr)
//
// Colors are applied only when the writer is a terminal.
//
// # Run History
//
// PrintRuns and PrintRun render history records as aligned tables:
//
//	display.PrintRuns(os.Stdout, runs)
//	display.PrintRun(os.Stdout, run, matches)
package display
