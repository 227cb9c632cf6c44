package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/mailscan/internal/models"
)

// maxListedItems caps how many items a warning lists before summarizing the rest.
const maxListedItems = 20

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	ItemsLabel string   // Heading for Items (optional, defaults to "Affected")
	Items      []string // Related targets or files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning, in yellow when out is a terminal
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Items) > 0 {
		label := w.ItemsLabel
		if label == "" {
			label = "Affected"
		}
		fmt.Fprintf(&b, "    %s:\n", label)

		for i, item := range w.Items {
			if i == maxListedItems {
				fmt.Fprintf(&b, "      ... and %d more\n", len(w.Items)-maxListedItems)
				break
			}
			fmt.Fprintf(&b, "      %d. %s\n", i+1, item)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	text := b.String()
	if isTerminal(out) {
		yellow := color.New(color.FgYellow)
		yellow.EnableColor()
		text = yellow.Sprint(text)
	}
	fmt.Fprint(out, text)
}

// WarnTargetsNotFound creates a warning listing targets that had no match.
func WarnTargetsNotFound(notFound []models.Target, total int) Warning {
	items := make([]string, 0, len(notFound))
	for _, t := range notFound {
		items = append(items, t.Value)
	}
	return Warning{
		Title:      "Targets Not Found",
		Message:    fmt.Sprintf("%d of %d target(s) had no match in any file", len(notFound), total),
		ItemsLabel: "Targets",
		Items:      items,
	}
}

// WarnDuplicateTargets creates a warning for targets listed more than once.
func WarnDuplicateTargets(duplicates []string) Warning {
	return Warning{
		Title:      "Duplicate Targets",
		Message:    "These targets appear more than once; each is recorded at most once",
		ItemsLabel: "Targets",
		Items:      duplicates,
	}
}

// WarnCancelled creates a warning for a run stopped before every target was searched.
func WarnCancelled(p models.Progress, output string) Warning {
	w := Warning{
		Title:   "Search Cancelled",
		Message: fmt.Sprintf("%d of %d target(s) were searched before the run stopped", p.Completed, p.Total),
	}
	if output != "" {
		w.Suggestion = fmt.Sprintf("Matches found so far are saved in %s", output)
	}
	return w
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) && os.Getenv("NO_COLOR") == ""
}
