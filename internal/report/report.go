// Package report renders a finished search run as a Markdown document,
// optionally converted to a standalone HTML page.
package report

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/mailscan/internal/filelock"
	"github.com/harrison/mailscan/internal/models"
)

// Format selects the report output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Report is everything known about one finished run.
type Report struct {
	Summary     models.RunSummary
	TargetsFile string
	Matches     []models.MatchRecord
}

// FormatFor returns FormatHTML when forceHTML is set or path has an
// .html/.htm extension, otherwise FormatMarkdown.
func FormatFor(path string, forceHTML bool) Format {
	if forceHTML {
		return FormatHTML
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatMarkdown
}

// Markdown renders r as a Markdown document.
func Markdown(r Report) []byte {
	s := r.Summary
	var b bytes.Buffer

	b.WriteString("# mailscan run report\n\n")
	if s.RunID != "" {
		fmt.Fprintf(&b, "- **Run ID:** %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "- **Root:** %s\n", escapeInline(s.Root))
	if r.TargetsFile != "" {
		fmt.Fprintf(&b, "- **Targets file:** %s\n", escapeInline(r.TargetsFile))
	}
	if s.Output != "" {
		fmt.Fprintf(&b, "- **Results file:** %s\n", escapeInline(s.Output))
	}
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- **Started:** %s\n", s.StartedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- **Duration:** %s\n", s.Duration.Round(time.Millisecond))
	status := "complete"
	if s.Cancelled {
		status = "cancelled"
	}
	fmt.Fprintf(&b, "- **Status:** %s\n\n", status)

	b.WriteString("## Totals\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Targets | %d |\n", s.Targets)
	fmt.Fprintf(&b, "| Found | %d |\n", s.Found)
	fmt.Fprintf(&b, "| Not found | %d |\n", len(s.NotFound))
	fmt.Fprintf(&b, "| Files scanned | %d |\n", s.FilesScanned)
	fmt.Fprintf(&b, "| Rows scanned | %d |\n", s.RowsScanned)
	fmt.Fprintf(&b, "| Decode errors | %d |\n", s.DecodeErrors)
	fmt.Fprintf(&b, "| Walk errors | %d |\n\n", s.WalkErrors)

	b.WriteString("## Matches\n\n")
	if len(r.Matches) == 0 {
		b.WriteString("No matches.\n\n")
	} else {
		b.WriteString("| Target | File | Row | Row text |\n|---|---|---|---|\n")
		for _, m := range r.Matches {
			fmt.Fprintf(&b, "| %s | %s | %d | %s |\n",
				escapeCell(m.Target.Value), escapeCell(m.File), m.Row, escapeCell(m.Text))
		}
		b.WriteString("\n")
	}

	if len(s.NotFound) > 0 {
		b.WriteString("## Not found\n\n")
		for _, t := range s.NotFound {
			fmt.Fprintf(&b, "- %s\n", escapeInline(t.Value))
		}
		b.WriteString("\n")
	}

	return b.Bytes()
}

// HTML converts a Markdown report into a standalone HTML page.
func HTML(markdown []byte, title string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert(markdown, &body); err != nil {
		return nil, fmt.Errorf("render report html: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Write renders r in format and replaces path atomically.
func Write(path string, r Report, format Format) error {
	data := Markdown(r)
	if format == FormatHTML {
		title := "mailscan run report"
		if r.Summary.RunID != "" {
			title += " " + r.Summary.RunID
		}
		var err error
		if data, err = HTML(data, title); err != nil {
			return err
		}
	}

	if err := filelock.LockAndWrite(path, data); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r", " ", "\n", " ")

// escapeCell makes s safe inside a table cell.
func escapeCell(s string) string {
	return escapeInline(cellEscaper.Replace(s))
}

var inlineEscaper = strings.NewReplacer(
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
)

// escapeInline keeps Markdown from interpreting emphasis, links or HTML in s.
func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}
