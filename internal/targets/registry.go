// Package targets loads the list of email addresses a search run looks for.
package targets

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/mailscan/internal/decoder"
	"github.com/harrison/mailscan/internal/models"
)

const maxTargetLineBytes = 64 * 1024

var checkboxPrefix = regexp.MustCompile(`^\[[ xX]\]\s*`)

// Registry is the immutable, ordered list of targets for a run.
// Duplicates are kept: deduplication happens during the search.
type Registry struct {
	targets []models.Target
	source  string
}

// New builds a Registry from literal values, skipping blank entries.
func New(values ...string) *Registry {
	r := &Registry{}
	for _, v := range values {
		r.add(v)
	}
	return r
}

func (r *Registry) add(raw string) {
	t := models.NewTarget(raw)
	if t.Value == "" {
		return
	}
	r.targets = append(r.targets, t)
}

// Load reads targets from path. Markdown files (.md, .markdown) contribute
// one target per list item; any other file is read one target per line.
func Load(path string) (*Registry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer file.Close()

	var reg *Registry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		content, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read target list: %w", err)
		}
		reg, err = ParseMarkdown(content)
		if err != nil {
			return nil, err
		}
	default:
		reg, err = Parse(file)
		if err != nil {
			return nil, err
		}
	}

	reg.source = path
	return reg, nil
}

// Parse reads one target per line. Lines are decoded like data rows, so
// legacy single-byte exports load correctly. Blank lines are skipped.
func Parse(r io.Reader) (*Registry, error) {
	reg := &Registry{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxTargetLineBytes)
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if first {
			line = bytes.TrimPrefix(line, []byte{0xEF, 0xBB, 0xBF})
			first = false
		}
		value, err := decoder.DecodeLine(line, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decode target list: %w", err)
		}
		reg.add(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}

	return reg, nil
}

// ParseMarkdown extracts one target from each list item's own text.
// Nested lists contribute their items separately.
func ParseMarkdown(content []byte) (*Registry, error) {
	reg := &Registry{}
	doc := goldmark.New().Parser().Parse(text.NewReader(content))

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		item, ok := n.(*ast.ListItem)
		if !ok {
			return ast.WalkContinue, nil
		}

		var buf bytes.Buffer
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch c.Kind() {
			case ast.KindTextBlock, ast.KindParagraph:
				collectText(&buf, c, content)
			}
		}
		reg.add(checkboxPrefix.ReplaceAllString(strings.TrimSpace(buf.String()), ""))
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown target list: %w", err)
	}

	return reg, nil
}

// collectText appends the inline text under n, including autolink labels.
func collectText(buf *bytes.Buffer, n ast.Node, source []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
		case *ast.AutoLink:
			buf.Write(node.Label(source))
		default:
			collectText(buf, c, source)
		}
	}
}

// Targets returns the targets in load order.
func (r *Registry) Targets() []models.Target {
	out := make([]models.Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// Len returns the number of targets, duplicates included.
func (r *Registry) Len() int {
	return len(r.targets)
}

// Source returns the file the registry was loaded from, if any.
func (r *Registry) Source() string {
	return r.source
}

// Duplicates returns the values that appear more than once (case-insensitive),
// each reported once in first-seen order.
func (r *Registry) Duplicates() []string {
	counts := make(map[string]int, len(r.targets))
	var dups []string
	for _, t := range r.targets {
		counts[t.Key()]++
		if counts[t.Key()] == 2 {
			dups = append(dups, t.Value)
		}
	}
	return dups
}
