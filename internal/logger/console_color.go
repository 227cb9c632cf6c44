package logger

import (
	"fmt"

	"github.com/fatih/color"
)

// colorScheme defines consistent colors for summary metrics.
// Green: found targets
// Red: errors
// Yellow: targets not found, cancellation
// Cyan: labels
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for metrics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// metric formats "label: value". The value color is picked by the caller;
// a nil valueColor uses the scheme's neutral value color.
func (s *colorScheme) metric(label string, value interface{}, valueColor *color.Color) string {
	if valueColor == nil {
		valueColor = s.value
	}
	return fmt.Sprintf("%s: %s", s.label.Sprint(label), valueColor.Sprintf("%v", value))
}

// countColor returns bad when n > 0, otherwise nil.
func countColor(n int64, bad *color.Color) *color.Color {
	if n > 0 {
		return bad
	}
	return nil
}
