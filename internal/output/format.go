package output

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bgricker/testreport/internal/report"
)

// statusLabel renders a status the way documents show it, e.g. "Pass".
// Casers are stateful, so each call gets its own.
func statusLabel(s report.Status) string {
	return cases.Title(language.English).String(strings.ToLower(s.String()))
}

func statusGlyph(s report.Status) string {
	switch s {
	case report.StatusPass:
		return "✓"
	case report.StatusFail:
		return "✗"
	case report.StatusWarning:
		return "!"
	case report.StatusScreenshot:
		return "▣"
	case report.StatusDebug:
		return "·"
	default:
		return "-"
	}
}

func resultGlyph(status string) string {
	switch {
	case strings.EqualFold(status, report.TestPassed):
		return "✓"
	case strings.EqualFold(status, report.TestFailed):
		return "✗"
	default:
		return "?"
	}
}

func statusColor(s report.Status) string {
	switch s {
	case report.StatusPass:
		return passColor
	case report.StatusFail:
		return failColor
	case report.StatusWarning:
		return warningColor
	default:
		return ""
	}
}

func resultColor(status string) string {
	switch {
	case strings.EqualFold(status, report.TestPassed):
		return passColor
	case strings.EqualFold(status, report.TestFailed):
		return failColor
	default:
		return ""
	}
}

func indent(s, pad string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Millisecond).String()
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	if layout == "" {
		layout = report.DefaultDateFormat
	}
	return t.Format(layout)
}

// Column headings shared by the tabular sinks.
var (
	testLogColumns = []string{"Step No", "Step Name", "Description", "Status", "Step Time"}
	summaryColumns = []string{"Test Scenario", "Test Case", "Test Description", "Execution Time", "Test Status"}
)
