package report

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/atomic"
)

const (
	// ScreenshotsDir is the report subdirectory holding captured screenshots.
	ScreenshotsDir = "Screenshots"
	// ExcelDir, HTMLDir and JSONDir hold the documents of the matching sinks.
	ExcelDir = "Excel Results"
	HTMLDir  = "HTML Results"
	JSONDir  = "JSON Results"
	// ErrorLogName is the file receiving warnings and errors of a run.
	ErrorLogName = "ErrorLog.txt"
	// ExternalResultsDir receives the consolidated external framework results.
	ExternalResultsDir = "External Results"
	// SummaryName is the document name used by sinks for the result summary.
	SummaryName = "Summary"
	// DefaultDateFormat is the Go layout used for report timestamps.
	DefaultDateFormat = "02-Jan-2006 03:04:05 PM"
)

// DispatchMode decides how a failing sink affects the remaining sinks of a call.
type DispatchMode int

const (
	// DispatchPropagate stops at the first failing sink and returns its error.
	DispatchPropagate DispatchMode = iota
	// DispatchBestEffort calls every sink and returns the aggregated errors.
	DispatchBestEffort
)

// ParseDispatchMode resolves "propagate" or "best_effort".
func ParseDispatchMode(v string) (DispatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "propagate":
		return DispatchPropagate, nil
	case "best_effort", "best-effort":
		return DispatchBestEffort, nil
	default:
		return 0, fmt.Errorf("unknown sink error mode %q", v)
	}
}

// Settings configure a single report document.
type Settings struct {
	ReportPath  string
	ReportName  string
	ProjectName string
	DateFormat  string
	LogLevel    Status

	ScreenshotPassed bool
	ScreenshotFailed bool

	Dispatch DispatchMode

	// BatchID identifies the batch the document belongs to. Empty outside a batch.
	BatchID string

	// LinkTestLogsToSummary makes summary rows link to the per test case logs.
	LinkTestLogsToSummary bool
}

// DefaultSettings returns settings that persist every step and capture
// screenshots for failed steps only.
func DefaultSettings(reportPath, reportName string) Settings {
	return Settings{
		ReportPath:       reportPath,
		ReportName:       reportName,
		DateFormat:       DefaultDateFormat,
		LogLevel:         StatusDebug,
		ScreenshotFailed: true,
	}
}

// DocumentName returns the file stem sinks use for the document.
func (s Settings) DocumentName(summary bool) string {
	if summary {
		return SummaryName
	}
	return s.ReportName
}

// TestLogName is the report name of a test case's own log. Path separators,
// colons and spaces are replaced so the name is a single file name.
func TestLogName(scenario, testCase string) string {
	name := testCase
	if scenario != "" {
		name = scenario + "_" + testCase
	}
	return stampReplacer.Replace(name)
}

var (
	screenshotSeq atomic.Uint64
	stampReplacer = strings.NewReplacer(" ", "_", ":", "-", "/", "-", "\\", "-")
)

// Stamp formats t with layout and makes the result safe for file names.
func Stamp(t time.Time, layout string) string {
	if layout == "" {
		layout = DefaultDateFormat
	}
	return stampReplacer.Replace(t.Format(layout))
}

// ScreenshotName builds a file-system safe screenshot name from the report
// name and the formatted time. A process-wide sequence number keeps names
// unique when several captures share the same formatted second.
func ScreenshotName(reportName string, now time.Time, layout string) string {
	return fmt.Sprintf("%s_%s_%d.png", reportName, Stamp(now, layout), screenshotSeq.Inc())
}
