// Package summary manages the lifecycle of a test batch: its report
// directory, the shared result summary and the batch counters.
package summary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/plus3it/gorecurcopy"
	"github.com/rs/zerolog"

	"github.com/bgricker/testreport/internal/config"
	"github.com/bgricker/testreport/internal/report"
)

var (
	// ErrBatchStarted is returned when StartBatch is called twice.
	ErrBatchStarted = errors.New("batch already started")
	// ErrBatchNotStarted is returned when the batch is used before StartBatch.
	ErrBatchNotStarted = errors.New("batch not started")
	// ErrSummaryStarted is returned when StartSummaryReport is called twice.
	ErrSummaryStarted = errors.New("result summary already started")
	// ErrSummaryNotStarted is returned when results are recorded before StartSummaryReport.
	ErrSummaryNotStarted = errors.New("result summary not started")
	// ErrBatchFinished is returned for any update after FinishBatch.
	ErrBatchFinished = errors.New("batch already finished")
)

// SinkFactory builds the sinks backing one document.
type SinkFactory func(settings report.Settings) ([]report.Sink, error)

// Options configure a Manager.
type Options struct {
	Logger   zerolog.Logger
	Sinks    SinkFactory
	Observer report.Observer
	Now      func() time.Time
}

// Totals are the batch counters reported by FinishBatch.
type Totals struct {
	Passed  int
	Failed  int
	Start   time.Time
	End     time.Time
	Elapsed time.Duration
}

// Manager coordinates one batch. Only RecordTestResult is expected to be
// called from several goroutines; the remaining methods follow the batch
// lifecycle on the driving goroutine.
type Manager struct {
	opts Options
	log  zerolog.Logger

	cfg        config.Config
	batchID    uuid.UUID
	reportPath string
	logLevel   report.Status
	dispatch   report.DispatchMode
	started    bool

	mu          sync.Mutex
	summary     *report.Report
	testsPassed int
	testsFailed int
	batchStart  time.Time
	batchEnd    time.Time
	finished    bool
}

// New creates a Manager. A nil sink factory yields a summary without sinks.
func New(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sinks == nil {
		opts.Sinks = func(report.Settings) ([]report.Sink, error) { return nil, nil }
	}
	return &Manager{
		opts: opts,
		log:  opts.Logger.With().Str("component", "summary").Logger(),
	}
}

// SetLogger replaces the logger, typically once the error log is available.
func (m *Manager) SetLogger(log zerolog.Logger) {
	m.log = log.With().Str("component", "summary").Logger()
}

// StartBatch records the batch start and prepares the report directory. When
// no report path is configured a timestamped Run_ directory under the
// results root is used.
func (m *Manager) StartBatch(cfg config.Config) error {
	if m.started {
		return ErrBatchStarted
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := report.ParseStatus(cfg.LogLevel)
	if err != nil {
		return &report.ConfigError{Message: "log_level", Err: err}
	}
	mode, err := report.ParseDispatchMode(cfg.SinkErrors)
	if err != nil {
		return &report.ConfigError{Message: "sink_errors", Err: err}
	}

	start := m.opts.Now()
	path := strings.TrimSpace(cfg.ReportPath)
	if path == "" {
		path = filepath.Join(cfg.ResultsRoot, "Run_"+report.Stamp(start, cfg.DateFormat))
	}
	if err := ensureWritable(path); err != nil {
		return err
	}

	m.cfg = cfg
	m.logLevel = level
	m.dispatch = mode
	m.reportPath = path
	m.batchID = uuid.New()
	m.started = true

	m.mu.Lock()
	m.batchStart = start
	m.mu.Unlock()

	m.log.Info().
		Str("batch", m.batchID.String()).
		Str("path", path).
		Msg("batch started")
	return nil
}

func ensureWritable(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &report.ConfigError{Message: fmt.Sprintf("create report path %q", path), Err: err}
	}
	f, err := os.CreateTemp(path, ".writable-*")
	if err != nil {
		return &report.ConfigError{Message: fmt.Sprintf("report path %q is not writable", path), Err: err}
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", name, err)
	}
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("remove %q: %w", name, err)
	}
	return nil
}

// ReportPath returns the directory receiving every artifact of the batch.
func (m *Manager) ReportPath() string { return m.reportPath }

// BatchID identifies the batch in logs and machine readable reports.
func (m *Manager) BatchID() uuid.UUID { return m.batchID }

// Settings returns the document settings for a test log with the given
// report name. An empty name selects the result summary.
func (m *Manager) Settings(reportName string) report.Settings {
	return report.Settings{
		ReportPath:            m.reportPath,
		ReportName:            reportName,
		ProjectName:           m.cfg.ProjectName,
		DateFormat:            m.cfg.DateFormat,
		LogLevel:              m.logLevel,
		ScreenshotPassed:      m.cfg.Screenshots.Passed,
		ScreenshotFailed:      m.cfg.Screenshots.Failed,
		Dispatch:              m.dispatch,
		BatchID:               m.batchID.String(),
		LinkTestLogsToSummary: true,
	}
}

// StartSummaryReport opens the result summary and writes its header.
func (m *Manager) StartSummaryReport(threads int) error {
	if !m.started {
		return ErrBatchNotStarted
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished {
		return ErrBatchFinished
	}
	if m.summary != nil {
		return ErrSummaryStarted
	}

	settings := m.Settings("")
	sinks, err := m.opts.Sinks(settings)
	if err != nil {
		return fmt.Errorf("create summary sinks: %w", err)
	}
	r := report.New(settings, sinks,
		report.WithObserver(m.opts.Observer),
		report.WithLogger(m.log),
		report.WithClock(m.opts.Now),
	)

	if err := writeSummaryHeader(r, m.cfg, m.batchID, m.batchStart, threads); err != nil {
		if closeErr := r.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
		return err
	}
	m.summary = r
	return nil
}

func writeSummaryHeader(r *report.Report, cfg config.Config, batchID uuid.UUID, start time.Time, threads int) error {
	if err := r.InitializeSummary(); err != nil {
		return err
	}
	if err := r.AddHeading(cfg.ProjectName + " - Automation Execution Result Summary"); err != nil {
		return err
	}
	if err := r.AddSubHeading("Date & Time", start.Format(cfg.DateFormat), "OnError", cfg.OnError); err != nil {
		return err
	}
	if err := r.AddSubHeading("Run Configuration", cfg.RunConfiguration, "No. of threads", strconv.Itoa(threads)); err != nil {
		return err
	}
	if err := r.AddSubHeading("Batch ID", batchID.String(), "", ""); err != nil {
		return err
	}
	return r.AddTableHeadings()
}

// RecordTestResult counts a finished test case and adds its row to the
// summary. The counters and the summary sinks are updated under a single
// lock, so concurrent callers never lose an update or interleave rows.
func (m *Manager) RecordTestResult(result report.TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished {
		return ErrBatchFinished
	}
	if m.summary == nil {
		return ErrSummaryNotStarted
	}

	switch {
	case strings.EqualFold(result.Status, report.TestFailed):
		m.testsFailed++
	case strings.EqualFold(result.Status, report.TestPassed):
		m.testsPassed++
	}
	return m.summary.RecordTestResult(result)
}

// Totals returns a snapshot of the batch counters.
func (m *Manager) Totals() Totals {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals()
}

func (m *Manager) totals() Totals {
	t := Totals{
		Passed: m.testsPassed,
		Failed: m.testsFailed,
		Start:  m.batchStart,
		End:    m.batchEnd,
	}
	if !m.batchEnd.IsZero() {
		t.Elapsed = m.batchEnd.Sub(m.batchStart)
	}
	return t
}

// FinishBatch records the batch end, writes the summary footer and closes the
// summary sinks. When consolidate is set the external framework results are
// copied into the report directory; a failed copy is logged and never fails
// the batch.
func (m *Manager) FinishBatch(consolidate bool) (Totals, error) {
	if !m.started {
		return Totals{}, ErrBatchNotStarted
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished {
		return m.totals(), ErrBatchFinished
	}
	m.finished = true
	m.batchEnd = m.opts.Now()
	totals := m.totals()

	var errs *multierror.Error
	if m.summary != nil {
		if err := m.summary.AddSummaryFooter(totals.Elapsed); err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := m.summary.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if consolidate {
		if err := m.consolidate(); err != nil {
			m.log.Warn().Err(err).Msg("external results not consolidated")
		}
	}

	m.log.Info().
		Int("passed", totals.Passed).
		Int("failed", totals.Failed).
		Dur("elapsed", totals.Elapsed).
		Msg("batch finished")
	return totals, errs.ErrorOrNil()
}

func (m *Manager) consolidate() error {
	src := m.cfg.ExternalResults.Path
	dst := filepath.Join(m.reportPath, report.ExternalResultsDir)
	if err := copyResults(src, dst); err != nil {
		return &report.ConsolidationError{Src: src, Dst: dst, Err: err}
	}
	m.log.Debug().Str("src", src).Str("dst", dst).Msg("external results consolidated")
	return nil
}

func copyResults(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %q: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", src)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create %q: %w", dst, err)
	}
	if err := gorecurcopy.CopyDirectory(src, dst); err != nil {
		return fmt.Errorf("copy %q: %w", src, err)
	}
	return nil
}

// SetupErrorLog opens the batch error log for appending.
func (m *Manager) SetupErrorLog() (*os.File, error) {
	if !m.started {
		return nil, ErrBatchNotStarted
	}
	path := filepath.Join(m.reportPath, report.ErrorLogName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open error log %q: %w", path, err)
	}
	return f, nil
}
