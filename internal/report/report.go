// Package report aggregates step outcomes of a test case into a running
// status and fans every reporting event out to the configured sinks.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

type state int

const (
	stateUninitialized state = iota
	stateInitialized
	stateLogging
	stateFinalized
)

// Report owns one document's counters and its ordered sink list. A test log
// Report is owned by a single goroutine; only RecordTestResult and
// AddSummaryFooter may be called concurrently.
type Report struct {
	settings Settings
	sinks    []Sink
	capturer Capturer
	observer Observer
	log      zerolog.Logger
	now      func() time.Time

	state   state
	summary bool

	testStatus         string
	failureDescription string
	failed             bool
	stepsPassed        int
	stepsFailed        int
	stepNumber         int

	// mu guards the summary counters and the summary dispatch.
	mu          sync.Mutex
	testsPassed int
	testsFailed int
}

// Option customizes a Report.
type Option func(*Report)

// WithCapturer sets the screenshot service.
func WithCapturer(c Capturer) Option {
	return func(r *Report) { r.capturer = c }
}

// WithObserver registers an observer for counted events.
func WithObserver(o Observer) Option {
	return func(r *Report) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Report) { r.log = log }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Report) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a report writing to sinks in the given order.
func New(settings Settings, sinks []Sink, opts ...Option) *Report {
	if settings.DateFormat == "" {
		settings.DateFormat = DefaultDateFormat
	}
	r := &Report{
		settings:   settings,
		sinks:      append([]Sink(nil), sinks...),
		observer:   nopObserver{},
		log:        zerolog.Nop(),
		now:        time.Now,
		testStatus: TestPassed,
		stepNumber: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the report settings.
func (r *Report) Settings() Settings { return r.settings }

// TestStatus is "Passed" until the first failed step and "Failed" afterwards.
func (r *Report) TestStatus() string { return r.testStatus }

// FailureDescription joins the descriptions of all failed steps with "; ".
func (r *Report) FailureDescription() string { return r.failureDescription }

func (r *Report) StepsPassed() int { return r.stepsPassed }

func (r *Report) StepsFailed() int { return r.stepsFailed }

// StepNumber is the number the next persisted step will carry.
func (r *Report) StepNumber() int { return r.stepNumber }

// TestsPassed returns the number of passed rows recorded in the summary.
func (r *Report) TestsPassed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.testsPassed
}

// TestsFailed returns the number of failed rows recorded in the summary.
func (r *Report) TestsFailed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.testsFailed
}

// Initialize opens the test log in every sink.
func (r *Report) Initialize() error {
	name := r.settings.ReportName
	if strings.TrimSpace(name) == "" {
		return NewConfigError("the report name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return NewConfigError("the report name %q contains a path separator", name)
	}
	return r.initialize(false)
}

// InitializeSummary opens the result summary in every sink.
func (r *Report) InitializeSummary() error {
	return r.initialize(true)
}

func (r *Report) initialize(summary bool) error {
	if r.state != stateUninitialized {
		return ErrAlreadyInitialized
	}
	if strings.TrimSpace(r.settings.ReportPath) == "" {
		return NewConfigError("the report path cannot be empty")
	}
	op := "initialize test log"
	open := func(s Sink) error { return s.InitializeTestLog() }
	if summary {
		op = "initialize result summary"
		open = func(s Sink) error { return s.InitializeSummary() }
	}
	if err := r.dispatch(op, open); err != nil {
		return err
	}
	r.summary = summary
	r.state = stateInitialized
	return nil
}

// AddHeading adds a heading to the open document.
func (r *Report) AddHeading(heading string) error {
	return r.write("add heading", func(s Sink) error { return s.AddHeading(heading) })
}

// AddSubHeading adds a row of four sub-headings to the open document.
func (r *Report) AddSubHeading(sub1, sub2, sub3, sub4 string) error {
	return r.write("add sub-heading", func(s Sink) error { return s.AddSubHeading(sub1, sub2, sub3, sub4) })
}

// AddTableHeadings adds the table headings. Headings and sub-headings must be
// added before this call.
func (r *Report) AddTableHeadings() error {
	return r.write("add table headings", func(s Sink) error { return s.AddTableHeadings() })
}

// BeginSection starts a new section and restarts step numbering at 1.
func (r *Report) BeginSection(name string) error {
	if err := r.write("begin section", func(s Sink) error { return s.BeginSection(name) }); err != nil {
		return err
	}
	r.stepNumber = 1
	return nil
}

// BeginSubSection starts a sub-section. It is only meaningful inside a section.
func (r *Report) BeginSubSection(name string) error {
	return r.write("begin sub-section", func(s Sink) error { return s.BeginSubSection(name) })
}

// LogStep records a step. Counters and the test status are updated before
// anything is dispatched, so a failing sink or screenshot never loses a count.
// Steps above the log level only affect the counters.
func (r *Report) LogStep(name, description string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("log step %q: invalid status %d", name, int(status))
	}
	if err := r.writable(); err != nil {
		return err
	}
	r.state = stateLogging

	switch status {
	case StatusFail:
		r.testStatus = TestFailed
		if !r.failed {
			r.failureDescription = description
			r.failed = true
		} else {
			r.failureDescription = r.failureDescription + "; " + description
		}
		r.stepsFailed++
	case StatusPass:
		r.stepsPassed++
	}
	r.observer.StepLogged(status)

	if !status.Enabled(r.settings.LogLevel) {
		return nil
	}

	now := r.now()
	step := Step{
		Number:      r.stepNumber,
		Name:        name,
		Description: description,
		Status:      status,
		Time:        now,
	}
	if r.wantsScreenshot(status) {
		shot, err := r.captureScreenshot(now)
		if err != nil {
			return err
		}
		step.Screenshot = shot
	}

	if err := r.dispatch("log step", func(s Sink) error { return s.LogStep(step) }); err != nil {
		return err
	}
	r.stepNumber++
	return nil
}

func (r *Report) wantsScreenshot(status Status) bool {
	switch status {
	case StatusScreenshot:
		return true
	case StatusFail:
		return r.settings.ScreenshotFailed
	case StatusPass:
		return r.settings.ScreenshotPassed
	default:
		return false
	}
}

func (r *Report) captureScreenshot(now time.Time) (string, error) {
	name := ScreenshotName(r.settings.ReportName, now, r.settings.DateFormat)
	path := filepath.Join(r.settings.ReportPath, ScreenshotsDir, name)
	if r.capturer == nil {
		return "", &ScreenshotError{Path: path, Err: fmt.Errorf("no screenshot capturer configured")}
	}
	if err := r.capturer.Capture(path); err != nil {
		return "", &ScreenshotError{Path: path, Err: err}
	}
	r.observer.ScreenshotCaptured()
	r.log.Debug().Str("path", path).Msg("screenshot captured")
	return name, nil
}

// Finalize adds the footer with the step counters. No further writes are
// accepted afterwards, even when a sink fails to write the footer.
func (r *Report) Finalize(executionTime time.Duration) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.state = stateFinalized
	footer := Footer{
		ExecutionTime: executionTime,
		StepsPassed:   r.stepsPassed,
		StepsFailed:   r.stepsFailed,
	}
	return r.dispatch("add footer", func(s Sink) error { return s.AddFooter(footer) })
}

// RecordTestResult counts a summary row ("passed"/"failed", ignoring case)
// and forwards it to every sink. Safe for concurrent use.
func (r *Report) RecordTestResult(result TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writable(); err != nil {
		return err
	}
	r.state = stateLogging

	switch {
	case strings.EqualFold(result.Status, TestFailed):
		r.testsFailed++
	case strings.EqualFold(result.Status, TestPassed):
		r.testsPassed++
	}
	r.observer.TestRecorded(result.Status)

	return r.dispatch("record test result", func(s Sink) error { return s.RecordTestResult(result) })
}

// AddSummaryFooter adds the footer with the summary counters and finalizes
// the report.
func (r *Report) AddSummaryFooter(totalTime time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writable(); err != nil {
		return err
	}
	r.state = stateFinalized
	footer := SummaryFooter{
		TotalTime:   totalTime,
		TestsPassed: r.testsPassed,
		TestsFailed: r.testsFailed,
	}
	return r.dispatch("add summary footer", func(s Sink) error { return s.AddSummaryFooter(footer) })
}

// Close releases every sink, regardless of individual failures.
func (r *Report) Close() error {
	var errs *multierror.Error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = multierror.Append(errs, &SinkError{Sink: s.Name(), Op: "close", Err: err})
		}
	}
	return errs.ErrorOrNil()
}

func (r *Report) write(op string, fn func(Sink) error) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.state = stateLogging
	return r.dispatch(op, fn)
}

func (r *Report) writable() error {
	switch r.state {
	case stateUninitialized:
		return ErrNotInitialized
	case stateFinalized:
		return ErrFinalized
	default:
		return nil
	}
}

func (r *Report) dispatch(op string, fn func(Sink) error) error {
	var errs *multierror.Error
	for _, s := range r.sinks {
		err := fn(s)
		if err == nil {
			continue
		}
		sinkErr := &SinkError{Sink: s.Name(), Op: op, Err: err}
		if r.settings.Dispatch != DispatchBestEffort {
			return sinkErr
		}
		errs = multierror.Append(errs, sinkErr)
	}
	return errs.ErrorOrNil()
}
