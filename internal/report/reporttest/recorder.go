// Package reporttest provides an in-memory sink for tests.
package reporttest

import (
	"fmt"
	"sync"

	"github.com/bgricker/testreport/internal/report"
)

// Event is one call received by a Recorder.
type Event struct {
	Op     string
	Args   []string
	Step   report.Step
	Footer report.Footer
	Result report.TestResult
	Total  report.SummaryFooter
}

// Recorder implements report.Sink by recording every call. It is safe for
// concurrent use.
type Recorder struct {
	name string

	// FailOn makes the named operation return an error.
	FailOn map[string]error

	mu     sync.Mutex
	events []Event
	closed bool
}

var _ report.Sink = (*Recorder)(nil)

// NewRecorder creates a Recorder reporting the given sink name.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: name, FailOn: make(map[string]error)}
}

// Fail makes op return err from now on.
func (r *Recorder) Fail(op string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailOn[op] = err
	return r
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Ops returns the recorded operation names in call order.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, 0, len(r.events))
	for _, e := range r.events {
		ops = append(ops, e.Op)
	}
	return ops
}

// Steps returns the recorded steps.
func (r *Recorder) Steps() []report.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	var steps []report.Step
	for _, e := range r.events {
		if e.Op == "LogStep" {
			steps = append(steps, e.Step)
		}
	}
	return steps
}

// Results returns the recorded summary rows.
func (r *Recorder) Results() []report.TestResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []report.TestResult
	for _, e := range r.events {
		if e.Op == "RecordTestResult" {
			rows = append(rows, e.Result)
		}
	}
	return rows
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Recorder) record(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.FailOn[e.Op]; ok {
		return err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Name() string { return r.name }

func (r *Recorder) InitializeTestLog() error {
	return r.record(Event{Op: "InitializeTestLog"})
}

func (r *Recorder) InitializeSummary() error {
	return r.record(Event{Op: "InitializeSummary"})
}

func (r *Recorder) AddHeading(heading string) error {
	return r.record(Event{Op: "AddHeading", Args: []string{heading}})
}

func (r *Recorder) AddSubHeading(sub1, sub2, sub3, sub4 string) error {
	return r.record(Event{Op: "AddSubHeading", Args: []string{sub1, sub2, sub3, sub4}})
}

func (r *Recorder) AddTableHeadings() error {
	return r.record(Event{Op: "AddTableHeadings"})
}

func (r *Recorder) BeginSection(name string) error {
	return r.record(Event{Op: "BeginSection", Args: []string{name}})
}

func (r *Recorder) BeginSubSection(name string) error {
	return r.record(Event{Op: "BeginSubSection", Args: []string{name}})
}

func (r *Recorder) LogStep(step report.Step) error {
	return r.record(Event{Op: "LogStep", Step: step})
}

func (r *Recorder) AddFooter(footer report.Footer) error {
	return r.record(Event{Op: "AddFooter", Footer: footer})
}

func (r *Recorder) RecordTestResult(result report.TestResult) error {
	return r.record(Event{Op: "RecordTestResult", Result: result})
}

func (r *Recorder) AddSummaryFooter(footer report.SummaryFooter) error {
	return r.record(Event{Op: "AddSummaryFooter", Total: footer})
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("recorder %s closed twice", r.name)
	}
	r.closed = true
	return nil
}

// Factory returns a sink factory handing out a fresh Recorder per document
// and remembering each by report name.
type Factory struct {
	mu        sync.Mutex
	recorders map[string]*Recorder
}

// NewFactory creates an empty Factory.
func NewFactory() *Factory {
	return &Factory{recorders: make(map[string]*Recorder)}
}

// Sinks implements the sink factory signature used by the batch components.
func (f *Factory) Sinks(settings report.Settings) ([]report.Sink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := settings.ReportName
	if name == "" {
		name = report.SummaryName
	}
	rec := NewRecorder("recorder")
	f.recorders[name] = rec
	return []report.Sink{rec}, nil
}

// Recorder returns the recorder created for the named report.
func (f *Factory) Recorder(name string) *Recorder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recorders[name]
}
