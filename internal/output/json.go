package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bgricker/testreport/internal/report"
)

// JSONRenderer emits structured data as indented JSON.
type JSONRenderer struct {
	out io.Writer
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// Render encodes v as JSON.
func (j *JSONRenderer) Render(v any) error {
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// JSONDocument is the machine readable form of a test log or result summary.
type JSONDocument struct {
	Kind        string        `json:"kind"`
	Name        string        `json:"name"`
	Project     string        `json:"project,omitempty"`
	BatchID     string        `json:"batch_id,omitempty"`
	Headings    []string      `json:"headings,omitempty"`
	SubHeadings [][4]string   `json:"sub_headings,omitempty"`
	Sections    []JSONSection `json:"sections,omitempty"`
	Results     []JSONResult  `json:"results,omitempty"`
	Footer      *JSONFooter   `json:"footer,omitempty"`
}

// JSONSection groups steps; nested sections are sub-sections.
type JSONSection struct {
	Name        string        `json:"name,omitempty"`
	Steps       []JSONStep    `json:"steps,omitempty"`
	SubSections []JSONSection `json:"sub_sections,omitempty"`
}

// JSONStep is a persisted step.
type JSONStep struct {
	Number      int           `json:"number"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      report.Status `json:"status"`
	Time        time.Time     `json:"time"`
	Screenshot  string        `json:"screenshot,omitempty"`
}

// JSONResult is a summary row.
type JSONResult struct {
	Scenario      string `json:"scenario"`
	TestCase      string `json:"testcase"`
	Description   string `json:"description,omitempty"`
	ExecutionTime string `json:"execution_time"`
	DurationMS    int64  `json:"duration_ms"`
	Status        string `json:"status"`
}

// JSONFooter carries the counters of a finished document.
type JSONFooter struct {
	ExecutionTime string `json:"execution_time"`
	DurationMS    int64  `json:"duration_ms"`
	Passed        int    `json:"passed"`
	Failed        int    `json:"failed"`
}

// JSONSink rewrites <JSON Results>/<name>.json after every event.
type JSONSink struct {
	settings report.Settings
	dir      string
	doc      document
}

var _ report.Sink = (*JSONSink)(nil)

// NewJSONSink creates a sink writing below the report path.
func NewJSONSink(settings report.Settings) *JSONSink {
	return &JSONSink{
		settings: settings,
		dir:      filepath.Join(settings.ReportPath, report.JSONDir),
	}
}

func (s *JSONSink) Name() string { return "json" }

// Path returns the file backing the document.
func (s *JSONSink) Path() string {
	return filepath.Join(s.dir, s.doc.name+".json")
}

func (s *JSONSink) InitializeTestLog() error {
	if err := s.doc.begin(s.settings, false); err != nil {
		return err
	}
	return s.flush()
}

func (s *JSONSink) InitializeSummary() error {
	if err := s.doc.begin(s.settings, true); err != nil {
		return err
	}
	return s.flush()
}

func (s *JSONSink) AddHeading(heading string) error {
	return s.update(func(d *document) { d.headings = append(d.headings, heading) })
}

func (s *JSONSink) AddSubHeading(sub1, sub2, sub3, sub4 string) error {
	return s.update(func(d *document) { d.subHeadings = append(d.subHeadings, [4]string{sub1, sub2, sub3, sub4}) })
}

func (s *JSONSink) AddTableHeadings() error {
	return s.update(func(d *document) { d.tableHeadings = true })
}

func (s *JSONSink) BeginSection(name string) error {
	return s.update(func(d *document) { d.beginSection(name) })
}

func (s *JSONSink) BeginSubSection(name string) error {
	return s.update(func(d *document) { d.beginSubSection(name) })
}

func (s *JSONSink) LogStep(step report.Step) error {
	return s.update(func(d *document) { d.addStep(step) })
}

func (s *JSONSink) AddFooter(footer report.Footer) error {
	return s.update(func(d *document) { d.footer = &footer })
}

func (s *JSONSink) RecordTestResult(result report.TestResult) error {
	return s.update(func(d *document) { d.results = append(d.results, result) })
}

func (s *JSONSink) AddSummaryFooter(footer report.SummaryFooter) error {
	return s.update(func(d *document) { d.summaryFooter = &footer })
}

func (s *JSONSink) Close() error { return nil }

func (s *JSONSink) update(fn func(*document)) error {
	if err := s.doc.check(); err != nil {
		return err
	}
	fn(&s.doc)
	return s.flush()
}

func (s *JSONSink) flush() error {
	var buf bytes.Buffer
	if err := NewJSON(&buf).Render(s.snapshot()); err != nil {
		return fmt.Errorf("encode %q: %w", s.doc.name, err)
	}
	if err := os.WriteFile(s.Path(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", s.Path(), err)
	}
	return nil
}

func (s *JSONSink) snapshot() JSONDocument {
	d := &s.doc
	out := JSONDocument{
		Kind:        "test_log",
		Name:        d.name,
		Project:     s.settings.ProjectName,
		BatchID:     s.settings.BatchID,
		Headings:    d.headings,
		SubHeadings: d.subHeadings,
	}
	if d.summary {
		out.Kind = "summary"
	}
	for _, sec := range d.sections {
		out.Sections = append(out.Sections, jsonSection(sec))
	}
	for _, r := range d.results {
		out.Results = append(out.Results, JSONResult{
			Scenario:      r.Scenario,
			TestCase:      r.TestCase,
			Description:   r.Description,
			ExecutionTime: formatDuration(r.ExecutionTime),
			DurationMS:    r.ExecutionTime.Milliseconds(),
			Status:        r.Status,
		})
	}
	switch {
	case d.footer != nil:
		out.Footer = &JSONFooter{
			ExecutionTime: formatDuration(d.footer.ExecutionTime),
			DurationMS:    d.footer.ExecutionTime.Milliseconds(),
			Passed:        d.footer.StepsPassed,
			Failed:        d.footer.StepsFailed,
		}
	case d.summaryFooter != nil:
		out.Footer = &JSONFooter{
			ExecutionTime: formatDuration(d.summaryFooter.TotalTime),
			DurationMS:    d.summaryFooter.TotalTime.Milliseconds(),
			Passed:        d.summaryFooter.TestsPassed,
			Failed:        d.summaryFooter.TestsFailed,
		}
	}
	return out
}

func jsonSection(sec *section) JSONSection {
	out := JSONSection{Name: sec.name}
	for _, st := range sec.steps {
		out.Steps = append(out.Steps, JSONStep{
			Number:      st.Number,
			Name:        st.Name,
			Description: st.Description,
			Status:      st.Status,
			Time:        st.Time,
			Screenshot:  st.Screenshot,
		})
	}
	for _, sub := range sec.subSections {
		out.SubSections = append(out.SubSections, jsonSection(sub))
	}
	return out
}
