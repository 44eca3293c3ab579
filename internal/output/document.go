package output

import (
	"errors"

	"github.com/bgricker/testreport/internal/report"
)

var errNotOpen = errors.New("document not initialized")

// document is the in-memory form of one test log or result summary. Sinks
// that rewrite their file on every event render it in full each time.
type document struct {
	open    bool
	summary bool
	name    string

	headings      []string
	subHeadings   [][4]string
	tableHeadings bool

	sections []*section
	current  *section
	sub      *section

	results []report.TestResult

	footer        *report.Footer
	summaryFooter *report.SummaryFooter
}

type section struct {
	name        string
	steps       []report.Step
	subSections []*section
}

func (d *document) begin(settings report.Settings, summary bool) error {
	if d.open {
		return errors.New("document already initialized")
	}
	d.open = true
	d.summary = summary
	d.name = settings.DocumentName(summary)
	return nil
}

func (d *document) check() error {
	if !d.open {
		return errNotOpen
	}
	return nil
}

func (d *document) beginSection(name string) {
	d.current = &section{name: name}
	d.sub = nil
	d.sections = append(d.sections, d.current)
}

func (d *document) beginSubSection(name string) {
	if d.current == nil {
		d.beginSection("")
	}
	d.sub = &section{name: name}
	d.current.subSections = append(d.current.subSections, d.sub)
}

func (d *document) addStep(step report.Step) {
	if d.current == nil {
		d.beginSection("")
	}
	target := d.current
	if d.sub != nil {
		target = d.sub
	}
	target.steps = append(target.steps, step)
}
