package output

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/bgricker/testreport/internal/plan"
	"github.com/bgricker/testreport/internal/report"
)

// SyncWriter serializes writes from concurrently running documents.
type SyncWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewSyncWriter wraps out. Wrapping a SyncWriter returns it unchanged.
func NewSyncWriter(out io.Writer) *SyncWriter {
	if sw, ok := out.(*SyncWriter); ok {
		return sw
	}
	return &SyncWriter{out: out}
}

func (w *SyncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Write(p)
}

// PrettyRenderer renders plans in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

// RenderPlans lists plans with their test cases, sections and steps.
func (p *PrettyRenderer) RenderPlans(plans []plan.Plan) error {
	var buf bytes.Buffer
	for _, pl := range plans {
		fmt.Fprintf(&buf, "Plan %s\n", decorateName(pl.Scenario, pl.Path))
		for _, tc := range pl.TestCases {
			fmt.Fprintf(&buf, "  TestCase %s\n", tc.Name)
			writePlanSteps(&buf, tc.Steps, "    ")
			for _, section := range tc.Sections {
				fmt.Fprintf(&buf, "    Section %s\n", section.Name)
				writePlanSteps(&buf, section.Steps, "      ")
				for _, sub := range section.SubSections {
					fmt.Fprintf(&buf, "      Sub-section %s\n", sub.Name)
					writePlanSteps(&buf, sub.Steps, "        ")
				}
			}
		}
		for _, w := range pl.Warnings {
			fmt.Fprintf(&buf, "  warning: %s: %s\n", w.TestCase, w.Message)
		}
	}
	_, err := buf.WriteTo(p.out)
	return err
}

func writePlanSteps(buf *bytes.Buffer, steps []plan.Step, pad string) {
	for _, step := range steps {
		if step.Status != "" {
			fmt.Fprintf(buf, "%s• %s [%s]\n", pad, step.Name, step.Status)
			continue
		}
		fmt.Fprintf(buf, "%s• %s\n", pad, step.Name)
	}
}

func decorateName(name, path string) string {
	if name == "" || name == path {
		return path
	}
	return fmt.Sprintf("%s (%s)", name, path)
}

// ConsoleSink renders a document as text. Test logs are buffered and written
// in one piece when the footer arrives so concurrent test cases do not
// interleave; summary rows are written as they are recorded.
type ConsoleSink struct {
	out      io.Writer
	settings report.Settings

	open    bool
	summary bool
	name    string
	inSub   bool
	buf     bytes.Buffer
}

var _ report.Sink = (*ConsoleSink)(nil)

// NewConsoleSink creates a console sink. out should be shared through a
// SyncWriter when several documents are open at once.
func NewConsoleSink(settings report.Settings, out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out, settings: settings}
}

func (c *ConsoleSink) Name() string { return "console" }

func (c *ConsoleSink) InitializeTestLog() error {
	return c.begin(false)
}

func (c *ConsoleSink) InitializeSummary() error {
	return c.begin(true)
}

func (c *ConsoleSink) begin(summary bool) error {
	if c.open {
		return fmt.Errorf("console document %q already initialized", c.name)
	}
	c.open = true
	c.summary = summary
	c.name = c.settings.DocumentName(summary)
	if !summary {
		fmt.Fprintf(&c.buf, "Test log %s\n", c.name)
	}
	return nil
}

func (c *ConsoleSink) AddHeading(heading string) error {
	return c.write("== %s ==\n", heading)
}

func (c *ConsoleSink) AddSubHeading(sub1, sub2, sub3, sub4 string) error {
	if sub3 == "" && sub4 == "" {
		return c.write("%s: %s\n", sub1, sub2)
	}
	return c.write("%s: %s | %s: %s\n", sub1, sub2, sub3, sub4)
}

// AddTableHeadings has no console rendering.
func (c *ConsoleSink) AddTableHeadings() error {
	if !c.open {
		return errNotOpen
	}
	return nil
}

func (c *ConsoleSink) BeginSection(name string) error {
	c.inSub = false
	return c.write("  %s\n", name)
}

func (c *ConsoleSink) BeginSubSection(name string) error {
	c.inSub = true
	return c.write("    %s\n", name)
}

func (c *ConsoleSink) LogStep(step report.Step) error {
	pad := "    "
	if c.inSub {
		pad = "      "
	}
	if err := c.write("%s%s %d %s: %s\n", pad, statusGlyph(step.Status), step.Number, step.Name, step.Description); err != nil {
		return err
	}
	if step.Screenshot != "" {
		return c.write("%s  screenshot: %s\n", pad, step.Screenshot)
	}
	return nil
}

func (c *ConsoleSink) AddFooter(footer report.Footer) error {
	if err := c.write("RESULT %s: %d steps passed, %d steps failed (%s)\n",
		c.name, footer.StepsPassed, footer.StepsFailed, formatDuration(footer.ExecutionTime)); err != nil {
		return err
	}
	return c.flush()
}

func (c *ConsoleSink) RecordTestResult(result report.TestResult) error {
	if err := c.write("%s %s/%s (%s)\n", resultGlyph(result.Status), result.Scenario, result.TestCase, formatDuration(result.ExecutionTime)); err != nil {
		return err
	}
	if desc := indent(result.Description, "    "); desc != "" && resultColor(result.Status) == failColor {
		return c.write("%s\n", desc)
	}
	return nil
}

func (c *ConsoleSink) AddSummaryFooter(footer report.SummaryFooter) error {
	return c.write("SUMMARY: %d passed, %d failed (%s)\n", footer.TestsPassed, footer.TestsFailed, formatDuration(footer.TotalTime))
}

// Close writes whatever a test log buffered before its footer.
func (c *ConsoleSink) Close() error {
	return c.flush()
}

func (c *ConsoleSink) write(format string, args ...any) error {
	if !c.open {
		return errNotOpen
	}
	fmt.Fprintf(&c.buf, format, args...)
	if c.summary {
		return c.flush()
	}
	return nil
}

func (c *ConsoleSink) flush() error {
	if c.buf.Len() == 0 {
		return nil
	}
	_, err := c.out.Write(c.buf.Bytes())
	c.buf.Reset()
	return err
}
