package output

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"

	"github.com/bgricker/testreport/internal/report"
)

var htmlTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Verdana, sans-serif; font-size: 12px; background: {{.Theme.ContentBack}}; color: {{.Theme.ContentFore}}; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 4px 6px; text-align: left; }
.heading { background: {{.Theme.HeadingBack}}; color: {{.Theme.HeadingFore}}; font-size: 16px; font-weight: bold; text-align: center; }
.subheading { background: {{.Theme.HeadingBack}}; color: {{.Theme.HeadingFore}}; font-weight: bold; }
.columns, .section, .footer { background: {{.Theme.SectionBack}}; color: {{.Theme.SectionFore}}; font-weight: bold; }
.subsection { font-style: italic; font-weight: bold; }
.pass { color: {{.Pass}}; font-weight: bold; }
.fail { color: {{.Fail}}; font-weight: bold; }
.warning { color: {{.Warning}}; font-weight: bold; }
</style>
</head>
<body>
<table>
{{- range .Headings}}
<tr><th class="heading" colspan="{{$.Span}}">{{.}}</th></tr>
{{- end}}
{{- range .SubHeadings}}
<tr class="subheading"><td>{{index . 0}}</td><td>{{index . 1}}</td><td>{{index . 2}}</td><td colspan="{{$.SubSpan}}">{{index . 3}}</td></tr>
{{- end}}
{{- if .Columns}}
<tr class="columns">{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{- end}}
{{- range .Rows}}
{{- if eq .Kind "section"}}
<tr class="section"><td colspan="{{$.Span}}">{{.Label}}</td></tr>
{{- else if eq .Kind "subsection"}}
<tr class="subsection"><td colspan="{{$.Span}}">{{.Label}}</td></tr>
{{- else}}
<tr>{{range .Cells}}<td{{if .Class}} class="{{.Class}}"{{end}}>{{if .Link}}<a href="{{.Link}}">{{.Text}}</a>{{else}}{{.Text}}{{end}}</td>{{end}}</tr>
{{- end}}
{{- end}}
{{- range .Footer}}
<tr class="footer"><td colspan="{{$.Span}}">{{.}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

type htmlPage struct {
	Title       string
	Theme       htmlTheme
	Pass        template.CSS
	Fail        template.CSS
	Warning     template.CSS
	Span        int
	SubSpan     int
	Headings    []string
	SubHeadings [][4]string
	Columns     []string
	Rows        []htmlRow
	Footer      []string
}

type htmlTheme struct {
	HeadingBack, HeadingFore template.CSS
	SectionBack, SectionFore template.CSS
	ContentBack, ContentFore template.CSS
}

type htmlRow struct {
	Kind  string
	Label string
	Cells []htmlCell
}

type htmlCell struct {
	Text  string
	Class string
	Link  string
}

func cssColor(hex string) template.CSS {
	return template.CSS("#" + hex)
}

// HTMLSink rewrites <HTML Results>/<name>.html after every event.
type HTMLSink struct {
	settings report.Settings
	theme    Theme
	dir      string
	doc      document
}

var _ report.Sink = (*HTMLSink)(nil)

// NewHTMLSink creates a themed hypertext sink writing below the report path.
func NewHTMLSink(settings report.Settings, theme Theme) *HTMLSink {
	return &HTMLSink{
		settings: settings,
		theme:    theme,
		dir:      filepath.Join(settings.ReportPath, report.HTMLDir),
	}
}

func (s *HTMLSink) Name() string { return "html" }

// Path returns the file backing the document.
func (s *HTMLSink) Path() string {
	return filepath.Join(s.dir, s.doc.name+".html")
}

func (s *HTMLSink) InitializeTestLog() error {
	if err := s.doc.begin(s.settings, false); err != nil {
		return err
	}
	return s.flush()
}

func (s *HTMLSink) InitializeSummary() error {
	if err := s.doc.begin(s.settings, true); err != nil {
		return err
	}
	return s.flush()
}

func (s *HTMLSink) AddHeading(heading string) error {
	return s.update(func(d *document) { d.headings = append(d.headings, heading) })
}

func (s *HTMLSink) AddSubHeading(sub1, sub2, sub3, sub4 string) error {
	return s.update(func(d *document) { d.subHeadings = append(d.subHeadings, [4]string{sub1, sub2, sub3, sub4}) })
}

func (s *HTMLSink) AddTableHeadings() error {
	return s.update(func(d *document) { d.tableHeadings = true })
}

func (s *HTMLSink) BeginSection(name string) error {
	return s.update(func(d *document) { d.beginSection(name) })
}

func (s *HTMLSink) BeginSubSection(name string) error {
	return s.update(func(d *document) { d.beginSubSection(name) })
}

func (s *HTMLSink) LogStep(step report.Step) error {
	return s.update(func(d *document) { d.addStep(step) })
}

func (s *HTMLSink) AddFooter(footer report.Footer) error {
	return s.update(func(d *document) { d.footer = &footer })
}

func (s *HTMLSink) RecordTestResult(result report.TestResult) error {
	return s.update(func(d *document) { d.results = append(d.results, result) })
}

func (s *HTMLSink) AddSummaryFooter(footer report.SummaryFooter) error {
	return s.update(func(d *document) { d.summaryFooter = &footer })
}

func (s *HTMLSink) Close() error { return nil }

func (s *HTMLSink) update(fn func(*document)) error {
	if err := s.doc.check(); err != nil {
		return err
	}
	fn(&s.doc)
	return s.flush()
}

func (s *HTMLSink) flush() error {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, s.page()); err != nil {
		return fmt.Errorf("render %q: %w", s.doc.name, err)
	}
	if err := os.WriteFile(s.Path(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", s.Path(), err)
	}
	return nil
}

func (s *HTMLSink) page() htmlPage {
	d := &s.doc
	columns := testLogColumns
	if d.summary {
		columns = summaryColumns
	}
	p := htmlPage{
		Title: d.name,
		Theme: htmlTheme{
			HeadingBack: cssColor(s.theme.HeadingBack),
			HeadingFore: cssColor(s.theme.HeadingFore),
			SectionBack: cssColor(s.theme.SectionBack),
			SectionFore: cssColor(s.theme.SectionFore),
			ContentBack: cssColor(s.theme.ContentBack),
			ContentFore: cssColor(s.theme.ContentFore),
		},
		Pass:        cssColor(passColor),
		Fail:        cssColor(failColor),
		Warning:     cssColor(warningColor),
		Span:        len(columns),
		SubSpan:     len(columns) - 3,
		Headings:    d.headings,
		SubHeadings: d.subHeadings,
	}
	if d.tableHeadings {
		p.Columns = columns
	}

	for _, sec := range d.sections {
		p.Rows = append(p.Rows, s.sectionRows(sec, "section")...)
	}
	for _, r := range d.results {
		testCase := htmlCell{Text: r.TestCase}
		if s.settings.LinkTestLogsToSummary {
			testCase.Link = report.TestLogName(r.Scenario, r.TestCase) + ".html"
		}
		p.Rows = append(p.Rows, htmlRow{Kind: "result", Cells: []htmlCell{
			{Text: r.Scenario},
			testCase,
			{Text: r.Description},
			{Text: formatDuration(r.ExecutionTime)},
			{Text: r.Status, Class: resultClass(r.Status)},
		}})
	}

	switch {
	case d.footer != nil:
		p.Footer = []string{
			"Execution Time: " + formatDuration(d.footer.ExecutionTime),
			fmt.Sprintf("Steps passed: %d, Steps failed: %d", d.footer.StepsPassed, d.footer.StepsFailed),
		}
	case d.summaryFooter != nil:
		p.Footer = []string{
			"Total Duration: " + formatDuration(d.summaryFooter.TotalTime),
			fmt.Sprintf("Tests passed: %d, Tests failed: %d", d.summaryFooter.TestsPassed, d.summaryFooter.TestsFailed),
		}
	}
	return p
}

func (s *HTMLSink) sectionRows(sec *section, kind string) []htmlRow {
	var rows []htmlRow
	if sec.name != "" {
		rows = append(rows, htmlRow{Kind: kind, Label: sec.name})
	}
	for _, st := range sec.steps {
		statusCell := htmlCell{Text: statusLabel(st.Status), Class: stepClass(st.Status)}
		if st.Screenshot != "" {
			statusCell.Link = path.Join("..", report.ScreenshotsDir, st.Screenshot)
		}
		rows = append(rows, htmlRow{Kind: "step", Cells: []htmlCell{
			{Text: fmt.Sprint(st.Number)},
			{Text: st.Name},
			{Text: st.Description},
			statusCell,
			{Text: formatTime(st.Time, s.settings.DateFormat)},
		}})
	}
	for _, sub := range sec.subSections {
		rows = append(rows, s.sectionRows(sub, "subsection")...)
	}
	return rows
}

func stepClass(st report.Status) string {
	switch st {
	case report.StatusPass:
		return "pass"
	case report.StatusFail:
		return "fail"
	case report.StatusWarning:
		return "warning"
	default:
		return ""
	}
}

func resultClass(status string) string {
	switch resultColor(status) {
	case passColor:
		return "pass"
	case failColor:
		return "fail"
	default:
		return ""
	}
}
