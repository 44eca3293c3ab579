package output

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/bgricker/testreport/internal/report"
)

const (
	testLogSheet = "Test_Log"
	summarySheet = "Summary"
)

// cellFormat describes how a row of cells is styled.
type cellFormat struct {
	Bold     bool
	Italic   bool
	Centred  bool
	FontSize float64
	Back     string
	Fore     string
}

// ExcelSink keeps one workbook per document and saves it to
// <Excel Results>/<name>.xlsx after every event.
type ExcelSink struct {
	settings report.Settings
	theme    Theme
	dir      string

	file    *excelize.File
	name    string
	sheet   string
	summary bool
	columns int
	row     int
	styles  map[cellFormat]int
}

var _ report.Sink = (*ExcelSink)(nil)

// NewExcelSink creates a themed spreadsheet sink writing below the report path.
func NewExcelSink(settings report.Settings, theme Theme) *ExcelSink {
	return &ExcelSink{
		settings: settings,
		theme:    theme,
		dir:      filepath.Join(settings.ReportPath, report.ExcelDir),
		styles:   make(map[cellFormat]int),
	}
}

func (s *ExcelSink) Name() string { return "excel" }

// Path returns the workbook file backing the document.
func (s *ExcelSink) Path() string {
	return filepath.Join(s.dir, s.name+".xlsx")
}

func (s *ExcelSink) InitializeTestLog() error {
	return s.open(false)
}

func (s *ExcelSink) InitializeSummary() error {
	return s.open(true)
}

func (s *ExcelSink) open(summary bool) error {
	if s.file != nil {
		return fmt.Errorf("workbook %q already initialized", s.name)
	}
	s.summary = summary
	s.name = s.settings.DocumentName(summary)
	s.sheet = testLogSheet
	s.columns = len(testLogColumns)
	if summary {
		s.sheet = summarySheet
		s.columns = len(summaryColumns)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", s.sheet); err != nil {
		f.Close()
		return fmt.Errorf("name sheet %q: %w", s.sheet, err)
	}
	if err := f.SetColWidth(s.sheet, "A", "A", 14); err != nil {
		f.Close()
		return err
	}
	if err := f.SetColWidth(s.sheet, "B", "E", 32); err != nil {
		f.Close()
		return err
	}
	s.file = f
	return s.save()
}

func (s *ExcelSink) AddHeading(heading string) error {
	format := cellFormat{Bold: true, Centred: true, FontSize: 14, Back: s.theme.HeadingBack, Fore: s.theme.HeadingFore}
	return s.mergedRow(heading, format)
}

func (s *ExcelSink) AddSubHeading(sub1, sub2, sub3, sub4 string) error {
	format := cellFormat{Bold: true, Back: s.theme.HeadingBack, Fore: s.theme.HeadingFore}
	return s.appendRow([]any{sub1, sub2, sub3, sub4}, format)
}

func (s *ExcelSink) AddTableHeadings() error {
	columns := testLogColumns
	if s.summary {
		columns = summaryColumns
	}
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	format := cellFormat{Bold: true, Centred: true, Back: s.theme.SectionBack, Fore: s.theme.SectionFore}
	return s.appendRow(values, format)
}

func (s *ExcelSink) BeginSection(name string) error {
	return s.mergedRow(name, cellFormat{Bold: true, Back: s.theme.SectionBack, Fore: s.theme.SectionFore})
}

func (s *ExcelSink) BeginSubSection(name string) error {
	return s.mergedRow(name, cellFormat{Bold: true, Italic: true, Back: s.theme.ContentBack, Fore: s.theme.SectionFore})
}

func (s *ExcelSink) LogStep(step report.Step) error {
	values := []any{
		step.Number,
		step.Name,
		step.Description,
		statusLabel(step.Status),
		formatTime(step.Time, s.settings.DateFormat),
	}
	if err := s.contentRow(values, statusColor(step.Status)); err != nil {
		return err
	}
	if step.Screenshot != "" {
		cell, err := excelize.CoordinatesToCellName(4, s.row)
		if err != nil {
			return err
		}
		link := path.Join("..", report.ScreenshotsDir, step.Screenshot)
		if err := s.file.SetCellHyperLink(s.sheet, cell, link, "External"); err != nil {
			return fmt.Errorf("link screenshot %q: %w", step.Screenshot, err)
		}
	}
	return s.save()
}

func (s *ExcelSink) AddFooter(footer report.Footer) error {
	values := []any{
		"Execution Time", formatDuration(footer.ExecutionTime),
		fmt.Sprintf("Steps passed: %d", footer.StepsPassed),
		fmt.Sprintf("Steps failed: %d", footer.StepsFailed),
	}
	return s.appendRow(values, cellFormat{Bold: true, Back: s.theme.SectionBack, Fore: s.theme.SectionFore})
}

func (s *ExcelSink) RecordTestResult(result report.TestResult) error {
	values := []any{
		result.Scenario,
		result.TestCase,
		result.Description,
		formatDuration(result.ExecutionTime),
		result.Status,
	}
	if err := s.contentRow(values, resultColor(result.Status)); err != nil {
		return err
	}
	if s.settings.LinkTestLogsToSummary {
		cell, err := excelize.CoordinatesToCellName(2, s.row)
		if err != nil {
			return err
		}
		link := report.TestLogName(result.Scenario, result.TestCase) + ".xlsx"
		if err := s.file.SetCellHyperLink(s.sheet, cell, link, "External"); err != nil {
			return fmt.Errorf("link test log %q: %w", link, err)
		}
	}
	return s.save()
}

func (s *ExcelSink) AddSummaryFooter(footer report.SummaryFooter) error {
	values := []any{
		"Total Duration", formatDuration(footer.TotalTime),
		fmt.Sprintf("Tests passed: %d", footer.TestsPassed),
		fmt.Sprintf("Tests failed: %d", footer.TestsFailed),
	}
	return s.appendRow(values, cellFormat{Bold: true, Back: s.theme.SectionBack, Fore: s.theme.SectionFore})
}

// Close releases the workbook. The file on disk is already up to date.
func (s *ExcelSink) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// contentRow writes a data row and colours its status cell.
func (s *ExcelSink) contentRow(values []any, statusFore string) error {
	if err := s.writeRow(values, cellFormat{Back: s.theme.ContentBack, Fore: s.theme.ContentFore}); err != nil {
		return err
	}
	if statusFore == "" {
		return nil
	}
	col := 4
	if s.summary {
		col = 5
	}
	cell, err := excelize.CoordinatesToCellName(col, s.row)
	if err != nil {
		return err
	}
	style, err := s.style(cellFormat{Bold: true, Back: s.theme.ContentBack, Fore: statusFore})
	if err != nil {
		return err
	}
	return s.file.SetCellStyle(s.sheet, cell, cell, style)
}

func (s *ExcelSink) appendRow(values []any, format cellFormat) error {
	if err := s.writeRow(values, format); err != nil {
		return err
	}
	return s.save()
}

func (s *ExcelSink) mergedRow(text string, format cellFormat) error {
	if err := s.writeRow([]any{text}, format); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, s.row)
	last, _ := excelize.CoordinatesToCellName(s.columns, s.row)
	if err := s.file.MergeCell(s.sheet, first, last); err != nil {
		return fmt.Errorf("merge %s:%s: %w", first, last, err)
	}
	return s.save()
}

func (s *ExcelSink) writeRow(values []any, format cellFormat) error {
	if s.file == nil {
		return errNotOpen
	}
	s.row++
	first, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	if err := s.file.SetSheetRow(s.sheet, first, &values); err != nil {
		return fmt.Errorf("write row %d: %w", s.row, err)
	}
	last, err := excelize.CoordinatesToCellName(s.columns, s.row)
	if err != nil {
		return err
	}
	style, err := s.style(format)
	if err != nil {
		return err
	}
	return s.file.SetCellStyle(s.sheet, first, last, style)
}

func (s *ExcelSink) style(format cellFormat) (int, error) {
	if id, ok := s.styles[format]; ok {
		return id, nil
	}
	st := &excelize.Style{
		Font: &excelize.Font{
			Bold:   format.Bold,
			Italic: format.Italic,
			Family: "Verdana",
			Size:   10,
			Color:  format.Fore,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "999999", Style: 1},
			{Type: "right", Color: "999999", Style: 1},
			{Type: "top", Color: "999999", Style: 1},
			{Type: "bottom", Color: "999999", Style: 1},
		},
	}
	if format.FontSize > 0 {
		st.Font.Size = format.FontSize
	}
	if format.Back != "" {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{format.Back}}
	}
	if format.Centred {
		st.Alignment = &excelize.Alignment{Horizontal: "center"}
	}
	id, err := s.file.NewStyle(st)
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	s.styles[format] = id
	return id, nil
}

func (s *ExcelSink) save() error {
	if err := s.file.SaveAs(s.Path()); err != nil {
		return fmt.Errorf("save %q: %w", s.Path(), err)
	}
	return nil
}
