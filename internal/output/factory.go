// Package output holds the report sinks: spreadsheet, hypertext, JSON and
// console renderings of test logs and result summaries.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bgricker/testreport/internal/config"
	"github.com/bgricker/testreport/internal/report"
)

// Factory creates the configured sinks for each document.
type Factory struct {
	formats config.Formats
	theme   Theme
	console io.Writer
}

// NewFactory creates a factory. The console writer is shared by all
// documents and is serialized internally.
func NewFactory(formats config.Formats, theme Theme, console io.Writer) *Factory {
	if console == nil {
		console = io.Discard
	}
	return &Factory{
		formats: formats,
		theme:   theme,
		console: NewSyncWriter(console),
	}
}

// Sinks creates the enabled sinks in a fixed order (excel, html, json,
// console) together with the directories they write to.
func (f *Factory) Sinks(settings report.Settings) ([]report.Sink, error) {
	dirs := []string{report.ScreenshotsDir}
	if f.formats.Excel {
		dirs = append(dirs, report.ExcelDir)
	}
	if f.formats.HTML {
		dirs = append(dirs, report.HTMLDir)
	}
	if f.formats.JSON {
		dirs = append(dirs, report.JSONDir)
	}
	for _, d := range dirs {
		path := filepath.Join(settings.ReportPath, d)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create %q: %w", path, err)
		}
	}

	var sinks []report.Sink
	if f.formats.Excel {
		sinks = append(sinks, NewExcelSink(settings, f.theme))
	}
	if f.formats.HTML {
		sinks = append(sinks, NewHTMLSink(settings, f.theme))
	}
	if f.formats.JSON {
		sinks = append(sinks, NewJSONSink(settings))
	}
	if f.formats.Console {
		sinks = append(sinks, NewConsoleSink(settings, f.console))
	}
	return sinks, nil
}
