package summary

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/bgricker/testreport/internal/report"
)

// ErrNoSummary is returned by Launch when no summary document was written.
var ErrNoSummary = errors.New("no result summary to launch")

// Opener opens a document in the platform viewer.
type Opener func(path string) error

// SystemOpener opens path with the desktop's default application.
func SystemOpener(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/C", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	return cmd.Process.Release()
}

// SummaryDocument returns the summary to show after a batch: the HTML
// summary when present, otherwise the spreadsheet summary.
func (m *Manager) SummaryDocument() (string, error) {
	candidates := []string{
		filepath.Join(m.reportPath, report.HTMLDir, report.SummaryName+".html"),
		filepath.Join(m.reportPath, report.ExcelDir, report.SummaryName+".xlsx"),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", ErrNoSummary
}

// Launch opens the summary document. Failures are logged and returned but
// never affect the batch results.
func (m *Manager) Launch(open Opener) error {
	if open == nil {
		open = SystemOpener
	}
	path, err := m.SummaryDocument()
	if err == nil {
		err = open(path)
	}
	if err != nil {
		m.log.Warn().Err(err).Msg("result summary not launched")
		return err
	}
	m.log.Debug().Str("path", path).Msg("result summary launched")
	return nil
}
