// Package screenshot provides the capturers a report uses to produce the
// image files referenced by its steps.
package screenshot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bgricker/testreport/internal/report"
	"github.com/bgricker/testreport/internal/shell"
)

// PathPlaceholder is replaced by the target file in a capture command.
const PathPlaceholder = "{path}"

// Command captures screenshots by running a shell command, for example
// "import -window root {path}". The template must contain PathPlaceholder.
type Command struct {
	Template string
	Shell    string
	Env      []string
	Timeout  time.Duration
}

var _ report.Capturer = Command{}

// Capture runs the command for path and checks that it produced the file.
func (c Command) Capture(path string) error {
	if err := CheckTemplate(c.Template); err != nil {
		return err
	}
	script := strings.ReplaceAll(c.Template, PathPlaceholder, quote(path))

	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := shell.Args(c.Shell, script)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if c.Env != nil {
		cmd.Env = c.Env
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(shell.TailLines(stderr.String(), 5))
		if msg == "" {
			return fmt.Errorf("capture command exited with %d: %w", shell.ExitCode(err), err)
		}
		return fmt.Errorf("capture command exited with %d: %s", shell.ExitCode(err), msg)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("capture command did not write %q: %w", path, err)
	}
	return nil
}

func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// Placeholder writes a one pixel PNG. It stands in for a real capture when
// no command is configured so that reports still link an image.
type Placeholder struct{}

var _ report.Capturer = Placeholder{}

// Capture writes the placeholder image to path.
func (Placeholder) Capture(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %q: %w", path, err)
	}
	return f.Close()
}

// CheckTemplate rejects capture commands that do not name the target file.
func CheckTemplate(template string) error {
	if !strings.Contains(template, PathPlaceholder) {
		return report.NewConfigError("screenshot command %q must contain %s", template, PathPlaceholder)
	}
	return nil
}

// New selects a Command capturer when template is set and the placeholder
// otherwise.
func New(template, shellSpec string) (report.Capturer, error) {
	if strings.TrimSpace(template) == "" {
		return Placeholder{}, nil
	}
	if err := CheckTemplate(template); err != nil {
		return nil, err
	}
	return Command{Template: template, Shell: shellSpec, Timeout: 30 * time.Second}, nil
}
