// Package shell builds and runs the shell commands behind test steps and
// screenshot captures.
package shell

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

// Args returns the argv that runs script through shellSpec. An empty value
// selects bash on POSIX systems and cmd on Windows. The value may carry extra
// arguments, e.g. "bash -e".
func Args(shellSpec, script string) []string {
	shellSpec = strings.TrimSpace(shellSpec)
	if shellSpec == "" {
		if runtime.GOOS == "windows" {
			return []string{"cmd", "/C", script}
		}
		return []string{"bash", "-c", script}
	}

	fields := strings.Fields(shellSpec)
	sh := fields[0]
	args := append([]string{}, fields[1:]...)

	switch strings.ToLower(filepath.Base(sh)) {
	case "bash", "zsh", "ksh", "fish", "sh":
		args = append(args, "-c", script)
	case "cmd", "cmd.exe":
		args = append(args, "/C", script)
	case "pwsh", "powershell", "powershell.exe":
		args = append(args, "-Command", script)
	case "python", "python3", "python.exe":
		args = append(args, "-c", script)
	default:
		args = append(args, script)
	}
	return append([]string{sh}, args...)
}

// MergeEnv overlays maps onto a KEY=VALUE environment. Later overlays win and
// the result is sorted by key.
func MergeEnv(base []string, overlays ...map[string]string) []string {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	for _, overlay := range overlays {
		maps.Copy(env, overlay)
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	out := make([]string, 0, len(env))
	for _, key := range keys {
		out = append(out, key+"="+env[key])
	}
	return out
}

// ResolveDir returns the first non-empty candidate, relative to root, that
// names an existing directory. Without candidates it returns root, or the
// current directory when root is empty.
func ResolveDir(root string, candidates ...string) (string, error) {
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(root, candidate)
		}
		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("working directory %q not found", candidate)
			}
			return "", fmt.Errorf("stat working directory %q: %w", candidate, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("working directory %q is not a directory", candidate)
		}
		return candidate, nil
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		return wd, nil
	}
	return root, nil
}

// ExitCode extracts the process exit code from a Run error. Errors that are
// not exit errors, such as a missing binary, map to 127.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 127
}

// TailLines keeps the last maxLines lines of input.
func TailLines(input string, maxLines int) string {
	if input == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(input, "\n"), "\n")
	if maxLines <= 0 || len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}
