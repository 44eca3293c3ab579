package report

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when a report is written before Initialize.
	ErrNotInitialized = errors.New("report not initialized")
	// ErrAlreadyInitialized is returned when Initialize is called twice.
	ErrAlreadyInitialized = errors.New("report already initialized")
	// ErrFinalized is returned for any write after the footer has been added.
	ErrFinalized = errors.New("report already finalized")
)

// ConfigError reports an empty or invalid report name, path or setting.
// Configuration errors abort before any sink is touched.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Err)
	}
	return "configuration error: " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError formats a configuration error without a cause.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// SinkError reports a sink that failed to persist an event.
type SinkError struct {
	Sink string
	Op   string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink: %s: %v", e.Sink, e.Op, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// ScreenshotError reports a requested screenshot that could not be captured.
type ScreenshotError struct {
	Path string
	Err  error
}

func (e *ScreenshotError) Error() string {
	return fmt.Sprintf("capture screenshot %q: %v", e.Path, e.Err)
}

func (e *ScreenshotError) Unwrap() error {
	return e.Err
}

// ConsolidationError reports a failure to copy external test framework
// results into the report directory.
type ConsolidationError struct {
	Src string
	Dst string
	Err error
}

func (e *ConsolidationError) Error() string {
	return fmt.Sprintf("consolidate external results %q into %q: %v", e.Src, e.Dst, e.Err)
}

func (e *ConsolidationError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err carries a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
