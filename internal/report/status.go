package report

import (
	"fmt"
	"strings"
)

// Status classifies a single reported event. Values are ordered by verbosity:
// a step is persisted to sinks only when its rank does not exceed the
// configured log level.
type Status int

const (
	StatusPass Status = iota
	StatusFail
	StatusDone
	StatusScreenshot
	StatusWarning
	StatusDebug
)

// Overall test case outcomes as reported to the result summary.
const (
	TestPassed = "Passed"
	TestFailed = "Failed"
)

var statusNames = [...]string{
	StatusPass:       "PASS",
	StatusFail:       "FAIL",
	StatusDone:       "DONE",
	StatusScreenshot: "SCREENSHOT",
	StatusWarning:    "WARNING",
	StatusDebug:      "DEBUG",
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	return s >= StatusPass && int(s) < len(statusNames)
}

// Enabled reports whether a step with status s is persisted under the given log level.
func (s Status) Enabled(level Status) bool {
	return s <= level
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name, ignoring case.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus resolves a status name case-insensitively.
func ParseStatus(name string) (Status, error) {
	trimmed := strings.TrimSpace(name)
	for i, n := range statusNames {
		if strings.EqualFold(n, trimmed) {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// Statuses returns every status in rank order.
func Statuses() []Status {
	out := make([]Status, 0, len(statusNames))
	for i := range statusNames {
		out = append(out, Status(i))
	}
	return out
}
