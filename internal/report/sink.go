package report

import "time"

// Step is a single persisted test log entry.
type Step struct {
	Number      int
	Name        string
	Description string
	Status      Status
	Time        time.Time
	// Screenshot is the artifact file name under the Screenshots directory, if any.
	Screenshot string
}

// Footer closes a test log.
type Footer struct {
	ExecutionTime time.Duration
	StepsPassed   int
	StepsFailed   int
}

// TestResult is one result summary row.
type TestResult struct {
	Scenario      string
	TestCase      string
	Description   string
	ExecutionTime time.Duration
	Status        string
}

// SummaryFooter closes a result summary.
type SummaryFooter struct {
	TotalTime   time.Duration
	TestsPassed int
	TestsFailed int
}

// Sink persists or renders reporting events. A sink instance backs exactly one
// document: it is initialized either as a test log or as a result summary, and
// the heading methods apply to whichever document was opened.
type Sink interface {
	Name() string

	InitializeTestLog() error
	InitializeSummary() error

	AddHeading(heading string) error
	AddSubHeading(sub1, sub2, sub3, sub4 string) error
	AddTableHeadings() error

	BeginSection(name string) error
	BeginSubSection(name string) error
	LogStep(step Step) error
	AddFooter(footer Footer) error

	RecordTestResult(result TestResult) error
	AddSummaryFooter(footer SummaryFooter) error

	Close() error
}

// Capturer captures a screenshot into the file at path.
type Capturer interface {
	Capture(path string) error
}

// CapturerFunc adapts a function to the Capturer interface.
type CapturerFunc func(path string) error

func (f CapturerFunc) Capture(path string) error {
	return f(path)
}

// Observer is notified of counted events, typically to feed metrics.
type Observer interface {
	StepLogged(status Status)
	TestRecorded(status string)
	ScreenshotCaptured()
}

type nopObserver struct{}

func (nopObserver) StepLogged(Status)   {}
func (nopObserver) TestRecorded(string) {}
func (nopObserver) ScreenshotCaptured() {}
