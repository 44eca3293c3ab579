package report_test

import (
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgricker/testreport/internal/report"
	"github.com/bgricker/testreport/internal/report/reporttest"
)

var fixedNow = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func newTestLog(t *testing.T, settings report.Settings, sinks ...report.Sink) *report.Report {
	t.Helper()
	r := report.New(settings, sinks, report.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, r.Initialize())
	return r
}

func defaultSettings(t *testing.T) report.Settings {
	s := report.DefaultSettings(t.TempDir(), "Login_TC01")
	s.ScreenshotFailed = false
	return s
}

func TestLogStepLoginScenario(t *testing.T) {
	rec := reporttest.NewRecorder("rec")
	r := newTestLog(t, defaultSettings(t), rec)

	require.NoError(t, r.LogStep("Login", "Enter valid credentials", report.StatusPass))
	require.NoError(t, r.LogStep("Login", "Timeout", report.StatusFail))
	require.NoError(t, r.LogStep("Logout", "Click logout", report.StatusPass))

	assert.Equal(t, 2, r.StepsPassed())
	assert.Equal(t, 1, r.StepsFailed())
	assert.Equal(t, report.TestFailed, r.TestStatus())
	assert.Equal(t, "Timeout", r.FailureDescription())

	steps := rec.Steps()
	require.Len(t, steps, 3)
	for i, step := range steps {
		assert.Equal(t, i+1, step.Number)
	}
	assert.Equal(t, report.StatusFail, steps[1].Status)
}

func TestCountersUpdateWhenDispatchSuppressed(t *testing.T) {
	rec := reporttest.NewRecorder("rec")
	settings := defaultSettings(t)
	settings.LogLevel = report.StatusPass
	r := newTestLog(t, settings, rec)

	statuses := []report.Status{
		report.StatusPass, report.StatusFail, report.StatusDone,
		report.StatusFail, report.StatusWarning, report.StatusPass, report.StatusDebug,
	}
	for _, s := range statuses {
		require.NoError(t, r.LogStep("step", s.String(), s))
	}

	assert.Equal(t, 2, r.StepsPassed())
	assert.Equal(t, 2, r.StepsFailed())
	assert.Equal(t, report.TestFailed, r.TestStatus())

	steps := rec.Steps()
	require.Len(t, steps, 2, "only PASS steps are persisted at log level PASS")
	assert.Equal(t, 1, steps[0].Number)
	assert.Equal(t, 2, steps[1].Number)
	assert.Equal(t, 3, r.StepNumber())
}

func TestTestStatusNeverRevertsToPassed(t *testing.T) {
	r := newTestLog(t, defaultSettings(t))

	assert.Equal(t, report.TestPassed, r.TestStatus())
	require.NoError(t, r.LogStep("a", "first failure", report.StatusFail))
	for i := 0; i < 5; i++ {
		require.NoError(t, r.LogStep("b", "recovered", report.StatusPass))
		assert.Equal(t, report.TestFailed, r.TestStatus())
	}
}

func TestFailureDescriptionAccumulates(t *testing.T) {
	r := newTestLog(t, defaultSettings(t))

	require.NoError(t, r.LogStep("a", "first", report.StatusFail))
	require.NoError(t, r.LogStep("b", "ignored", report.StatusPass))
	require.NoError(t, r.LogStep("c", "second", report.StatusFail))
	require.NoError(t, r.LogStep("d", "", report.StatusFail))
	require.NoError(t, r.LogStep("e", "third", report.StatusFail))

	assert.Equal(t, "first; second; ; third", r.FailureDescription())
}

func TestBeginSectionResetsStepNumbers(t *testing.T) {
	rec := reporttest.NewRecorder("rec")
	r := newTestLog(t, defaultSettings(t), rec)

	require.NoError(t, r.BeginSection("Setup"))
	for i := 0; i < 4; i++ {
		require.NoError(t, r.LogStep("setup", "ok", report.StatusDone))
	}
	require.NoError(t, r.BeginSection("Main"))
	require.NoError(t, r.BeginSubSection("Checkout"))
	require.NoError(t, r.LogStep("main", "ok", report.StatusPass))

	steps := rec.Steps()
	require.Len(t, steps, 5)
	assert.Equal(t, 4, steps[3].Number)
	assert.Equal(t, 1, steps[4].Number)
	assert.Equal(t, []string{
		"InitializeTestLog", "BeginSection", "LogStep", "LogStep", "LogStep", "LogStep",
		"BeginSection", "BeginSubSection", "LogStep",
	}, rec.Ops())
}

func TestScreenshotPolicy(t *testing.T) {
	rec := reporttest.NewRecorder("rec")
	settings := defaultSettings(t)
	settings.ScreenshotFailed = true
	settings.ScreenshotPassed = false

	var captured []string
	capturer := report.CapturerFunc(func(path string) error {
		captured = append(captured, path)
		return nil
	})
	r := report.New(settings, []report.Sink{rec}, report.WithCapturer(capturer),
		report.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, r.Initialize())

	require.NoError(t, r.LogStep("pass", "no shot", report.StatusPass))
	require.NoError(t, r.LogStep("fail", "shot", report.StatusFail))
	require.NoError(t, r.LogStep("forced", "shot", report.StatusScreenshot))
	require.NoError(t, r.LogStep("done", "no shot", report.StatusDone))

	require.Len(t, captured, 2)
	steps := rec.Steps()
	assert.Empty(t, steps[0].Screenshot)
	assert.NotEmpty(t, steps[1].Screenshot)
	assert.NotEmpty(t, steps[2].Screenshot)
	assert.Empty(t, steps[3].Screenshot)
	assert.NotEqual(t, steps[1].Screenshot, steps[2].Screenshot)

	for i, path := range captured {
		assert.Equal(t, filepath.Join(settings.ReportPath, report.ScreenshotsDir), filepath.Dir(path))
		assert.Equal(t, filepath.Base(path), steps[i+1].Screenshot)
		assert.True(t, strings.HasPrefix(filepath.Base(path), "Login_TC01_"))
	}
}

func TestScreenshotNotTakenForSuppressedStep(t *testing.T) {
	settings := defaultSettings(t)
	settings.LogLevel = report.StatusFail
	calls := 0
	r := report.New(settings, nil, report.WithCapturer(report.CapturerFunc(func(string) error {
		calls++
		return nil
	})))
	require.NoError(t, r.Initialize())

	require.NoError(t, r.LogStep("shot", "above the log level", report.StatusScreenshot))
	assert.Zero(t, calls)
}

func TestScreenshotFailurePropagates(t *testing.T) {
	rec := reporttest.NewRecorder("rec")
	settings := defaultSettings(t)
	settings.ScreenshotFailed = true
	boom := errors.New("display unavailable")
	r := report.New(settings, []report.Sink{rec}, report.WithCapturer(report.CapturerFunc(func(string) error {
		return boom
	})))
	require.NoError(t, r.Initialize())

	err := r.LogStep("fail", "broken", report.StatusFail)
	require.Error(t, err)

	var shotErr *report.ScreenshotError
	require.ErrorAs(t, err, &shotErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, r.StepsFailed())
	assert.Equal(t, "broken", r.FailureDescription())
	assert.Empty(t, rec.Steps())
	assert.Equal(t, 1, r.StepNumber())
}

func TestScreenshotWithoutCapturer(t *testing.T) {
	r := newTestLog(t, defaultSettings(t))

	err := r.LogStep("shot", "forced", report.StatusScreenshot)
	var shotErr *report.ScreenshotError
	require.ErrorAs(t, err, &shotErr)
}

func TestSinkErrorStopsRemainingSinks(t *testing.T) {
	boom := errors.New("disk full")
	first := reporttest.NewRecorder("first").Fail("LogStep", boom)
	second := reporttest.NewRecorder("second")
	r := newTestLog(t, defaultSettings(t), first, second)

	err := r.LogStep("step", "description", report.StatusPass)
	require.Error(t, err)

	var sinkErr *report.SinkError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "first", sinkErr.Sink)
	assert.Equal(t, "log step", sinkErr.Op)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 1, r.StepsPassed(), "counters are updated before dispatch")
	assert.Empty(t, second.Steps())
	assert.Equal(t, 1, r.StepNumber())
}

func TestSinkErrorBestEffortReachesEverySink(t *testing.T) {
	boom := errors.New("disk full")
	first := reporttest.NewRecorder("first").Fail("LogStep", boom)
	second := reporttest.NewRecorder("second")
	third := reporttest.NewRecorder("third").Fail("LogStep", boom)
	settings := defaultSettings(t)
	settings.Dispatch = report.DispatchBestEffort
	r := newTestLog(t, settings, first, second, third)

	err := r.LogStep("step", "description", report.StatusPass)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "first sink")
	assert.Contains(t, err.Error(), "third sink")
	assert.Len(t, second.Steps(), 1)
}

func TestLifecycle(t *testing.T) {
	rec := reporttest.NewRecorder("rec")
	r := report.New(defaultSettings(t), []report.Sink{rec})

	assert.ErrorIs(t, r.LogStep("early", "", report.StatusPass), report.ErrNotInitialized)
	assert.ErrorIs(t, r.BeginSection("early"), report.ErrNotInitialized)
	assert.Zero(t, r.StepsPassed())

	require.NoError(t, r.Initialize())
	assert.ErrorIs(t, r.Initialize(), report.ErrAlreadyInitialized)
	require.NoError(t, r.LogStep("step", "", report.StatusPass))
	require.NoError(t, r.Finalize(3*time.Second))

	assert.ErrorIs(t, r.LogStep("late", "", report.StatusPass), report.ErrFinalized)
	assert.ErrorIs(t, r.Finalize(time.Second), report.ErrFinalized)

	events := rec.Events()
	last := events[len(events)-1]
	assert.Equal(t, "AddFooter", last.Op)
	assert.Equal(t, report.Footer{ExecutionTime: 3 * time.Second, StepsPassed: 1}, last.Footer)

	require.NoError(t, r.Close())
	assert.True(t, rec.Closed())
}

func TestInitializeRejectsEmptyNameOrPath(t *testing.T) {
	rec := reporttest.NewRecorder("rec")

	noName := report.New(report.DefaultSettings(t.TempDir(), " "), []report.Sink{rec})
	err := noName.Initialize()
	assert.True(t, report.IsConfigError(err))

	noPath := report.New(report.DefaultSettings("", "name"), []report.Sink{rec})
	err = noPath.Initialize()
	assert.True(t, report.IsConfigError(err))

	nested := report.New(report.DefaultSettings(t.TempDir(), "Web/Checkout_TC01"), []report.Sink{rec})
	err = nested.Initialize()
	assert.True(t, report.IsConfigError(err))

	assert.Empty(t, rec.Events(), "configuration errors abort before any sink is touched")
}

func TestInvalidStatusRejected(t *testing.T) {
	r := newTestLog(t, defaultSettings(t))

	require.Error(t, r.LogStep("odd", "", report.Status(42)))
	assert.Zero(t, r.StepsPassed()+r.StepsFailed())
}

func TestRecordTestResultCounting(t *testing.T) {
	rec := reporttest.NewRecorder("rec")
	r := report.New(report.DefaultSettings(t.TempDir(), ""), []report.Sink{rec})
	require.NoError(t, r.InitializeSummary())

	for _, status := range []string{"Passed", "FAILED", "passed", "failed", "Skipped"} {
		require.NoError(t, r.RecordTestResult(report.TestResult{Scenario: "s", TestCase: status, Status: status}))
	}
	assert.Equal(t, 2, r.TestsPassed())
	assert.Equal(t, 2, r.TestsFailed())
	assert.Len(t, rec.Results(), 5)

	require.NoError(t, r.AddSummaryFooter(time.Minute))
	events := rec.Events()
	assert.Equal(t, report.SummaryFooter{TotalTime: time.Minute, TestsPassed: 2, TestsFailed: 2}, events[len(events)-1].Total)
	assert.ErrorIs(t, r.RecordTestResult(report.TestResult{Status: "passed"}), report.ErrFinalized)
}

func TestStatusReplayMatchesIncrementalStatus(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	all := report.Statuses()

	for run := 0; run < 50; run++ {
		settings := defaultSettings(t)
		settings.LogLevel = all[rng.Intn(len(all))]
		r := report.New(settings, nil)
		require.NoError(t, r.Initialize())

		var history []report.Status
		n := rng.Intn(30)
		for i := 0; i < n; i++ {
			s := all[rng.Intn(len(all))]
			if s == report.StatusScreenshot {
				s = report.StatusDone
			}
			history = append(history, s)
			require.NoError(t, r.LogStep("step", "d", s))
		}

		replayed := report.TestPassed
		passed, failed := 0, 0
		for _, s := range history {
			switch s {
			case report.StatusFail:
				replayed = report.TestFailed
				failed++
			case report.StatusPass:
				passed++
			}
		}
		assert.Equal(t, replayed, r.TestStatus())
		assert.Equal(t, passed, r.StepsPassed())
		assert.Equal(t, failed, r.StepsFailed())
	}
}

func TestScreenshotNameIsSanitizedAndUnique(t *testing.T) {
	a := report.ScreenshotName("Login_TC01", fixedNow, "02/01/2006 15:04:05")
	b := report.ScreenshotName("Login_TC01", fixedNow, "02/01/2006 15:04:05")

	assert.NotEqual(t, a, b)
	for _, name := range []string{a, b} {
		assert.True(t, strings.HasPrefix(name, "Login_TC01_05-03-2024_14-07-09_"), name)
		assert.True(t, strings.HasSuffix(name, ".png"))
		assert.NotContains(t, name, " ")
		assert.NotContains(t, name, ":")
	}
}
