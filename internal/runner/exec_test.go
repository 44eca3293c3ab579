package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bgricker/testreport/internal/config"
	"github.com/bgricker/testreport/internal/plan"
	"github.com/bgricker/testreport/internal/report"
	"github.com/bgricker/testreport/internal/report/reporttest"
)

// fakeBatch collects summary rows like the summary manager does.
type fakeBatch struct {
	root string

	mu      sync.Mutex
	results []report.TestResult
	fail    error
}

func (b *fakeBatch) Settings(name string) report.Settings {
	s := report.DefaultSettings(b.root, name)
	s.ScreenshotFailed = false
	return s
}

func (b *fakeBatch) RecordTestResult(result report.TestResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.results = append(b.results, result)
	return nil
}

func (b *fakeBatch) sorted() []report.TestResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]report.TestResult(nil), b.results...)
	sort.Slice(out, func(i, j int) bool { return out[i].TestCase < out[j].TestCase })
	return out
}

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("runner tests require a POSIX shell")
	}
}

func samplePlan(steps ...plan.Step) plan.Plan {
	return plan.Plan{
		Path:     "plans/checkout.yml",
		Scenario: "Checkout",
		TestCases: []plan.TestCase{{
			Name:        "TC01",
			Description: "guest checkout",
			Sections:    []plan.Section{{Name: "Cart", Steps: steps}},
		}},
	}
}

func TestRunnerPassingTestCase(t *testing.T) {
	requirePOSIX(t)
	batch := &fakeBatch{root: t.TempDir()}
	sinks := reporttest.NewFactory()
	r := New(Options{Root: batch.root, Project: "Shop", Sinks: sinks.Sinks})

	stats, err := r.Run(context.Background(), batch, []plan.Plan{samplePlan(
		plan.Step{Name: "add item", Run: "true"},
		plan.Step{Name: "note", Description: "manual check", Status: "DONE"},
	)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats != (Stats{Executed: 1, Passed: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}

	results := batch.sorted()
	if len(results) != 1 || results[0].Status != report.TestPassed || results[0].Description != "guest checkout" {
		t.Fatalf("unexpected results %+v", results)
	}

	rec := sinks.Recorder("Checkout_TC01")
	if rec == nil {
		t.Fatalf("no test log created")
	}
	want := []string{
		"InitializeTestLog", "AddHeading", "AddSubHeading", "AddTableHeadings",
		"BeginSection", "LogStep", "LogStep", "AddFooter",
	}
	if got := rec.Ops(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected ops %v", got)
	}
	if got := rec.Events()[1].Args[0]; got != "Shop - Checkout - TC01" {
		t.Fatalf("unexpected heading %q", got)
	}
	steps := rec.Steps()
	if steps[0].Status != report.StatusPass || steps[0].Description != "exit code 0" {
		t.Fatalf("unexpected first step %+v", steps[0])
	}
	if steps[1].Status != report.StatusDone || steps[1].Number != 2 {
		t.Fatalf("unexpected second step %+v", steps[1])
	}
	if !rec.Closed() {
		t.Fatalf("test log not closed")
	}
}

func TestRunnerFailingStepTail(t *testing.T) {
	requirePOSIX(t)
	batch := &fakeBatch{root: t.TempDir()}
	r := New(Options{Root: batch.root, TailLines: 2})

	stats, err := r.Run(context.Background(), batch, []plan.Plan{samplePlan(
		plan.Step{Name: "pay", Run: "printf '1\\n2\\n3\\n' >&2; exit 3"},
		plan.Step{Name: "verify", Run: "exit 1"},
	)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	got := batch.sorted()[0]
	want := "guest checkout: exit code 3: 2\n3; exit code 1"
	if got.Status != report.TestFailed || got.Description != want {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRunnerEnvAndWorkingDirectory(t *testing.T) {
	requirePOSIX(t)
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "subdir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	batch := &fakeBatch{root: t.TempDir()}
	r := New(Options{Root: root, Env: []string{"BASE=base"}})

	pl := plan.Plan{Scenario: "Env", TestCases: []plan.TestCase{{
		Name:             "TC01",
		WorkingDirectory: "subdir",
		Env:              map[string]string{"TC_VAR": "tc"},
		Steps: []plan.Step{{
			Name: "check",
			Run:  `test "$BASE-$TC_VAR-$STEP_VAR" = "base-tc-step" && test "$(basename "$PWD")" = subdir`,
			Env:  map[string]string{"STEP_VAR": "step"},
		}},
	}}}

	if _, err := r.Run(context.Background(), batch, []plan.Plan{pl}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := batch.sorted()[0]; got.Status != report.TestPassed {
		t.Fatalf("expected pass, got %+v", got)
	}
}

func TestRunnerDryRun(t *testing.T) {
	batch := &fakeBatch{root: t.TempDir()}
	sinks := reporttest.NewFactory()
	r := New(Options{DryRun: true, Sinks: sinks.Sinks})

	if _, err := r.Run(context.Background(), batch, []plan.Plan{samplePlan(plan.Step{Name: "pay", Run: "exit 1"})}); err != nil {
		t.Fatalf("run: %v", err)
	}
	steps := sinks.Recorder("Checkout_TC01").Steps()
	if len(steps) != 1 || steps[0].Status != report.StatusDone || steps[0].Description != "dry run: exit 1" {
		t.Fatalf("unexpected steps %+v", steps)
	}
	if got := batch.sorted()[0]; got.Status != report.TestPassed {
		t.Fatalf("dry run should pass, got %+v", got)
	}
}

func TestRunnerSinkFailureAbortsTestCase(t *testing.T) {
	batch := &fakeBatch{root: t.TempDir()}
	broken := func(report.Settings) ([]report.Sink, error) {
		rec := reporttest.NewRecorder("broken").Fail("LogStep", errors.New("disk full"))
		return []report.Sink{rec}, nil
	}
	r := New(Options{Sinks: broken})

	stats, err := r.Run(context.Background(), batch, []plan.Plan{samplePlan(
		plan.Step{Name: "a", Status: "PASS"},
		plan.Step{Name: "b", Status: "PASS"},
	)})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	got := batch.sorted()[0]
	if got.Status != report.TestFailed || !strings.Contains(got.Description, "disk full") {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRunnerSinkFactoryFailure(t *testing.T) {
	batch := &fakeBatch{root: t.TempDir()}
	r := New(Options{Sinks: func(report.Settings) ([]report.Sink, error) {
		return nil, errors.New("read-only file system")
	}})

	if _, err := r.Run(context.Background(), batch, []plan.Plan{samplePlan(plan.Step{Name: "a", Status: "PASS"})}); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := batch.sorted()[0]
	if got.Status != report.TestFailed || got.Description != "guest checkout: read-only file system" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRunnerOnErrorStop(t *testing.T) {
	batch := &fakeBatch{root: t.TempDir()}
	r := New(Options{OnError: config.OnErrorStop, Threads: 1})

	pl := plan.Plan{Scenario: "S"}
	for i := 1; i <= 3; i++ {
		status := "PASS"
		if i == 2 {
			status = "FAIL"
		}
		pl.TestCases = append(pl.TestCases, plan.TestCase{
			Name:  fmt.Sprintf("TC%02d", i),
			Steps: []plan.Step{{Name: "s", Status: status}},
		})
	}

	stats, err := r.Run(context.Background(), batch, []plan.Plan{pl})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats != (Stats{Executed: 2, Skipped: 1, Passed: 1, Failed: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := batch.sorted(); len(got) != 2 || got[1].TestCase != "TC02" {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestRunnerParallelRecordsEveryTestCase(t *testing.T) {
	batch := &fakeBatch{root: t.TempDir()}
	r := New(Options{Threads: 8})

	pl := plan.Plan{Scenario: "S"}
	for i := 0; i < 50; i++ {
		status := "PASS"
		if i%5 == 0 {
			status = "FAIL"
		}
		pl.TestCases = append(pl.TestCases, plan.TestCase{
			Name:  fmt.Sprintf("TC%02d", i),
			Steps: []plan.Step{{Name: "s", Status: status}},
		})
	}

	stats, err := r.Run(context.Background(), batch, []plan.Plan{pl})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Passed != 40 || stats.Failed != 10 || len(batch.sorted()) != 50 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRunnerReturnsRecordErrors(t *testing.T) {
	batch := &fakeBatch{root: t.TempDir(), fail: errors.New("summary closed")}
	r := New(Options{})

	_, err := r.Run(context.Background(), batch, []plan.Plan{samplePlan(plan.Step{Name: "a", Status: "PASS"})})
	if err == nil || !strings.Contains(err.Error(), "summary closed") {
		t.Fatalf("expected record error, got %v", err)
	}
}

func TestRunnerCancelledContextSkips(t *testing.T) {
	batch := &fakeBatch{root: t.TempDir()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := New(Options{Now: func() time.Time { return time.Unix(0, 0) }}).Run(ctx, batch, []plan.Plan{samplePlan(plan.Step{Name: "a", Status: "PASS"})})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Skipped != 1 || len(batch.sorted()) != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRunnerSanitizesReportNames(t *testing.T) {
	batch := &fakeBatch{root: t.TempDir()}
	sinks := reporttest.NewFactory()
	r := New(Options{Sinks: sinks.Sinks})

	pl := samplePlan(plan.Step{Name: "a", Status: "PASS"})
	pl.Scenario = "Web/Checkout"

	if _, err := r.Run(context.Background(), batch, []plan.Plan{pl}); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := batch.sorted()
	if len(got) != 1 || got[0].Status != report.TestPassed {
		t.Fatalf("unexpected results %+v", got)
	}
	if sinks.Recorder("Web-Checkout_TC01") == nil {
		t.Fatalf("test log not written under a sanitized name")
	}
}

func TestRunnerRejectsDuplicateReportNames(t *testing.T) {
	batch := &fakeBatch{root: t.TempDir()}
	sinks := reporttest.NewFactory()
	r := New(Options{Sinks: sinks.Sinks, Threads: 2})

	first := samplePlan(plan.Step{Name: "a", Status: "PASS"})
	second := samplePlan(plan.Step{Name: "b", Status: "PASS"})
	second.Path = "plans/checkout-copy.yml"

	stats, err := r.Run(context.Background(), batch, []plan.Plan{first, second})
	if !report.IsConfigError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Checkout_TC01 (plans/checkout.yml:TC01, plans/checkout-copy.yml:TC01)") {
		t.Fatalf("unexpected error %v", err)
	}
	if stats != (Stats{}) || len(batch.sorted()) != 0 || sinks.Recorder("Checkout_TC01") != nil {
		t.Fatalf("nothing should run, got %+v", stats)
	}
}
