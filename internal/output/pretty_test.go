package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bgricker/testreport/internal/plan"
	"github.com/bgricker/testreport/internal/report"
)

func TestPrettyRenderPlans(t *testing.T) {
	pl := plan.Plan{
		Path:     "plans/checkout.yml",
		Scenario: "Checkout",
		TestCases: []plan.TestCase{
			{
				Name:  "TC01",
				Steps: []plan.Step{{Name: "Open cart", Run: "./cart"}},
				Sections: []plan.Section{{
					Name:        "Login",
					SubSections: []plan.SubSection{{Name: "MFA", Steps: []plan.Step{{Name: "Code", Status: "DONE"}}}},
				}},
			},
		},
		Warnings: []plan.Warning{{TestCase: "TC01", Message: "step \"Code\" has neither run nor status; reported as DONE"}},
	}

	buf := &bytes.Buffer{}
	if err := NewPretty(buf).RenderPlans([]plan.Plan{pl}); err != nil {
		t.Fatalf("render plans: %v", err)
	}

	want := `Plan Checkout (plans/checkout.yml)
  TestCase TC01
    • Open cart
    Section Login
      Sub-section MFA
        • Code [DONE]
  warning: TC01: step "Code" has neither run nor status; reported as DONE
`
	if buf.String() != want {
		t.Fatalf("unexpected output:\n--- want\n%s\n--- got\n%s", want, buf.String())
	}
}

func TestConsoleSinkBuffersTestLogUntilFooter(t *testing.T) {
	buf := &bytes.Buffer{}
	settings := report.DefaultSettings(t.TempDir(), "Checkout_TC01")
	settings.ScreenshotFailed = false
	sink := NewConsoleSink(settings, buf)
	r := report.New(settings, []report.Sink{sink})

	if err := r.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := r.BeginSection("Login"); err != nil {
		t.Fatalf("begin section: %v", err)
	}
	if err := r.LogStep("Sign in", "credentials accepted", report.StatusPass); err != nil {
		t.Fatalf("log step: %v", err)
	}
	if err := r.BeginSubSection("MFA"); err != nil {
		t.Fatalf("begin sub-section: %v", err)
	}
	if err := r.LogStep("Code", "Timeout", report.StatusFail); err != nil {
		t.Fatalf("log step: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing before the footer, got %q", buf.String())
	}

	if err := r.Finalize(1500 * time.Millisecond); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	want := `Test log Checkout_TC01
  Login
    ✓ 1 Sign in: credentials accepted
    MFA
      ✗ 2 Code: Timeout
RESULT Checkout_TC01: 1 steps passed, 1 steps failed (1.5s)
`
	if buf.String() != want {
		t.Fatalf("unexpected output:\n--- want\n%s\n--- got\n%s", want, buf.String())
	}
}

func TestConsoleSinkSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	settings := report.DefaultSettings(t.TempDir(), "")
	r := report.New(settings, []report.Sink{NewConsoleSink(settings, buf)})

	if err := r.InitializeSummary(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := r.AddHeading("Shop - Automation Execution Result Summary"); err != nil {
		t.Fatalf("heading: %v", err)
	}
	if err := r.RecordTestResult(report.TestResult{Scenario: "Checkout", TestCase: "TC01", ExecutionTime: 2 * time.Second, Status: "Passed"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := r.RecordTestResult(report.TestResult{Scenario: "Checkout", TestCase: "TC02", Description: "Timeout", Status: "Failed"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !strings.Contains(buf.String(), "✓ Checkout/TC01 (2s)") {
		t.Fatalf("summary rows should be written immediately, got %q", buf.String())
	}
	if err := r.AddSummaryFooter(3 * time.Second); err != nil {
		t.Fatalf("footer: %v", err)
	}

	want := `== Shop - Automation Execution Result Summary ==
✓ Checkout/TC01 (2s)
✗ Checkout/TC02 (0s)
    Timeout
SUMMARY: 1 passed, 1 failed (3s)
`
	if buf.String() != want {
		t.Fatalf("unexpected output:\n--- want\n%s\n--- got\n%s", want, buf.String())
	}
}

func TestConsoleSinkRejectsWritesBeforeInitialize(t *testing.T) {
	sink := NewConsoleSink(report.DefaultSettings(t.TempDir(), "x"), &bytes.Buffer{})
	if err := sink.AddHeading("early"); err == nil {
		t.Fatalf("expected error before initialization")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		0:                          "0s",
		-time.Second:               "0s",
		1500 * time.Microsecond:    "2ms",
		1234567 * time.Microsecond: "1.234s",
	}
	for in, want := range tests {
		if got := formatDuration(in); got != want {
			t.Fatalf("formatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := statusLabel(report.StatusScreenshot); got != "Screenshot" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := statusLabel(report.StatusPass); got != "Pass" {
		t.Fatalf("unexpected label %q", got)
	}
}
