package filter

import (
	"testing"

	"github.com/bgricker/testreport/internal/plan"
)

func samplePlan() plan.Plan {
	return plan.Plan{
		Path:     "plans/checkout.yml",
		Scenario: "Checkout",
		TestCases: []plan.TestCase{
			{
				Name: "TC01_guest",
				Steps: []plan.Step{
					{Name: "Open cart", Run: "./cart open"},
					{Name: "Pay", Run: "./pay --card"},
				},
			},
			{
				Name: "TC02_member",
				Sections: []plan.Section{
					{
						Name:  "Login",
						Steps: []plan.Step{{Name: "Sign in", Run: "./login"}},
						SubSections: []plan.SubSection{
							{Name: "MFA", Steps: []plan.Step{{Name: "Enter code", Status: "DONE"}}},
						},
					},
					{
						Name:  "Pay",
						Steps: []plan.Step{{Name: "Pay", Run: "./pay --wallet"}},
					},
				},
			},
		},
	}
}

func TestCompile(t *testing.T) {
	patterns, err := Compile([]string{"", "  pay ", "/^TC0[12]/"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}
	if !patterns[0].Match("Pay now") {
		t.Fatalf("substring pattern should match case-insensitively")
	}
	if !patterns[1].Match("TC01_guest") || patterns[1].Match("xTC01") {
		t.Fatalf("regexp pattern matched unexpectedly")
	}
	if patterns[0].Match("") {
		t.Fatalf("empty input must never match")
	}

	if _, err := Compile([]string{"/[/"}); err == nil {
		t.Fatalf("expected invalid regexp error")
	}
}

func TestPlansByTestCase(t *testing.T) {
	c, err := Compiled([]string{"checkout/tc02"}, nil, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	filtered := Plans([]plan.Plan{samplePlan()}, c)
	if len(filtered) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(filtered))
	}
	if len(filtered[0].TestCases) != 1 || filtered[0].TestCases[0].Name != "TC02_member" {
		t.Fatalf("expected only TC02_member, got %+v", filtered[0].TestCases)
	}
}

func TestPlansSteps(t *testing.T) {
	c, err := Compiled(nil, []string{"/pay|code/"}, []string{"wallet"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	filtered := Plans([]plan.Plan{samplePlan()}, c)
	if len(filtered) != 1 || len(filtered[0].TestCases) != 2 {
		t.Fatalf("expected both test cases to survive, got %+v", filtered)
	}

	guest := filtered[0].TestCases[0]
	if len(guest.Steps) != 1 || guest.Steps[0].Name != "Pay" {
		t.Fatalf("unexpected guest steps: %+v", guest.Steps)
	}

	member := filtered[0].TestCases[1]
	if len(member.Sections) != 1 {
		t.Fatalf("expected the emptied Pay section to be dropped, got %+v", member.Sections)
	}
	login := member.Sections[0]
	if len(login.Steps) != 0 || len(login.SubSections) != 1 {
		t.Fatalf("unexpected login section: %+v", login)
	}
	if member.StepCount() != 1 {
		t.Fatalf("expected 1 remaining step, got %d", member.StepCount())
	}
}

func TestPlansDropsEmptyPlans(t *testing.T) {
	c, err := Compiled([]string{"TC99"}, nil, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := Plans([]plan.Plan{samplePlan()}, c); len(got) != 0 {
		t.Fatalf("expected no plans, got %+v", got)
	}
}

func TestPlansDoesNotMutateInput(t *testing.T) {
	original := samplePlan()
	c, err := Compiled(nil, nil, []string{"pay"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	Plans([]plan.Plan{original}, c)
	if len(original.TestCases[0].Steps) != 2 || len(original.TestCases[1].Sections) != 2 {
		t.Fatalf("input plan was modified: %+v", original)
	}
}
