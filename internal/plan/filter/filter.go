// Package filter narrows test plans by test case and step patterns.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bgricker/testreport/internal/plan"
)

// Pattern represents a compiled filter condition supporting substring and regex matching.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// Compile transforms raw pattern strings into Pattern values. A pattern
// wrapped in slashes is a regular expression; anything else matches as a
// case-insensitive substring.
func Compile(patterns []string) ([]Pattern, error) {
	result := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
			re, err := regexp.Compile(raw[1 : len(raw)-1])
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			result = append(result, Pattern{raw: raw, regex: re})
			continue
		}
		result = append(result, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return result, nil
}

func (p Pattern) String() string { return p.raw }

// Match reports whether the pattern matches s.
func (p Pattern) Match(s string) bool {
	if s == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), p.lower)
}

// Criteria selects test cases and steps.
type Criteria struct {
	TestCases []Pattern
	OnlySteps []Pattern
	SkipSteps []Pattern
}

// Compiled compiles the raw test case, only-step and skip-step patterns.
func Compiled(testCases, only, skip []string) (Criteria, error) {
	var c Criteria
	var err error
	if c.TestCases, err = Compile(testCases); err != nil {
		return c, fmt.Errorf("testcase filter: %w", err)
	}
	if c.OnlySteps, err = Compile(only); err != nil {
		return c, fmt.Errorf("only-step filter: %w", err)
	}
	if c.SkipSteps, err = Compile(skip); err != nil {
		return c, fmt.Errorf("skip-step filter: %w", err)
	}
	return c, nil
}

// Plans returns copies of plans holding only the matching test cases and
// steps. Sections, test cases and plans left without steps are dropped.
func Plans(plans []plan.Plan, c Criteria) []plan.Plan {
	if len(plans) == 0 {
		return nil
	}

	result := make([]plan.Plan, 0, len(plans))
	for _, pl := range plans {
		cases := make([]plan.TestCase, 0, len(pl.TestCases))
		for _, tc := range pl.TestCases {
			if !matchesTestCase(pl.Scenario, tc, c.TestCases) {
				continue
			}
			filtered := filterTestCase(tc, c)
			if filtered.StepCount() == 0 {
				continue
			}
			cases = append(cases, filtered)
		}
		if len(cases) == 0 {
			continue
		}
		plCopy := pl
		plCopy.TestCases = cases
		result = append(result, plCopy)
	}
	return result
}

func matchesTestCase(scenario string, tc plan.TestCase, patterns []Pattern) bool {
	if len(patterns) == 0 {
		return true
	}
	qualified := scenario + "/" + tc.Name
	for _, pattern := range patterns {
		if pattern.Match(tc.Name) || pattern.Match(qualified) {
			return true
		}
	}
	return false
}

func filterTestCase(tc plan.TestCase, c Criteria) plan.TestCase {
	out := tc
	out.Steps = filterSteps(tc.Steps, c)
	out.Sections = nil
	for _, section := range tc.Sections {
		sCopy := section
		sCopy.Steps = filterSteps(section.Steps, c)
		sCopy.SubSections = nil
		for _, sub := range section.SubSections {
			steps := filterSteps(sub.Steps, c)
			if len(steps) == 0 {
				continue
			}
			subCopy := sub
			subCopy.Steps = steps
			sCopy.SubSections = append(sCopy.SubSections, subCopy)
		}
		if len(sCopy.Steps) == 0 && len(sCopy.SubSections) == 0 {
			continue
		}
		out.Sections = append(out.Sections, sCopy)
	}
	return out
}

func filterSteps(steps []plan.Step, c Criteria) []plan.Step {
	if len(steps) == 0 {
		return nil
	}
	result := make([]plan.Step, 0, len(steps))
	for _, step := range steps {
		if len(c.OnlySteps) > 0 && !matchesStep(step, c.OnlySteps) {
			continue
		}
		if len(c.SkipSteps) > 0 && matchesStep(step, c.SkipSteps) {
			continue
		}
		result = append(result, step)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func matchesStep(step plan.Step, patterns []Pattern) bool {
	for _, pattern := range patterns {
		if pattern.Match(step.Name) || pattern.Match(step.Run) {
			return true
		}
	}
	return false
}
