// Package plan models YAML test plans: scenarios made of test cases whose
// steps are shell commands or explicitly reported statuses.
package plan

// Plan is one parsed test plan file.
type Plan struct {
	Path      string     `json:"path"`
	Scenario  string     `json:"scenario"`
	TestCases []TestCase `json:"testcases"`
	Warnings  []Warning  `json:"warnings,omitempty"`
}

// Warning captures non-fatal issues encountered while parsing plans.
type Warning struct {
	Plan     string `json:"plan"`
	TestCase string `json:"testcase"`
	Message  string `json:"message"`
}

// TestCase is reported as one test log and one summary row.
type TestCase struct {
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Shell            string            `json:"shell,omitempty"`
	WorkingDirectory string            `json:"working_directory,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	Steps            []Step            `json:"steps,omitempty"`
	Sections         []Section         `json:"sections,omitempty"`
}

// Section groups steps; step numbering restarts in every section.
type Section struct {
	Name        string       `json:"name"`
	Steps       []Step       `json:"steps,omitempty"`
	SubSections []SubSection `json:"subsections,omitempty"`
}

// SubSection groups steps inside a section.
type SubSection struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Step either runs a shell command or reports a fixed status.
type Step struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Run         string            `json:"run,omitempty"`
	Status      string            `json:"status,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
}

// StepCount returns the number of steps in the test case, including those
// inside sections and sub-sections.
func (tc TestCase) StepCount() int {
	n := len(tc.Steps)
	for _, s := range tc.Sections {
		n += len(s.Steps)
		for _, sub := range s.SubSections {
			n += len(sub.Steps)
		}
	}
	return n
}
