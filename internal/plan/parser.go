package plan

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bgricker/testreport/internal/report"
)

// Parser loads test plan files from disk.
type Parser struct {
	Root string
}

// NewParser constructs a Parser that resolves plan paths relative to root.
func NewParser(root string) *Parser {
	return &Parser{Root: root}
}

// Parse reads the supplied plan paths in order.
func (p *Parser) Parse(paths []string) ([]Plan, error) {
	plans := make([]Plan, 0, len(paths))
	for _, relPath := range paths {
		full := relPath
		if !filepath.IsAbs(full) {
			full = filepath.Join(p.Root, relPath)
		}
		pl, err := parsePlan(full, relPath)
		if err != nil {
			return nil, err
		}
		plans = append(plans, pl)
	}
	return plans, nil
}

func parsePlan(fullPath, displayPath string) (Plan, error) {
	f, err := os.Open(fullPath)
	if err != nil {
		return Plan{}, fmt.Errorf("open plan %q: %w", displayPath, err)
	}
	defer f.Close()
	return Decode(f, displayPath)
}

// Decode parses a single plan document.
func Decode(r io.Reader, displayPath string) (Plan, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var doc planDocument
	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Plan{}, fmt.Errorf("parse plan %q: %w", displayPath, err)
	}

	pl := Plan{
		Path:     displayPath,
		Scenario: strings.TrimSpace(doc.Scenario),
	}
	if pl.Scenario == "" {
		base := filepath.Base(displayPath)
		pl.Scenario = strings.TrimSuffix(base, filepath.Ext(base))
	}

	seen := make(map[string]struct{}, len(doc.TestCases))
	pl.TestCases = make([]TestCase, 0, len(doc.TestCases))
	for idx, tcDoc := range doc.TestCases {
		tc := TestCase{
			Name:             strings.TrimSpace(tcDoc.Name),
			Description:      tcDoc.Description,
			Shell:            tcDoc.Shell,
			WorkingDirectory: tcDoc.WorkingDirectory,
			Env:              convertEnv(tcDoc.Env),
		}
		if tc.Name == "" {
			tc.Name = fmt.Sprintf("testcase %d", idx+1)
		}
		if _, dup := seen[tc.Name]; dup {
			return Plan{}, fmt.Errorf("parse plan %q: duplicate testcase %q", displayPath, tc.Name)
		}
		seen[tc.Name] = struct{}{}

		w := warner{plan: displayPath, testCase: tc.Name, out: &pl.Warnings}
		var err error
		if tc.Steps, err = convertSteps(tcDoc.Steps, w); err != nil {
			return Plan{}, fmt.Errorf("parse plan %q: %w", displayPath, err)
		}
		for sIdx, sDoc := range tcDoc.Sections {
			section := Section{Name: sDoc.Name}
			if section.Name == "" {
				section.Name = fmt.Sprintf("section %d", sIdx+1)
			}
			if section.Steps, err = convertSteps(sDoc.Steps, w); err != nil {
				return Plan{}, fmt.Errorf("parse plan %q: %w", displayPath, err)
			}
			for subIdx, subDoc := range sDoc.SubSections {
				sub := SubSection{Name: subDoc.Name}
				if sub.Name == "" {
					sub.Name = fmt.Sprintf("sub-section %d", subIdx+1)
				}
				if sub.Steps, err = convertSteps(subDoc.Steps, w); err != nil {
					return Plan{}, fmt.Errorf("parse plan %q: %w", displayPath, err)
				}
				section.SubSections = append(section.SubSections, sub)
			}
			tc.Sections = append(tc.Sections, section)
		}
		if tc.StepCount() == 0 {
			w.warn("testcase has no steps")
		}
		pl.TestCases = append(pl.TestCases, tc)
	}

	return pl, nil
}

type warner struct {
	plan     string
	testCase string
	out      *[]Warning
}

func (w warner) warn(format string, args ...any) {
	*w.out = append(*w.out, Warning{
		Plan:     w.plan,
		TestCase: w.testCase,
		Message:  fmt.Sprintf(format, args...),
	})
}

func convertSteps(docs []stepDocument, w warner) ([]Step, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	steps := make([]Step, 0, len(docs))
	for idx, doc := range docs {
		step := Step{
			Name:        doc.Name,
			Description: doc.Description,
			Run:         doc.Run,
			Env:         convertEnv(doc.Env),
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("step %d", idx+1)
		}
		if doc.Status != "" {
			status, err := report.ParseStatus(doc.Status)
			if err != nil {
				return nil, fmt.Errorf("testcase %q step %q: %w", w.testCase, step.Name, err)
			}
			step.Status = status.String()
			if step.Run != "" {
				w.warn("step %q has an explicit status; run is ignored", step.Name)
				step.Run = ""
			}
		}
		if step.Run == "" && step.Status == "" {
			w.warn("step %q has neither run nor status; reported as DONE", step.Name)
			step.Status = report.StatusDone.String()
		}
		steps = append(steps, step)
	}
	return steps, nil
}

type planDocument struct {
	Scenario  string             `yaml:"scenario"`
	TestCases []testCaseDocument `yaml:"testcases"`
}

type testCaseDocument struct {
	Name             string                 `yaml:"name"`
	Description      string                 `yaml:"description"`
	Shell            string                 `yaml:"shell"`
	WorkingDirectory string                 `yaml:"working_directory"`
	Env              map[string]interface{} `yaml:"env"`
	Steps            []stepDocument         `yaml:"steps"`
	Sections         []sectionDocument      `yaml:"sections"`
}

type sectionDocument struct {
	Name        string               `yaml:"name"`
	Steps       []stepDocument       `yaml:"steps"`
	SubSections []subSectionDocument `yaml:"subsections"`
}

type subSectionDocument struct {
	Name  string         `yaml:"name"`
	Steps []stepDocument `yaml:"steps"`
}

type stepDocument struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Run         string                 `yaml:"run"`
	Status      string                 `yaml:"status"`
	Env         map[string]interface{} `yaml:"env"`
}

func convertEnv(input map[string]interface{}) map[string]string {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
