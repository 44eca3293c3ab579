package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bgricker/testreport/internal/report"
	"github.com/bgricker/testreport/internal/screenshot"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".testreport.yml"

// Config captures batch options sourced from the config file or flags.
type Config struct {
	ProjectName      string `yaml:"project_name"`
	RunConfiguration string `yaml:"run_configuration"`

	ReportPath  string `yaml:"report_path"`
	ResultsRoot string `yaml:"results_root"`
	Theme       string `yaml:"theme"`
	DateFormat  string `yaml:"date_format"`
	LogLevel    string `yaml:"log_level"`

	Formats     Formats     `yaml:"formats"`
	Screenshots Screenshots `yaml:"screenshots"`

	Threads    int    `yaml:"threads"`
	OnError    string `yaml:"on_error"`
	SinkErrors string `yaml:"sink_errors"`

	ExternalResults ExternalResults `yaml:"external_results"`
	Launch          bool            `yaml:"launch"`
	MetricsFile     string          `yaml:"metrics_file"`

	Plans     []string `yaml:"plans"`
	TestCases []string `yaml:"testcases"`
	OnlySteps []string `yaml:"only_step"`
	SkipSteps []string `yaml:"skip_step"`

	DryRun  bool `yaml:"dry_run"`
	Verbose bool `yaml:"verbose"`
}

// Formats selects the sinks written for every document.
type Formats struct {
	Excel   bool `yaml:"excel"`
	HTML    bool `yaml:"html"`
	JSON    bool `yaml:"json"`
	Console bool `yaml:"console"`
}

// Screenshots controls when screenshots are taken and how.
type Screenshots struct {
	Passed bool `yaml:"passed"`
	Failed bool `yaml:"failed"`
	// Command is run through the shell with {path} replaced by the target file.
	Command string `yaml:"command"`
}

// ExternalResults points at results written by an external test framework.
type ExternalResults struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

const (
	// OnErrorNextTestCase continues with the next test case after an error.
	OnErrorNextTestCase = "next_testcase"
	// OnErrorStop skips the remaining test cases after an error.
	OnErrorStop = "stop"

	// DefaultResultsRoot holds the timestamped run directories.
	DefaultResultsRoot = "Results"
	// DefaultExternalResults is where external framework results are expected.
	DefaultExternalResults = "test-output"
)

// Default returns the baseline configuration used when no flags or config file specify values.
func Default() Config {
	return Config{
		ProjectName:      "Automation",
		RunConfiguration: "default",
		ResultsRoot:      DefaultResultsRoot,
		Theme:            "classic",
		DateFormat:       report.DefaultDateFormat,
		LogLevel:         report.StatusDebug.String(),
		Formats: Formats{
			Excel:   true,
			HTML:    true,
			Console: true,
		},
		Screenshots: Screenshots{
			Failed: true,
		},
		Threads:    1,
		OnError:    OnErrorNextTestCase,
		SinkErrors: "propagate",
		ExternalResults: ExternalResults{
			Path: DefaultExternalResults,
		},
	}
}

// Load reads .testreport.yml from root when present. Missing files are ignored.
func Load(root string) (Config, error) {
	cfg, err := LoadFile(filepath.Join(root, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFile reads the config file at path. Keys absent from the file keep
// their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := ValidateYAML(data); err != nil {
		return cfg, &report.ConfigError{Message: fmt.Sprintf("config %q", path), Err: err}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values the schema cannot express.
func (c Config) Validate() error {
	if _, err := report.ParseStatus(c.LogLevel); err != nil {
		return &report.ConfigError{Message: "log_level", Err: err}
	}
	if _, err := report.ParseDispatchMode(c.SinkErrors); err != nil {
		return &report.ConfigError{Message: "sink_errors", Err: err}
	}
	if c.Threads < 1 {
		return report.NewConfigError("threads must be at least 1, got %d", c.Threads)
	}
	switch c.OnError {
	case OnErrorNextTestCase, OnErrorStop:
	default:
		return report.NewConfigError("unknown on_error policy %q", c.OnError)
	}
	if strings.TrimSpace(c.DateFormat) == "" {
		return report.NewConfigError("date_format cannot be empty")
	}
	if strings.TrimSpace(c.ReportPath) == "" && strings.TrimSpace(c.ResultsRoot) == "" {
		return report.NewConfigError("either report_path or results_root must be set")
	}
	if strings.TrimSpace(c.Screenshots.Command) != "" {
		if err := screenshot.CheckTemplate(c.Screenshots.Command); err != nil {
			return err
		}
	}
	return nil
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.ReportPath.Set {
		cfg.ReportPath = flags.ReportPath.Value
	}
	if flags.LogLevel.Set {
		cfg.LogLevel = flags.LogLevel.Value
	}
	if flags.Theme.Set {
		cfg.Theme = flags.Theme.Value
	}
	if flags.OnError.Set {
		cfg.OnError = flags.OnError.Value
	}
	if flags.MetricsFile.Set {
		cfg.MetricsFile = flags.MetricsFile.Value
	}
	if flags.Threads.Set {
		cfg.Threads = flags.Threads.Value
	}
	if len(flags.Plans.Values) > 0 {
		cfg.Plans = append([]string{}, flags.Plans.Values...)
	}
	if len(flags.TestCases.Values) > 0 {
		cfg.TestCases = append([]string{}, flags.TestCases.Values...)
	}
	if len(flags.OnlySteps.Values) > 0 {
		cfg.OnlySteps = append([]string{}, flags.OnlySteps.Values...)
	}
	if len(flags.SkipSteps.Values) > 0 {
		cfg.SkipSteps = append([]string{}, flags.SkipSteps.Values...)
	}
	if flags.DryRun.Set {
		cfg.DryRun = flags.DryRun.Value
	}
	if flags.Verbose.Set {
		cfg.Verbose = flags.Verbose.Value
	}
	if flags.Launch.Set {
		cfg.Launch = flags.Launch.Value
	}
	if flags.Consolidate.Set {
		cfg.ExternalResults.Enabled = flags.Consolidate.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	ReportPath  StringFlag
	LogLevel    StringFlag
	Theme       StringFlag
	OnError     StringFlag
	MetricsFile StringFlag
	Threads     IntFlag
	Plans       SliceFlag
	TestCases   SliceFlag
	OnlySteps   SliceFlag
	SkipSteps   SliceFlag
	DryRun      BoolFlag
	Verbose     BoolFlag
	Launch      BoolFlag
	Consolidate BoolFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// IntFlag represents an int flag and whether it was set.
type IntFlag struct {
	Value int
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}
