package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bgricker/testreport/internal/config"
	"github.com/bgricker/testreport/internal/discovery"
	"github.com/bgricker/testreport/internal/plan"
	"github.com/bgricker/testreport/internal/plan/filter"
	"github.com/bgricker/testreport/internal/report"
	"github.com/bgricker/testreport/internal/runner"
)

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determine working directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return config.Config{}, "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyFlags(&cfg, flags)

	return cfg, root, nil
}

// resolvePaths anchors the relative paths of cfg at root.
func resolvePaths(cfg *config.Config, root string) {
	for _, p := range []*string{&cfg.ReportPath, &cfg.ResultsRoot, &cfg.ExternalResults.Path, &cfg.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
}

func loadPlans(root string, cfg config.Config) ([]plan.Plan, error) {
	paths, err := discovery.Plans(root, cfg.Plans)
	if err != nil {
		if errors.Is(err, discovery.ErrNoPlans) {
			return nil, fmt.Errorf("no test plans found; specify --plan to provide files")
		}
		return nil, err
	}
	plans, err := plan.NewParser(root).Parse(paths)
	if err != nil {
		return nil, err
	}
	if err := runner.CheckReportNames(plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func applyFilters(plans []plan.Plan, cfg config.Config) ([]plan.Plan, error) {
	criteria, err := filter.Compiled(cfg.TestCases, cfg.OnlySteps, cfg.SkipSteps)
	if err != nil {
		return nil, &report.ConfigError{Message: "filter", Err: err}
	}
	return filter.Plans(plans, criteria), nil
}

func countTestCases(plans []plan.Plan) int {
	n := 0
	for _, pl := range plans {
		n += len(pl.TestCases)
	}
	return n
}

func collapseWarnings(plans []plan.Plan) []string {
	var out []string
	for _, pl := range plans {
		for _, w := range pl.Warnings {
			out = append(out, fmt.Sprintf("%s:%s: %s", w.Plan, w.TestCase, w.Message))
		}
	}
	return out
}
