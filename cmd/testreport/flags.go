package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/testreport/internal/config"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	for name, target := range map[string]*config.SliceFlag{
		"plan":      &values.Plans,
		"testcase":  &values.TestCases,
		"only-step": &values.OnlySteps,
		"skip-step": &values.SkipSteps,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetStringArray(name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", name, err)
		}
		*target = config.SliceFlag{Values: append([]string{}, v...)}
	}

	for name, target := range map[string]*config.StringFlag{
		"report-path":  &values.ReportPath,
		"log-level":    &values.LogLevel,
		"theme":        &values.Theme,
		"on-error":     &values.OnError,
		"metrics-file": &values.MetricsFile,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", name, err)
		}
		*target = config.StringFlag{Value: v, Set: true}
	}

	for name, target := range map[string]*config.BoolFlag{
		"dry-run":     &values.DryRun,
		"verbose":     &values.Verbose,
		"launch":      &values.Launch,
		"consolidate": &values.Consolidate,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", name, err)
		}
		*target = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("threads") {
		v, err := flags.GetInt("threads")
		if err != nil {
			return values, fmt.Errorf("parse --threads: %w", err)
		}
		values.Threads = config.IntFlag{Value: v, Set: true}
	}

	return values, nil
}
