package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bgricker/testreport/internal/output"
	"github.com/bgricker/testreport/internal/plan"
)

const (
	formatPretty = "pretty"
	formatJSON   = "json"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List test plans, test cases and steps",
		RunE:  runList,
	}
	cmd.Flags().String("format", formatPretty, "output format (pretty|json)")
	return cmd
}

// listReport is the JSON form of the list command.
type listReport struct {
	Plans    []plan.Plan `json:"plans"`
	Summary  listSummary `json:"summary"`
	Warnings []string    `json:"warnings,omitempty"`
}

type listSummary struct {
	Plans     int `json:"plans"`
	TestCases int `json:"testcases"`
	Steps     int `json:"steps"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("parse --format: %w", err)
	}

	plans, err := loadPlans(root, cfg)
	if err != nil {
		return err
	}
	filtered, err := applyFilters(plans, cfg)
	if err != nil {
		return err
	}

	if len(filtered) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching test cases or steps")
		return nil
	}

	switch strings.ToLower(format) {
	case formatPretty:
		return output.NewPretty(cmd.OutOrStdout()).RenderPlans(filtered)
	case formatJSON:
		return output.NewJSON(cmd.OutOrStdout()).Render(listReport{
			Plans:    filtered,
			Summary:  computeListSummary(filtered),
			Warnings: collapseWarnings(filtered),
		})
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func computeListSummary(plans []plan.Plan) listSummary {
	s := listSummary{Plans: len(plans), TestCases: countTestCases(plans)}
	for _, pl := range plans {
		for _, tc := range pl.TestCases {
			s.Steps += tc.StepCount()
		}
	}
	return s
}
