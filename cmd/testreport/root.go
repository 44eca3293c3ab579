package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "testreport",
		Short:         "Testreport runs test plans and writes test logs and a result summary",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.StringArray("plan", nil, "test plan file or directory to include")
	persistent.StringArray("testcase", nil, "testcase filter (repeatable)")
	persistent.StringArray("only-step", nil, "include only matching steps")
	persistent.StringArray("skip-step", nil, "exclude matching steps")
	persistent.Bool("dry-run", false, "report steps as DONE without executing them")
	persistent.BoolP("verbose", "v", false, "stream command output and debug logs")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}
