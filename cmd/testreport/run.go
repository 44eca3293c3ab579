package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/bgricker/testreport/internal/metrics"
	"github.com/bgricker/testreport/internal/output"
	"github.com/bgricker/testreport/internal/report"
	"github.com/bgricker/testreport/internal/runner"
	"github.com/bgricker/testreport/internal/screenshot"
	"github.com/bgricker/testreport/internal/summary"
)

// errTestsFailed is returned when the batch ran but at least one test case failed.
var errTestsFailed = errors.New("one or more test cases failed")

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute test plans and write the test reports",
		RunE:  runExecute,
	}
	flags := cmd.Flags()
	flags.String("report-path", "", "directory receiving the reports (default: a timestamped run directory)")
	flags.String("log-level", "", "most verbose step status written to reports (PASS|FAIL|DONE|SCREENSHOT|WARNING|DEBUG)")
	flags.String("theme", "", "report theme (classic|mystic|olive|autumn)")
	flags.String("on-error", "", "policy after a failed test case (next_testcase|stop)")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile")
	flags.Int("threads", 1, "number of test cases run in parallel")
	flags.Bool("launch", false, "open the result summary when the batch finishes")
	flags.Bool("consolidate", false, "copy external framework results into the report directory")
	return cmd
}

func runExecute(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	resolvePaths(&cfg, root)

	plans, err := loadPlans(root, cfg)
	if err != nil {
		return err
	}
	filtered, err := applyFilters(plans, cfg)
	if err != nil {
		return err
	}
	if countTestCases(filtered) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching test cases or steps")
		return nil
	}

	theme, err := output.ThemeByName(cfg.Theme)
	if err != nil {
		return &report.ConfigError{Message: "theme", Err: err}
	}

	capturer, err := screenshot.New(cfg.Screenshots.Command, "")
	if err != nil {
		return err
	}

	console := output.NewSyncWriter(cmd.OutOrStdout())
	log := newLogger(cmd.ErrOrStderr(), nil, cfg.Verbose)
	collector := metrics.NewCollector()
	factory := output.NewFactory(cfg.Formats, theme, console)

	mgr := summary.New(summary.Options{
		Logger:   log,
		Sinks:    factory.Sinks,
		Observer: collector,
	})
	if err := mgr.StartBatch(cfg); err != nil {
		return err
	}

	errLog, err := mgr.SetupErrorLog()
	if err != nil {
		log.Warn().Err(err).Msg("error log unavailable")
	} else {
		defer errLog.Close()
		log = newLogger(cmd.ErrOrStderr(), errLog, cfg.Verbose)
		mgr.SetLogger(log)
	}
	log.Info().
		Str("batch", mgr.BatchID().String()).
		Str("report_path", mgr.ReportPath()).
		Int("testcases", countTestCases(filtered)).
		Msg("batch started")
	for _, w := range collapseWarnings(filtered) {
		log.Warn().Msg(w)
	}

	if err := mgr.StartSummaryReport(cfg.Threads); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	r := runner.New(runner.Options{
		Root:     root,
		Stdout:   console,
		Stderr:   cmd.ErrOrStderr(),
		Verbose:  cfg.Verbose,
		DryRun:   cfg.DryRun,
		Threads:  cfg.Threads,
		OnError:  cfg.OnError,
		Project:  cfg.ProjectName,
		Sinks:    factory.Sinks,
		Capturer: capturer,
		Observer: collector,
		Logger:   log,
	})
	stats, runErr := r.Run(ctx, mgr, filtered)
	if stats.Skipped > 0 {
		log.Warn().Int("skipped", stats.Skipped).Msg("test cases skipped")
	}

	totals, finishErr := mgr.FinishBatch(cfg.ExternalResults.Enabled)

	if cfg.Launch {
		// Launch logs its own failures.
		_ = mgr.Launch(summary.SystemOpener)
	}
	if cfg.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn().Err(err).Msg("metrics not written")
		}
	}

	var errs *multierror.Error
	if runErr != nil {
		errs = multierror.Append(errs, runErr)
	}
	if finishErr != nil {
		errs = multierror.Append(errs, finishErr)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	if totals.Failed > 0 {
		return errTestsFailed
	}
	return nil
}
