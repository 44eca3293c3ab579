// Package runner executes test plans and reports every test case as a test
// log plus a row in the batch result summary.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/bgricker/testreport/internal/config"
	"github.com/bgricker/testreport/internal/plan"
	"github.com/bgricker/testreport/internal/report"
	"github.com/bgricker/testreport/internal/shell"
	"github.com/bgricker/testreport/internal/summary"
)

// Batch is the part of the summary manager a runner reports into.
type Batch interface {
	Settings(reportName string) report.Settings
	RecordTestResult(result report.TestResult) error
}

// Options configure how the runner executes test cases.
type Options struct {
	Root      string
	Env       []string
	Stdout    io.Writer
	Stderr    io.Writer
	Verbose   bool
	DryRun    bool
	TailLines int
	Threads   int
	OnError   string
	Project   string
	Now       func() time.Time

	Sinks    summary.SinkFactory
	Capturer report.Capturer
	Observer report.Observer
	Logger   zerolog.Logger
}

// Stats describe what a Run did.
type Stats struct {
	Executed int
	Skipped  int
	Passed   int
	Failed   int
}

// Runner executes test cases on a pool of Threads workers.
type Runner struct {
	opts Options
	log  zerolog.Logger
}

// New creates a runner with the supplied options.
func New(opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.TailLines <= 0 {
		opts.TailLines = 20
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sinks == nil {
		opts.Sinks = func(report.Settings) ([]report.Sink, error) { return nil, nil }
	}
	return &Runner{
		opts: opts,
		log:  opts.Logger.With().Str("component", "runner").Logger(),
	}
}

type job struct {
	scenario string
	tc       plan.TestCase
}

// Run executes every test case of plans. Test case failures are reported,
// not returned; the error carries reporting problems such as a summary that
// could not be written. With OnError "stop" the first failed test case
// prevents any test case that has not started yet from running.
func (r *Runner) Run(ctx context.Context, batch Batch, plans []plan.Plan) (Stats, error) {
	if err := CheckReportNames(plans); err != nil {
		return Stats{}, err
	}

	var jobs []job
	for _, pl := range plans {
		for _, tc := range pl.TestCases {
			jobs = append(jobs, job{scenario: pl.Scenario, tc: tc})
		}
	}

	var (
		mu    sync.Mutex
		stats Stats
		errs  *multierror.Error
		stop  atomic.Bool
	)

	pool := workerpool.New(r.opts.Threads)
	for _, j := range jobs {
		j := j
		pool.Submit(func() {
			if stop.Load() || ctx.Err() != nil {
				mu.Lock()
				stats.Skipped++
				mu.Unlock()
				r.log.Info().Str("testcase", j.tc.Name).Msg("testcase skipped")
				return
			}

			passed, err := r.runTestCase(ctx, batch, j.scenario, j.tc)
			if !passed && r.opts.OnError == config.OnErrorStop {
				stop.Store(true)
			}

			mu.Lock()
			defer mu.Unlock()
			stats.Executed++
			if passed {
				stats.Passed++
			} else {
				stats.Failed++
			}
			if err != nil {
				errs = multierror.Append(errs, err)
			}
		})
	}
	pool.StopWait()

	return stats, errs.ErrorOrNil()
}

// CheckReportNames rejects plans in which two test cases share a report name.
// Their test logs would be written to the same files.
func CheckReportNames(plans []plan.Plan) error {
	seen := make(map[string]string)
	var dups []string
	for _, pl := range plans {
		for _, tc := range pl.TestCases {
			name := report.TestLogName(pl.Scenario, tc.Name)
			where := pl.Path + ":" + tc.Name
			if first, ok := seen[name]; ok {
				dups = append(dups, fmt.Sprintf("%s (%s, %s)", name, first, where))
				continue
			}
			seen[name] = where
		}
	}
	if len(dups) > 0 {
		return report.NewConfigError("duplicate test case report names: %s", strings.Join(dups, "; "))
	}
	return nil
}

// runTestCase writes the test log of tc and records its summary row.
func (r *Runner) runTestCase(ctx context.Context, batch Batch, scenario string, tc plan.TestCase) (bool, error) {
	name := report.TestLogName(scenario, tc.Name)
	log := r.log.With().Str("testcase", name).Logger()
	settings := batch.Settings(name)

	start := r.opts.Now()
	result := report.TestResult{
		Scenario:    scenario,
		TestCase:    tc.Name,
		Description: tc.Description,
		Status:      report.TestFailed,
	}

	sinks, err := r.opts.Sinks(settings)
	if err != nil {
		result.Description = appendDescription(result.Description, err.Error())
		log.Error().Err(err).Msg("create sinks")
		return false, batch.RecordTestResult(result)
	}

	rep := report.New(settings, sinks,
		report.WithCapturer(r.opts.Capturer),
		report.WithObserver(r.opts.Observer),
		report.WithLogger(log),
		report.WithClock(r.opts.Now),
	)

	runErr := r.writeTestLog(ctx, rep, scenario, tc, start)
	elapsed := r.opts.Now().Sub(start)
	if runErr == nil {
		if err := rep.Finalize(elapsed); err != nil {
			log.Error().Err(err).Msg("write footer")
		}
	} else {
		log.Error().Err(runErr).Msg("testcase aborted")
	}
	if err := rep.Close(); err != nil {
		log.Warn().Err(err).Msg("close test log")
	}

	result.ExecutionTime = elapsed
	result.Status = rep.TestStatus()
	if fd := rep.FailureDescription(); fd != "" {
		result.Description = appendDescription(result.Description, fd)
	}
	if runErr != nil {
		result.Status = report.TestFailed
		result.Description = appendDescription(result.Description, runErr.Error())
	}

	passed := strings.EqualFold(result.Status, report.TestPassed)
	log.Info().Str("status", result.Status).Dur("elapsed", elapsed).Msg("testcase finished")
	if err := batch.RecordTestResult(result); err != nil {
		return passed, fmt.Errorf("record %q: %w", name, err)
	}
	return passed, nil
}

func appendDescription(desc, msg string) string {
	if desc == "" {
		return msg
	}
	return desc + ": " + msg
}

func (r *Runner) writeTestLog(ctx context.Context, rep *report.Report, scenario string, tc plan.TestCase, start time.Time) error {
	settings := rep.Settings()
	if err := rep.Initialize(); err != nil {
		return err
	}
	heading := strings.Join(nonEmpty(r.opts.Project, scenario, tc.Name), " - ")
	if err := rep.AddHeading(heading); err != nil {
		return err
	}
	if err := rep.AddSubHeading("Date & Time", start.Format(settings.DateFormat), "Description", tc.Description); err != nil {
		return err
	}
	if err := rep.AddTableHeadings(); err != nil {
		return err
	}

	if err := r.logSteps(ctx, rep, tc, tc.Steps); err != nil {
		return err
	}
	for _, section := range tc.Sections {
		if err := rep.BeginSection(section.Name); err != nil {
			return err
		}
		if err := r.logSteps(ctx, rep, tc, section.Steps); err != nil {
			return err
		}
		for _, sub := range section.SubSections {
			if err := rep.BeginSubSection(sub.Name); err != nil {
				return err
			}
			if err := r.logSteps(ctx, rep, tc, sub.Steps); err != nil {
				return err
			}
		}
	}
	return nil
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (r *Runner) logSteps(ctx context.Context, rep *report.Report, tc plan.TestCase, steps []plan.Step) error {
	for _, step := range steps {
		status, description, err := r.runStep(ctx, tc, step)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
		if err := rep.LogStep(step.Name, description, status); err != nil {
			return err
		}
	}
	return nil
}

// runStep decides the status of a step: an explicit status is reported as
// is, a dry run reports DONE and a command passes on exit code 0.
func (r *Runner) runStep(ctx context.Context, tc plan.TestCase, step plan.Step) (report.Status, string, error) {
	if step.Status != "" {
		status, err := report.ParseStatus(step.Status)
		return status, step.Description, err
	}
	if r.opts.DryRun {
		return report.StatusDone, appendDescription(step.Description, "dry run: "+step.Run), nil
	}

	res := r.execute(ctx, tc, step)
	if res.exitCode == 0 {
		desc := step.Description
		if desc == "" {
			desc = "exit code 0"
		}
		return report.StatusPass, desc, nil
	}

	msg := fmt.Sprintf("exit code %d", res.exitCode)
	if tail := strings.TrimSpace(shell.TailLines(res.stderr, r.opts.TailLines)); tail != "" {
		msg += ": " + tail
	}
	return report.StatusFail, appendDescription(step.Description, msg), nil
}

type execResult struct {
	stderr   string
	exitCode int
}

func (r *Runner) execute(ctx context.Context, tc plan.TestCase, step plan.Step) execResult {
	workingDir, err := shell.ResolveDir(r.opts.Root, tc.WorkingDirectory)
	if err != nil {
		return execResult{stderr: err.Error(), exitCode: 127}
	}
	args := shell.Args(tc.Shell, step.Run)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = workingDir
	cmd.Env = shell.MergeEnv(r.opts.Env, tc.Env, step.Env)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	if r.opts.Verbose {
		cmd.Stdout = r.opts.Stdout
		cmd.Stderr = io.MultiWriter(r.opts.Stderr, &stderrBuf)
	}

	err = cmd.Run()
	res := execResult{
		stderr:   stderrBuf.String(),
		exitCode: shell.ExitCode(err),
	}
	var exitErr *exec.ExitError
	if err != nil && res.stderr == "" && !errors.As(err, &exitErr) {
		res.stderr = err.Error()
	}
	return res
}
