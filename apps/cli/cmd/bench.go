package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pollhttp/packages/core/batch"
	"github.com/abdul-hamid-achik/pollhttp/packages/core/env"
	"github.com/abdul-hamid-achik/pollhttp/packages/stats"
	"github.com/abdul-hamid-achik/pollhttp/packages/stress"
)

var benchCmd = &cobra.Command{
	Use:   "bench <file>",
	Short: "Send batch requests at a fixed rate and report latency",
	Long: `Send the requests of a batch file at a fixed rate for a fixed duration.
Each request is picked at random in proportion to its weight. Sends beyond
the pool size are rejected and counted, never queued.

Examples:
  pollhttp bench api.yaml -d 30s -r 50
  pollhttp bench api.yaml -d 1m -r 100 --threshold "p95<200ms,errors<1%"
  pollhttp bench api.yaml -d 10s -r 20 --json`,
	Args: cobra.ExactArgs(1),
	RunE: benchCommand,
}

var (
	benchDurationFlag   time.Duration
	benchRateFlag       float64
	benchTickFlag       time.Duration
	benchDrainFlag      time.Duration
	benchThresholdFlag  string
	benchNoProgressFlag bool
	benchJSONFlag       bool
)

func init() {
	benchCmd.Flags().DurationVarP(&benchDurationFlag, "duration", "d", stress.DefaultDuration, "How long to send")
	benchCmd.Flags().Float64VarP(&benchRateFlag, "rate", "r", stress.DefaultRate, "Target requests per second")
	benchCmd.Flags().DurationVar(&benchTickFlag, "tick", stress.DefaultTick, "Interval between send and poll rounds")
	benchCmd.Flags().DurationVar(&benchDrainFlag, "drain", stress.DefaultDrain, "How long pending requests may finish after sending stops")
	benchCmd.Flags().StringVar(&benchThresholdFlag, "threshold", "", `Pass/fail thresholds (e.g. "p95<200ms,errors<0.1%")`)
	benchCmd.Flags().BoolVar(&benchNoProgressFlag, "no-progress", false, "Disable real-time progress display")
	benchCmd.Flags().BoolVar(&benchJSONFlag, "json", false, "Output results as JSON")
}

func benchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	thresholds, err := stats.ParseThresholds(benchThresholdFlag)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	benchCfg := &stress.Config{
		Duration:   benchDurationFlag,
		Rate:       benchRateFlag,
		Tick:       benchTickFlag,
		Drain:      benchDrainFlag,
		Thresholds: thresholds,
	}
	if err := benchCfg.Validate(); err != nil {
		return withExitCode(ExitUsageError, err)
	}

	file, err := batch.Load(args[0])
	if err != nil {
		return withExitCode(ExitParseError, err)
	}
	targets, err := buildTargets(file)
	if err != nil {
		return withExitCode(ExitParseError, err)
	}

	logger := newLogger(cmd.ErrOrStderr())
	recorder := stats.NewRecorder()
	sess, err := newSession(cfg, logger, recorder)
	if err != nil {
		return err
	}
	defer sess.Close()

	reporter := stress.NewReporter(
		stress.WithWriter(cmd.OutOrStdout()),
		stress.WithNoColor(cfg.GetNoColor()),
		stress.WithNoProgress(benchNoProgressFlag || benchJSONFlag),
		stress.WithVerbose(cfg.GetVerbose()),
	)

	opts := []stress.BenchOption{stress.WithLogger(logger)}
	if !benchJSONFlag {
		opts = append(opts, stress.WithReporter(reporter))
	}
	bench := stress.NewBench(benchCfg, sess.engine, recorder, opts...)
	for _, t := range targets {
		bench.AddTarget(t)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := bench.Run(ctx)
	if err != nil && result == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted, partial results follow")
	}

	if benchJSONFlag {
		if err := reporter.JSONSummary(result); err != nil {
			return err
		}
	}

	if result.HasThresholdFailures() {
		return withExitCode(ExitTestFailure, nil)
	}
	return nil
}

// buildTargets resolves the batch variables once; captures do not apply
// under load, so templates referring to them stay as written
func buildTargets(file *batch.File) ([]stress.Target, error) {
	resolver := env.NewResolver()
	if file.Env != "" {
		path := file.Env
		if !filepath.IsAbs(path) {
			path = filepath.Join(file.Dir(), path)
		}
		vars, err := env.LoadDotEnv(path)
		if err != nil {
			return nil, err
		}
		resolver.SetVariables(env.Variables(vars))
	}
	resolver.SetVariables(file.Variables)
	for k, v := range varFlags {
		resolver.SetVariable(k, v)
	}

	var targets []stress.Target
	for _, r := range file.Targets() {
		req, err := r.Build(resolver.Resolve)
		if err != nil {
			return nil, err
		}
		targets = append(targets, stress.Target{Name: r.Name, Request: req, Weight: r.Weight})
	}
	if len(targets) == 0 {
		return nil, errors.New("every request in the file is skipped")
	}
	return targets, nil
}
