package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/pollhttp/packages/core/batch"
	"github.com/abdul-hamid-achik/pollhttp/packages/core/config"
	"github.com/abdul-hamid-achik/pollhttp/packages/core/runner"
	"github.com/abdul-hamid-achik/pollhttp/packages/output"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run batch files",
	Long: `Run the requests of one or more YAML batch files. Requests are all
submitted up front and collected by polling; requests beyond the pool size
wait in a backlog.

Examples:
  pollhttp run api.yaml
  pollhttp run ./batches/ --name "users-*"
  pollhttp run api.yaml -o junit --output-file report.xml
  pollhttp run api.yaml --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	nameFlag       string
	bailFlag       bool
	outputFlag     string
	outputFileFlag string
	watchFlag      bool
	varFlags       map[string]string
)

func init() {
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only requests whose name matches this glob")
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("POLLHTTP_BAIL", false), "Stop on first failure (env: POLLHTTP_BAIL)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("POLLHTTP_OUTPUT", "console"), "Output format: console, json, junit (env: POLLHTTP_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write output to file (default: stdout)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run them")
	runCmd.Flags().StringToStringVar(&varFlags, "var", nil, "Set a template variable (key=value, repeatable)")
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no .yaml or .yml batch files found"))
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	formatter, err := output.New(outputFlag, out, cfg.GetVerbose(), cfg.GetNoColor())
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	logger := newLogger(cmd.ErrOrStderr())
	sess, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	r := runner.NewRunner(sess.engine, &runner.Config{
		PollInterval: cfg.PollInterval,
		Bail:         bailFlag,
		NameFilter:   nameFlag,
		Logger:       logger,
	})
	for k, v := range varFlags {
		r.Resolver().SetVariable(k, v)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := runFiles(ctx, r, files, formatter)

	if !watchFlag {
		if code != ExitSuccess {
			return withExitCode(code, nil)
		}
		return nil
	}

	return watchFiles(ctx, cmd, files, func() {
		fmt.Fprintf(cmd.OutOrStdout(), "\nRe-running...\n")
		runFiles(ctx, r, files, formatter)
		fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
	})
}

// runFiles runs every file in order and returns the exit code for the lot
func runFiles(ctx context.Context, r *runner.Runner, files []string, formatter output.Formatter) int {
	code := ExitSuccess
	start := time.Now()

	for _, file := range files {
		f, err := batch.Load(file)
		if err != nil {
			formatter.FormatError(err)
			code = ExitParseError
			if bailFlag {
				break
			}
			continue
		}

		result, err := r.Run(ctx, f)
		if err != nil {
			formatter.FormatError(err)
			if code == ExitSuccess {
				code = ExitTestFailure
			}
			if result != nil {
				formatter.FormatResult(result)
			}
			break
		}

		formatter.FormatResult(result)
		if !result.Success() && code == ExitSuccess {
			code = ExitTestFailure
		}
		if bailFlag && !result.Success() {
			break
		}
	}

	if err := formatter.Flush(time.Since(start)); err != nil {
		formatter.FormatError(fmt.Errorf("error writing output: %w", err))
	}
	return code
}

// watchFiles calls rerun, debounced, whenever a watched batch file changes
func watchFiles(ctx context.Context, cmd *cobra.Command, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		watched[dir] = true
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

	// The runner is single-goroutine, so reruns happen on this loop, not in
	// the timer's goroutine
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isBatchFile(event.Name) && filepath.Base(event.Name) != ".env" {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(WatchDebounceDelay)
			} else {
				debounce.Reset(WatchDebounceDelay)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			rerun()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watcher error: %v\n", err)
		}
	}
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isBatchFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// isBatchFile accepts YAML files other than pollhttp config files
func isBatchFile(path string) bool {
	if slices.Contains(config.ConfigFilenames, filepath.Base(path)) {
		return false
	}
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
