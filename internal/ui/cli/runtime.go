package cli

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"
	coreapp "treegrep/internal/core/app"
	"treegrep/internal/core/config"
	"treegrep/internal/core/errors"
	"treegrep/internal/engine/extract"
	"treegrep/internal/shared/observability"
	"treegrep/internal/shared/util"
	"treegrep/internal/ui/report/formats"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// environment is the process surface one invocation writes to.
type environment struct {
	stdout io.Writer
	stderr io.Writer
	// exitCode is the status of a run that completed without a fatal error.
	exitCode int
}

// Run executes treegrep with args (without the program name) and returns
// the process exit status: 0 on success, including searches without
// matches, 1 on fatal errors or, with --fail-on-error, unsearchable files,
// and 2 on command-line misuse.
func Run(args []string, stdout, stderr io.Writer) int {
	env := &environment{stdout: stdout, stderr: stderr}

	expanded, err := expandQueryArgs(args)
	if err != nil {
		return env.fail(err)
	}
	cmd := newRootCommand(env)
	cmd.SetArgs(expanded)
	if err := cmd.Execute(); err != nil {
		return env.fail(err)
	}
	return env.exitCode
}

func (env *environment) fail(err error) int {
	if stderrors.Is(err, syscall.EPIPE) {
		return 0
	}
	var usage usageError
	if stderrors.As(err, &usage) {
		fmt.Fprintf(env.stderr, "treegrep: %v\nRun 'treegrep --help' for usage.\n", err)
		return 2
	}
	fmt.Fprintf(env.stderr, "treegrep: %v\n", err)
	return 1
}

func runSearch(cmd *cobra.Command, env *environment, opts *cliOptions) error {
	if len(opts.queries) == 0 {
		return usageErrorf("at least one query is required (-q LANGUAGE QUERY)")
	}
	pairs, err := queryPairs(opts.queries)
	if err != nil {
		return err
	}
	types, err := typeRules(opts.typeAdds)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	closeLogs := configureLogging(env.stderr, opts.verbose, cfg.Observability.LogFile)
	defer closeLogs()

	runID := uuid.NewString()
	slog.SetDefault(slog.Default().With("run_id", runID))

	runCfg, err := config.NewRunConfig(cfg, config.GroupQueries(pairs), opts.paths)
	if err != nil {
		return err
	}
	// Flag rules come first; the first matching glob wins.
	runCfg.Types = append(types, runCfg.Types...)
	runCfg.Watch = opts.watch

	format, err := formats.ParseFormat(runCfg.Format)
	if err != nil {
		return err
	}
	renderer, err := formats.NewRenderer(format, colorEnabled(runCfg.Color, env.stdout))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, runID)
	if err != nil {
		return errors.Wrap(err, errors.CodeConfig, "set up tracing")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		server := NewObservabilityServer(addr, runID)
		if err := server.Start(ctx); err != nil {
			return errors.Wrap(err, errors.CodeConfig, "start metrics server")
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	var progress *observability.Progress
	if opts.progress {
		progress = observability.NewProgress(env.stderr, "searching")
	}

	a, err := coreapp.New(runCfg, coreapp.WithProgress(progress))
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Debug("starting search",
		"languages", a.Languages(),
		"paths", runCfg.Paths,
		"workers", runCfg.Workers,
		"gitignore", runCfg.GitIgnore,
	)
	res, err := a.Run(ctx)
	progress.Finish()
	if err != nil {
		return err
	}

	out := bufio.NewWriter(env.stdout)
	if err := renderer.Render(out, coreapp.Aggregate(res.Files, runCfg.Sort)); err != nil {
		return err
	}
	if err := outputFlush(out.Flush()); err != nil {
		return err
	}

	reportFailures(env.stderr, res.Failures)
	writeMetricsFile(cfg.Observability.MetricsFile)
	if runCfg.FailOnError && len(res.Failures) > 0 {
		env.exitCode = 1
	}

	if !runCfg.Watch {
		return nil
	}
	err = a.Watch(ctx, func(file *extract.File) error {
		if err := renderer.RenderFile(out, file); err != nil {
			return err
		}
		return outputFlush(out.Flush())
	})
	writeMetricsFile(cfg.Observability.MetricsFile)
	return err
}

// loadConfig resolves the config file, applies TREEGREP_* environment
// overrides, then the flags the user set explicitly.
func loadConfig(cmd *cobra.Command, opts *cliOptions) (*config.Config, error) {
	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvOverrides(cfg)

	flags := cmd.Flags()
	if flags.Changed("format") {
		if _, err := formats.ParseFormat(opts.format); err != nil {
			return nil, usageError{err: err}
		}
		cfg.Output.Format = opts.format
	}
	if flags.Changed("sort") {
		cfg.Output.Sort = opts.sort
	}
	if flags.Changed("color") {
		if !slices.Contains(config.ColorModes, strings.ToLower(opts.color)) {
			return nil, usageErrorf("invalid --color %q: want one of %s", opts.color, strings.Join(config.ColorModes, ", "))
		}
		cfg.Output.Color = opts.color
	}
	if flags.Changed("no-gitignore") {
		enabled := !opts.noGitIgnore
		cfg.Walk.GitIgnore = &enabled
	}
	if flags.Changed("hidden") {
		cfg.Walk.Hidden = opts.hidden
	}
	if flags.Changed("threads") {
		if opts.threads < 0 {
			return nil, usageErrorf("invalid --threads %d: must be >= 0", opts.threads)
		}
		cfg.Extraction.Workers = opts.threads
	}
	if flags.Changed("fail-on-error") {
		cfg.Extraction.FailOnError = opts.failOnError
	}
	if flags.Changed("debounce") {
		cfg.Watch.Debounce = opts.debounce
	}
	if flags.Changed("log-file") {
		cfg.Observability.LogFile = opts.logFile
	}
	if flags.Changed("metrics-file") {
		cfg.Observability.MetricsFile = opts.metricsFile
	}
	if flags.Changed("metrics-addr") {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	if flags.Changed("otlp-endpoint") {
		cfg.Observability.OTLPEndpoint = opts.otlpEndpoint
	}
	return cfg, nil
}

// configureLogging installs the default slog logger. Logs go to stderr at
// Warn so they never mix with results, or to a rotating file when logFile
// is set.
func configureLogging(stderr io.Writer, verbose bool, logFile string) func() {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if logFile != "" {
		if err := util.EnsureParentDir(logFile); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logFile, err)
		} else {
			rotating := &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			}
			output = rotating
			closeFn = func() { _ = rotating.Close() }
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

// colorEnabled resolves a validated color mode. "auto" colors only a
// terminal stdout, and never when NO_COLOR is set.
func colorEnabled(mode string, stdout io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func reportFailures(w io.Writer, failures []coreapp.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "treegrep: %d file(s) could not be searched:\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "  %s: %v\n", f.Path, f.Err)
	}
}

func writeMetricsFile(path string) {
	if path == "" {
		return
	}
	if err := util.EnsureParentDir(path); err != nil {
		slog.Warn("failed to create metrics dir", "path", path, "error", err)
		return
	}
	if err := observability.WriteTextfile(path); err != nil {
		slog.Warn("failed to write metrics file", "path", path, "error", err)
	}
}
