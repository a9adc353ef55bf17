package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hilbench/internal/config"
	"github.com/roach88/hilbench/internal/harness"
	"github.com/roach88/hilbench/internal/influx"
	"github.com/roach88/hilbench/internal/lifecycle"
	"github.com/roach88/hilbench/internal/logging"
	"github.com/roach88/hilbench/internal/mqtt"
	"github.com/roach88/hilbench/internal/plan"
	"github.com/roach88/hilbench/internal/report"
	"github.com/roach88/hilbench/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter    string
	LogFile   string
	HTMLFile  string
	JSONFile  string
	StorePath string
	Watch     bool

	// IDGenerator overrides the run ID generator (for testing).
	// If nil, run IDs are UUIDv7.
	IDGenerator harness.IDGenerator

	// Clock overrides time.Now in the engine and report sinks (for testing).
	Clock func() time.Time

	// Debounce overrides the watch quiet period (for testing).
	Debounce time.Duration

	onRun runHook
}

// RunSummary is the data of a run in JSON output.
type RunSummary struct {
	Bench    string          `json:"bench"`
	Status   string          `json:"status"`
	Summary  harness.Summary `json:"summary"`
	Canceled bool            `json:"canceled,omitempty"`
	Fatal    string          `json:"fatal,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config> <plans-dir>",
		Short: "Initialize the bench and run test plans",
		Long: `Initialize every device declared in the bench config, run the test
plans found under plans-dir and release the bench.

Report files given on the command line override those in the config's
report section. --store overrides store.path.

Exit codes:
  0 - All tests passed
  1 - One or more tests failed, or the bench could not be initialized
  2 - Command error (unreadable config or plans, unusable store, etc.)

Examples:
  hilbench run bench.yaml ./plans
  hilbench run bench.yaml ./plans --filter "*_uart*" --html report.html
  hilbench run bench.yaml ./plans --store runs.db --watch`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, args[0], args[1], cmd)
		},
	}

	// Defaults are the current values so that preset options survive flag
	// registration.
	cmd.Flags().StringVar(&opts.Filter, "filter", opts.Filter, "only load plan files whose name matches this glob")
	cmd.Flags().StringVar(&opts.LogFile, "log", opts.LogFile, "write the text report to this file")
	cmd.Flags().StringVar(&opts.HTMLFile, "html", opts.HTMLFile, "write an HTML report to this file")
	cmd.Flags().StringVar(&opts.JSONFile, "json", opts.JSONFile, "write a JSON report to this file")
	cmd.Flags().StringVar(&opts.StorePath, "store", opts.StorePath, "record the run in this SQLite history database")
	cmd.Flags().BoolVar(&opts.Watch, "watch", opts.Watch, "re-run whenever the config or a plan file changes")

	return cmd
}

func runCommand(opts *RunOptions, cfgPath, plansDir string, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(cmd.ErrOrStderr(), "received %v, stopping after the current group\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Watch {
		return watchBench(ctx, opts, cfgPath, plansDir, cmd, out)
	}
	res, err := runBench(ctx, opts, cfgPath, plansDir, cmd)
	return reportRun(out, res, err)
}

// reportRun turns the outcome of runBench into command output and an exit
// error.
func reportRun(out *OutputFormatter, res harness.Result, err error) error {
	if err != nil {
		return out.Fail(err)
	}

	summary := RunSummary{
		Bench:    res.Bench,
		Status:   report.Outcome(res),
		Summary:  res.Summary,
		Canceled: res.Canceled,
	}
	if res.Fatal != nil {
		summary.Fatal = res.Fatal.Error()
	}
	if err := out.RunResult(res.RunID, res.Passed(), summary); err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}
	if !res.Passed() {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s %s", res.RunID, summary.Status))
	}
	return nil
}

// runBench performs one complete run: load, initialize, execute, release.
// Every call builds fresh devices, a fresh registry and fresh sinks.
func runBench(ctx context.Context, opts *RunOptions, cfgPath, plansDir string, cmd *cobra.Command) (harness.Result, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return harness.Result{}, commandError(CodeConfig, "cannot load config", err)
	}
	opts.applyOverrides(cfg)
	logger := newLogger(cfg.Logging, opts.RootOptions, cmd)

	plans, err := plan.LoadDir(plansDir, opts.Filter)
	if err != nil {
		return harness.Result{}, commandError(CodePlans, "cannot load plans", err)
	}
	groups, err := plan.CompileAll(plans)
	if err != nil {
		return harness.Result{}, commandError(CodePlans, "cannot compile plans", err)
	}
	logger.Debug("plans loaded", "dir", plansDir, "groups", len(groups))

	backend, err := cfg.OpenBackend()
	if err != nil {
		return harness.Result{}, commandError(CodeConfig, "cannot open backend", err)
	}
	buckets, err := cfg.Buckets(backend)
	if err != nil {
		return harness.Result{}, commandError(CodeConfig, "cannot build devices", err)
	}

	sinks, err := openSinks(ctx, cfg, opts, logger, cmd)
	if err != nil {
		return harness.Result{}, err
	}
	defer sinks.close()

	engineOpts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithBench(cfg.Bench.Name),
	}
	if opts.IDGenerator != nil {
		engineOpts = append(engineOpts, harness.WithIDGenerator(opts.IDGenerator))
	}
	if opts.Clock != nil {
		engineOpts = append(engineOpts, harness.WithClock(opts.Clock))
	}

	manager := lifecycle.NewManager(buckets, lifecycle.WithLogger(logger))
	eng := harness.NewEngine(manager, sinks.multi, engineOpts...)
	eng.AddGroup(groups...)

	return eng.RunAll(ctx), nil
}

func (o *RunOptions) applyOverrides(cfg *config.Config) {
	if o.LogFile != "" {
		cfg.Report.LogFile = o.LogFile
	}
	if o.HTMLFile != "" {
		cfg.Report.HTMLFile = o.HTMLFile
	}
	if o.JSONFile != "" {
		cfg.Report.JSONFile = o.JSONFile
	}
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
}

// newLogger writes diagnostics to the command's stderr unless the config
// asks for stdout.
func newLogger(cfg config.LoggingConfig, root *RootOptions, cmd *cobra.Command) *slog.Logger {
	w := cmd.ErrOrStderr()
	if strings.EqualFold(cfg.Output, "stdout") {
		w = cmd.OutOrStdout()
	}
	if root.Verbose {
		cfg.Level = "debug"
	}
	return logging.NewWithWriter(cfg, Version, w)
}

// runSinks owns the report sinks of one run and the connections behind
// them.
type runSinks struct {
	multi   *report.Multi
	closers []func() error
	logger  *slog.Logger
}

func (s *runSinks) close() {
	if err := s.multi.Close(); err != nil {
		s.logger.Warn("report delivery failed", "error", err)
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", "error", err)
		}
	}
}

// openSinks builds the reporters requested by cfg. File and store failures
// are command errors; an unreachable broker or InfluxDB only loses that
// sink.
func openSinks(ctx context.Context, cfg *config.Config, opts *RunOptions, logger *slog.Logger, cmd *cobra.Command) (*runSinks, error) {
	sinkOpts := []report.Option{report.WithLogger(logger)}
	if opts.Clock != nil {
		sinkOpts = append(sinkOpts, report.WithClock(opts.Clock))
	}

	s := &runSinks{multi: report.NewMulti(), logger: logger}
	fail := func(err error) (*runSinks, error) {
		s.close()
		return nil, err
	}

	if opts.Format != "json" {
		s.multi.Add(report.NewConsole(cmd.OutOrStdout()))
	}
	if cfg.Report.LogFile != "" {
		logFile, err := report.NewLogFile(cfg.Report.LogFile)
		if err != nil {
			return fail(commandError(CodeConfig, "cannot open log file", err))
		}
		s.multi.Add(logFile)
	}
	if cfg.Report.HTMLFile != "" {
		htmlSink, err := report.NewHTML(cfg.Report.HTMLFile, sinkOpts...)
		if err != nil {
			return fail(commandError(CodeConfig, "cannot open html report", err))
		}
		s.multi.Add(htmlSink)
	}
	if cfg.Report.JSONFile != "" {
		jsonSink, err := report.NewJSON(cfg.Report.JSONFile, sinkOpts...)
		if err != nil {
			return fail(commandError(CodeConfig, "cannot open json report", err))
		}
		s.multi.Add(jsonSink)
	}

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path, cfg.Store.BusyTimeout)
		if err != nil {
			return fail(commandError(CodeStore, "cannot open history store", err))
		}
		s.closers = append(s.closers, st.Close)
		// Writes outlive ctx so the cleanup phase of a canceled run is
		// still recorded.
		s.multi.Add(report.NewHistory(context.WithoutCancel(ctx), st, sinkOpts...))
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT, cfg.Bench.Name)
		if err != nil {
			logger.Warn("mqtt reporting disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			s.closers = append(s.closers, client.Close)
			s.multi.Add(report.NewMQTT(client, sinkOpts...))
		}
	}

	if cfg.InfluxDB.Enabled {
		client, err := influx.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			logger.Warn("influxdb reporting disabled", "url", cfg.InfluxDB.URL, "error", err)
		} else {
			s.closers = append(s.closers, client.Close)
			s.multi.Add(report.NewInflux(context.WithoutCancel(ctx), client, sinkOpts...))
		}
	}

	logger.Debug("report sinks ready", "count", s.multi.Len())
	return s, nil
}
