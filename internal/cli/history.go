package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/hilbench/internal/config"
	"github.com/roach88/hilbench/internal/report"
	"github.com/roach88/hilbench/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	StorePath  string
	ConfigPath string
	Limit      int
	RunID      string
}

// RunDetail is the data of `history --run` in JSON output.
type RunDetail struct {
	Run       store.Run        `json:"run"`
	Records   []store.Record   `json:"records"`
	Conflicts []store.Conflict `json:"conflicts,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List the runs recorded in a history store, newest first, or show every
result of one run.

The store is taken from --store, or from store.path in the config given
with --config.

Examples:
  hilbench history --store runs.db
  hilbench history --config bench.yaml --limit 5
  hilbench history --store runs.db --run 0190c1d2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.StorePath, "store", "", "path to the SQLite history database")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "bench config naming the history database")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 lists all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the results of this run")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path, err := opts.storePath()
	if err != nil {
		return out.Fail(err)
	}
	// store.Open creates missing databases; history only reads existing ones.
	if _, err := os.Stat(path); err != nil {
		return out.Fail(commandError(CodeStore, "history store not found", err))
	}
	st, err := store.Open(path, store.DefaultBusyTimeout)
	if err != nil {
		return out.Fail(commandError(CodeStore, "cannot open history store", err))
	}
	defer st.Close()

	ctx := cmd.Context()
	if opts.RunID != "" {
		return showRun(ctx, st, opts.RunID, out)
	}

	out.VerboseLog("listing runs from %s", path)
	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return out.Fail(commandError(CodeStore, "cannot list runs", err))
	}
	if out.JSON() {
		return out.Success(runs)
	}
	if len(runs) == 0 {
		return out.Success("No runs recorded.")
	}
	return out.Success(runTable(runs))
}

func (o *HistoryOptions) storePath() (string, error) {
	if o.StorePath != "" {
		return o.StorePath, nil
	}
	if o.ConfigPath != "" {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return "", commandError(CodeConfig, "cannot load config", err)
		}
		if cfg.Store.Path != "" {
			return cfg.Store.Path, nil
		}
	}
	return "", &ExitError{
		Code:    ExitCommandError,
		ErrCode: CodeStore,
		Message: "no history store: pass --store, or --config with store.path set",
	}
}

func runTable(runs []store.Run) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "BENCH", "STATUS", "STARTED", "TOTAL", "PASSED", "FAILED")
	for _, r := range runs {
		t.Row(
			r.ID,
			r.Bench,
			r.Status,
			r.StartedAt.Local().Format(time.DateTime),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Passed),
			strconv.Itoa(r.Failed),
		)
	}
	return t.String()
}

func showRun(ctx context.Context, st *store.Store, id string, out *OutputFormatter) error {
	run, err := st.GetRun(ctx, id)
	if err != nil {
		code := ExitCommandError
		if errors.Is(err, store.ErrRunNotFound) {
			code = ExitFailure
		}
		return out.Fail(&ExitError{Code: code, ErrCode: CodeStore, Message: "cannot read run", Err: err})
	}
	records, err := st.RunResults(ctx, id)
	if err != nil {
		return out.Fail(commandError(CodeStore, "cannot read results", err))
	}
	conflicts, err := st.RunConflicts(ctx, id)
	if err != nil {
		return out.Fail(commandError(CodeStore, "cannot read conflicts", err))
	}

	if out.JSON() {
		return out.Success(RunDetail{Run: run, Records: records, Conflicts: conflicts})
	}
	writeRunDetail(out.Writer, run, records, conflicts)
	return nil
}

// writeRunDetail prints a stored run with its records in the same line
// format as the live console report.
func writeRunDetail(w io.Writer, run store.Run, records []store.Record, conflicts []store.Conflict) {
	fmt.Fprintf(w, "Run %s on bench %s: %s\n", run.ID, run.Bench, run.Status)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished: %s\n", run.FinishedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(w, "Summary:  %d total, %d passed, %d failed\n", run.Total, run.Passed, run.Failed)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", run.Error)
	}

	if len(records) > 0 {
		fmt.Fprintln(w)
		console := report.NewConsole(w)
		for _, rec := range records {
			if rec.Kind == store.KindInfo {
				console.ReportInfo(rec.Group, rec.Test, rec.Detail)
				continue
			}
			console.ReportResult(rec.Group, rec.Test, rec.Passed, rec.Detail)
		}
	}

	if len(conflicts) > 0 {
		fmt.Fprintln(w, "\nConflicts:")
		for _, c := range conflicts {
			fmt.Fprintf(w, "  %s requested by %q is already owned by %q\n", c.Resource, c.Owner, c.Existing)
		}
	}
}
