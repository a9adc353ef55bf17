package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hilbench/internal/config"
	"github.com/roach88/hilbench/internal/harness"
	"github.com/roach88/hilbench/internal/watch"
)

// watchBench runs the bench, then runs it again after every settled change
// to the config file or the plans directory, until ctx ends. It returns the
// outcome of the last run.
func watchBench(ctx context.Context, opts *RunOptions, cfgPath, plansDir string, cmd *cobra.Command, out *OutputFormatter) error {
	logger := newLogger(config.Default().Logging, opts.RootOptions, cmd)
	w, err := watch.New([]string{cfgPath, plansDir},
		watch.WithDebounce(opts.Debounce),
		watch.WithLogger(logger))
	if err != nil {
		return out.Fail(commandError(CodeConfig, "cannot watch inputs", err))
	}
	defer w.Close()

	errW := out.GetErrWriter()
	for {
		res, err := runBench(ctx, opts, cfgPath, plansDir, cmd)
		last := reportRun(out, res, err)
		if last != nil && !out.JSON() {
			fmt.Fprintf(errW, "Error: %v\n", last)
		}
		if opts.onRun != nil {
			opts.onRun(res, err)
		}
		if ctx.Err() != nil {
			return last
		}

		fmt.Fprintln(errW, "Watching for changes. Press Ctrl-C to stop.")
		path, err := w.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return last
			}
			return out.Fail(WrapExitError(ExitCommandError, "watch failed", err))
		}
		fmt.Fprintf(errW, "Change detected in %s, running again.\n", path)
	}
}

// runHook observes each run in watch mode.
type runHook func(res harness.Result, err error)
