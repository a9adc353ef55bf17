package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hilbench/internal/config"
	"github.com/roach88/hilbench/internal/lifecycle"
)

// CheckReport is the data of the check command.
type CheckReport struct {
	Bench     string         `json:"bench"`
	Devices   int            `json:"devices"`
	Resources int            `json:"resources"`
	Conflicts []ConflictInfo `json:"conflicts,omitempty"`
}

// ConflictInfo describes one resource conflict.
type ConflictInfo struct {
	Resource string `json:"resource"`
	Owner    string `json:"owner"`
	Existing string `json:"existing"`
	Message  string `json:"message"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <config>",
		Short: "Check a bench config for resource conflicts",
		Long: `Claim every pin and port the configured devices need, in the order the
bench would initialize them, without touching hardware, and report every
conflict found.

Exit codes:
  0 - No conflicts
  1 - One or more resource conflicts
  2 - Command error (unreadable or invalid config)

Examples:
  hilbench check bench.yaml
  hilbench check bench.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, cfgPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return out.Fail(commandError(CodeConfig, "cannot load config", err))
	}
	backend, err := cfg.OpenBackend()
	if err != nil {
		return out.Fail(commandError(CodeConfig, "cannot open backend", err))
	}
	buckets, err := cfg.Buckets(backend)
	if err != nil {
		return out.Fail(commandError(CodeConfig, "cannot build devices", err))
	}

	rep := CheckReport{Bench: cfg.Bench.Name}
	for _, b := range buckets {
		for _, dev := range b.Devices {
			rep.Devices++
			ids := dev.Requirements().IDs()
			rep.Resources += len(ids)
			out.VerboseLog("%s/%s: %v", b.Name, dev.Name(), ids)
		}
	}
	for _, ce := range lifecycle.Check(buckets) {
		rep.Conflicts = append(rep.Conflicts, ConflictInfo{
			Resource: ce.ID.String(),
			Owner:    ce.Owner,
			Existing: ce.Existing,
			Message:  ce.Error(),
		})
	}

	if out.JSON() {
		if len(rep.Conflicts) > 0 {
			_ = out.Error(CodeConflict, fmt.Sprintf("%d resource conflicts", len(rep.Conflicts)), rep)
		} else if err := out.Success(rep); err != nil {
			return WrapExitError(ExitCommandError, "write output", err)
		}
	} else {
		w := out.Writer
		fmt.Fprintf(w, "Bench %s: %d devices, %d resources\n", rep.Bench, rep.Devices, rep.Resources)
		if len(rep.Conflicts) == 0 {
			fmt.Fprintln(w, "No resource conflicts.")
		}
		for _, c := range rep.Conflicts {
			fmt.Fprintf(w, "CONFLICT %s\n", c.Message)
		}
	}

	if len(rep.Conflicts) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d resource conflicts", len(rep.Conflicts)))
	}
	return nil
}
