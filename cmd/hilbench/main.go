// Command hilbench runs hardware-in-the-loop test plans against a bench.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/hilbench/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
