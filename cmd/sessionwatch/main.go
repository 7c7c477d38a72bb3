// Command sessionwatch is the operator-facing CLI for the session
// observability engine: attach to a workspace, stream the derived metrics
// the monitor fans out on its bus, or inspect a persisted snapshot.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sessionwatch:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sessionwatch",
		Short:         "Session observability engine for interactive AI coding agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
	}
	cmd.AddCommand(
		buildWatchCmd(),
		buildListCmd(),
		buildSnapshotCmd(),
	)
	return cmd
}
