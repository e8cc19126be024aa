// Package cmd wires the pipeline stages into CLI subcommands. Each stage runs
// as its own process; the Redis bus connects them.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "starfish",
	Short: "starfish — event-driven multi-agent assistant",
	Long:  "starfish runs a team of AI agents as independent pipeline stages connected by a Redis event bus.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
}
