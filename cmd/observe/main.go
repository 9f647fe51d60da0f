package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Serve observable values over HTTP",
		Long: `observe hosts a set of observable values and exposes them over HTTP.

Values are declared in observe.json or observe.yaml. Groups coalesce
several values into one: reading a group yields the common value of
its members, writing it updates every member at once.

  • REST reads and writes with veto rules
  • Live change streams over WebSocket
  • Prometheus metrics and OpenTelemetry tracing
  • Snapshots on disk or in S3`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		serveCmd(),
		demoCmd(),
		versionCmd(),
	)
	return cmd
}
