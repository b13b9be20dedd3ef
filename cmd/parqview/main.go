// Command parqview serves the Parquet Viewer web API and offers the same
// loader, summarizer and query engines on the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "parqview",
		Short: "Parquet Viewer - inspect and query parquet files",
		Long: `parqview decodes parquet files, summarizes their columns and runs SQL
against them, either through its HTTP API (serve) or directly from the shell.

Examples:
  parqview serve --addr :8000
  parqview schema data.parquet
  parqview stats data.parquet
  parqview query -q "SELECT name FROM data WHERE age > 30" -f table data.parquet
  parqview query -f csv "logs/*.parquet"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newSchemaCmd(),
		newStatsCmd(),
		newQueryCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "parqview v%s\n", version)
				fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
				fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			},
		},
	)
	return root
}
