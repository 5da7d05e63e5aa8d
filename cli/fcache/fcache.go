package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/fcache/internal/cli"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	noColor    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fcache",
		Short: "A filesystem-backed key/value cache",
		Long: `fcache stores byte payloads under string keys on the local filesystem with:
- Sharded paths: entries spread over single-character directory levels
- Freshness conditions: max age, reference files, minimum size
- Maintenance: bulk permission retrofits, cache info and cleanup`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoColor = &noColor

	// Add subcommands
	cmd.AddCommand(
		cli.NewGetCmd(),
		cli.NewSetCmd(),
		cli.NewExistsCmd(),
		cli.NewPathCmd(),
		cli.NewInfoCmd(),
		cli.NewCleanCmd(),
		cli.NewChmodCmd(),
		cli.NewDirCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
