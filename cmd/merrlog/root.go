// Package main provides the entry point for the merrlog CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for merrlog.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merrlog",
		Short: "Crawler for merrjep.al vehicle listings",
		Long: `merrlog crawls the used-car category on merrjep.al and captures every
listing's attributes (year, make, model, mileage, fuel, and so on) together
with its asking price.

Each run walks a configured number of index pages, fetches the listings they
link to concurrently, and writes the results to a CSV file and a local SQLite
database. Repeated runs accumulate price history for listings that stay up.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
