package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/merrlog/merrlog/internal/config"
	"github.com/merrlog/merrlog/internal/storage"
)

// shortIDLen is how many run ID characters the runs table shows.
// Any unique prefix works with --run-id, so the full UUID is not needed.
const shortIDLen = 8

// NewRunsCmd creates the runs command.
// This command inspects the crawl runs recorded in the database.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded crawl runs",
		Long: `Runs lists the crawl runs recorded in the database, newest first.

Each row shows the run's counters: how many index pages were crawled, how
many listings were found, and how many were captured, failed, or skipped.

Examples:
  # List the most recent runs
  merrlog runs

  # List every recorded run
  merrlog runs --limit 0

  # Inspect one run, including its recorded failures
  merrlog runs --run-id 3f2a81c4

  # Use a non-default database directory
  merrlog runs --store-dir /data/merrlog`,
		Args: cobra.NoArgs,
		RunE: runRunsCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().String("run-id", "",
		"Show one run in detail (full ID or unique prefix)")
	cmd.Flags().String("store-dir", "",
		"Database directory (default: XDG data directory)")

	return cmd
}

// runRunsCmd executes the runs command.
func runRunsCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	runID, err := cmd.Flags().GetString("run-id")
	if err != nil {
		return err
	}

	storeDir, err := cmd.Flags().GetString("store-dir")
	if err != nil {
		return err
	}
	if storeDir == "" {
		storeDir = config.XDGDataDir()
	}

	// Open without creating: a missing database just means nothing was
	// recorded yet.
	opts := storage.DefaultOptions()
	opts.CreateIfNotExists = false
	store, err := storage.Open(storeDir, opts)
	if err != nil {
		return fmt.Errorf("no recorded runs (run 'merrlog crawl' first): %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if runID != "" {
		return showRun(ctx, store, runID)
	}
	return listRuns(ctx, store, limit)
}

// listRuns prints a table of recorded runs, newest first.
func listRuns(ctx context.Context, store *storage.Store, limit int) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		fmt.Println("\nUse 'merrlog crawl' to crawl and record a run.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run ID", "Started", "Duration", "Pages", "Found", "Completed", "Failed", "Skipped"})

	for _, r := range runs {
		t.AppendRow(table.Row{
			shortID(r.RunID),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			formatRunDuration(r),
			fmt.Sprintf("%d/%d", r.PagesIndexed, r.PagesPlanned),
			r.ListingsFound,
			r.Completed,
			r.Failed,
			r.Skipped,
		})
	}

	t.Render()
	fmt.Println("\nUse 'merrlog runs --run-id <id>' to inspect a single run.")

	return nil
}

// showRun prints one run in detail, including its recorded failures.
func showRun(ctx context.Context, store *storage.Store, runID string) error {
	run, err := findRun(ctx, store, runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s\n", run.RunID)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nTarget:    %s%s\n", run.BaseURL, run.ListingPath)
	fmt.Printf("Started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if run.FinishedAt.IsZero() {
		fmt.Println("Finished:  never (run was interrupted)")
	} else {
		fmt.Printf("Finished:  %s (took %s)\n",
			run.FinishedAt.Format("2006-01-02 15:04:05 MST"),
			run.Duration.Round(10*time.Millisecond))
	}

	fmt.Printf("\nPages:     %d indexed, %d failed of %d planned\n",
		run.PagesIndexed, run.PagesFailed, run.PagesPlanned)
	fmt.Printf("Listings:  %d found, %d completed, %d failed, %d skipped\n",
		run.ListingsFound, run.Completed, run.Failed, run.Skipped)

	stored, err := store.CountListings(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("failed to count stored listings: %w", err)
	}
	fmt.Printf("Stored:    %d listing rows\n", stored)

	failures, err := store.FailuresForRun(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("failed to load failures: %w", err)
	}

	if len(failures) > 0 {
		fmt.Printf("\nFailures (%d):\n", len(failures))
		for _, f := range failures {
			fmt.Printf("  [%s] %s\n", f.Phase, f.URL)
			fmt.Printf("      %s (attempts: %d)\n", f.Reason, f.Attempts)
		}
	}

	return nil
}

// findRun resolves a full run ID or a unique prefix to a recorded run.
func findRun(ctx context.Context, store *storage.Store, runID string) (*storage.RunSummary, error) {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if run != nil {
		return run, nil
	}

	// No exact match; try a prefix match over all recorded runs.
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var matches []storage.RunSummary
	for _, r := range runs {
		if strings.HasPrefix(r.RunID, runID) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no run matching %q (use 'merrlog runs' to list runs)", runID)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous (%d matches)", runID, len(matches))
	}
}

// shortID truncates a run ID for table display.
func shortID(runID string) string {
	if len(runID) <= shortIDLen {
		return runID
	}
	return runID[:shortIDLen]
}

// formatRunDuration formats a run's duration, or a marker for runs that
// never finished.
func formatRunDuration(r storage.RunSummary) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return r.Duration.Round(10 * time.Millisecond).String()
}
