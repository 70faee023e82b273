package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"

	"github.com/merrlog/merrlog/internal/config"
	"github.com/merrlog/merrlog/internal/crawler"
	"github.com/merrlog/merrlog/internal/fetch"
	"github.com/merrlog/merrlog/internal/log"
	"github.com/merrlog/merrlog/internal/model"
	"github.com/merrlog/merrlog/internal/report"
	"github.com/merrlog/merrlog/internal/storage"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the listing index and capture every listing",
		Long: `Crawl walks the configured number of index pages, follows every listing
link they contain, and extracts each listing's attributes and price.

Results go to a CSV file in the current directory and to a local SQLite
database. The database keeps every capture, so crawling daily builds a
price history for listings that stay up.

Examples:
  # Crawl with defaults (20 index pages, CSV + database output)
  merrlog crawl

  # Crawl more pages with more detail workers
  merrlog crawl --pages 50 --workers 20

  # CSV only, custom file name
  merrlog crawl --no-store -o monday.csv

  # Database only
  merrlog crawl -o ""

  # Write a JSON run report to a file
  merrlog crawl --json --report-file report.json

  # Use a custom configuration file
  merrlog crawl -c myconfig.yaml

Configuration file (.merrlog) example:
  pages: 50
  workers: 20
  delay: "200ms"
  headers:
    Accept-Language: "sq-AL,sq;q=0.9"`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Target flags
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Site root all crawl URLs are built from")
	cmd.Flags().String("path", config.DefaultListingPath,
		"Category path joined to the base URL")
	cmd.Flags().String("page-param", config.DefaultPageParam,
		"Query parameter carrying the index page number")

	// Crawl size and concurrency flags
	cmd.Flags().IntP("pages", "p", config.DefaultPages,
		"Number of index pages to crawl")
	cmd.Flags().Int("chunk-size", config.DefaultChunkSize,
		"Number of index pages processed concurrently")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent detail fetches per index page")

	// Retry and pacing flags
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Maximum fetch attempts per URL, counting the first")
	cmd.Flags().Duration("backoff", config.DefaultBackoff,
		"Base wait before the first retry, doubled per attempt")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Minimum spacing between any two requests (0 disables)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"CSV output file (empty disables CSV output)")
	cmd.Flags().String("store-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.Flags().Bool("no-store", false,
		"Do not record the run in the database")
	cmd.Flags().Bool("no-robots", false,
		"Skip the robots.txt check")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .merrlog in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON run report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown run report (mutually exclusive with --json)")
	cmd.Flags().String("report-file", "",
		"Write the run report to specified file path (creates directories if needed)")
	cmd.Flags().BoolP("quiet", "q", false,
		"Suppress the progress bar")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	// Build config from defaults, config file, and flags
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the defaults, the optional config file,
// and the crawl command flags, in that order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = configPath

	// Layer the optional config file over the defaults.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently keep the defaults if no file found.
	explicitConfigPath := configPath != ""
	foundPath := config.FindConfigFile(configPath)

	if foundPath != "" {
		file, err := config.LoadConfigFile(foundPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", foundPath, err)
		}
		if err := file.ApplyTo(cfg); err != nil {
			return nil, err
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFlags copies flag values onto cfg.
// Flags that overlap with the config file are applied only when the user set
// them, so an untouched flag default cannot shadow a config file value.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("base-url") {
		v, err := flags.GetString("base-url")
		if err != nil {
			return err
		}
		cfg.BaseURL = v
	}

	if flags.Changed("path") {
		v, err := flags.GetString("path")
		if err != nil {
			return err
		}
		cfg.ListingPath = v
	}

	if flags.Changed("page-param") {
		v, err := flags.GetString("page-param")
		if err != nil {
			return err
		}
		cfg.PageParam = v
	}

	if flags.Changed("pages") {
		v, err := flags.GetInt("pages")
		if err != nil {
			return err
		}
		cfg.Pages = v
	}

	if flags.Changed("chunk-size") {
		v, err := flags.GetInt("chunk-size")
		if err != nil {
			return err
		}
		cfg.ChunkSize = v
	}

	if flags.Changed("workers") {
		v, err := flags.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = v
	}

	if flags.Changed("retries") {
		v, err := flags.GetInt("retries")
		if err != nil {
			return err
		}
		cfg.Retries = v
	}

	if flags.Changed("backoff") {
		v, err := flags.GetDuration("backoff")
		if err != nil {
			return err
		}
		cfg.Backoff = v
	}

	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = v
	}

	if flags.Changed("delay") {
		v, err := flags.GetDuration("delay")
		if err != nil {
			return err
		}
		cfg.Delay = v
	}

	if flags.Changed("user-agent") {
		v, err := flags.GetString("user-agent")
		if err != nil {
			return err
		}
		cfg.UserAgent = v
	}

	if flags.Changed("output") {
		v, err := flags.GetString("output")
		if err != nil {
			return err
		}
		cfg.OutputFile = v
	}

	if flags.Changed("store-dir") {
		v, err := flags.GetString("store-dir")
		if err != nil {
			return err
		}
		cfg.DBDir = v
	}

	// The remaining flags do not overlap with the config file, so they are
	// read unconditionally.
	noStore, err := flags.GetBool("no-store")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noStore

	noRobots, err := flags.GetBool("no-robots")
	if err != nil {
		return err
	}
	cfg.RespectRobots = !noRobots

	cfg.JSONReport, err = flags.GetBool("json")
	if err != nil {
		return err
	}

	cfg.MarkdownReport, err = flags.GetBool("markdown")
	if err != nil {
		return err
	}

	cfg.ReportFile, err = flags.GetString("report-file")
	if err != nil {
		return err
	}

	cfg.Quiet, err = flags.GetBool("quiet")
	if err != nil {
		return err
	}

	return nil
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"baseURL", cfg.BaseURL,
		"listingPath", cfg.ListingPath,
		"pages", cfg.Pages,
		"chunkSize", cfg.ChunkSize,
		"workers", cfg.Workers,
		"saveToDB", cfg.SaveToDB,
	)

	// The HTTP client is sized for the run's peak concurrency: each of the
	// chunked index pages can have its full worker count in flight.
	client := fetch.NewClient(cfg.ChunkSize * cfg.Workers)

	fetcher := fetch.New(client,
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithHeaders(cfg.Headers),
		fetch.WithRetries(cfg.Retries),
		fetch.WithBackoff(cfg.Backoff),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithDelay(cfg.Delay),
		fetch.WithLogger(logger),
	)

	indexer := crawler.NewIndexer(fetcher, cfg.BaseURL, cfg.ListingPath, cfg.PageParam)
	extractor := crawler.NewExtractor(fetcher)

	// The run ID is generated here rather than by the engine because the
	// database sink needs it before the run starts.
	runID := uuid.NewString()

	// Assemble the sinks: CSV file, database, or both. Validate guarantees
	// at least one is enabled.
	var sinks []storage.Sink

	var csvSink *storage.CSVSink
	if cfg.OutputFile != "" {
		var err error
		csvSink, err = storage.NewCSVSink(cfg.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create CSV output: %w", err)
		}
		sinks = append(sinks, csvSink)
	}

	var store *storage.Store
	if cfg.SaveToDB {
		var err error
		store, err = storage.Open(cfg.DBDir, storage.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		logger.Info("database opened", "path", store.Path())
		sinks = append(sinks, storage.NewStoreSink(store, runID))
	}

	sink := storage.NewMultiSink(sinks...)

	engineOpts := []crawler.EngineOption{
		crawler.WithPages(cfg.Pages),
		crawler.WithChunkSize(cfg.ChunkSize),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithLogger(logger),
		crawler.WithRunID(runID),
	}

	if cfg.RespectRobots {
		engineOpts = append(engineOpts, crawler.WithRobots(fetch.NewRobots(client, cfg.UserAgent)))
	}

	// Progress bar on stderr so stdout stays clean for the report.
	var pw progress.Writer
	var tracker *progress.Tracker
	if !cfg.Quiet {
		pw = progress.NewWriter()
		pw.SetOutputWriter(os.Stderr)
		pw.SetTrackerLength(30)
		pw.SetUpdateFrequency(100 * time.Millisecond)

		// The total is an estimate from the page count; the real listing
		// count is only known as index pages come in.
		tracker = &progress.Tracker{
			Message: "Capturing listings",
			Total:   int64(cfg.Pages * config.ListingsPerPageEstimate),
			Units:   progress.UnitsDefault,
		}
		pw.AppendTracker(tracker)
		go pw.Render()

		engineOpts = append(engineOpts, crawler.WithTracker(tracker))
	}

	engine := crawler.NewEngine(indexer, extractor, sink, engineOpts...)

	// Record the run before it starts so an interrupted run still leaves a
	// row, and so listing inserts reference an existing run.
	if store != nil {
		pre := model.NewCrawlReport(runID, cfg.BaseURL, cfg.ListingPath)
		pre.PagesPlanned = cfg.Pages
		if err := store.CreateRun(ctx, pre); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
	}

	crawlReport, runErr := engine.Run(ctx)

	if tracker != nil {
		tracker.MarkAsDone()
		pw.Stop()
		for pw.IsRenderInProgress() {
			time.Sleep(5 * time.Millisecond)
		}
	}

	// Flush and close the sinks before reporting so the CSV is complete and
	// any deferred write error surfaces.
	if cerr := sink.Close(); cerr != nil && runErr == nil {
		runErr = fmt.Errorf("failed to finalize output: %w", cerr)
	}

	if csvSink != nil {
		crawlReport.OutputPath = csvSink.Path()
	}
	if store != nil {
		crawlReport.StorePath = store.Path()
	}

	// Background context: the run row gets its final counters even when the
	// run itself was canceled.
	if store != nil {
		if err := store.FinishRun(context.Background(), crawlReport); err != nil {
			logger.Error("failed to record run results", "error", err)
		}
	}

	if err := outputReport(cfg, crawlReport); err != nil {
		logger.Error("failed to write report", "error", err)
	}

	// Item-level failures are reported, not returned: the run itself
	// succeeded. runErr is set only when the whole run aborted.
	return runErr
}

// outputReport outputs the run report in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := w.Write(crawlReport)
	return err
}
