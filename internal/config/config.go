package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values mirror the site's observed behavior: roughly 50 listings per
// index page, quick clearnet responses, and no rate limiting at moderate
// concurrency.
const (
	// DefaultBaseURL is the site root all crawl URLs are built from.
	DefaultBaseURL = "https://www.merrjep.al"

	// DefaultListingPath is the category path for used-car listings.
	// Joined to DefaultBaseURL it yields the first index page.
	DefaultListingPath = "/njoftime/automjete/makina/ne-shitje"

	// DefaultPageParam is the query parameter that selects an index page.
	// The site paginates as ?Page=1, ?Page=2, and so on.
	DefaultPageParam = "Page"

	// DefaultPages is the number of index pages to crawl per run.
	// 20 pages at ~50 listings each covers roughly a day of new listings.
	DefaultPages = 20

	// DefaultChunkSize is the number of index pages fetched concurrently.
	// Pages are processed in sequential chunks of this size, which caps the
	// burst of index requests while keeping the run pipelined.
	DefaultChunkSize = 5

	// DefaultWorkers is the number of concurrent detail fetches per index
	// page. The peak connection count is ChunkSize * Workers, so the
	// defaults hold the site to at most 50 open requests.
	DefaultWorkers = 10

	// DefaultRetries is the maximum number of fetch attempts for one URL,
	// counting the initial request. Only transient failures are retried.
	DefaultRetries = 3

	// DefaultBackoff is the base wait before the first retry. The wait
	// doubles after each failed attempt.
	DefaultBackoff = 1 * time.Second

	// DefaultTimeout is the per-request timeout. The site is clearnet and
	// normally answers well under a second; 10 seconds leaves room for the
	// occasional slow page without stalling a worker for long.
	DefaultTimeout = 10 * time.Second

	// DefaultDelay is the politeness delay between requests. Zero disables
	// the limiter; the site tolerates the default concurrency without one.
	DefaultDelay = 0 * time.Second

	// DefaultUserAgent is a desktop browser User-Agent. The site serves the
	// same markup to browsers and plain HTTP clients, but a browser UA
	// avoids the generic bot handling some CDNs apply to Go's default.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/115.0.0.0 Safari/537.36"

	// DefaultOutputFile is the CSV file a run writes in the current directory.
	DefaultOutputFile = "today_listings.csv"

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is generous for the site's HTML while preventing memory exhaustion
	// from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// ListingsPerPageEstimate is the expected number of listings per index
	// page, used only to size the progress bar before the real counts are in.
	ListingsPerPageEstimate = 50

	// AppName is the application name used for XDG directory paths.
	AppName = "merrlog"
)

// Config holds all configuration options for a crawl run.
// This struct is designed to be populated from CLI flags and the optional
// YAML config file, then passed through the application via dependency
// injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., FetchConfig, OutputConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// BaseURL is the site root in "scheme://host" form.
	// Relative listing links discovered on index pages are resolved against it.
	BaseURL string

	// ListingPath is the category path joined to BaseURL to form index pages.
	// Must start with "/".
	ListingPath string

	// PageParam is the query parameter carrying the index page number.
	PageParam string

	// Pages is the number of index pages to crawl, starting from page 1.
	Pages int

	// ChunkSize is the number of index pages processed concurrently.
	// The run walks pages in sequential chunks of this size.
	ChunkSize int

	// Workers is the number of concurrent detail fetches per index page.
	// Peak open connections are bounded by ChunkSize * Workers.
	Workers int

	// Retries is the maximum number of fetch attempts for one URL,
	// counting the initial request. Non-transient failures stop earlier.
	Retries int

	// Backoff is the base wait before the first retry; it doubles per attempt.
	Backoff time.Duration

	// Timeout is the per-request timeout. It applies to each attempt
	// individually, not to the whole retry sequence.
	Timeout time.Duration

	// Delay is the minimum spacing between any two requests across the whole
	// run. Zero disables the politeness limiter.
	Delay time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Headers are extra HTTP headers added to every request, e.g. an
	// Accept-Language override. Loaded from the config file.
	Headers map[string]string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated. Zero means the default.
	MaxBodySize int64

	// OutputFile is the CSV file the run writes. Empty disables CSV output,
	// which is only valid when the database store is enabled.
	OutputFile string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether runs and listings are recorded in the
	// database. Disabled by the --no-store flag.
	SaveToDB bool

	// RespectRobots gates crawling on the site's robots.txt.
	// The check fails open: an unreachable or unparsable robots.txt allows
	// the crawl. Disabled by the --no-robots flag.
	RespectRobots bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable
	// format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the run report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .merrlog in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// Quiet suppresses the progress bar. Reports are still printed.
	Quiet bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, page count).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		ListingPath:   DefaultListingPath,
		PageParam:     DefaultPageParam,
		Pages:         DefaultPages,
		ChunkSize:     DefaultChunkSize,
		Workers:       DefaultWorkers,
		Retries:       DefaultRetries,
		Backoff:       DefaultBackoff,
		Timeout:       DefaultTimeout,
		Delay:         DefaultDelay,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		OutputFile:    DefaultOutputFile,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
		RespectRobots: true,
	}
}

// XDGDataDir returns the XDG data directory for merrlog.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/merrlog
// On macOS: ~/Library/Application Support/merrlog
// On Windows: %LOCALAPPDATA%\merrlog
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for merrlog.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/merrlog
// On macOS: ~/Library/Application Support/merrlog
// On Windows: %APPDATA%\merrlog
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// BaseURL must be an absolute http(s) URL
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	// ListingPath must be rooted so joining it to BaseURL is unambiguous
	if !strings.HasPrefix(c.ListingPath, "/") {
		return ErrInvalidListingPath
	}

	// PageParam must be present; without it every page URL is the same
	if c.PageParam == "" {
		return ErrInvalidPageParam
	}

	// Pages must be positive; zero would mean no crawling
	if c.Pages <= 0 {
		return ErrInvalidPages
	}

	// ChunkSize must be positive; zero would stall the page loop
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}

	// Workers must be positive; zero would stall detail fetching
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	// Retries must be positive; every URL gets at least one attempt
	if c.Retries <= 0 {
		return ErrInvalidRetries
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Backoff must be non-negative
	if c.Backoff < 0 {
		return ErrNegativeBackoff
	}

	// Delay must be non-negative
	if c.Delay < 0 {
		return ErrNegativeDelay
	}

	// MaxBodySize must be non-negative; zero means use the default
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// The run must write somewhere
	if c.OutputFile == "" && !c.SaveToDB {
		return ErrNoOutput
	}

	return nil
}
