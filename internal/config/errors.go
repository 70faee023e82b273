package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrInvalidBaseURL is returned when the base URL is not an absolute
	// http or https URL. Relative listing links cannot be resolved without
	// a valid site root.
	ErrInvalidBaseURL = errors.New("invalid base URL: must be an absolute http(s) URL")

	// ErrInvalidListingPath is returned when the listing path does not start
	// with "/". An unrooted path would join ambiguously with the base URL.
	ErrInvalidListingPath = errors.New("invalid listing path: must start with '/'")

	// ErrInvalidPageParam is returned when the page query parameter is empty.
	// Without it every index page URL would be identical.
	ErrInvalidPageParam = errors.New("invalid page parameter: must not be empty")

	// ErrInvalidPages is returned when the page count is not positive.
	// A page count of zero would mean no crawling at all.
	ErrInvalidPages = errors.New("invalid page count: must be positive")

	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	// A chunk size of zero would stall the page loop.
	ErrInvalidChunkSize = errors.New("invalid chunk size: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	// A worker count of zero would stall detail fetching.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidRetries is returned when the retry count is not positive.
	// Every URL gets at least one fetch attempt.
	ErrInvalidRetries = errors.New("invalid retry count: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrNegativeBackoff is returned when the retry backoff is negative.
	// Use 0 to retry immediately.
	ErrNegativeBackoff = errors.New("invalid backoff: must be non-negative")

	// ErrNegativeDelay is returned when the politeness delay is negative.
	// Use 0 to disable the delay between requests.
	ErrNegativeDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoOutput is returned when both the CSV output and the database store
	// are disabled. A run with nowhere to write its records is a mistake.
	ErrNoOutput = errors.New("no output configured: enable the CSV file or the database store")
)
