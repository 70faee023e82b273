package model

import "time"

// CrawlReport is the summary of one crawl run.
// It holds the counters and failures collected while the run executed and is
// the input to the report writers and the run store.
//
// Design decision: We use a single flat struct rather than per-stage
// sub-reports to simplify serialization and database storage. Counters are
// plain ints here; the engine owns the atomics during the run and copies
// them in once the run is done.
type CrawlReport struct {
	// RunID uniquely identifies this run in the store and the report.
	RunID string `json:"run_id"`

	// === Target ===

	// BaseURL is the site root the run crawled.
	BaseURL string `json:"base_url"`

	// ListingPath is the category path under BaseURL.
	ListingPath string `json:"listing_path"`

	// === Timing ===

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run completed.
	FinishedAt time.Time `json:"finished_at"`

	// Duration is FinishedAt minus StartedAt.
	Duration time.Duration `json:"duration_ns"`

	// === Page Counters ===

	// PagesPlanned is the number of index pages the run was configured to visit.
	PagesPlanned int `json:"pages_planned"`

	// PagesIndexed is the number of index pages fetched and parsed successfully.
	PagesIndexed int `json:"pages_indexed"`

	// PagesFailed is the number of index pages that failed terminally.
	PagesFailed int `json:"pages_failed"`

	// === Listing Counters ===

	// ListingsFound is the number of unique listing URLs discovered.
	ListingsFound int `json:"listings_found"`

	// Completed is the number of listings extracted and handed to the sink.
	Completed int `json:"completed"`

	// Failed is the number of listings that failed terminally.
	Failed int `json:"failed"`

	// Skipped is the number of duplicate listing URLs dropped before fetching.
	Skipped int `json:"skipped"`

	// === Failures ===

	// Failures records every terminal failure, index pages and listings alike.
	Failures []Failure `json:"failures,omitempty"`

	// === Outputs ===

	// OutputPath is the CSV file the run wrote, if any.
	OutputPath string `json:"output_path,omitempty"`

	// StorePath is the database file the run recorded to, if any.
	StorePath string `json:"store_path,omitempty"`
}

// Failure phases.
const (
	// PhaseIndex marks a failure while fetching or parsing an index page.
	PhaseIndex = "index"

	// PhaseDetail marks a failure while fetching or parsing a detail page.
	PhaseDetail = "detail"
)

// Failure is one terminal failure recorded during a run.
// A listing that exhausts its retries produces exactly one Failure.
type Failure struct {
	// URL is the page or listing URL that failed.
	URL string `json:"url"`

	// Phase is the stage that failed, PhaseIndex or PhaseDetail.
	Phase string `json:"phase"`

	// Reason is the error message of the last attempt.
	Reason string `json:"reason"`

	// Attempts is how many fetch attempts were made before giving up.
	Attempts int `json:"attempts"`
}

// NewCrawlReport creates a report for a run starting now.
func NewCrawlReport(runID, baseURL, listingPath string) *CrawlReport {
	return &CrawlReport{
		RunID:       runID,
		BaseURL:     baseURL,
		ListingPath: listingPath,
		StartedAt:   time.Now().UTC(),
	}
}

// Finish stamps the end time and computes the duration.
func (r *CrawlReport) Finish() {
	r.FinishedAt = time.Now().UTC()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}

// Resolved returns the number of listings that reached a terminal state,
// successfully or not. On a run that finished, Resolved equals ListingsFound.
func (r *CrawlReport) Resolved() int {
	return r.Completed + r.Failed
}

// HasFailures reports whether any index page or listing failed terminally.
func (r *CrawlReport) HasFailures() bool {
	return len(r.Failures) > 0
}

// FailuresIn returns the failures recorded for one phase.
func (r *CrawlReport) FailuresIn(phase string) []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.Phase == phase {
			out = append(out, f)
		}
	}
	return out
}
