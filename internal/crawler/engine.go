package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/merrlog/merrlog/internal/fetch"
	"github.com/merrlog/merrlog/internal/model"
)

// Sink receives extracted records. Append is called from multiple detail
// workers at once, so implementations must be safe for concurrent use.
// An Append error aborts the run; only the failure of a single listing is
// tolerated, losing records that were extracted is not.
type Sink interface {
	Append(rec *model.ListingRecord) error
}

// Engine runs a crawl: index pages in sequential chunks, detail pages
// concurrently within each page, every result into one Sink.
//
// Design decision: Pages advance in chunks (each chunk's pages concurrent,
// chunks sequential) rather than all pages at once because:
// 1. Peak connections stay bounded at chunkSize*workers regardless of Pages
// 2. Early pages finish early, so partial output is useful if interrupted
// 3. The site's ordering drifts during a run; crawling roughly front to
// back keeps the duplicate rate low
type Engine struct {
	// indexer discovers listing URLs on index pages.
	indexer *Indexer

	// extractor turns listing pages into records.
	extractor *Extractor

	// sink receives every extracted record.
	sink Sink

	// robots gates the run on the site's robots.txt. Nil skips the check.
	robots *fetch.Robots

	// tracker receives one Increment per completed listing.
	tracker Tracker

	// logger is used for run-level logging.
	logger *slog.Logger

	// pages is the number of index pages to visit.
	pages int

	// chunkSize is how many index pages are crawled concurrently.
	chunkSize int

	// workers is the concurrency limit for detail pages within one index page.
	workers int

	// runID identifies this run in reports and the store.
	runID string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPages sets the number of index pages to visit.
// Default is 20 if not specified.
func WithPages(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.pages = n
		}
	}
}

// WithChunkSize sets how many index pages are crawled concurrently.
// Default is 5 if not specified.
func WithChunkSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithWorkers sets the detail page concurrency limit per index page.
// Default is 10 if not specified.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRobots enables the robots.txt gate for the run.
func WithRobots(robots *fetch.Robots) EngineOption {
	return func(e *Engine) {
		e.robots = robots
	}
}

// WithTracker sets the progress tracker.
func WithTracker(tracker Tracker) EngineOption {
	return func(e *Engine) {
		e.tracker = tracker
	}
}

// WithLogger sets a custom logger for the run.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunID pins the run identifier instead of generating one.
// Useful for tests and for callers that pre-allocate the run in a store.
func WithRunID(id string) EngineOption {
	return func(e *Engine) {
		e.runID = id
	}
}

// NewEngine creates an Engine crawling through indexer and extractor into sink.
func NewEngine(indexer *Indexer, extractor *Extractor, sink Sink, opts ...EngineOption) *Engine {
	e := &Engine{
		indexer:   indexer,
		extractor: extractor,
		sink:      sink,
		tracker:   NopTracker{},
		pages:     20,
		chunkSize: 5,
		workers:   10,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}

	return e
}

// RunID returns the identifier of the run this engine will execute.
func (e *Engine) RunID() string {
	return e.runID
}

// runState collects counters and failures while goroutines are in flight.
// Counters are atomics; the visited set and failure list share one mutex.
type runState struct {
	pagesIndexed int64
	pagesFailed  int64
	found        int64
	completed    int64
	failed       int64
	skipped      int64

	mu       sync.Mutex
	visited  map[string]struct{}
	failures []model.Failure
}

// visit marks a normalized URL as seen and reports whether it was new.
// Check and mark are one critical section so two pages discovering the
// same listing concurrently cannot both claim it.
func (s *runState) visit(normalized string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.visited[normalized]; ok {
		return false
	}
	s.visited[normalized] = struct{}{}
	return true
}

// fail records one terminal failure.
func (s *runState) fail(f model.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
}

// Run executes the crawl and returns its report.
//
// A failed index page or listing is recorded in the report and does not
// stop the run. Run returns an error only when the whole run could not
// continue: robots.txt forbids the path, the context was canceled, or the
// sink stopped accepting records. The report is valid either way and
// reflects whatever completed before the stop.
func (e *Engine) Run(ctx context.Context) (*model.CrawlReport, error) {
	report := model.NewCrawlReport(e.runID, e.indexer.BaseURL(), e.indexer.ListingPath())
	report.PagesPlanned = e.pages

	e.logger.Info("starting crawl",
		"run_id", e.runID,
		"base_url", e.indexer.BaseURL(),
		"pages", e.pages,
		"chunk_size", e.chunkSize,
		"workers", e.workers,
	)

	if e.robots != nil && !e.robots.Allowed(ctx, e.indexer.PageURL(1)) {
		report.Finish()
		return report, fmt.Errorf("%s: %w", e.indexer.ListingPath(), fetch.ErrRobotsDisallowed)
	}

	startTime := time.Now()
	state := &runState{visited: make(map[string]struct{})}

	var runErr error
	for chunkStart := 1; chunkStart <= e.pages; chunkStart += e.chunkSize {
		chunkEnd := chunkStart + e.chunkSize - 1
		if chunkEnd > e.pages {
			chunkEnd = e.pages
		}

		g, chunkCtx := errgroup.WithContext(ctx)
		for page := chunkStart; page <= chunkEnd; page++ {
			page := page // per-iteration copy; required while go.mod targets go < 1.22
			g.Go(func() error {
				return e.crawlPage(chunkCtx, page, state)
			})
		}

		if err := g.Wait(); err != nil {
			runErr = err
			break
		}
	}

	e.collect(report, state)
	report.Finish()

	e.logger.Info("crawl complete",
		"run_id", e.runID,
		"pages_indexed", report.PagesIndexed,
		"listings_found", report.ListingsFound,
		"completed", report.Completed,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"elapsed", time.Since(startTime),
	)

	return report, runErr
}

// crawlPage indexes one page and crawls its listings.
//
// Returns nil when the page or its listings fail; those failures are
// recorded in the run state so the other pages keep going. Only
// cancellation and sink errors propagate to the errgroup.
func (e *Engine) crawlPage(ctx context.Context, page int, state *runState) error {
	links, err := e.indexer.Index(ctx, page)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		atomic.AddInt64(&state.pagesFailed, 1)
		state.fail(model.Failure{
			URL:      e.indexer.PageURL(page),
			Phase:    model.PhaseIndex,
			Reason:   err.Error(),
			Attempts: attempts(err),
		})
		e.logger.Warn("index page failed",
			"page", page,
			"error", err,
		)
		// Don't return the error - the remaining pages are independent
		return nil
	}

	atomic.AddInt64(&state.pagesIndexed, 1)

	// Claim listings before spawning workers so a listing shared between
	// two concurrent pages is fetched exactly once.
	fresh := make([]string, 0, len(links))
	for _, link := range links {
		if state.visit(normalizeURL(link)) {
			fresh = append(fresh, link)
		} else {
			atomic.AddInt64(&state.skipped, 1)
		}
	}
	atomic.AddInt64(&state.found, int64(len(fresh)))

	e.logger.Debug("indexed page",
		"page", page,
		"links", len(links),
		"fresh", len(fresh),
	)

	g, detailCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, link := range fresh {
		link := link // per-iteration copy; required while go.mod targets go < 1.22
		g.Go(func() error {
			return e.crawlListing(detailCtx, link, state)
		})
	}

	return g.Wait()
}

// crawlListing extracts one listing and appends it to the sink.
func (e *Engine) crawlListing(ctx context.Context, listingURL string, state *runState) error {
	rec, err := e.extractor.Extract(ctx, listingURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		atomic.AddInt64(&state.failed, 1)
		state.fail(model.Failure{
			URL:      listingURL,
			Phase:    model.PhaseDetail,
			Reason:   err.Error(),
			Attempts: attempts(err),
		})
		e.logger.Warn("listing failed",
			"url", listingURL,
			"error", err,
		)
		// Don't return the error - we want to continue the other listings
		return nil
	}

	if err := e.sink.Append(rec); err != nil {
		return fmt.Errorf("append %s: %w", listingURL, err)
	}

	atomic.AddInt64(&state.completed, 1)
	e.tracker.Increment(1)
	return nil
}

// collect copies the run state into the report.
func (e *Engine) collect(report *model.CrawlReport, state *runState) {
	report.PagesIndexed = int(atomic.LoadInt64(&state.pagesIndexed))
	report.PagesFailed = int(atomic.LoadInt64(&state.pagesFailed))
	report.ListingsFound = int(atomic.LoadInt64(&state.found))
	report.Completed = int(atomic.LoadInt64(&state.completed))
	report.Failed = int(atomic.LoadInt64(&state.failed))
	report.Skipped = int(atomic.LoadInt64(&state.skipped))

	state.mu.Lock()
	report.Failures = append(report.Failures, state.failures...)
	state.mu.Unlock()
}

// attempts extracts the attempt count from a terminal fetch failure.
// Failures past the fetch layer, like an unparsable document, count as one.
func attempts(err error) int {
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		return fe.Attempts
	}
	return 1
}

// normalizeURL canonicalizes a listing URL for deduplication.
// Fragments never change the page served, the site mixes host casing
// between widgets, and trailing slashes come and go between page loads.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	return strings.TrimSuffix(u.String(), "/")
}
