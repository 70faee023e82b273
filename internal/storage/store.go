package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/merrlog/merrlog/internal/model"
)

// dbFileName is the SQLite file created inside the store directory.
const dbFileName = "merrlog.db"

// Store provides SQLite-based storage for crawl runs and captured listings.
//
// Design decision: We accumulate every run into one database file rather
// than one file per run. The dataset's value is the history across runs,
// and a single file keeps cross-run queries and backups trivial.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Store in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection strings: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer, and the sink serializes writes
	// anyway, so a single connection is the whole pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the path to the SQLite database file.
func (s *Store) Path() string {
	return s.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Runs store one row per crawl invocation
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		listing_path TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		duration_ms INTEGER DEFAULT 0,
		pages_planned INTEGER DEFAULT 0,
		pages_indexed INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		listings_found INTEGER DEFAULT 0,
		completed INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Listings accumulate one row per captured listing, append-only.
	-- No UNIQUE constraint on listing_url: repeated crawls re-capture
	-- the same listing at later timestamps to build a price history.
	CREATE TABLE IF NOT EXISTS listings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		scrape_timestamp TEXT NOT NULL,
		listing_url TEXT NOT NULL,
		year TEXT,
		transmission TEXT,
		mileage TEXT,
		fuel TEXT,
		municipality TEXT,
		color TEXT,
		make TEXT,
		model TEXT,
		price_value TEXT,
		price_currency TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_listings_run ON listings(run_id);
	CREATE INDEX IF NOT EXISTS idx_listings_url ON listings(listing_url);
	CREATE INDEX IF NOT EXISTS idx_listings_timestamp ON listings(scrape_timestamp);

	-- Failures store the terminal failures of each run
	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		phase TEXT NOT NULL,
		reason TEXT,
		attempts INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// CreateRun records the start of a run. The counters are zero until
// FinishRun fills them in; a run row with no finished_at marks a crawl
// that was killed mid-flight.
func (s *Store) CreateRun(ctx context.Context, report *model.CrawlReport) error {
	query := `
	INSERT INTO runs (id, base_url, listing_path, started_at, pages_planned)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		report.RunID,
		report.BaseURL,
		report.ListingPath,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.PagesPlanned,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// FinishRun records the outcome of a run: final counters, timing, and
// every terminal failure.
func (s *Store) FinishRun(ctx context.Context, report *model.CrawlReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := `
	UPDATE runs SET
		finished_at = ?,
		duration_ms = ?,
		pages_indexed = ?,
		pages_failed = ?,
		listings_found = ?,
		completed = ?,
		failed = ?,
		skipped = ?
	WHERE id = ?
	`

	result, err := tx.ExecContext(ctx, query,
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		report.Duration.Milliseconds(),
		report.PagesIndexed,
		report.PagesFailed,
		report.ListingsFound,
		report.Completed,
		report.Failed,
		report.Skipped,
		report.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found (was CreateRun called?)", report.RunID)
	}

	failureQuery := `
	INSERT INTO failures (run_id, url, phase, reason, attempts)
	VALUES (?, ?, ?, ?, ?)
	`
	for _, f := range report.Failures {
		if _, err := tx.ExecContext(ctx, failureQuery,
			report.RunID, f.URL, f.Phase, f.Reason, f.Attempts,
		); err != nil {
			return fmt.Errorf("failed to record failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

// InsertListing appends one captured listing under the given run.
func (s *Store) InsertListing(ctx context.Context, runID string, rec *model.ListingRecord) error {
	query := `
	INSERT INTO listings (
		run_id, scrape_timestamp, listing_url,
		year, transmission, mileage, fuel, municipality, color, make, model,
		price_value, price_currency
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		runID,
		rec.ScrapeTimestamp.UTC().Format(time.RFC3339Nano),
		rec.ListingURL,
		rec.Field(model.FieldYear),
		rec.Field(model.FieldTransmission),
		rec.Field(model.FieldMileage),
		rec.Field(model.FieldFuel),
		rec.Field(model.FieldMunicipality),
		rec.Field(model.FieldColor),
		rec.Field(model.FieldMake),
		rec.Field(model.FieldModel),
		rec.PriceValue,
		rec.PriceCurrency,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}

	return nil
}

// RunSummary is one row of the runs table, without its listings or
// failures. It is what the run history listing displays.
type RunSummary struct {
	// RunID uniquely identifies the run.
	RunID string

	// BaseURL is the site root the run crawled.
	BaseURL string

	// ListingPath is the category path under BaseURL.
	ListingPath string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run completed. Zero for a run that was
	// killed before it could finish.
	FinishedAt time.Time

	// Duration is how long the run took.
	Duration time.Duration

	// PagesPlanned, PagesIndexed, and PagesFailed are the page counters.
	PagesPlanned int
	PagesIndexed int
	PagesFailed  int

	// ListingsFound, Completed, Failed, and Skipped are the listing counters.
	ListingsFound int
	Completed     int
	Failed        int
	Skipped       int
}

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, base_url, listing_path, started_at, finished_at, duration_ms,
		pages_planned, pages_indexed, pages_failed,
		listings_found, completed, failed, skipped
	FROM runs
	ORDER BY started_at DESC
	`
	args := make([]interface{}, 0)

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		summary, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, summary)
	}

	return results, rows.Err()
}

// GetRun retrieves one run by ID. Returns nil when the run is unknown.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	query := `
	SELECT id, base_url, listing_path, started_at, finished_at, duration_ms,
		pages_planned, pages_indexed, pages_failed,
		listings_found, completed, failed, skipped
	FROM runs
	WHERE id = ?
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	summary, err := scanRun(rows)
	if err != nil {
		return nil, err
	}

	return &summary, rows.Err()
}

// scanRun reads one runs row from the current cursor position.
func scanRun(rows *sql.Rows) (RunSummary, error) {
	var (
		summary    RunSummary
		startedAt  string
		finishedAt sql.NullString
		durationMS int64
	)

	err := rows.Scan(
		&summary.RunID,
		&summary.BaseURL,
		&summary.ListingPath,
		&startedAt,
		&finishedAt,
		&durationMS,
		&summary.PagesPlanned,
		&summary.PagesIndexed,
		&summary.PagesFailed,
		&summary.ListingsFound,
		&summary.Completed,
		&summary.Failed,
		&summary.Skipped,
	)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to scan run: %w", err)
	}

	summary.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		summary.FinishedAt = parseTimestamp(finishedAt.String)
	}
	summary.Duration = time.Duration(durationMS) * time.Millisecond

	return summary, nil
}

// FailuresForRun returns the terminal failures recorded for a run.
func (s *Store) FailuresForRun(ctx context.Context, runID string) ([]model.Failure, error) {
	query := `
	SELECT url, phase, reason, attempts
	FROM failures
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	defer rows.Close()

	var results []model.Failure
	for rows.Next() {
		var f model.Failure
		if err := rows.Scan(&f.URL, &f.Phase, &f.Reason, &f.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		results = append(results, f)
	}

	return results, rows.Err()
}

// CountListings returns how many listings a run captured.
func (s *Store) CountListings(ctx context.Context, runID string) (int, error) {
	query := `SELECT COUNT(*) FROM listings WHERE run_id = ?`

	var count int
	if err := s.db.QueryRowContext(ctx, query, runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}

	return count, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // our insert format
	time.RFC3339,              // insert format without sub-seconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
