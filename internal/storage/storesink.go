package storage

import (
	"context"

	"github.com/merrlog/merrlog/internal/model"
)

// StoreSink feeds one run's records into a Store.
// It implements Sink so the database can sit behind the same hand-off as
// the CSV output.
type StoreSink struct {
	// store is the destination database.
	store *Store

	// runID tags every inserted listing.
	runID string
}

// NewStoreSink creates a sink inserting under the given run ID.
// The run row itself is the caller's concern: call Store.CreateRun before
// the crawl and Store.FinishRun after.
func NewStoreSink(store *Store, runID string) *StoreSink {
	return &StoreSink{
		store: store,
		runID: runID,
	}
}

// Append inserts the record.
// Inserts use a background context on purpose: a record that was
// extracted gets written even while the run is shutting down.
func (s *StoreSink) Append(rec *model.ListingRecord) error {
	return s.store.InsertListing(context.Background(), s.runID, rec)
}

// Close is a no-op; the Store itself stays open for the run bookkeeping
// that follows the crawl.
func (s *StoreSink) Close() error {
	return nil
}
