// Package model defines the core data structures used throughout merrlog.
//
// This package contains the following main types:
//   - ListingRecord: A single vehicle listing captured from a detail page
//   - CrawlReport: The summary of one crawl run
//   - Failure: A terminal fetch or parse failure recorded during a run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, storage, report) need to use these
// types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
