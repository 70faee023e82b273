// Package storage provides the durable destinations for captured listings.
//
// This package contains:
//   - CSVSink: append-only CSV output, one row per listing
//   - Store: SQLite database accumulating listings and run history
//   - StoreSink: adapter feeding one run's records into a Store
//   - MultiSink: fan-out to several sinks at once
//
// Design decision: We use SQLite (via modernc.org/sqlite) for the store
// because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
//
// The listings and failures tables are append-only. Repeated crawls
// re-capture the same listing at a later timestamp on purpose: the
// dataset is a price history, not a deduplicated snapshot.
package storage
