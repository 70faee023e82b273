// Package crawler provides the crawl engine for merrjep.al vehicle listings.
//
// # Architecture
//
// The crawler package is designed around the Engine type, which coordinates
// a two-tier concurrent crawl: index pages are processed in sequential
// chunks with the pages of a chunk fetched concurrently, and the listings
// discovered on each page are fetched by a bounded pool of detail workers.
//
// Design decision: We implement our own engine rather than using a crawling
// framework because:
//  1. The two-tier page/detail shape with a hard connection bound is the
//     whole point; frameworks schedule a single flat frontier
//  2. Failure isolation rules differ per tier (a failed index page drops
//     its listings, a failed listing drops only itself)
//  3. The site is one host with two page shapes; a framework buys nothing
//
// # Components
//
//   - Engine: Coordinates chunks, workers, counters, and the record sink
//   - Indexer: Fetches one index page and extracts listing URLs
//   - Extractor: Fetches one detail page and extracts a ListingRecord
//   - Tracker: Optional progress notifications for a UI
//
// # Concurrency
//
// Peak open requests are bounded by chunk size times worker count: each
// page in flight is either fetching its index page or running at most
// workers detail fetches. Deduplication of listing URLs is global across
// the run, so a listing appearing on two index pages is fetched once.
//
// # Usage
//
//	engine := crawler.NewEngine(indexer, extractor, sink,
//	    crawler.WithPages(20),
//	    crawler.WithChunkSize(5),
//	    crawler.WithWorkers(10),
//	)
//	report, err := engine.Run(ctx)
package crawler
