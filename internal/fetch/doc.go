// Package fetch provides the HTTP layer for merrlog: a retrying page
// fetcher, failure classification, an optional politeness rate limiter,
// and a robots.txt gate.
//
// # Components
//
//   - Fetcher: Fetches one URL with bounded retries and returns UTF-8 bytes
//   - FetchError: Terminal failure carrying the last status and attempt count
//   - Robots: Per-host robots.txt cache that fails open
//   - NewClient: An http.Client tuned for crawling a single host
//
// # Retry semantics
//
// A fetch attempt either succeeds (HTTP 2xx), fails transiently, or fails
// terminally. Transient failures are server-side or network conditions that
// tend to clear on their own: 5xx statuses, 429, timeouts, and dropped
// connections. They are retried with exponential backoff up to the
// configured attempt limit. Everything else (other 4xx statuses, DNS
// failures, TLS certificate errors, malformed URLs) is terminal on the
// first occurrence; retrying a 404 only wastes the site's bandwidth and
// our time.
//
// Design decision: Classification lives here rather than in the crawler
// because:
//  1. The classification depends on transport details (net.Error, status)
//  2. Both index and detail fetches need identical semantics
//  3. The crawler only cares about success or a terminal FetchError
package fetch
