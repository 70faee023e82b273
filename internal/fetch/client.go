package fetch

import (
	"net/http"
	"time"
)

// NewClient returns an http.Client tuned for crawling a single host.
//
// Design decision: We size the connection pool from the crawl's peak
// concurrency because:
//  1. Go's default Transport keeps only two idle connections per host
//  2. A chunk of index pages with detail workers behind each would churn
//     through TCP handshakes instead of reusing sockets
//  3. MaxConnsPerHost doubles as a hard cap on what the site ever sees
//
// The client carries no overall timeout; each attempt is bounded by the
// Fetcher's per-request context.
func NewClient(maxConns int) *http.Client {
	if maxConns <= 0 {
		maxConns = 1
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
	}
}
