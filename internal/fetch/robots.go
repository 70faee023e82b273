package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsPath is the well-known path for robots.txt files.
const robotsPath = "/robots.txt"

// maxRobotsBody limits the size of robots.txt responses we will read.
const maxRobotsBody = 512 * 1024 // 512KB

// Robots checks URLs against the host's robots.txt before crawling.
// Results are cached per host for the lifetime of the process, which for a
// CLI run is a few minutes at most.
//
// Design decision: The check fails open. A missing, unreachable, or
// unparsable robots.txt allows the crawl; only an explicit Disallow for
// our agent blocks it. This is standard crawling practice and keeps the
// gate from turning a robots.txt outage into a failed run.
type Robots struct {
	// client is the shared HTTP client.
	client *http.Client

	// userAgent is matched against robots.txt agent groups.
	userAgent string

	// mu protects cache.
	mu sync.RWMutex

	// cache holds one entry per host.
	cache map[string]*robotsEntry
}

// robotsEntry is the cached verdict source for one host.
type robotsEntry struct {
	// data is the parsed robots.txt, nil when allowAll is set.
	data *robotstxt.RobotsData

	// allowAll is true when robots.txt was missing or unreadable.
	allowAll bool
}

// NewRobots creates a Robots checker using the given HTTP client.
func NewRobots(client *http.Client, userAgent string) *Robots {
	return &Robots{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotsEntry),
	}
}

// Allowed reports whether rawURL may be crawled under its host's robots.txt.
// Unparsable URLs are allowed; the fetch itself will fail with a better error.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	entry := r.entry(ctx, u.Scheme, strings.ToLower(u.Host))
	if entry.allowAll {
		return true
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return entry.data.TestAgent(path, r.userAgent)
}

// entry returns the cached entry for host, fetching robots.txt on a miss.
func (r *Robots) entry(ctx context.Context, scheme, host string) *robotsEntry {
	r.mu.RLock()
	entry, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return entry
	}

	entry = r.fetch(ctx, scheme, host)

	r.mu.Lock()
	r.cache[host] = entry
	r.mu.Unlock()

	return entry
}

// fetch retrieves and parses robots.txt for host.
// Every failure path returns an allow-all entry.
func (r *Robots) fetch(ctx context.Context, scheme, host string) *robotsEntry {
	if scheme == "" {
		scheme = "https"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+host+robotsPath, nil)
	if err != nil {
		return &robotsEntry{allowAll: true}
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return &robotsEntry{allowAll: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &robotsEntry{allowAll: true}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return &robotsEntry{allowAll: true}
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return &robotsEntry{allowAll: true}
	}

	return &robotsEntry{data: data}
}
