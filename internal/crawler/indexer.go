package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/merrlog/merrlog/internal/fetch"
)

// DefaultLinkSelector matches the anchor elements wrapping each listing on
// an index page.
const DefaultLinkSelector = "a.Link_vis"

// BuildIndexURL returns the absolute URL of index page n.
// The page number rides in a query parameter, so page 3 of the defaults is
// "https://www.merrjep.al/njoftime/automjete/makina/ne-shitje?Page=3".
// The function is pure: equal inputs always produce equal URLs.
func BuildIndexURL(baseURL, listingPath, pageParam string, page int) string {
	q := url.Values{}
	q.Set(pageParam, strconv.Itoa(page))
	return strings.TrimSuffix(baseURL, "/") + listingPath + "?" + q.Encode()
}

// Indexer discovers listing URLs on index pages.
// It is safe for concurrent use; all state is set at construction.
type Indexer struct {
	// fetcher performs the HTTP requests.
	fetcher *fetch.Fetcher

	// baseURL is the site root relative links resolve against.
	baseURL string

	// listingPath is the category path of the index pages.
	listingPath string

	// pageParam is the pagination query parameter.
	pageParam string

	// linkSelector is the CSS selector for listing anchors.
	linkSelector string

	// base is baseURL parsed once for link resolution.
	base *url.URL
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLinkSelector overrides the listing anchor selector.
func WithLinkSelector(selector string) IndexerOption {
	return func(ix *Indexer) {
		ix.linkSelector = selector
	}
}

// NewIndexer creates an Indexer for the given target.
// baseURL must have passed config validation; an unparsable base leaves
// relative links unresolved and they are skipped during extraction.
func NewIndexer(fetcher *fetch.Fetcher, baseURL, listingPath, pageParam string, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		fetcher:      fetcher,
		baseURL:      baseURL,
		listingPath:  listingPath,
		pageParam:    pageParam,
		linkSelector: DefaultLinkSelector,
	}

	if base, err := url.Parse(baseURL); err == nil {
		ix.base = base
	}

	for _, opt := range opts {
		opt(ix)
	}

	return ix
}

// BaseURL returns the site root the indexer crawls.
func (ix *Indexer) BaseURL() string {
	return ix.baseURL
}

// ListingPath returns the category path of the index pages.
func (ix *Indexer) ListingPath() string {
	return ix.listingPath
}

// PageURL returns the absolute URL of index page n.
func (ix *Indexer) PageURL(page int) string {
	return BuildIndexURL(ix.baseURL, ix.listingPath, ix.pageParam, page)
}

// Index fetches index page n and returns the absolute listing URLs found on
// it, in document order. Duplicate handling is the caller's concern; the
// same listing may legitimately appear on consecutive pages while the site
// reshuffles between our fetches.
func (ix *Indexer) Index(ctx context.Context, page int) ([]string, error) {
	body, err := ix.fetcher.Fetch(ctx, ix.PageURL(page))
	if err != nil {
		return nil, err
	}
	return ix.extractLinks(body)
}

// extractLinks pulls listing URLs out of an index page body.
func (ix *Indexer) extractLinks(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	var links []string
	doc.Find(ix.linkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		if abs := ix.absolutize(strings.TrimSpace(href)); abs != "" {
			links = append(links, abs)
		}
	})

	return links, nil
}

// absolutize resolves href against the site root. Links that cannot be
// resolved return "" and are dropped, as are fragment-only anchors and
// pseudo-links like javascript: or mailto:.
func (ix *Indexer) absolutize(href string) string {
	if strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := ref
	if !ref.IsAbs() {
		if ix.base == nil {
			return ""
		}
		abs = ix.base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
