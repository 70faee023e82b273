package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/merrlog/merrlog/internal/fetch"
)

// TestBuildIndexURL tests index URL construction.
func TestBuildIndexURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		baseURL     string
		listingPath string
		pageParam   string
		page        int
		want        string
	}{
		{
			name:        "default target",
			baseURL:     "https://www.merrjep.al",
			listingPath: "/njoftime/automjete/makina/ne-shitje",
			pageParam:   "Page",
			page:        3,
			want:        "https://www.merrjep.al/njoftime/automjete/makina/ne-shitje?Page=3",
		},
		{
			name:        "first page",
			baseURL:     "https://www.merrjep.al",
			listingPath: "/njoftime/automjete/makina/ne-shitje",
			pageParam:   "Page",
			page:        1,
			want:        "https://www.merrjep.al/njoftime/automjete/makina/ne-shitje?Page=1",
		},
		{
			name:        "trailing slash on base is trimmed",
			baseURL:     "https://www.merrjep.al/",
			listingPath: "/njoftime/automjete/makina/ne-shitje",
			pageParam:   "Page",
			page:        3,
			want:        "https://www.merrjep.al/njoftime/automjete/makina/ne-shitje?Page=3",
		},
		{
			name:        "custom page parameter",
			baseURL:     "https://example.com",
			listingPath: "/cars",
			pageParam:   "faqe",
			page:        7,
			want:        "https://example.com/cars?faqe=7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := BuildIndexURL(tt.baseURL, tt.listingPath, tt.pageParam, tt.page)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}

			// Same inputs must always produce the same URL.
			if again := BuildIndexURL(tt.baseURL, tt.listingPath, tt.pageParam, tt.page); again != got {
				t.Errorf("expected stable output, got %q then %q", got, again)
			}
		})
	}
}

// TestIndexer tests listing URL discovery on index pages.
func TestIndexer(t *testing.T) {
	t.Parallel()

	t.Run("extracts listing links in document order", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/cars", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			//nolint:errcheck // test handler
			_, _ = w.Write([]byte(`<html><body>
				<a class="Link_vis" href="/njoftim/first-car">First</a>
				<a class="Link_vis" href="/njoftim/second-car">Second</a>
				<a class="banner" href="/promo">Promo</a>
				<a href="/plain">Plain</a>
			</body></html>`))
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		fetcher := fetch.New(server.Client())
		indexer := NewIndexer(fetcher, server.URL, "/cars", "Page")

		links, err := indexer.Index(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{
			server.URL + "/njoftim/first-car",
			server.URL + "/njoftim/second-car",
		}
		if len(links) != len(want) {
			t.Fatalf("expected %d links, got %d: %v", len(want), len(links), links)
		}
		for i, link := range links {
			if link != want[i] {
				t.Errorf("link %d: expected %q, got %q", i, want[i], link)
			}
		}
	})

	t.Run("requests the page URL with the page parameter", func(t *testing.T) {
		t.Parallel()

		var gotURL string
		mux := http.NewServeMux()
		mux.HandleFunc("/cars", func(w http.ResponseWriter, r *http.Request) {
			gotURL = r.URL.String()
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body></body></html>`)) //nolint:errcheck
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		fetcher := fetch.New(server.Client())
		indexer := NewIndexer(fetcher, server.URL, "/cars", "Page")

		if _, err := indexer.Index(context.Background(), 4); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotURL != "/cars?Page=4" {
			t.Errorf("expected request to /cars?Page=4, got %q", gotURL)
		}
	})

	t.Run("keeps absolute links as is", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/cars", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			//nolint:errcheck // test handler
			_, _ = w.Write([]byte(`<html><body>
				<a class="Link_vis" href="https://www.merrjep.al/njoftim/absolute">Abs</a>
			</body></html>`))
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		fetcher := fetch.New(server.Client())
		indexer := NewIndexer(fetcher, server.URL, "/cars", "Page")

		links, err := indexer.Index(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(links) != 1 || links[0] != "https://www.merrjep.al/njoftim/absolute" {
			t.Errorf("expected absolute link preserved, got %v", links)
		}
	})

	t.Run("skips empty and unresolvable hrefs", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/cars", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			//nolint:errcheck // test handler
			_, _ = w.Write([]byte(`<html><body>
				<a class="Link_vis" href="">Empty</a>
				<a class="Link_vis" href="   ">Blank</a>
				<a class="Link_vis">Missing</a>
				<a class="Link_vis" href="http://[::1]:namedport/">Broken</a>
				<a class="Link_vis" href="/njoftim/good">Good</a>
			</body></html>`))
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		fetcher := fetch.New(server.Client())
		indexer := NewIndexer(fetcher, server.URL, "/cars", "Page")

		links, err := indexer.Index(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(links) != 1 || links[0] != server.URL+"/njoftim/good" {
			t.Errorf("expected only the good link, got %v", links)
		}
	})

	t.Run("skips anchors and non-HTTP schemes", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/cars", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			//nolint:errcheck // test handler
			_, _ = w.Write([]byte(`<html><body>
				<a class="Link_vis" href="#top">Anchor</a>
				<a class="Link_vis" href="javascript:void(0)">Script</a>
				<a class="Link_vis" href="mailto:sales@example.com">Mail</a>
				<a class="Link_vis" href="/njoftim/good">Good</a>
			</body></html>`))
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		fetcher := fetch.New(server.Client())
		indexer := NewIndexer(fetcher, server.URL, "/cars", "Page")

		links, err := indexer.Index(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(links) != 1 || links[0] != server.URL+"/njoftim/good" {
			t.Errorf("expected only the good link, got %v", links)
		}
	})

	t.Run("custom link selector", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/cars", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			//nolint:errcheck // test handler
			_, _ = w.Write([]byte(`<html><body>
				<a class="Link_vis" href="/njoftim/default">Default</a>
				<a class="listing-card" href="/njoftim/custom">Custom</a>
			</body></html>`))
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		fetcher := fetch.New(server.Client())
		indexer := NewIndexer(fetcher, server.URL, "/cars", "Page", WithLinkSelector("a.listing-card"))

		links, err := indexer.Index(context.Background(), 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(links) != 1 || links[0] != server.URL+"/njoftim/custom" {
			t.Errorf("expected only the custom selector link, got %v", links)
		}
	})

	t.Run("propagates fetch failures", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		fetcher := fetch.New(server.Client(), fetch.WithRetries(1))
		indexer := NewIndexer(fetcher, server.URL, "/cars", "Page")

		_, err := indexer.Index(context.Background(), 1)
		if err == nil {
			t.Fatal("expected error for 404 index page")
		}

		var fetchErr *fetch.FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *fetch.FetchError, got %T", err)
		}
		if fetchErr.LastStatus != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", fetchErr.LastStatus)
		}
	})
}
