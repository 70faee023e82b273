package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestFetcherFetch tests the basic fetch path.
func TestFetcherFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body on success", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body>ok</body></html>`)) //nolint:errcheck
		}))
		defer server.Close()

		f := New(server.Client(), WithBackoff(0))
		body, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(body), "ok") {
			t.Errorf("unexpected body: %q", body)
		}
	})

	t.Run("sends browser headers", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotLang atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA.Store(r.Header.Get("User-Agent"))
			gotLang.Store(r.Header.Get("Accept-Language"))
			_, _ = w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		f := New(server.Client(), WithUserAgent("merrlog-test/1.0"))
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if ua, _ := gotUA.Load().(string); ua != "merrlog-test/1.0" {
			t.Errorf("got User-Agent %q", ua)
		}
		if lang, _ := gotLang.Load().(string); lang == "" {
			t.Error("expected Accept-Language to be set")
		}
	})

	t.Run("applies extra headers", func(t *testing.T) {
		t.Parallel()

		var got atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got.Store(r.Header.Get("X-Custom"))
			_, _ = w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		f := New(server.Client(), WithHeaders(map[string]string{"X-Custom": "value"}))
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if v, _ := got.Load().(string); v != "value" {
			t.Errorf("got X-Custom %q, expected %q", v, "value")
		}
	})

	t.Run("decodes declared charset to UTF-8", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=windows-1252")
			// 0xEB is "ë" in windows-1252, common in Albanian text.
			_, _ = w.Write([]byte{'P', 'r', 'i', 's', 'h', 't', 'i', 'n', 0xEB}) //nolint:errcheck
		}))
		defer server.Close()

		f := New(server.Client())
		body, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != "Prishtinë" {
			t.Errorf("got %q, expected %q", body, "Prishtinë")
		}
	})

	t.Run("truncates oversized bodies", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 4096))) //nolint:errcheck
		}))
		defer server.Close()

		f := New(server.Client(), WithMaxBodySize(1024))
		body, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(body) != 1024 {
			t.Errorf("got %d bytes, expected 1024", len(body))
		}
	})
}

// TestFetcherRetries tests the retry and classification semantics.
func TestFetcherRetries(t *testing.T) {
	t.Parallel()

	t.Run("retries 5xx then succeeds", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte("recovered")) //nolint:errcheck
		}))
		defer server.Close()

		f := New(server.Client(), WithRetries(3), WithBackoff(time.Millisecond))
		body, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != "recovered" {
			t.Errorf("got %q", body)
		}
		if calls.Load() != 3 {
			t.Errorf("got %d calls, expected 3", calls.Load())
		}
	})

	t.Run("retries 429", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		f := New(server.Client(), WithRetries(2), WithBackoff(time.Millisecond))
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("got %d calls, expected 2", calls.Load())
		}
	})

	t.Run("404 fails without retry", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		f := New(server.Client(), WithRetries(3), WithBackoff(time.Millisecond))
		_, err := f.Fetch(context.Background(), server.URL)
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("got %d calls, expected exactly 1", calls.Load())
		}

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fetchErr.LastStatus != http.StatusNotFound {
			t.Errorf("got status %d, expected 404", fetchErr.LastStatus)
		}
		if fetchErr.Attempts != 1 {
			t.Errorf("got %d attempts, expected 1", fetchErr.Attempts)
		}
		if fetchErr.Transient() {
			t.Error("expected a 404 to be reported as non-transient")
		}
	})

	t.Run("exhausted retries return FetchError", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		f := New(server.Client(), WithRetries(3), WithBackoff(time.Millisecond))
		_, err := f.Fetch(context.Background(), server.URL)
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 3 {
			t.Errorf("got %d calls, expected 3", calls.Load())
		}

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fetchErr.Attempts != 3 {
			t.Errorf("got %d attempts, expected 3", fetchErr.Attempts)
		}
		if fetchErr.LastStatus != http.StatusBadGateway {
			t.Errorf("got status %d, expected 502", fetchErr.LastStatus)
		}
		if fetchErr.URL != server.URL {
			t.Errorf("got URL %q", fetchErr.URL)
		}
		if !fetchErr.Transient() {
			t.Error("expected an exhausted 502 streak to be reported as transient")
		}
	})

	t.Run("timeout is retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				// Stall past the per-attempt timeout.
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
				return
			}
			_, _ = w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		f := New(server.Client(),
			WithRetries(2),
			WithBackoff(time.Millisecond),
			WithTimeout(100*time.Millisecond))
		body, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != "ok" {
			t.Errorf("got %q", body)
		}
	})

	t.Run("canceled context aborts without FetchError", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := New(server.Client(), WithRetries(3), WithBackoff(time.Second))
		_, err := f.Fetch(ctx, server.URL)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			t.Error("cancellation must not be reported as a FetchError")
		}
	})

	t.Run("malformed URL fails terminally", func(t *testing.T) {
		t.Parallel()

		f := New(http.DefaultClient, WithRetries(3), WithBackoff(time.Millisecond))
		start := time.Now()
		_, err := f.Fetch(context.Background(), "http://[::1]:namedport/")
		if err == nil {
			t.Fatal("expected error")
		}
		// Terminal on the first attempt, so no backoff waits happened.
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("fetch took %v, expected immediate failure", elapsed)
		}
	})
}

// TestFetcherDelay tests the politeness limiter.
func TestFetcherDelay(t *testing.T) {
	t.Parallel()

	t.Run("spaces consecutive requests", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok")) //nolint:errcheck
		}))
		defer server.Close()

		f := New(server.Client(), WithDelay(100*time.Millisecond))
		ctx := context.Background()

		start := time.Now()
		if _, err := f.Fetch(ctx, server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.Fetch(ctx, server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
			t.Errorf("two fetches finished in %v, expected at least 100ms spacing", elapsed)
		}
	})

	t.Run("zero delay leaves limiter off", func(t *testing.T) {
		t.Parallel()

		f := New(http.DefaultClient, WithDelay(0))
		if f.limiter != nil {
			t.Error("expected nil limiter for zero delay")
		}
	})
}

// TestTransient tests the failure classification.
func TestTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		err    error
		want   bool
	}{
		{name: "500 is transient", status: 500, want: true},
		{name: "502 is transient", status: 502, want: true},
		{name: "503 is transient", status: 503, want: true},
		{name: "429 is transient", status: 429, want: true},
		{name: "404 is terminal", status: 404, want: false},
		{name: "403 is terminal", status: 403, want: false},
		{name: "401 is terminal", status: 401, want: false},
		{name: "410 is terminal", status: 410, want: false},
		{name: "DNS error is terminal", err: &net.DNSError{Err: "no such host"}, want: false},
		{name: "deadline is transient", err: context.DeadlineExceeded, want: true},
		{name: "unexpected EOF is transient", err: io.ErrUnexpectedEOF, want: true},
		{name: "plain error is terminal", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		tt := tt // per-iteration copy; required while go.mod targets go < 1.22
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := transient(tt.status, tt.err); got != tt.want {
				t.Errorf("transient(%d, %v) = %v, expected %v", tt.status, tt.err, got, tt.want)
			}
		})
	}
}
