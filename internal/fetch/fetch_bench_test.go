package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperifyio/nosy/internal/cache"
)

// Benchmark a plain GET against a revalidated one served from the on-disk cache.
func BenchmarkClient_Get(b *testing.B) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("<html><head><title>ok</title></head><body><main><p>hello</p></main></body></html>"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	run := func(name string, c *Client) {
		b.Run(name, func(b *testing.B) {
			url := ts.URL + "/page"
			for i := 0; i < b.N; i++ {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_, _, err := c.Get(ctx, url)
				cancel()
				if err != nil {
					b.Fatalf("fetch failed: %v", err)
				}
			}
		})
	}

	run("no-cache", &Client{HTTPClient: ts.Client(), UserAgent: "bench/1"})
	run("cache", &Client{HTTPClient: ts.Client(), UserAgent: "bench/1", Cache: &cache.HTTPCache{Dir: b.TempDir()}})
}
