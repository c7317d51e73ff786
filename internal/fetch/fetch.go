package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nosy/internal/cache"
	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/progress"
)

// Client retrieves resources with a plain HTTP GET. It makes exactly one
// attempt per call; failures are reported, never retried.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// PerRequestTimeout bounds each request. Zero means no timeout.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for GET bodies and validators.
	Cache *cache.HTTPCache
	// If true, skip conditional headers but still save the latest response.
	BypassCache bool
	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
}

// StatusError is a completed exchange with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("GET '%s' failed with status %s", e.URL, status)
}

func (e *StatusError) Unwrap() error { return errs.ErrFetchFailed }

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Fetch downloads uri and stages the body unchanged at <workDir>/raw.
func (c *Client) Fetch(ctx context.Context, uri, workDir string, sink progress.Sink) (string, error) {
	progress.Or(sink).Update("Fetching " + uri)
	body, ct, err := c.Get(ctx, uri)
	if err != nil {
		return "", err
	}
	log.Debug().Str("url", uri).Str("content_type", ct).Int("bytes", len(body)).Msg("fetched")
	return stageRaw(workDir, body)
}

// Get issues one GET with context and user agent and returns the body and
// its Content-Type. A cached entry turns the request into a conditional one.
func (c *Client) Get(ctx context.Context, uri string) ([]byte, string, error) {
	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, uri); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}

	body, ct, newEtag, newLastMod, status, err := c.tryOnce(ctx, uri, etag, lastMod)
	if err != nil {
		return nil, "", err
	}
	if status == http.StatusNotModified && c.Cache != nil {
		cached, cerr := c.Cache.LoadBody(ctx, uri)
		if cerr != nil {
			return nil, "", errs.Join(errs.ErrFetchFailed, fmt.Sprintf("GET '%s' returned 304 but the cached body is gone", uri), cerr)
		}
		if meta, merr := c.Cache.LoadMeta(ctx, uri); merr == nil && meta != nil && ct == "" {
			ct = meta.ContentType
		}
		log.Debug().Str("url", uri).Msg("served from http cache")
		return cached, ct, nil
	}
	if c.Cache != nil && status == http.StatusOK {
		if err := c.Cache.Save(ctx, uri, ct, newEtag, newLastMod, body); err != nil {
			log.Debug().Err(err).Str("url", uri).Msg("http cache save failed")
		}
	}
	return body, ct, nil
}

func (c *Client) tryOnce(ctx context.Context, uri string, etag string, lastMod string) ([]byte, string, string, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", "", "", 0, errs.Join(errs.ErrFetchFailed, "new request", err)
	}
	// Reject non-HTTP(S) schemes early
	if !isHTTPScheme(req.URL) {
		return nil, "", "", "", 0, errs.Join(errs.ErrFetchFailed, fmt.Sprintf("unsupported URL scheme: %q", req.URL.String()), nil)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, "", "", "", 0, errs.Join(errs.ErrFetchFailed, fmt.Sprintf("GET '%s' failed", uri), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && etag+lastMod != "" {
		return nil, resp.Header.Get("Content-Type"), resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", "", "", resp.StatusCode, &StatusError{URL: uri, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", "", "", resp.StatusCode, errs.Join(errs.ErrFetchFailed, fmt.Sprintf("GET '%s': read body", uri), err)
	}
	return b, resp.Header.Get("Content-Type"), resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), resp.StatusCode, nil
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// stageRaw writes body to <workDir>/raw.
func stageRaw(workDir string, body []byte) (string, error) {
	p := filepath.Join(workDir, RawFilename)
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", errs.Join(errs.ErrIO, "stage fetched content", err)
	}
	return p, nil
}
