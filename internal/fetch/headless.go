package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/progress"
)

// Headless renders a page in a headless Chromium and stages the resulting
// document HTML. Use it for pages that build their content with scripts.
type Headless struct {
	UserAgent string
	// ExecPath overrides browser discovery.
	ExecPath string
	// Timeout bounds the whole navigation. Zero means only ctx applies.
	Timeout time.Duration
}

func (h *Headless) Fetch(ctx context.Context, uri, workDir string, sink progress.Sink) (string, error) {
	progress.Or(sink).Update("Rendering " + uri)
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		html, err := h.render(ctx, uri)
		done <- result{html: html, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return "", errs.Join(errs.ErrFetchFailed, fmt.Sprintf("headless fetch of '%s' aborted", uri), ctx.Err())
	case r = <-done:
	}
	if r.err != nil {
		return "", errs.Join(errs.ErrFetchFailed, fmt.Sprintf("headless fetch of '%s' failed", uri), r.err)
	}
	log.Debug().Str("url", uri).Int("bytes", len(r.html)).Msg("rendered")
	return stageRaw(workDir, []byte(r.html))
}

func (h *Headless) render(ctx context.Context, uri string) (string, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if h.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(h.UserAgent))
	}
	if h.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(h.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(uri),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
