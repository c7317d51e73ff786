// Package whispermodel downloads ggml speech models for the whisper backend.
package whispermodel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/hyperifyio/nosy/internal/validate"
)

// DefaultBaseURL hosts the ggml model files.
const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Model is a published whisper.cpp model name such as "base.en".
type Model string

var models = []Model{
	"tiny.en", "tiny",
	"base.en", "base",
	"small.en", "small",
	"medium.en", "medium",
	"large-v1", "large-v2", "large-v3",
}

// Models lists the downloadable models, smallest first.
func Models() []Model {
	return append([]Model(nil), models...)
}

// ModelNames renders Models() as strings.
func ModelNames() []string {
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = string(m)
	}
	return out
}

// ParseModel accepts "base.en" as well as "base-en".
func ParseModel(s string) (Model, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, m := range models {
		if string(m) == v || strings.ReplaceAll(string(m), ".", "-") == v {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown whisper model %q (valid: %s)", s, strings.Join(ModelNames(), ", "))
}

// Filename is the published file name, e.g. "ggml-base.en.bin".
func (m Model) Filename() string { return "ggml-" + string(m) + ".bin" }

// ResolveOutputPath decides where the model file goes: an existing directory
// gets the model file name appended, an existing file is used as is, a
// missing path ending in .bin is a file, anything else is a directory.
func ResolveOutputPath(out string, m Model) string {
	if st, err := os.Stat(out); err == nil {
		if st.IsDir() {
			return filepath.Join(out, m.Filename())
		}
		return out
	}
	if strings.EqualFold(filepath.Ext(out), ".bin") {
		return out
	}
	return filepath.Join(out, m.Filename())
}

// ErrExists is returned when the target exists and overwriting is off.
var ErrExists = errors.New("output file already exists")

// Downloader fetches model files over HTTP.
type Downloader struct {
	HTTPClient *http.Client
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Progress draws a byte progress bar; nil draws nothing.
	Progress io.Writer
}

// URL is where m is downloaded from.
func (d *Downloader) URL(m Model) string {
	base := d.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + m.Filename()
}

// Download stores m under out (see ResolveOutputPath) and returns the final
// path. The body goes to a temporary sibling first and is renamed into place
// only after its size matches Content-Length.
func (d *Downloader) Download(ctx context.Context, m Model, out string, overwrite bool) (string, error) {
	dst := ResolveOutputPath(out, m)
	if !overwrite {
		if err := validate.FileMustNotExist(dst, "model file"); err != nil {
			return "", fmt.Errorf("%w: %s (use --overwrite to replace)", ErrExists, dst)
		}
	}
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}

	url := d.URL(m)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	hc := d.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	log.Info().Str("model", string(m)).Str("url", url).Msg("downloading whisper model")
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to start download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download request failed: GET '%s' returned %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+m.Filename()+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	var bar *progressbar.ProgressBar
	if d.Progress != nil {
		bar = newBar(d.Progress, m.Filename(), resp.ContentLength)
		w = io.MultiWriter(tmp, bar)
	}
	n, err := io.Copy(w, resp.Body)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to read download stream: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return "", fmt.Errorf("download size mismatch: expected %d bytes, got %d bytes", resp.ContentLength, n)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("move model into place: %w", err)
	}
	log.Info().Str("path", dst).Str("size", humanize.IBytes(uint64(n))).Msg("saved whisper model")
	return dst, nil
}

// Hint is the shell snippet that points the whisper backend at path.
func Hint(path string) string {
	return fmt.Sprintf("To use it with extract/summarize, we recommend running:\n  export %s=%q", validate.WhisperModelEnv, path)
}

// newBar renders byte progress for name; an unknown total shows a spinner.
func newBar(out io.Writer, name string, total int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Downloading "+name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

// Size formats the file at path for display, e.g. "141 MiB".
func Size(path string) string {
	st, err := os.Stat(path)
	if err != nil {
		return "unknown size"
	}
	return humanize.IBytes(uint64(st.Size()))
}
