package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperifyio/nosy/internal/progress"
)

// RawFilename is the fixed name of fetched bytes inside the work directory.
const RawFilename = "raw"

// Fetcher retrieves a remote resource and stages it under workDir,
// returning the staged path.
type Fetcher interface {
	Fetch(ctx context.Context, uri, workDir string, sink progress.Sink) (string, error)
}

// Mode selects the Fetcher used for http(s) inputs.
type Mode string

const (
	ModeGet      Mode = "get"
	ModeHeadless Mode = "headless"
)

// ParseMode accepts "get" or "headless"; empty means get.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeGet:
		return ModeGet, nil
	case ModeHeadless:
		return ModeHeadless, nil
	default:
		return "", fmt.Errorf("invalid http fetch mode %q (valid: get, headless)", s)
	}
}
