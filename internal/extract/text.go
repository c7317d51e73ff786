package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperifyio/nosy/internal/errs"
)

// writeText applies the output rules shared by every backend: valid UTF-8,
// NFC-normalized, trimmed and non-empty. The text lands at <workDir>/ext.
func writeText(workDir, backend, text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", errs.Join(errs.ErrExtractionFailed, backend+" produced output that is not valid UTF-8", nil)
	}
	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return "", errs.Join(errs.ErrExtractionFailed, backend+" produced empty output", nil)
	}
	out := filepath.Join(workDir, ExtractedFilename)
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return "", errs.Join(errs.ErrIO, "write extracted text", err)
	}
	return out, nil
}

func readInput(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Join(errs.ErrIO, fmt.Sprintf("read %s", path), err)
	}
	return b, nil
}
