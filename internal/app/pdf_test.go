package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteSummaryPDF(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "summary.pdf")
	summary := "# Summary\n\nThe café opens at [seven](https://example.com/hours).\n\n- first point\n- second point\n"
	if err := writeSummaryPDF("notes.txt", summary, out); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a PDF: %q", b[:8])
	}
}
