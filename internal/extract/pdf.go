package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/progress"
)

// PDF reads the embedded text layer page by page. Scanned documents without
// a text layer fail; there is no OCR.
type PDF struct{}

func (PDF) Extract(ctx context.Context, req Request) (string, error) {
	sink := progress.Or(req.Progress)
	sink.Update("Reading PDF")
	data, err := readInput(req.ContentPath)
	if err != nil {
		return "", err
	}

	text, err := pdfText(ctx, data, sink)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errs.Join(errs.ErrExtractionFailed, "failed to extract text from PDF content", nil)
	}
	return writeText(req.WorkDir, "pdf extractor", text)
}

func pdfText(ctx context.Context, data []byte, sink progress.Sink) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = errs.Join(errs.ErrExtractionFailed, "failed to extract text from PDF content", fmt.Errorf("%v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errs.Join(errs.ErrExtractionFailed, "failed to extract text from PDF content", err)
	}
	n := r.NumPage()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		sink.Update(fmt.Sprintf("Extracting PDF page %d/%d", i, n))
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pt, err := pageText(page)
		if err != nil {
			log.Debug().Int("page", i).Err(err).Msg("pdf page text failed")
			continue
		}
		if pt = strings.TrimSpace(pt); pt != "" {
			b.WriteString(pt)
			b.WriteString("\n\n")
		}
	}
	return b.String(), nil
}

// pageText joins the words of each text row; an empty element between two
// non-empty ones marks a word boundary.
func pageText(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, row := range rows {
		var line strings.Builder
		gap := false
		for _, word := range row.Content {
			if word.S == "" {
				gap = true
				continue
			}
			if gap && line.Len() > 0 && !strings.HasSuffix(line.String(), " ") {
				line.WriteByte(' ')
			}
			line.WriteString(word.S)
			gap = false
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
