package extract

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/progress"
)

// HTML extracts the main article text of a web page. Readability runs first;
// pages where it finds nothing fall back to FromHTML.
type HTML struct{}

func (HTML) Extract(ctx context.Context, req Request) (string, error) {
	sink := progress.Or(req.Progress)
	sink.Update("Reading HTML")
	raw, err := readInput(req.ContentPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sink.Update("Decoding HTML")
	page := decodeHTML(raw, req.Mime.String())

	sink.Update("Extracting readable content")
	text := readableText(page, req.ContentPath)
	if text == "" {
		log.Debug().Str("path", req.ContentPath).Msg("readability found no content; using heuristic extractor")
		doc := FromHTML([]byte(page))
		text = doc.Text
	}
	if strings.TrimSpace(text) == "" {
		return "", errs.Join(errs.ErrExtractionFailed, "failed to extract text from HTML content", nil)
	}
	return writeText(req.WorkDir, "html extractor", text)
}

func readableText(page, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	base := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	article, err := readability.FromReader(strings.NewReader(page), base)
	if err != nil {
		log.Debug().Err(err).Msg("readability failed")
		return ""
	}
	body := strings.TrimSpace(article.TextContent)
	if body == "" {
		return ""
	}
	title := strings.TrimSpace(article.Title)
	if title != "" && !strings.HasPrefix(body, title) {
		body = title + "\n\n" + body
	}
	return normalizeWhitespace(body)
}

// decodeHTML converts raw page bytes to UTF-8. A declared charset (BOM,
// meta tag) wins; otherwise non-UTF-8 input goes through chardet.
func decodeHTML(raw []byte, contentType string) string {
	if contentType == "" {
		contentType = "text/html"
	}
	enc, name, certain := charset.DetermineEncoding(raw, contentType)
	if !certain && !utf8.Valid(raw) {
		if res, err := chardet.NewTextDetector().DetectBest(raw); err == nil && res != nil {
			if detected, canonical := charset.Lookup(res.Charset); detected != nil {
				enc, name = detected, canonical
			}
		}
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		log.Debug().Err(err).Str("charset", name).Msg("charset decode failed; using raw bytes")
		return strings.ToValidUTF8(string(raw), "�")
	}
	log.Debug().Str("charset", name).Bool("declared", certain).Msg("decoded html")
	return string(out)
}
