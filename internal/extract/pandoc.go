package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/nosy/internal/command"
	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/filetype"
	"github.com/hyperifyio/nosy/internal/progress"
	"github.com/hyperifyio/nosy/internal/validate"
)

// Pandoc converts office and markup documents to plain text with the pandoc
// executable.
type Pandoc struct {
	Runner command.Runner
}

var pandocByExtension = map[string]string{
	"docx": "docx", "doc": "doc", "odt": "odt", "rtf": "rtf", "epub": "epub",
	"md": "markdown", "html": "html", "htm": "html", "xhtml": "html",
	"txt": "plain", "text": "plain", "tex": "latex", "latex": "latex",
}

var pandocByMime = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/msword":                      "doc",
	"application/vnd.oasis.opendocument.text": "odt",
	"application/rtf":                         "rtf",
	"text/rtf":                                "rtf",
	"application/epub+zip":                    "epub",
	"text/markdown":                           "markdown",
	"text/html":                               "html",
	"application/xhtml+xml":                   "html",
	"text/plain":                              "plain",
	"text/latex":                              "latex",
	"application/x-tex":                       "latex",
	"text/x-tex":                              "latex",
}

// pandocInputFormat picks the --from value. The MIME type is consulted only
// when there is no extension; an unknown extension yields no hint at all.
func pandocInputFormat(ext filetype.Extension, mime filetype.Mime) string {
	if !ext.IsZero() {
		return pandocByExtension[ext.String()]
	}
	if !mime.IsZero() {
		return pandocByMime[mime.String()]
	}
	return ""
}

func (p *Pandoc) Extract(ctx context.Context, req Request) (string, error) {
	bin, err := validate.CommandExecutable(validate.PandocBin, validate.PandocInstallHint)
	if err != nil {
		return "", err
	}
	sink := progress.Or(req.Progress)
	sink.Update("Converting document with pandoc")

	cmd := command.New(bin).
		Flag("from", pandocInputFormat(req.Extension, req.Mime)).
		Arg("--to").Arg("plain").
		Arg("--wrap=none").
		Arg("--markdown-headings=atx").
		Arg(req.ContentPath)
	res, err := p.Runner.Run(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errs.Join(errs.ErrExtractionFailed, "pandoc failed to start", err)
	}
	if !res.Success() {
		return "", errs.Join(errs.ErrExtractionFailed, "pandoc failed: "+strings.TrimSpace(string(res.Stderr)), nil)
	}
	if !utf8.Valid(res.Stdout) {
		return "", errs.Join(errs.ErrExtractionFailed, "pandoc produced output that is not valid UTF-8", nil)
	}
	return writeText(req.WorkDir, "pandoc", string(res.Stdout))
}
