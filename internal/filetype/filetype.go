package filetype

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nosy/internal/errs"
)

// SniffBytes bounds how much of a file is inspected for MIME sniffing.
// Formats whose signature lies beyond this prefix are not recognized.
const SniffBytes = 8 << 10

func init() {
	mimetype.SetLimit(SniffBytes)
}

// Extension is a lowercase file extension without the leading dot.
type Extension struct{ v string }

// NewExtension normalizes s ("PDF", ".pdf" and "pdf" are equal).
func NewExtension(s string) Extension {
	return Extension{v: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))}
}

func (e Extension) String() string { return e.v }
func (e Extension) IsZero() bool   { return e.v == "" }

// Mime is a lowercase media type without parameters.
type Mime struct{ v string }

// NewMime normalizes s, dropping parameters such as "; charset=utf-8".
func NewMime(s string) Mime {
	base, _, _ := strings.Cut(s, ";")
	return Mime{v: strings.ToLower(strings.TrimSpace(base))}
}

func (m Mime) String() string { return m.v }
func (m Mime) IsZero() bool   { return m.v == "" }

// ExtensionOf returns the lowercase extension of path, or the zero Extension.
// Dotfiles such as ".bashrc" have no extension.
func ExtensionOf(path string) Extension {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" || ext == base || ext == "." {
		return Extension{}
	}
	return NewExtension(ext)
}

// Sniff detects the MIME type of the file at path from its first SniffBytes
// bytes. Content the detector cannot identify yields the zero Mime.
func Sniff(path string) (Mime, error) {
	f, err := os.Open(path)
	if err != nil {
		return Mime{}, fmt.Errorf("open for mime sniffing: %w", err)
	}
	defer f.Close()
	buf, err := io.ReadAll(io.LimitReader(f, SniffBytes))
	if err != nil {
		return Mime{}, fmt.Errorf("read prefix for mime sniffing: %w", err)
	}
	m := mimetype.Detect(buf)
	if m.Is("application/octet-stream") && m.Parent() == nil {
		return Mime{}, nil
	}
	return NewMime(m.String()), nil
}

// Classification is the outcome of content-type detection for one artifact.
// Extension and Mime hold what was actually computed; either may be zero.
type Classification struct {
	Kind      Kind
	Extension Extension
	Mime      Mime
	Forced    bool
}

// Classify picks the extractor kind for the artifact at path.
//
// Precedence: forced kind, then extension table, then MIME sniff. A forced
// kind or an extension hit never reads the file.
func Classify(path string, forced *Kind) (Classification, error) {
	if forced != nil {
		log.Debug().Str("kind", forced.String()).Msg("using forced extractor kind")
		return Classification{Kind: *forced, Forced: true}, nil
	}

	ext := ExtensionOf(path)
	if k := MatchByExtension(ext); k != Unsupported {
		log.Debug().Str("ext", ext.String()).Str("kind", k.String()).Msg("extractor kind by extension")
		return Classification{Kind: k, Extension: ext}, nil
	}

	mime, err := Sniff(path)
	if err != nil {
		return Classification{Extension: ext}, errs.Join(errs.ErrIO, "sniff content type", err)
	}
	k := MatchByMIME(mime)
	log.Debug().Str("ext", ext.String()).Str("mime", mime.String()).Str("kind", k.String()).Msg("extractor kind by mime")
	return Classification{Kind: k, Extension: ext, Mime: mime}, nil
}

// UnsupportedError reports a classification that maps to no backend.
type UnsupportedError struct {
	Extension Extension
	Mime      Mime
	Forced    bool
}

func (e *UnsupportedError) Error() string {
	ext, mime := "none", "none"
	if !e.Extension.IsZero() {
		ext = fmt.Sprintf("%q", e.Extension.String())
	}
	if !e.Mime.IsZero() {
		mime = fmt.Sprintf("%q", e.Mime.String())
	}
	if e.Forced {
		return fmt.Sprintf("extractor kind forced to unsupported (ext=%s, mime=%s); choose one of: %s", ext, mime, strings.Join(KindNames(), ", "))
	}
	return fmt.Sprintf("unsupported extractor kind for ext=%s mime=%s. Extractor detection is heuristic and may be wrong. Try specifying one explicitly via --ext-kind (%s)",
		ext, mime, strings.Join(KindNames(), ", "))
}

func (e *UnsupportedError) Unwrap() error { return errs.ErrClassificationUnsupported }

// Unsupported returns the classification failure for c.
func (c Classification) Unsupported() error {
	return &UnsupportedError{Extension: c.Extension, Mime: c.Mime, Forced: c.Forced}
}
