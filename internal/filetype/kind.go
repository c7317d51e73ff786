package filetype

import (
	"fmt"
	"strings"
)

// Kind selects the extractor backend used for a run.
type Kind int

const (
	Unsupported Kind = iota
	PlainText
	HTMLNative
	PDFNative
	Pandoc
	Whisper
)

var kindNames = map[Kind]string{
	PlainText:  "plain",
	HTMLNative: "html",
	PDFNative:  "pdf",
	Pandoc:     "pandoc",
	Whisper:    "whisper",
}

// String returns the command-line name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unsupported"
}

// Kinds lists the selectable kinds in display order. Unsupported is not selectable.
func Kinds() []Kind {
	return []Kind{PlainText, HTMLNative, PDFNative, Pandoc, Whisper}
}

// KindNames returns the command-line names of Kinds().
func KindNames() []string {
	ks := Kinds()
	out := make([]string, 0, len(ks))
	for _, k := range ks {
		out = append(out, k.String())
	}
	return out
}

// ParseKind maps a command-line name back to a Kind.
func ParseKind(s string) (Kind, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == v {
			return k, nil
		}
	}
	return Unsupported, fmt.Errorf("unknown extractor kind %q (valid: %s)", s, strings.Join(KindNames(), ", "))
}
