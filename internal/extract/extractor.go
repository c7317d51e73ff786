package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperifyio/nosy/internal/command"
	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/filetype"
	"github.com/hyperifyio/nosy/internal/progress"
)

// ExtractedFilename is the fixed name of the extracted text inside the work directory.
const ExtractedFilename = "ext"

// Request describes one extraction. Extension and Mime are whatever the
// classifier computed and may be zero.
type Request struct {
	ContentPath string
	Extension   filetype.Extension
	Mime        filetype.Mime
	WorkDir     string
	Progress    progress.Sink
}

// Extractor turns the content at req.ContentPath into UTF-8 text written to
// <req.WorkDir>/ext and returns that path.
type Extractor interface {
	Extract(ctx context.Context, req Request) (string, error)
}

// Options carries settings resolved by the caller before dispatch.
type Options struct {
	// WhisperModelPath is a validated model file; required for Whisper.
	WhisperModelPath string
	// WhisperLanguage is a whisper language code; empty means auto-detect.
	WhisperLanguage string
	// Runner executes external tools. Nil means command.ExecRunner.
	Runner command.Runner
}

func (o Options) runner() command.Runner {
	if o.Runner == nil {
		return command.ExecRunner{}
	}
	return o.Runner
}

// ErrNoBackend is returned for plain text, which is used as-is.
var ErrNoBackend = errors.New("plain text has no extractor backend")

type constructor func(Options) (Extractor, error)

var backends = map[filetype.Kind]constructor{
	filetype.HTMLNative: func(Options) (Extractor, error) { return HTML{}, nil },
	filetype.PDFNative:  func(Options) (Extractor, error) { return PDF{}, nil },
	filetype.Pandoc: func(o Options) (Extractor, error) {
		return &Pandoc{Runner: o.runner()}, nil
	},
	filetype.Whisper: func(o Options) (Extractor, error) {
		if o.WhisperModelPath == "" {
			return nil, errs.Join(errs.ErrExtractorUnavailable, "whisper model path not provided", nil)
		}
		return &Whisper{ModelPath: o.WhisperModelPath, Language: o.WhisperLanguage, Runner: o.runner()}, nil
	},
}

// New returns the backend registered for kind.
func New(kind filetype.Kind, opts Options) (Extractor, error) {
	if kind == filetype.PlainText {
		return nil, ErrNoBackend
	}
	ctor, ok := backends[kind]
	if !ok {
		return nil, fmt.Errorf("no extractor for kind %s: %w", kind, errs.ErrClassificationUnsupported)
	}
	return ctor(opts)
}
