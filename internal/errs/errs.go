package errs

import (
	"errors"
	"fmt"
)

// Failure categories shared by every pipeline stage. Concrete errors wrap one
// of these so callers can branch with errors.Is.
var (
	ErrSchemeUnsupported         = errors.New("unsupported input scheme")
	ErrFetchFailed               = errors.New("fetch failed")
	ErrClassificationUnsupported = errors.New("unsupported content type")
	ErrExtractorUnavailable      = errors.New("extractor unavailable")
	ErrExtractionFailed          = errors.New("extraction failed")
	ErrIO                        = errors.New("i/o failed")
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageScheme    Stage = "scheme"
	StageFetch     Stage = "fetch"
	StageClassify  Stage = "classify"
	StageExtract   Stage = "extract"
	StageOutput    Stage = "output"
	StageSummarize Stage = "summarize"
)

// StageError attaches the producing stage to the underlying cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err, otherwise a *StageError.
func Wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the stage recorded on the outermost StageError in err's chain.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Join ties a detailed cause to a category sentinel so that both are reachable
// through errors.Is while the message reads "<msg>: <cause>".
func Join(category error, msg string, cause error) error {
	if cause == nil {
		return &categorized{category: category, msg: msg}
	}
	return &categorized{category: category, msg: msg, cause: cause}
}

type categorized struct {
	category error
	msg      string
	cause    error
}

func (e *categorized) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *categorized) Unwrap() []error {
	if e.cause == nil {
		return []error{e.category}
	}
	return []error{e.category, e.cause}
}
