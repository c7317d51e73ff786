// Package validate checks run prerequisites before any stage starts: paths,
// external executables and environment-sourced settings.
package validate

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hyperifyio/nosy/internal/errs"
	"github.com/hyperifyio/nosy/internal/filetype"
)

// WhisperModelEnv names the variable holding the whisper model file path.
const WhisperModelEnv = "WHISPER_MODEL_PATH"

const (
	PandocInstallHint  = "Please install pandoc by following https://pandoc.org/installing.html and ensure it is included in your PATH."
	FFmpegInstallHint  = "Please install ffmpeg by following https://ffmpeg.org/download.html and ensure it is included in your PATH."
	WhisperInstallHint = "Please build whisper.cpp (https://github.com/ggerganov/whisper.cpp) and ensure whisper-cli is included in your PATH."
	WhisperModelHint   = "Download a model with `nosy download-whisper <model>` and export " + WhisperModelEnv + "."
)

// Executables invoked by the extractor backends.
const (
	PandocBin     = "pandoc"
	FFmpegBin     = "ffmpeg"
	WhisperCLIBin = "whisper-cli"
)

// CommandExecutable resolves name on PATH. A miss is ErrExtractorUnavailable
// carrying hint.
func CommandExecutable(name, hint string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		msg := fmt.Sprintf("%s is not installed or not on PATH", name)
		if hint != "" {
			msg += ". " + hint
		}
		return "", errs.Join(errs.ErrExtractorUnavailable, msg, nil)
	}
	return p, nil
}

// FileMustExist requires path to name an existing regular file.
func FileMustExist(path, what string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%s path is empty", what)
	}
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s %q does not exist", what, path)
		}
		return fmt.Errorf("stat %s: %w", what, err)
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("%s %q is not a file", what, path)
	}
	return nil
}

// FileMustNotExist rejects a path that already exists, of any type.
func FileMustNotExist(path, what string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%s path is empty", what)
	}
	_, err := os.Lstat(path)
	if err == nil {
		return fmt.Errorf("%s %q already exists", what, path)
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("stat %s: %w", what, err)
}

// WhisperModelPathFromEnv reads and validates WHISPER_MODEL_PATH.
func WhisperModelPathFromEnv() (string, error) {
	v, ok := os.LookupEnv(WhisperModelEnv)
	if !ok {
		return "", errs.Join(errs.ErrExtractorUnavailable, WhisperModelEnv+" is not set. "+WhisperModelHint, nil)
	}
	return WhisperModelPath(v)
}

// WhisperModelPath validates a model path value: non-blank and naming an
// existing regular file.
func WhisperModelPath(value string) (string, error) {
	p := strings.TrimSpace(value)
	if p == "" {
		return "", errs.Join(errs.ErrExtractorUnavailable, WhisperModelEnv+" is empty. "+WhisperModelHint, nil)
	}
	st, err := os.Stat(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", errs.Join(errs.ErrExtractorUnavailable, fmt.Sprintf("invalid whisper model path at %q: file does not exist", p), nil)
	case err != nil:
		return "", errs.Join(errs.ErrExtractorUnavailable, fmt.Sprintf("invalid whisper model path at %q", p), err)
	case !st.Mode().IsRegular():
		return "", errs.Join(errs.ErrExtractorUnavailable, fmt.Sprintf("invalid whisper model path at %q: path is not a file", p), nil)
	}
	return p, nil
}

// KindPrerequisites checks what a forced extractor kind needs before the
// pipeline starts. Kinds without external requirements always pass.
func KindPrerequisites(k filetype.Kind) error {
	switch k {
	case filetype.Pandoc:
		_, err := CommandExecutable(PandocBin, PandocInstallHint)
		return err
	case filetype.Whisper:
		if _, err := WhisperModelPathFromEnv(); err != nil {
			return err
		}
		if _, err := CommandExecutable(FFmpegBin, FFmpegInstallHint); err != nil {
			return err
		}
		_, err := CommandExecutable(WhisperCLIBin, WhisperInstallHint)
		return err
	default:
		return nil
	}
}
