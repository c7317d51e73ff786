// Package progress reports human-readable status messages from long-running
// stages. Sinks are informational only; no stage depends on them.
package progress

import (
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sink receives status updates.
type Sink interface {
	Update(msg string)
}

// Nop discards all updates.
type Nop struct{}

func (Nop) Update(string) {}

// Log forwards updates to the structured logger at debug level.
type Log struct {
	Logger *zerolog.Logger
}

func (l Log) Update(msg string) {
	lg := l.Logger
	if lg == nil {
		lg = &log.Logger
	}
	lg.Debug().Str("progress", msg).Msg("progress")
}

// Or returns s, or Nop when s is nil.
func Or(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// Spinner animates the latest message on a terminal. Call Stop when done.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner starts a spinner on f. Nothing is drawn unless f is a terminal.
func NewSpinner(f *os.File) *Spinner {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(f),
		spinner.WithWriterFile(f),
		spinner.WithHiddenCursor(true),
	)
	sp.Start()
	return &Spinner{s: sp}
}

func (s *Spinner) Update(msg string) {
	s.s.Lock()
	s.s.Suffix = " " + msg
	s.s.Unlock()
}

// Message returns the text currently shown next to the spinner.
func (s *Spinner) Message() string {
	s.s.Lock()
	defer s.s.Unlock()
	return strings.TrimPrefix(s.s.Suffix, " ")
}

// Stop clears the spinner line. It is safe to call more than once.
func (s *Spinner) Stop() { s.s.Stop() }

// Interactive reports whether progress output should be drawn on stderr.
func Interactive(enabled bool) bool {
	return enabled && isTerminal(os.Stderr)
}

// ForStderr picks a sink for interactive use: a spinner when stderr is a
// terminal and progress is enabled, the debug logger otherwise. The returned
// stop function is always safe to call.
func ForStderr(enabled bool) (Sink, func()) {
	if Interactive(enabled) {
		sp := NewSpinner(os.Stderr)
		return sp, sp.Stop
	}
	return Log{}, func() {}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
