package app

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/nosy/internal/errs"
)

// WorkDir is the per-run staging directory. It is created on the first
// Ensure call and never removed; staged artifacts stay behind for
// inspection.
type WorkDir struct {
	path    string
	once    sync.Once
	err     error
	created bool
}

// NewWorkDir uses path, or <tmp>/nosy/<uuid> when path is empty. Nothing is
// created yet.
func NewWorkDir(path string) *WorkDir {
	if path == "" {
		path = filepath.Join(os.TempDir(), "nosy", uuid.NewString())
	}
	return &WorkDir{path: path}
}

// Path is the directory location, whether or not it exists yet.
func (w *WorkDir) Path() string { return w.path }

// Ensure creates the directory at most once and returns its path.
func (w *WorkDir) Ensure() (string, error) {
	w.once.Do(func() {
		if err := os.MkdirAll(w.path, 0o755); err != nil {
			w.err = errs.Join(errs.ErrIO, "create workdir "+w.path, err)
			return
		}
		w.created = true
		log.Info().Str("workdir", w.path).Msg("using workdir")
	})
	return w.path, w.err
}

// Created reports whether Ensure has successfully run.
func (w *WorkDir) Created() bool { return w.created }
