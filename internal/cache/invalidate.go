package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Layout of a cache root: HTTP responses and summaries live side by side.
const (
	HTTPSubdir = "http"
	LLMSubdir  = "llm"
)

// ClearDir removes the directory and all contents, then recreates it empty.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// entryKind describes how one cache layout marks entries and their age.
type entryKind struct {
	// index reports whether name is the file that carries an entry's age.
	index func(name string) bool
	// savedAt returns the entry's age stamp; ok=false leaves it alone.
	savedAt func(path string, d fs.DirEntry) (t time.Time, ok bool)
	// siblings are removed together with the index file.
	siblings func(path string) []string
}

var httpEntries = entryKind{
	index: func(name string) bool { return strings.HasSuffix(name, metaSuffix) },
	savedAt: func(path string, _ fs.DirEntry) (time.Time, bool) {
		b, err := os.ReadFile(path)
		if err != nil {
			return time.Time{}, false
		}
		var e HTTPEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return time.Time{}, false
		}
		return e.SavedAt, true
	},
	siblings: func(path string) []string {
		return []string{strings.TrimSuffix(path, metaSuffix) + bodySuffix}
	},
}

// LLM entries age by modification time.
var llmEntries = entryKind{
	index: func(name string) bool {
		return strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, metaSuffix)
	},
	savedAt: func(_ string, d fs.DirEntry) (time.Time, bool) {
		info, err := d.Info()
		if err != nil {
			return time.Time{}, false
		}
		return info.ModTime(), true
	},
}

// purgeOlder walks dir and removes entries of kind older than maxAge. A
// missing dir purges nothing.
func purgeOlder(dir string, maxAge time.Duration, kind entryKind) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !kind.index(d.Name()) {
			return nil
		}
		saved, ok := kind.savedAt(path, d)
		if !ok || now.Sub(saved) <= maxAge {
			return nil
		}
		removed++
		_ = os.Remove(path)
		if kind.siblings != nil {
			for _, s := range kind.siblings(path) {
				_ = os.Remove(s)
			}
		}
		return nil
	})
	return removed, err
}

// Purge removes HTTP entries saved, and summaries last written, more than
// maxAge ago under a cache root laid out with HTTPSubdir and LLMSubdir.
func Purge(root string, maxAge time.Duration) (int, error) {
	h, err := purgeOlder(filepath.Join(root, HTTPSubdir), maxAge, httpEntries)
	if err != nil {
		return h, err
	}
	l, err := purgeOlder(filepath.Join(root, LLMSubdir), maxAge, llmEntries)
	return h + l, err
}
