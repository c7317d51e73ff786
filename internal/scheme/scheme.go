package scheme

import "strings"

// Scheme classifies how an input should be retrieved.
type Scheme int

const (
	File Scheme = iota
	HTTP
	Unsupported
)

func (s Scheme) String() string {
	switch s {
	case File:
		return "file"
	case HTTP:
		return "http"
	default:
		return "unsupported"
	}
}

const separator = "://"

// Detect derives the scheme of input without touching the file system.
// Inputs without "://" are local paths.
func Detect(input string) Scheme {
	prefix, _, found := strings.Cut(input, separator)
	if !found {
		return File
	}
	switch strings.ToLower(prefix) {
	case "http", "https":
		return HTTP
	case "file":
		return File
	default:
		return Unsupported
	}
}

// LocalPath returns the file-system path for a File-scheme input, dropping a
// leading file:// prefix when present. An empty or "localhost" authority is
// dropped too, so file:///tmp/a and file://localhost/tmp/a both name /tmp/a.
// Any other text after file:// is taken as a relative path.
func LocalPath(input string) string {
	prefix, rest, found := strings.Cut(input, separator)
	if !found || !strings.EqualFold(prefix, "file") {
		return input
	}
	if host, path, ok := strings.Cut(rest, "/"); ok && strings.EqualFold(host, "localhost") {
		return "/" + path
	}
	return rest
}
