package app

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects what happens to the extracted text.
type Mode string

const (
	ModeExtract   Mode = "extract"
	ModeSummarize Mode = "summarize"
)

// ParseMode accepts "extract", "summarize" and their short aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "summarize", "recap":
		return ModeSummarize, nil
	case "extract", "ext":
		return ModeExtract, nil
	default:
		return "", fmt.Errorf("invalid mode %q (valid: extract, summarize)", s)
	}
}

// Config holds runtime configuration for the application.
type Config struct {
	Input      string
	OutputPath string
	Mode       Mode

	// WorkDir overrides the per-run staging directory.
	WorkDir string
	// ExtKind forces an extractor kind by CLI name. Empty means detect.
	ExtKind string

	// Fetch
	HTTPFetchMode string
	HTTPTimeout   time.Duration
	UserAgent     string
	// InsecureTLS skips certificate verification for fetches and LLM calls.
	InsecureTLS bool

	// LLM
	Provider   string
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Summary
	Language           string
	SystemTemplatePath string
	UserTemplatePath   string
	OutputPDFPath      string

	// WhisperLanguage is passed to whisper-cli; empty means auto-detect.
	WhisperLanguage string

	// Behavior
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	NoProgress       bool
}

// Defaults set by ApplyDefaults; ApplyFileConfig treats them as unset.
const (
	DefaultUserAgent   = "nosy/1.0 (+https://github.com/hyperifyio/nosy)"
	DefaultHTTPTimeout = 60 * time.Second
	DefaultLanguage    = "English"
)

// ApplyDefaults fills whatever flags, env and the config file left unset.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSummarize
	}
	if cfg.HTTPFetchMode == "" {
		cfg.HTTPFetchMode = "get"
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
}
