package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/nosy/internal/fetch"
	"github.com/hyperifyio/nosy/internal/filetype"
	"github.com/hyperifyio/nosy/internal/llm"
	"github.com/hyperifyio/nosy/internal/validate"
)

// FileConfig represents the single-file configuration schema.
// Durations are strings such as "30s" or "24h" so YAML and JSON agree.
type FileConfig struct {
	WorkDir string `yaml:"workdir" json:"workdir"`
	ExtKind string `yaml:"extKind" json:"extKind"`

	HTTP struct {
		FetchMode string `yaml:"fetchMode" json:"fetchMode"`
		Timeout   string `yaml:"timeout" json:"timeout"`
		UserAgent string `yaml:"userAgent" json:"userAgent"`
	} `yaml:"http" json:"http"`

	LLM struct {
		Provider string `yaml:"provider" json:"provider"`
		BaseURL  string `yaml:"base" json:"base"`
		Model    string `yaml:"model" json:"model"`
		APIKey   string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Summary struct {
		Language       string `yaml:"language" json:"language"`
		SystemTemplate string `yaml:"systemTemplate" json:"systemTemplate"`
		UserTemplate   string `yaml:"userTemplate" json:"userTemplate"`
	} `yaml:"summary" json:"summary"`

	Whisper struct {
		Language string `yaml:"language" json:"language"`
	} `yaml:"whisper" json:"whisper"`

	Cache struct {
		Dir         string `yaml:"dir" json:"dir"`
		MaxAge      string `yaml:"maxAge" json:"maxAge"`
		Clear       bool   `yaml:"clear" json:"clear"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	NoProgress bool `yaml:"noProgress" json:"noProgress"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc onto fields of cfg that are unset
// or still at their CLI default.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	setStr := func(dst *string, v, def string) {
		if (*dst == "" || *dst == def) && v != "" {
			*dst = v
		}
	}
	setStr(&cfg.WorkDir, fc.WorkDir, "")
	setStr(&cfg.ExtKind, fc.ExtKind, "")
	setStr(&cfg.HTTPFetchMode, fc.HTTP.FetchMode, string(fetch.ModeGet))
	setStr(&cfg.UserAgent, fc.HTTP.UserAgent, DefaultUserAgent)
	setStr(&cfg.Provider, fc.LLM.Provider, "")
	setStr(&cfg.LLMBaseURL, fc.LLM.BaseURL, "")
	setStr(&cfg.LLMModel, fc.LLM.Model, "")
	setStr(&cfg.LLMAPIKey, fc.LLM.APIKey, "")
	setStr(&cfg.Language, fc.Summary.Language, DefaultLanguage)
	setStr(&cfg.SystemTemplatePath, fc.Summary.SystemTemplate, "")
	setStr(&cfg.UserTemplatePath, fc.Summary.UserTemplate, "")
	setStr(&cfg.WhisperLanguage, fc.Whisper.Language, "")
	setStr(&cfg.CacheDir, fc.Cache.Dir, "")

	if s := strings.TrimSpace(fc.HTTP.Timeout); s != "" && (cfg.HTTPTimeout == 0 || cfg.HTTPTimeout == DefaultHTTPTimeout) {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: http.timeout: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if s := strings.TrimSpace(fc.Cache.MaxAge); s != "" && cfg.CacheMaxAge == 0 {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: cache.maxAge: %w", err)
		}
		cfg.CacheMaxAge = d
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if !cfg.NoProgress && fc.NoProgress {
		cfg.NoProgress = true
	}
	return nil
}

// ValidateConfig checks everything that can be checked before the pipeline
// starts: required paths, outputs that would be clobbered, LLM settings for
// summarize mode and the prerequisites of a forced extractor kind.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return errors.New("config: input is required")
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		return errors.New("config: output path is required (-o/--out)")
	}
	if err := validate.FileMustNotExist(cfg.OutputPath, "output file"); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.OutputPDFPath != "" {
		if err := validate.FileMustNotExist(cfg.OutputPDFPath, "PDF output file"); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := fetch.ParseMode(cfg.HTTPFetchMode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.HTTPTimeout < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}

	if cfg.Mode != ModeExtract {
		if strings.TrimSpace(cfg.LLMModel) == "" {
			return errors.New("config: llm model is required (--model or LLM_MODEL)")
		}
		if _, err := llm.LookupProvider(cfg.Provider); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		for _, t := range []struct{ path, what string }{
			{cfg.SystemTemplatePath, "system template"},
			{cfg.UserTemplatePath, "user template"},
		} {
			if t.path == "" {
				continue
			}
			if err := validate.FileMustExist(t.path, t.what); err != nil {
				return fmt.Errorf("config: %w", err)
			}
		}
	}

	if strings.TrimSpace(cfg.ExtKind) != "" {
		k, err := filetype.ParseKind(cfg.ExtKind)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if err := validate.KindPrerequisites(k); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}
