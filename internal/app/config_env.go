package app

import (
	"os"
	"strings"
	"time"
)

// Environment variables read by ApplyEnvToConfig.
const (
	EnvLLMBaseURL    = "LLM_BASE_URL"
	EnvLLMModel      = "LLM_MODEL"
	EnvLLMAPIKey     = "LLM_API_KEY"
	EnvWorkDir       = "NOSY_WORKDIR"
	EnvCacheDir      = "NOSY_CACHE_DIR"
	EnvLanguage      = "NOSY_LANGUAGE"
	EnvHTTPFetchMode = "NOSY_HTTP_FETCH_MODE"
	EnvHTTPTimeout   = "NOSY_HTTP_TIMEOUT"
	EnvNoProgress    = "NOSY_NO_PROGRESS"
	EnvInsecureTLS   = "NOSY_INSECURE_TLS"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env; call it before
// ApplyFileConfig so that env in turn beats the config file.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	setStr(&cfg.LLMBaseURL, EnvLLMBaseURL)
	setStr(&cfg.LLMModel, EnvLLMModel)
	setStr(&cfg.LLMAPIKey, EnvLLMAPIKey)
	setStr(&cfg.WorkDir, EnvWorkDir)
	setStr(&cfg.CacheDir, EnvCacheDir)
	setStr(&cfg.Language, EnvLanguage)
	setStr(&cfg.HTTPFetchMode, EnvHTTPFetchMode)

	if cfg.HTTPTimeout == 0 {
		if d, ok := envDuration(EnvHTTPTimeout); ok {
			cfg.HTTPTimeout = d
		}
	}
	if !cfg.NoProgress {
		if b, ok := envBool(EnvNoProgress); ok {
			cfg.NoProgress = b
		}
	}
	if !cfg.InsecureTLS {
		if b, ok := envBool(EnvInsecureTLS); ok {
			cfg.InsecureTLS = b
		}
	}
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
