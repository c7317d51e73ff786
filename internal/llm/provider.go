package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the minimal interface needed to call a chat model. Any
// OpenAI-compatible backend can be adapted to it.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelLister is an optional capability; detect it with a type assertion.
type ModelLister interface {
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// OpenAIProvider adapts *openai.Client to the Client/ModelLister interfaces.
type OpenAIProvider struct {
	Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

func (p *OpenAIProvider) ListModels(ctx context.Context) (openai.ModelsList, error) {
	return p.Inner.ListModels(ctx)
}

// Preset is an OpenAI-compatible endpoint and the environment variable that
// conventionally holds its API key.
type Preset struct {
	Name    string
	BaseURL string
	KeyEnv  string
}

var presets = map[string]Preset{
	"openai":         {Name: "openai", BaseURL: "https://api.openai.com/v1", KeyEnv: "OPENAI_API_KEY"},
	"github-copilot": {Name: "github-copilot", BaseURL: "https://models.inference.ai.azure.com", KeyEnv: "GITHUB_COPILOT_API_KEY"},
	"anthropic":      {Name: "anthropic", BaseURL: "https://api.anthropic.com/v1", KeyEnv: "ANTHROPIC_API_KEY"},
	"gemini":         {Name: "gemini", BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai", KeyEnv: "GEMINI_API_KEY"},
	"groq":           {Name: "groq", BaseURL: "https://api.groq.com/openai/v1", KeyEnv: "GROQ_API_KEY"},
	"together":       {Name: "together", BaseURL: "https://api.together.xyz/v1", KeyEnv: "TOGETHER_API_KEY"},
	"fireworks":      {Name: "fireworks", BaseURL: "https://api.fireworks.ai/inference/v1", KeyEnv: "FIREWORKS_API_KEY"},
	"deepseek":       {Name: "deepseek", BaseURL: "https://api.deepseek.com/v1", KeyEnv: "DEEPSEEK_API_KEY"},
	"xai":            {Name: "xai", BaseURL: "https://api.x.ai/v1", KeyEnv: "XAI_API_KEY"},
	"nebius":         {Name: "nebius", BaseURL: "https://api.studio.nebius.ai/v1", KeyEnv: "NEBIUS_API_KEY"},
	"ollama":         {Name: "ollama", BaseURL: "http://localhost:11434/v1"},
}

// ProviderNames lists the known presets alphabetically.
func ProviderNames() []string {
	out := make([]string, 0, len(presets))
	for n := range presets {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// LookupProvider returns the preset for name. Empty means openai.
func LookupProvider(name string) (Preset, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		n = "openai"
	}
	p, ok := presets[n]
	if !ok {
		return Preset{}, fmt.Errorf("unknown provider %q (valid: %s)", name, strings.Join(ProviderNames(), ", "))
	}
	return p, nil
}

// Endpoint is the resolved connection target.
type Endpoint struct {
	BaseURL string
	APIKey  string
}

// Resolve combines a preset with explicit overrides. An explicit base URL or
// key wins; otherwise the preset URL and its key variable are used.
func (p Preset) Resolve(baseURL, apiKey string) Endpoint {
	e := Endpoint{BaseURL: strings.TrimSpace(baseURL), APIKey: strings.TrimSpace(apiKey)}
	if e.BaseURL == "" {
		e.BaseURL = p.BaseURL
	}
	if e.APIKey == "" && p.KeyEnv != "" {
		e.APIKey = os.Getenv(p.KeyEnv)
	}
	return e
}

// NewOpenAIProvider builds a client for e. A nil hc uses the library default.
func NewOpenAIProvider(e Endpoint, hc *http.Client) *OpenAIProvider {
	cfg := openai.DefaultConfig(e.APIKey)
	if e.BaseURL != "" {
		cfg.BaseURL = e.BaseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}
