// Package summarize turns extracted text into a summary with a chat model.
package summarize

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/nosy/internal/budget"
	"github.com/hyperifyio/nosy/internal/cache"
	"github.com/hyperifyio/nosy/internal/llm"
)

//go:embed prompts/*.tmpl
var builtin embed.FS

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "English"

// ReplyReserveTokens is held back from the context window for the reply when
// estimating whether a prompt fits.
const ReplyReserveTokens = 1024

// ErrEmptySummary indicates the model returned no usable text.
var ErrEmptySummary = errors.New("model returned an empty summary")

// Summarizer sends the system and user prompts to the model and returns the
// assistant reply.
type Summarizer struct {
	Client llm.Client
	Model  string
	Cache  *cache.LLMCache
	// Language the summary is written in. Empty means DefaultLanguage.
	Language string
	// SystemTemplate and UserTemplate override the built-in prompts. Both
	// may reference {{language}} and {{content}}.
	SystemTemplate string
	UserTemplate   string
	Temperature    float32
}

// Vars are the values available to prompt templates.
type Vars struct {
	Language string
	Content  string
}

// Messages renders the system and user prompts for content.
func (s *Summarizer) Messages(content string) (system, user string, err error) {
	v := Vars{Language: s.Language, Content: content}
	if strings.TrimSpace(v.Language) == "" {
		v.Language = DefaultLanguage
	}
	sysTmpl, userTmpl := s.SystemTemplate, s.UserTemplate
	if sysTmpl == "" {
		sysTmpl = mustBuiltin("system.tmpl")
	}
	if userTmpl == "" {
		userTmpl = mustBuiltin("user.tmpl")
	}
	if system, err = render("system", sysTmpl, v); err != nil {
		return "", "", err
	}
	if user, err = render("user", userTmpl, v); err != nil {
		return "", "", err
	}
	return system, user, nil
}

// Summarize asks the model for a summary of content. Responses are cached by
// model and rendered prompts when a cache is configured.
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	if s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return "", errors.New("summarizer not configured")
	}
	system, user, err := s.Messages(content)
	if err != nil {
		return "", err
	}

	if est := budget.Check(s.Model, ReplyReserveTokens, system, user); !est.Fits() {
		log.Warn().
			Str("model", s.Model).
			Int("prompt_tokens", est.PromptTokens).
			Int("context_tokens", est.ContextTokens).
			Msg("prompt likely exceeds the model context window; sending anyway")
	}

	key := cache.KeyFrom(s.Model, system, user)
	if s.Cache != nil {
		if raw, ok, _ := s.Cache.Get(ctx, key); ok {
			var out struct {
				Summary string `json:"summary"`
			}
			if err := json.Unmarshal(raw, &out); err == nil && strings.TrimSpace(out.Summary) != "" {
				log.Debug().Str("model", s.Model).Msg("summary served from cache")
				return out.Summary, nil
			}
		}
	}

	req := openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: s.Temperature,
		N:           1,
	}
	log.Debug().Str("model", s.Model).Int("content_chars", len(content)).Msg("requesting summary")
	resp, err := s.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summary call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptySummary
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptySummary
	}
	if s.Cache != nil {
		payload, _ := json.Marshal(map[string]string{"summary": out})
		if err := s.Cache.Save(ctx, key, payload); err != nil {
			log.Debug().Err(err).Msg("summary cache save failed")
		}
	}
	return out, nil
}

// LoadTemplate reads a prompt template file and checks that it parses.
func LoadTemplate(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	text := string(b)
	if _, err := parse(path, text, Vars{}); err != nil {
		return "", err
	}
	return text, nil
}

func mustBuiltin(name string) string {
	b, err := builtin.ReadFile("prompts/" + name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// parse binds {{language}} and {{content}} as functions so templates can use
// bare placeholders; {{.Language}} and {{.Content}} work as well.
func parse(name, text string, v Vars) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Funcs(template.FuncMap{
		"language": func() string { return v.Language },
		"content":  func() string { return v.Content },
	}).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	return t, nil
}

func render(name, text string, v Vars) (string, error) {
	t, err := parse(name, text, v)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, v); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return b.String(), nil
}
