package summarize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/nosy/internal/cache"
)

type capturingClient struct {
	calls   int
	lastReq openai.ChatCompletionRequest
	reply   string
}

func (c *capturingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	c.lastReq = req
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.reply},
		}},
	}, nil
}

func TestSummarizer_BuiltinPromptsCarryLanguageAndContent(t *testing.T) {
	cc := &capturingClient{reply: "  A short summary.\n"}
	s := &Summarizer{Client: cc, Model: "test-model", Language: "Finnish"}
	out, err := s.Summarize(context.Background(), "The meeting moved to Thursday.")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if out != "A short summary." {
		t.Fatalf("unexpected output %q", out)
	}
	if len(cc.lastReq.Messages) != 2 {
		t.Fatalf("expected system and user messages")
	}
	if got := cc.lastReq.Messages[0]; got.Role != openai.ChatMessageRoleSystem || !strings.Contains(got.Content, "Finnish") {
		t.Fatalf("system message missing language: %+v", got)
	}
	if got := cc.lastReq.Messages[1]; !strings.Contains(got.Content, "The meeting moved to Thursday.") {
		t.Fatalf("user message missing content: %q", got.Content)
	}
}

func TestSummarizer_DefaultLanguage(t *testing.T) {
	s := &Summarizer{}
	system, _, err := s.Messages("x")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if !strings.Contains(system, DefaultLanguage) {
		t.Fatalf("default language missing: %q", system)
	}
}

func TestSummarizer_CustomTemplates(t *testing.T) {
	s := &Summarizer{
		Language:       "German",
		SystemTemplate: "Answer in {{language}}.",
		UserTemplate:   "TL;DR of: {{.Content}} ({{.Language}})",
	}
	system, user, err := s.Messages("{{not a directive}}")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if system != "Answer in German." {
		t.Fatalf("system=%q", system)
	}
	if user != "TL;DR of: {{not a directive}} (German)" {
		t.Fatalf("user=%q", user)
	}
}

func TestSummarizer_EmptyReply(t *testing.T) {
	s := &Summarizer{Client: &capturingClient{reply: " \n"}, Model: "m"}
	if _, err := s.Summarize(context.Background(), "text"); !errors.Is(err, ErrEmptySummary) {
		t.Fatalf("want ErrEmptySummary, got %v", err)
	}
}

func TestSummarizer_NotConfigured(t *testing.T) {
	if _, err := (&Summarizer{}).Summarize(context.Background(), "text"); err == nil {
		t.Fatalf("expected error without client and model")
	}
}

func TestSummarizer_UsesCache(t *testing.T) {
	cc := &capturingClient{reply: "cached answer"}
	s := &Summarizer{Client: cc, Model: "m", Cache: &cache.LLMCache{Dir: t.TempDir()}}
	for i := 0; i < 2; i++ {
		out, err := s.Summarize(context.Background(), "same text")
		if err != nil || out != "cached answer" {
			t.Fatalf("run %d: %q %v", i, out, err)
		}
	}
	if cc.calls != 1 {
		t.Fatalf("expected one model call, got %d", cc.calls)
	}
}

func TestSummarizer_OversizedPromptStillSent(t *testing.T) {
	cc := &capturingClient{reply: "ok"}
	s := &Summarizer{Client: cc, Model: "gpt-4"}
	content := strings.Repeat("word ", 20_000)
	if _, err := s.Summarize(context.Background(), content); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if cc.calls != 1 || !strings.Contains(cc.lastReq.Messages[1].Content, content) {
		t.Fatalf("full content was not sent")
	}
}

func TestLoadTemplate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.tmpl")
	if err := os.WriteFile(good, []byte("Summarize in {{language}}: {{content}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplate(good); err != nil {
		t.Fatalf("load: %v", err)
	}
	bad := filepath.Join(dir, "bad.tmpl")
	if err := os.WriteFile(bad, []byte("{{if}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplate(bad); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := LoadTemplate(filepath.Join(dir, "missing.tmpl")); err == nil {
		t.Fatalf("expected read error")
	}
}
