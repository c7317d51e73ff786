// Package budget estimates whether a prompt fits a model's context window.
package budget

import (
	"math"
	"strconv"
	"strings"
)

// CharsPerToken is the rough English ratio used for estimates.
const CharsPerToken = 4

// DefaultContext is assumed for models we know nothing about.
const DefaultContext = 8192

// EstimateTokens returns a conservative token estimate for s.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / CharsPerToken))
}

// ModelContextTokens returns the context window for model, matching known
// family prefixes and a trailing size hint such as "-32k".
func ModelContextTokens(model string) int {
	name := strings.ToLower(strings.TrimSpace(model))
	if name == "" {
		return DefaultContext
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if n, ok := sizeSuffix(name); ok {
		return n
	}
	best, size := "", 0
	for prefix, n := range knownContext {
		if strings.HasPrefix(name, prefix) && len(prefix) > len(best) {
			best, size = prefix, n
		}
	}
	if best != "" {
		return size
	}
	return DefaultContext
}

// Estimate describes how a prompt sits against a model's window.
type Estimate struct {
	Model         string
	ContextTokens int
	PromptTokens  int
	Reserved      int
}

// Remaining is the input headroom left after the prompt and the output
// reservation. Never negative.
func (e Estimate) Remaining() int {
	r := e.ContextTokens - e.Reserved - e.PromptTokens
	if r < 0 {
		return 0
	}
	return r
}

// Fits reports whether the prompt leaves any room at all.
func (e Estimate) Fits() bool { return e.Remaining() > 0 }

// Check estimates system plus user for model, reserving reserved tokens for
// the reply.
func Check(model string, reserved int, system, user string) Estimate {
	if reserved < 0 {
		reserved = 0
	}
	return Estimate{
		Model:         model,
		ContextTokens: ModelContextTokens(model),
		PromptTokens:  EstimateTokens(system) + EstimateTokens(user),
		Reserved:      reserved,
	}
}

func sizeSuffix(name string) (int, bool) {
	i := strings.LastIndexAny(name, "-:_")
	if i < 0 || i == len(name)-1 {
		return 0, false
	}
	tail := name[i+1:]
	mult := 0
	switch tail[len(tail)-1] {
	case 'k':
		mult = 1000
	case 'm':
		mult = 1_000_000
	default:
		return 0, false
	}
	n, err := strconv.Atoi(tail[:len(tail)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n * mult, true
}

var knownContext = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4.1":       1_000_000,
	"gpt-4-turbo":   128_000,
	"gpt-4":         8_192,
	"gpt-3.5-turbo": 16_384,
	"o1":            200_000,
	"o3":            200_000,
	"o4-mini":       200_000,
	"claude":        200_000,
	"llama3.1":      128_000,
	"llama-3.1":     128_000,
	"llama3":        8_192,
	"llama-3":       8_192,
	"qwen2.5":       32_768,
	"mistral":       32_768,
	"gemma2":        8_192,
	"gemma3":        128_000,
	"gpt-oss":       128_000,
}
