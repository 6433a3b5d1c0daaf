package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider identifies a completion backend.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderFake      Provider = "fake"
)

// ParseProvider accepts the provider names used in config and flags. An empty
// string means "infer from the model id".
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderFake:
		return p, nil
	default:
		return "", fmt.Errorf("llm: unknown provider %q", s)
	}
}

// ProviderFor infers the backend from a model id. Unrecognized ids go to
// OpenAI, whose client also serves compatible endpoints via a base URL.
func ProviderFor(model string) Provider {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case m == "fake":
		return ProviderFake
	case strings.HasPrefix(m, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(m, "gemini"):
		return ProviderGemini
	case strings.HasPrefix(m, "ollama/"):
		return ProviderOllama
	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"), strings.HasPrefix(m, "o4"):
		return ProviderOpenAI
	default:
		return ProviderOpenAI
	}
}

// Options selects and configures a backend.
type Options struct {
	Provider Provider
	Model    string
	BaseURL  string

	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
}

// New builds the raw provider client for opts. Middleware is applied by the caller.
func New(ctx context.Context, opts Options) (Client, error) {
	p := opts.Provider
	if p == "" {
		p = ProviderFor(opts.Model)
	}
	switch p {
	case ProviderFake:
		return NewFakeClient(), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, opts.GeminiAPIKey, opts.Model)
	case ProviderAnthropic:
		return NewAnthropicClient(opts.AnthropicAPIKey, opts.Model)
	case ProviderOllama:
		return NewOllamaClient(opts.BaseURL, strings.TrimPrefix(opts.Model, "ollama/"))
	case ProviderOpenAI:
		return NewOpenAIClient(opts.OpenAIAPIKey, opts.BaseURL, opts.Model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", p)
	}
}
