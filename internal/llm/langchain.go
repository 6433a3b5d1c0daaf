package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultMaxTokens = 4000

// LangchainClient adapts any langchaingo model (Anthropic, Ollama) to Client.
type LangchainClient struct {
	name  string
	model string
	llm   llms.Model
}

func NewAnthropicClient(apiKey, model string) (*LangchainClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, NewPermanentError(errors.New("llm: ANTHROPIC_API_KEY is not set"))
	}
	m, err := anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return &LangchainClient{name: "anthropic:" + model, model: model, llm: m}, nil
}

// NewOllamaClient connects to a local Ollama server. serverURL may be empty.
func NewOllamaClient(serverURL, model string) (*LangchainClient, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if strings.TrimSpace(serverURL) != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return &LangchainClient{name: "ollama:" + model, model: model, llm: m}, nil
}

func (c *LangchainClient) Name() string { return c.name }
func (c *LangchainClient) Close() error { return nil }

func (c *LangchainClient) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	resp, err := c.llm.GenerateContent(ctx, msgs,
		llms.WithModel(firstNonEmpty(strings.TrimPrefix(req.Model, "ollama/"), c.model)),
		llms.WithTemperature(req.Temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
