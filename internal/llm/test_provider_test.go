package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderFor(t *testing.T) {
	cases := map[string]Provider{
		"claude-3-sonnet-20240229": ProviderAnthropic,
		"gemini-2.5-flash":         ProviderGemini,
		"gpt-4-turbo":              ProviderOpenAI,
		"o3-mini":                  ProviderOpenAI,
		"ollama/llama3":            ProviderOllama,
		"fake":                     ProviderFake,
		"mistral-large":            ProviderOpenAI,
	}
	for model, want := range cases {
		assert.Equal(t, want, ProviderFor(model), model)
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Gemini ")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)

	p, err = ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, Provider(""), p)

	_, err = ParseProvider("bedrock")
	require.Error(t, err)
}

func TestNewMissingKeyIsPermanent(t *testing.T) {
	ctx := context.Background()
	for _, opts := range []Options{
		{Provider: ProviderGemini, Model: "gemini-2.5-flash"},
		{Provider: ProviderAnthropic, Model: "claude-3-sonnet-20240229"},
		{Provider: ProviderOpenAI, Model: "gpt-4"},
	} {
		_, err := New(ctx, opts)
		require.Error(t, err, opts.Provider)
		assert.True(t, IsPermanent(err), opts.Provider)
	}
}

func TestNewInfersFakeFromModel(t *testing.T) {
	cli, err := New(context.Background(), Options{Model: "fake"})
	require.NoError(t, err)
	assert.Equal(t, "fake", cli.Name())
}
