package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted by NewClient.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// NewClient creates a throttled LLM client for the configured provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	var (
		client Client
		err    error
	)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		client, err = newOpenAIClient(cfg)
	case ProviderAnthropic:
		client, err = newAnthropicClient(cfg)
	case ProviderGemini, "":
		client, err = newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return Throttle(client, cfg.RateLimit), nil
}
