// Package llm provides thin clients for hosted language models and the two
// roles they play in the pipeline: the analyst that turns free text into
// structured signals, and the advisor that explains a chosen strategy.
package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends one system/user exchange and returns the raw response text.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config holds provider settings.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// RateLimit is the number of outbound requests allowed per minute. Zero disables throttling.
	RateLimit int
}

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 1024
	defaultTimeout     = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return c
}
