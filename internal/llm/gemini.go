package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiClient implements the Client interface over the Gemini API.
type geminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// newGeminiClient creates a Gemini client backed by the genai SDK.
func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cfg = cfg.withDefaults()

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	clientCfg.HTTPClient = newHTTPClient(cfg.Timeout)

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &geminiClient{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Complete generates content with system as the system instruction.
func (c *geminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
		MaxOutputTokens:   c.maxTokens,
		ResponseMIMEType:  "application/json",
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), config)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("no text content returned")
	}
	return text, nil
}
