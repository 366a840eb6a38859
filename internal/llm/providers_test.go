package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "openai", config: Config{Provider: "openai", APIKey: "test-key"}},
		{name: "anthropic", config: Config{Provider: "Anthropic", APIKey: "test-key"}},
		{name: "openai missing key", config: Config{Provider: "openai"}, wantErr: true},
		{name: "anthropic missing key", config: Config{Provider: "anthropic"}, wantErr: true},
		{name: "gemini missing key", config: Config{Provider: "gemini"}, wantErr: true},
		{name: "unknown provider", config: Config{Provider: "llama", APIKey: "k"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestOpenAIClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "be terse", body.Messages[0].Content)
			assert.Equal(t, "hello", body.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer server.Close()

	client, err := newOpenAIClient(Config{APIKey: "test-key", Model: "gpt-test", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "be terse", "hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, out)
}

func TestOpenAIClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, wantErr: "status 429"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: "no completion choices"},
		{name: "bad json", status: http.StatusOK, body: `not json`, wantErr: "failed to parse response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := newOpenAIClient(Config{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), "s", "u")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "be terse", body["system"])

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"a\":"},{"type":"text","text":"1}"}]}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "be terse", "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}

func TestAnthropicClientEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
}

func TestGeminiClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":true}"}]}}]}`))
	}))
	defer server.Close()

	client, err := newGeminiClient(context.Background(), Config{APIKey: "k", Model: "gemini-test", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), "be terse", "hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, out)
}

func TestClientHonoursContextTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := newOpenAIClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Complete(ctx, "s", "u")
	require.Error(t, err)
}
