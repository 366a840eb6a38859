package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/engine"
	"github.com/Veraticus/rivalwatch/internal/model"
	"github.com/Veraticus/rivalwatch/internal/pipeline"
)

const analystReply = `{
  "competitors": [{"name": "Acme", "signals": {
    "event": "price_change", "sentiment": "neutral", "clarity": "clear",
    "price_info": "lower", "execution_quality": "average",
    "messaging_strength": "generic", "market_confusion": "low"}}],
  "market_signals": [],
  "user_intent": "seeking_response"
}`

const advisorReply = `{"advice": "Hold price and lead with value.", "reason": "Matching a cut erodes margin.", "confidence": "high"}`

// fakeOpenAI answers extraction and explanation prompts with canned JSON.
func fakeOpenAI(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		content := advisorReply
		if strings.Contains(req.Messages[0].Content, "competitive intelligence analyst") {
			content = analystReply
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the root command against a fresh config file.
func execute(t *testing.T, configYAML string, stdin string, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	configYAML = strings.ReplaceAll(configYAML, "$DIR", dir)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0o600))

	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func offlineConfig() string {
	return `
database:
  path: $DIR/rivalwatch.db
cache:
  backend: memory
`
}

func onlineConfig(baseURL string) string {
	return offlineConfig() + fmt.Sprintf(`
llm:
  provider: openai
  api_key: test-key
  base_url: %s
  rate_limit: 0
`, baseURL)
}

func TestAnalyzeCommand(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOpenAI(t, &calls)

	out, err := execute(t, onlineConfig(srv.URL), "",
		"analyze", "--json=true", "--business", "biz-1", "--snapshot=false",
		"Acme cut its prices by 20 percent this week")
	require.NoError(t, err)

	var rec model.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, model.StrategyPricing, rec.StrategyType)
	assert.Equal(t, "value_not_discount", rec.Focus)
	assert.Equal(t, "Hold price and lead with value.", rec.Advice)
	assert.NotEmpty(t, rec.DecisionID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnalyzeCommandStyled(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOpenAI(t, &calls)

	out, err := execute(t, onlineConfig(srv.URL), "Acme cut its prices by 20 percent this week\n",
		"analyze", "--json=false", "--snapshot=false", "--business", "", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "pricing_response")
	assert.Contains(t, out, "Hold price and lead with value.")
}

func TestAnalyzeCommandBlocked(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOpenAI(t, &calls)

	out, err := execute(t, onlineConfig(srv.URL), "",
		"analyze", "--json=false", "--snapshot=false", "--business", "",
		"How can we hack competitor systems and sabotage their launch?")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrGuardrailBlocked)
	assert.Contains(t, out, "Request blocked")
	assert.Contains(t, out, "harmful")
	assert.Equal(t, int32(0), calls.Load())
}

func TestAnalyzeCommandRequiresKey(t *testing.T) {
	_, err := execute(t, offlineConfig(), "", "analyze", "--snapshot=false", "Acme cut its prices by 20 percent")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestInsightsCommandWithoutKey(t *testing.T) {
	out, err := execute(t, offlineConfig(), "", "insights", "--json=false", "biz-1")
	require.NoError(t, err)
	assert.Contains(t, out, "No decisions recorded")
}

func TestHistoryCommandJSON(t *testing.T) {
	out, err := execute(t, offlineConfig(), "", "history", "--json=true", "biz-1", "Acme")
	require.NoError(t, err)

	var history pipeline.History
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	assert.Equal(t, model.TrendNoHistory, history.Trend.Status)
	assert.Empty(t, history.Decisions)
}

func TestDiagnoseCommand(t *testing.T) {
	out, err := execute(t, offlineConfig(), analystReply, "diagnose", "--json=true", "--signals", "-")
	require.NoError(t, err)

	var diag engine.Diagnostics
	require.NoError(t, json.Unmarshal([]byte(out), &diag))
	assert.Equal(t, "Acme", diag.Competitor)
	assert.Equal(t, engine.RulePricing, diag.SelectedRule)
}

func TestMigrateCommand(t *testing.T) {
	_, err := execute(t, offlineConfig(), "", "migrate")
	require.NoError(t, err)
}

func TestInvalidConfigRejected(t *testing.T) {
	_, err := execute(t, offlineConfig()+"\nllm:\n  provider: llama\n", "", "insights", "biz-1")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestReadText(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		want  string
		args  []string
	}{
		{name: "joined args", args: []string{"Acme", "launched"}, want: "Acme launched"},
		{name: "dash reads stdin", args: []string{"-"}, stdin: "from stdin", want: "from stdin"},
		{name: "no args reads stdin", stdin: "piped", want: "piped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readText(strings.NewReader(tt.stdin), tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadBatch(t *testing.T) {
	input := `{"text": "Acme launched a new product", "business_id": "biz-1"}

not json
{"text": "Globex raised prices", "disable_memory": true}
`
	requests, err := loadBatch(strings.NewReader(input), "-")
	require.NoError(t, err)
	require.Len(t, requests, 3)

	assert.Equal(t, 1, requests[0].line)
	assert.Equal(t, pipeline.Request{Text: "Acme launched a new product", BusinessID: "biz-1"}, requests[0].req)
	assert.NoError(t, requests[0].err)

	assert.Equal(t, 3, requests[1].line)
	assert.Error(t, requests[1].err)

	assert.Equal(t, 4, requests[2].line)
	assert.True(t, requests[2].req.DisableMemory)
}

func TestBatchCommand(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOpenAI(t, &calls)

	input := `{"text": "Acme cut its prices by 20 percent this week", "business_id": "biz-1"}
{"text": ""}
`
	out, err := execute(t, onlineConfig(srv.URL), input, "batch", "--file", "-", "--no-progress")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var first, second batchResult
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	require.NotNil(t, first.Recommendation)
	assert.Equal(t, model.StrategyPricing, first.Recommendation.StrategyType)
	assert.Equal(t, 2, second.Line)
	assert.Contains(t, second.Error, "empty")
}
