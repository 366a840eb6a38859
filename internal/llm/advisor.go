package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/rivalwatch/internal/model"
)

const roleAdvisor = "advisor"

// Advisor explains a decision that has already been made.
// It only produces explanation fields, so it cannot alter the strategy.
type Advisor struct {
	client Client
}

// NewAdvisor creates an advisor over client.
func NewAdvisor(client Client) *Advisor {
	return &Advisor{client: client}
}

type advisorReply struct {
	Advice     string `json:"advice"`
	Reason     string `json:"reason"`
	Confidence string `json:"confidence"`
}

// Explain sends the decision as JSON and validates the explanation that comes back.
func (a *Advisor) Explain(ctx context.Context, req model.ExplainRequest) (model.Explanation, error) {
	if req.Signals == nil {
		req.Signals = []string{}
	}
	payload, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return model.Explanation{}, fmt.Errorf("failed to marshal advisor input: %w", err)
	}

	raw, err := a.client.Complete(ctx, advisorSystemPrompt, string(payload))
	if err != nil {
		return model.Explanation{}, err
	}

	var reply advisorReply
	if err := decodeObject(roleAdvisor, raw, &reply); err != nil {
		return model.Explanation{}, err
	}

	confidence, ok := model.ParseConfidence(reply.Confidence)
	if !ok {
		return model.Explanation{}, &SchemaValidationError{
			Role:   roleAdvisor,
			Output: raw,
			Err:    fmt.Errorf("confidence %q is not one of low, medium, high", reply.Confidence),
		}
	}

	advice := strings.TrimSpace(reply.Advice)
	reason := strings.TrimSpace(reply.Reason)
	if advice == "" || reason == "" {
		return model.Explanation{}, &SchemaValidationError{
			Role:   roleAdvisor,
			Output: raw,
			Err:    fmt.Errorf("advice and reason are required"),
		}
	}

	return model.Explanation{Advice: advice, Reason: reason, Confidence: confidence}, nil
}
