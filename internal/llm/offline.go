package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/codetime/internal/contract"
)

// OfflineClient answers without a language model. It keeps the pipeline
// usable when no provider key is configured: pattern prompts get an empty
// list and question prompts get a short summary answer.
type OfflineClient struct{}

var _ contract.LLMClient = &OfflineClient{} // Compile-time check

// NewOfflineClient creates an OfflineClient.
func NewOfflineClient() *OfflineClient {
	return &OfflineClient{}
}

// Complete implements the LLMClient interface.
func (c *OfflineClient) Complete(ctx context.Context, prompt string, _ int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !strings.Contains(prompt, `"answer"`) {
		return "[]", nil
	}

	lines := 0
	for line := range strings.SplitSeq(prompt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "- ") {
			lines++
		}
	}
	reply := map[string]any{
		"answer": fmt.Sprintf("No language model is configured, so this answer lists the %d most relevant items found in the history.", lines),
		"insights": []string{
			"Configure an LLM provider API key for narrative answers.",
		},
	}
	out, err := json.Marshal(reply)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
