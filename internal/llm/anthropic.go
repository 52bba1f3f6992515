package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/codetime/internal/contract"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	transport *httpTransport
	model     string
	endpoint  string
}

var _ contract.LLMClient = &AnthropicClient{} // Compile-time check

// NewAnthropicClient creates a Messages API client.
func NewAnthropicClient(apiKey, model, baseURL string, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		transport: newHTTPTransport(timeout, map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": anthropicVersion,
		}),
		model:    model,
		endpoint: strings.TrimRight(baseURL, "/") + "/v1/messages",
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete implements the LLMClient interface.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, budget int) (string, error) {
	req := anthropicRequest{
		Model:     c.model,
		MaxTokens: budget,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	var resp anthropicResponse
	if err := c.transport.postJSON(ctx, c.endpoint, req, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: empty completion", contract.ErrUpstream)
	}
	return sb.String(), nil
}
