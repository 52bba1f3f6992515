package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/codetime/internal/contract"
)

// OpenAIClient calls an OpenAI-compatible chat completions API.
type OpenAIClient struct {
	transport *httpTransport
	model     string
	endpoint  string
}

var _ contract.LLMClient = &OpenAIClient{} // Compile-time check

// NewOpenAIClient creates a chat completions client.
func NewOpenAIClient(apiKey, model, baseURL string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		transport: newHTTPTransport(timeout, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
		model:    model,
		endpoint: strings.TrimRight(baseURL, "/") + "/v1/chat/completions",
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Complete implements the LLMClient interface.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, budget int) (string, error) {
	req := openAIRequest{
		Model:       c.model,
		MaxTokens:   budget,
		Temperature: 0.3,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
	}
	var resp openAIResponse
	if err := c.transport.postJSON(ctx, c.endpoint, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", contract.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}
