// Package llm provides the language model collaborators used by the
// synthesizer and the query engine.
package llm

import (
	"time"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// Default models per provider, used when no model is configured.
const (
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Default API endpoints per provider.
const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	DefaultOpenAIBaseURL    = "https://api.openai.com"
)

// Request behavior shared by the remote providers.
const (
	maxResponseBytes = 4 << 20
	maxRetries       = 2
	retryBaseDelay   = 500 * time.Millisecond
	retryMaxDelay    = 5 * time.Second
)

// New returns the client for the configured provider.
func New(cfg *contract.Config) contract.LLMClient {
	switch cfg.LLMProvider {
	case schema.AnthropicProvider:
		return NewAnthropicClient(cfg.LLMAPIKey, orDefault(cfg.LLMModel, DefaultAnthropicModel),
			orDefault(cfg.LLMBaseURL, DefaultAnthropicBaseURL), cfg.LLMTimeout)
	case schema.OpenAIProvider:
		return NewOpenAIClient(cfg.LLMAPIKey, orDefault(cfg.LLMModel, DefaultOpenAIModel),
			orDefault(cfg.LLMBaseURL, DefaultOpenAIBaseURL), cfg.LLMTimeout)
	default:
		return NewOfflineClient()
	}
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
