package llm

import (
	"fmt"

	"github.com/user/trialchat/internal/config"
	"github.com/user/trialchat/internal/retry"
)

// Factory creates LLM clients
type Factory struct {
	retryClient *retry.Client
}

// NewFactory creates a new LLM factory. A nil retry client gives each
// created client one built from its own configuration.
func NewFactory(retryClient *retry.Client) *Factory {
	return &Factory{retryClient: retryClient}
}

// NewRetryClient builds the HTTP client described by an LLM configuration
func NewRetryClient(cfg config.LLMConfig) *retry.Client {
	perAttempt, total := cfg.Retry.GetWaits()
	return retry.NewClient(cfg.GetTimeout(), &retry.Config{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		Multiplier:        cfg.Retry.Multiplier,
		MaxWaitPerAttempt: perAttempt,
		MaxTotalWait:      total,
	})
}

// CreateClient creates an LLM client based on the provider configuration
func (f *Factory) CreateClient(cfg config.LLMConfig) (LLMClient, error) {
	rc := f.retryClient
	if rc == nil {
		rc = NewRetryClient(cfg)
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg, rc), nil
	case "anthropic":
		return NewAnthropicClient(cfg, rc), nil
	case "ollama":
		return NewOllamaClient(cfg, rc)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, anthropic, ollama)", cfg.Provider)
	}
}
