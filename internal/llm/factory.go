package llm

import (
	"fmt"
	"strings"
)

// NewClient creates an LLM client for the configured provider. An empty or
// "disabled" provider yields a no-op client so the pipeline runs
// unchanged without external access.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "disabled":
		return NewDisabledClient(), nil
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
