package providers

import (
	"fmt"

	"github.com/AzielCF/az-relay/botengine/domain"
	"github.com/AzielCF/az-relay/core/config"
)

// NewGenerator picks the configured AI provider. It returns (nil, nil) when
// no provider is configured so the caller can run on rules only.
func NewGenerator(ai config.AIConfig, keys config.APIKeysConfig) (domain.Generator, error) {
	switch ai.Provider {
	case "":
		return nil, nil
	case "gemini":
		return NewGeminiProvider(keys.Gemini, ai.Model), nil
	case "openai":
		return NewOpenAIProvider(keys.OpenAI, ai.Model), nil
	case "claude", "anthropic":
		return NewClaudeProvider(keys.Claude, ai.Model), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", ai.Provider)
	}
}
