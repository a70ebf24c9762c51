package llm

import (
	"fmt"
	"strings"

	"spaceradar/internal/model"
)

// NewProvider creates the configured narrative provider. An empty
// provider name disables narration: the factory returns (nil, nil) and
// the scorer degrades every new candidate through its failure path.
func NewProvider(config model.LLMConfig) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}
