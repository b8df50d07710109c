package llm

import (
	"context"
	"fmt"

	"climate-risk-advisor/internal/common/config"
)

// New builds the generator selected by cfg.Backend.
func New(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	switch cfg.Backend {
	case "watsonx", "":
		return NewWatsonxClient(cfg)
	case "openai":
		return NewOpenAIClient(cfg)
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
}
