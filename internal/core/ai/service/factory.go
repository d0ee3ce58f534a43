package service

import (
	"context"
	"fmt"

	"pantry-assistant/internal/core/ai/llm"
	"pantry-assistant/internal/core/ai/openrouter"
	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/infrastructure/config"
)

// NewProvider 依設定建立語言模型提供者；未啟用時回傳 nil
func NewProvider(ctx context.Context, cfg config.LLMConfig) (provider.Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	pc := provider.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	}

	switch cfg.Provider {
	case "", "openrouter":
		return openrouter.NewClient(pc), nil
	case "openai":
		return llm.NewOpenAIClient(pc), nil
	case "claude":
		return llm.NewClaudeClient(pc), nil
	case "gemini":
		client, err := llm.NewGeminiClient(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
