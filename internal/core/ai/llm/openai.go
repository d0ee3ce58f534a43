package llm

import (
	"context"
	"fmt"
	"time"

	"pantry-assistant/internal/core/ai/provider"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient 以 go-openai 呼叫 Chat Completions
type OpenAIClient struct {
	client *openai.Client
	config provider.Config
}

// NewOpenAIClient 創建 OpenAI 客戶端；BaseURL 可指向相容的服務
func NewOpenAIClient(cfg provider.Config) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// Generate 生成回應
func (c *OpenAIClient) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   firstPositive(req.MaxTokens, c.config.MaxTokens),
		Temperature: float32(firstPositiveFloat(req.Temperature, c.config.Temperature)),
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	return &provider.Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// GetModel 模型名稱
func (c *OpenAIClient) GetModel() string { return c.config.Model }

// GetTimeout 請求超時時間
func (c *OpenAIClient) GetTimeout() time.Duration { return c.config.Timeout }

// Close 無連線需關閉
func (c *OpenAIClient) Close() error { return nil }
