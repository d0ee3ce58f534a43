package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pantry-assistant/internal/core/ai/provider"

	"github.com/liushuangls/go-anthropic/v2"
)

const defaultClaudeMaxTokens = 1024

// ClaudeClient 以 go-anthropic 呼叫 Messages API
type ClaudeClient struct {
	client *anthropic.Client
	config provider.Config
}

// NewClaudeClient 創建 Claude 客戶端
func NewClaudeClient(cfg provider.Config) *ClaudeClient {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &ClaudeClient{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		config: cfg,
	}
}

// Generate 生成回應；Messages API 沒有 JSON 模式，改在 system 提示中要求
func (c *ClaudeClient) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	messages := make([]anthropic.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := anthropic.RoleUser
		if m.Role == provider.RoleAssistant {
			role = anthropic.RoleAssistant
		}
		messages = append(messages, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
		})
	}

	system := req.System
	if req.JSONMode {
		system = strings.TrimSpace(system + "\nRespond with a single JSON object and nothing else.")
	}

	msgReq := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.config.Model),
		System:    system,
		Messages:  messages,
		MaxTokens: firstPositive(req.MaxTokens, c.config.MaxTokens, defaultClaudeMaxTokens),
	}
	if t := firstPositiveFloat(req.Temperature, c.config.Temperature); t > 0 {
		temperature := float32(t)
		msgReq.Temperature = &temperature
	}

	resp, err := c.client.CreateMessages(ctx, msgReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, part := range resp.Content {
		if part.Text != nil {
			text.WriteString(*part.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response content")
	}

	return &provider.Response{
		Content: text.String(),
		Model:   string(resp.Model),
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// GetModel 模型名稱
func (c *ClaudeClient) GetModel() string { return c.config.Model }

// GetTimeout 請求超時時間
func (c *ClaudeClient) GetTimeout() time.Duration { return c.config.Timeout }

// Close 無連線需關閉
func (c *ClaudeClient) Close() error { return nil }
