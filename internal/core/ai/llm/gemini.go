package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pantry-assistant/internal/core/ai/provider"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient 以 generative-ai-go 呼叫 Gemini
type GeminiClient struct {
	client *genai.Client
	config provider.Config
}

// NewGeminiClient 創建 Gemini 客戶端
func NewGeminiClient(ctx context.Context, cfg provider.Config) (*GeminiClient, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, config: cfg}, nil
}

// Generate 生成回應；GenerativeModel 帶有請求狀態，每次呼叫各建一個
func (c *GeminiClient) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := c.client.GenerativeModel(c.config.Model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if n := firstPositive(req.MaxTokens, c.config.MaxTokens); n > 0 {
		model.SetMaxOutputTokens(int32(n))
	}
	if t := firstPositiveFloat(req.Temperature, c.config.Temperature); t > 0 {
		model.SetTemperature(float32(t))
	}
	if req.JSONMode {
		model.ResponseMIMEType = "application/json"
	}

	parts := make([]genai.Part, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, genai.Text(m.Content))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates or content")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no text in response")
	}

	result := &provider.Response{Content: text.String(), Model: c.config.Model}
	if resp.UsageMetadata != nil {
		result.Usage = provider.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return result, nil
}

// GetModel 模型名稱
func (c *GeminiClient) GetModel() string { return c.config.Model }

// GetTimeout 請求超時時間
func (c *GeminiClient) GetTimeout() time.Duration { return c.config.Timeout }

// Close 關閉 gRPC 連線
func (c *GeminiClient) Close() error { return c.client.Close() }
