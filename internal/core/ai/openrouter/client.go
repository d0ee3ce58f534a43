package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	maxLoggedBody  = 512
)

// Client OpenRouter API 客戶端
type Client struct {
	http   *resty.Client
	config provider.Config
}

// chatRequest chat/completions 請求
type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []provider.Message `json:"messages"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    float64            `json:"temperature,omitempty"`
	ResponseFormat *responseFormat    `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse OpenRouter 響應結構
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message provider.Message `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// apiError 表示 API 錯誤
type apiError struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg provider.Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://pantry-assistant.local").
		SetHeader("X-Title", "Pantry Assistant")

	return &Client{http: client, config: cfg}
}

// truncate 避免把過長的回應寫進日誌
func truncate(body string) string {
	if len(body) <= maxLoggedBody {
		return body
	}
	return body[:maxLoggedBody] + "...[truncated]"
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	messages := make([]provider.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: req.System})
	}
	messages = append(messages, req.Messages...)

	body := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.Temperature = req.Temperature
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", body.Model),
		zap.String("operation", req.Operation),
		zap.Int("messages", len(body.Messages)),
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		var apiErr apiError
		message := truncate(resp.String())
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return nil, fmt.Errorf("OpenRouter API error (status %d): %s", resp.StatusCode(), message)
	}

	var result chatResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in OpenRouter response")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty content in OpenRouter response")
	}

	model := result.Model
	if model == "" {
		model = c.config.Model
	}
	return &provider.Response{
		Content: content,
		Model:   model,
		Usage:   result.Usage,
	}, nil
}

// GetModel 模型名稱
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetTimeout 請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.config.Timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}
