package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/pkg/common"
)

const classificationSystemPrompt = `You classify short kitchen and pantry commands.
Pick exactly one intent from: ADD_ITEM, REMOVE_ITEM, MOVE_ITEM, CHECK_AVAILABILITY, FIND_RECIPES,
CHECK_EXPIRATION, LIST_ITEMS, UPDATE_QUANTITY, ADD_TO_GROCERY, MEAL_PLAN, UNKNOWN.
Respond with a single JSON object and nothing else: {"intent": "ADD_ITEM"}`

// Classifier 委派語言模型判斷意圖，只在規則表無法判斷時使用
type Classifier struct {
	completer Completer
	timeout   time.Duration
}

// NewClassifier 創建意圖分類器
func NewClassifier(completer Completer, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = defaultAITimeout
	}
	return &Classifier{completer: completer, timeout: timeout}
}

// ClassifyWithAI 回傳模型判斷的意圖；回應無法解析時回傳 ErrMalformedResponse
func (c *Classifier) ClassifyWithAI(ctx context.Context, text string) (Intent, error) {
	if c == nil || c.completer == nil {
		return IntentUnknown, ErrAIUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.completer.Complete(ctx, &provider.Request{
		Operation: "classify_intent",
		System:    classificationSystemPrompt,
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: strings.TrimSpace(text)},
		},
		MaxTokens:   50,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return IntentUnknown, fmt.Errorf("%w: %w", ErrDelegatedCallFailed, err)
	}

	raw, err := common.ExtractJSONObject(resp.Content)
	if err != nil {
		return IntentUnknown, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	var parsed struct {
		Intent string `json:"intent"`
	}
	if err := common.ParseJSON(raw, &parsed); err != nil {
		return IntentUnknown, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	intent := ParseIntent(strings.ToUpper(strings.TrimSpace(parsed.Intent)))
	if intent == IntentUnknown && !strings.EqualFold(parsed.Intent, string(IntentUnknown)) {
		return IntentUnknown, fmt.Errorf("%w: unknown intent %q", ErrMalformedResponse, parsed.Intent)
	}
	return intent, nil
}
