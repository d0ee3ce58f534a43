package recipe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/core/pantry"
	"pantry-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	maxIdeas       = 3
	maxSuggestions = 5
)

// Completer 語言模型呼叫
type Completer interface {
	Complete(ctx context.Context, req *provider.Request) (*provider.Response, error)
}

// SuggestionService 食譜點子與指令建議
type SuggestionService struct {
	completer Completer
	timeout   time.Duration
	// lastIdeas 以食材組合為鍵，記錄上一次的菜名，避免連續給出相同建議
	lastIdeas sync.Map
}

// NewSuggestionService 創建建議服務
func NewSuggestionService(completer Completer, timeout time.Duration) *SuggestionService {
	return &SuggestionService{completer: completer, timeout: timeout}
}

// looseIdea 寬鬆版中繼結構，模型偶爾把食材寫成字串
type looseIdea struct {
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	Ingredients        interface{} `json:"ingredients"`
	MissingIngredients interface{} `json:"missingIngredients"`
}

const ideasSystemPrompt = `You are a home cooking assistant. Suggest simple recipes that use the
ingredients the user already has. Reply with a JSON array only, no prose. Each element:
{"name": string, "description": string, "ingredients": [string], "missingIngredients": [string]}.
Prefer recipes with few missing ingredients. Do not invent ingredients the user did not list unless you
put them in missingIngredients.`

// RecipeIdeas 依庫存食材向模型要食譜點子
func (s *SuggestionService) RecipeIdeas(ctx context.Context, ingredients []string, dish string) ([]pantry.RecipeIdea, error) {
	if s == nil || s.completer == nil {
		return nil, common.ErrAIDisabled
	}
	if len(ingredients) == 0 && strings.TrimSpace(dish) == "" {
		return nil, nil
	}

	key := buildSuggestionKey(ingredients, dish)
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Ingredients on hand: %s.\n", common.StringSliceToString(ingredients))
	if dish != "" {
		fmt.Fprintf(&prompt, "The user wants to make: %s.\n", dish)
	}
	fmt.Fprintf(&prompt, "Suggest up to %d recipes.", maxIdeas)
	if prev, ok := s.lastIdeas.Load(key); ok {
		if names, okCast := prev.(string); okCast && names != "" {
			fmt.Fprintf(&prompt, "\nLast time you suggested: %s. Suggest different dishes this time.", names)
		}
	}

	content, err := s.complete(ctx, &provider.Request{
		Operation: "recipe_ideas",
		System:    ideasSystemPrompt,
		Messages:  []provider.Message{{Role: provider.RoleUser, Content: prompt.String()}},
	})
	if err != nil {
		return nil, err
	}

	ideas, err := parseIdeas(content)
	if err != nil {
		common.LogError("食譜建議解析失敗", zap.Error(err), zap.Int("response_length", len(content)))
		return nil, err
	}

	if len(ideas) > 0 {
		s.lastIdeas.Store(key, strings.Join(ideaNames(ideas), ", "))
	}
	return ideas, nil
}

const suggestionsSystemPrompt = `You help users talk to a pantry assistant. Given what is in their pantry,
suggest short natural-language commands they could type next, such as "what can I make with chicken?"
or "add milk to my grocery list". Reply with a JSON array of strings only.`

// CommandSuggestions 依庫存產生可以直接輸入的指令
func (s *SuggestionService) CommandSuggestions(ctx context.Context, items []string) ([]string, error) {
	if s == nil || s.completer == nil {
		return nil, common.ErrAIDisabled
	}

	pantryText := "The pantry is empty."
	if len(items) > 0 {
		pantryText = "Pantry contents: " + common.StringSliceToString(items) + "."
	}
	content, err := s.complete(ctx, &provider.Request{
		Operation: "command_suggestions",
		System:    suggestionsSystemPrompt,
		Messages: []provider.Message{{
			Role:    provider.RoleUser,
			Content: fmt.Sprintf("%s\nSuggest up to %d commands.", pantryText, maxSuggestions),
		}},
	})
	if err != nil {
		return nil, err
	}

	raw, err := common.ExtractJSONArray(content)
	if err != nil {
		return nil, err
	}
	var suggestions []string
	if err := common.ParseJSON(raw, &suggestions); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions: %w", err)
	}

	out := make([]string, 0, maxSuggestions)
	seen := make(map[string]bool)
	for _, sug := range suggestions {
		sug = strings.TrimSpace(sug)
		if sug == "" || seen[strings.ToLower(sug)] {
			continue
		}
		seen[strings.ToLower(sug)] = true
		out = append(out, sug)
		if len(out) == maxSuggestions {
			break
		}
	}
	if len(out) == 0 {
		return nil, errors.New("model returned no usable suggestions")
	}
	return out, nil
}

// complete 呼叫模型並套用逾時
func (s *SuggestionService) complete(ctx context.Context, req *provider.Request) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.completer.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("AI service error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("empty AI response")
	}
	return resp.Content, nil
}

// parseIdeas 取出 JSON 陣列並補齊欄位
func parseIdeas(content string) ([]pantry.RecipeIdea, error) {
	raw, err := common.ExtractJSONArray(content)
	if err != nil {
		return nil, err
	}
	var loose []looseIdea
	if err := common.ParseJSON(raw, &loose); err != nil {
		// 部分模型會省略鍵的雙引號
		if err2 := common.ParseJSON(common.QuoteJSONKeys(raw), &loose); err2 != nil {
			return nil, fmt.Errorf("failed to parse AI response (loose): %w", err)
		}
	}

	ideas := make([]pantry.RecipeIdea, 0, len(loose))
	for _, li := range loose {
		name := strings.TrimSpace(li.Name)
		if name == "" {
			continue
		}
		ideas = append(ideas, pantry.RecipeIdea{
			Name:               name,
			Description:        strings.TrimSpace(li.Description),
			Ingredients:        toStrings(li.Ingredients),
			MissingIngredients: toStrings(li.MissingIngredients),
		})
		if len(ideas) == maxIdeas {
			break
		}
	}
	return ideas, nil
}

// toStrings 接受字串陣列或以逗號分隔的字串
func toStrings(v interface{}) []string {
	var parts []string
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			if str, ok := item.(string); ok {
				parts = append(parts, str)
			}
		}
	case string:
		parts = strings.Split(val, ",")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ideaNames(ideas []pantry.RecipeIdea) []string {
	names := make([]string, len(ideas))
	for i, idea := range ideas {
		names[i] = idea.Name
	}
	return names
}

// buildSuggestionKey 食材排序後組成鍵，順序不同視為同一組
func buildSuggestionKey(ingredients []string, dish string) string {
	parts := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		parts = append(parts, strings.ToLower(strings.TrimSpace(ing)))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";") + "||" + strings.ToLower(strings.TrimSpace(dish))
}
