package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/pkg/common"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

var (
	// ErrAIUnavailable 未設定語言模型
	ErrAIUnavailable = errors.New("ai extraction is not configured")
	// ErrDelegatedCallFailed 語言模型呼叫失敗（網路、逾時、配額）
	ErrDelegatedCallFailed = errors.New("delegated call failed")
	// ErrMalformedResponse 語言模型回傳內容無法解析或不符合 schema
	ErrMalformedResponse = errors.New("malformed model response")
)

const extractionSystemPrompt = `You extract structured data from short kitchen and pantry commands.
Today's date is %s.
Respond with a single JSON object and nothing else, using exactly this shape:
{
  "ingredients": [{"name": "chicken", "quantity": 2, "unit": "lb", "brand": "", "category": "meat"}],
  "locations": [{"type": "fridge", "specific": "", "preposition": "to"}],
  "dates": [{"type": "absolute", "value": "YYYY-MM-DD", "originalText": "expires on friday"}],
  "quantities": [{"value": 2, "unit": "lb"}],
  "actions": ["add"],
  "recipes": []
}
Rules:
- ingredient names are lowercase and keep the user's wording (e.g. "tomatoes").
- category is one of produce, meat, dairy, grains, pantry, frozen, beverages, snacks, or empty.
- location type is one of fridge, freezer, pantry, cupboard, counter, spice rack.
- preposition is the word that introduced the location (from, to, in, ...).
- dates are resolved to YYYY-MM-DD relative to today; use "relative" for phrases like "tomorrow".
- use empty arrays when nothing is found.`

const extractionSchemaJSON = `{
  "type": "object",
  "properties": {
    "ingredients": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "quantity": {"type": ["number", "null"]},
          "unit": {"type": ["string", "null"]},
          "brand": {"type": ["string", "null"]},
          "category": {"type": ["string", "null"]}
        }
      }
    },
    "locations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "specific": {"type": ["string", "null"]},
          "preposition": {"type": ["string", "null"]}
        }
      }
    },
    "dates": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["value"],
        "properties": {
          "type": {"type": "string"},
          "value": {"type": "string"},
          "originalText": {"type": "string"}
        }
      }
    },
    "quantities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["value"],
        "properties": {
          "value": {"type": "number"},
          "unit": {"type": ["string", "null"]}
        }
      }
    },
    "actions": {"type": "array", "items": {"type": "string"}},
    "recipes": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["ingredients"]
}`

var extractionSchema = func() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(extractionSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid extraction schema: %v", err))
	}
	return schema
}()

// aiExtraction 模型回傳格式；指標欄位用於容忍 null
type aiExtraction struct {
	Ingredients []struct {
		Name     string   `json:"name"`
		Quantity *float64 `json:"quantity"`
		Unit     *string  `json:"unit"`
		Brand    *string  `json:"brand"`
		Category *string  `json:"category"`
	} `json:"ingredients"`
	Locations []struct {
		Type        string  `json:"type"`
		Specific    *string `json:"specific"`
		Preposition *string `json:"preposition"`
	} `json:"locations"`
	Dates []struct {
		Type         string `json:"type"`
		Value        string `json:"value"`
		OriginalText string `json:"originalText"`
	} `json:"dates"`
	Quantities []struct {
		Value float64 `json:"value"`
		Unit  *string `json:"unit"`
	} `json:"quantities"`
	Actions []string `json:"actions"`
	Recipes []string `json:"recipes"`
}

// ExtractWithAI 委派語言模型抽取，信心值 0.9；任何失敗都以錯誤回傳
func (e *Extractor) ExtractWithAI(ctx context.Context, text string) (ExtractionResult, error) {
	if e.completer == nil {
		return ExtractionResult{}, ErrAIUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.completer.Complete(ctx, &provider.Request{
		Operation: "extract_entities",
		System:    fmt.Sprintf(extractionSystemPrompt, e.today().Format(dateLayout)),
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: strings.TrimSpace(text)},
		},
		MaxTokens:   600,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("%w: %w", ErrDelegatedCallFailed, err)
	}

	return parseAIExtraction(resp.Content)
}

// parseAIExtraction 取第一個 { 到最後一個 }，驗證 schema 後解析
func parseAIExtraction(content string) (ExtractionResult, error) {
	raw, err := common.ExtractJSONObject(content)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	validation, err := extractionSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if !validation.Valid() {
		issues := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			issues = append(issues, desc.String())
		}
		return ExtractionResult{}, fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(issues, "; "))
	}

	var parsed aiExtraction
	if err := common.ParseJSON(raw, &parsed); err != nil {
		return ExtractionResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	result := ExtractionResult{
		Actions:    uniqueStrings(parsed.Actions),
		Recipes:    uniqueStrings(parsed.Recipes),
		Confidence: aiConfidence,
		Source:     SourceAI,
	}

	for _, ing := range parsed.Ingredients {
		name := strings.ToLower(strings.TrimSpace(ing.Name))
		if name == "" {
			continue
		}
		item := ExtractedIngredient{
			Name:     name,
			Quantity: ing.Quantity,
			Unit:     NormalizeUnit(deref(ing.Unit)),
			Brand:    strings.TrimSpace(deref(ing.Brand)),
			Category: strings.ToLower(strings.TrimSpace(deref(ing.Category))),
		}
		if item.Category == "" {
			item.Category = InferCategory(name)
		}
		result.Ingredients = append(result.Ingredients, item)
	}

	for _, loc := range parsed.Locations {
		locType := strings.ToLower(strings.TrimSpace(loc.Type))
		if alias, ok := locationAliases[locType]; ok {
			locType = alias
		}
		result.Locations = append(result.Locations, Location{
			Type:        locType,
			Specific:    strings.ToLower(strings.TrimSpace(deref(loc.Specific))),
			Preposition: strings.ToLower(strings.TrimSpace(deref(loc.Preposition))),
		})
	}

	for _, d := range parsed.Dates {
		dateType := DateType(strings.ToLower(d.Type))
		if dateType != DateRelative {
			dateType = DateAbsolute
		}
		result.Dates = append(result.Dates, DateEntity{
			Type:         dateType,
			Value:        strings.TrimSpace(d.Value),
			OriginalText: d.OriginalText,
		})
	}

	for _, q := range parsed.Quantities {
		result.Quantities = append(result.Quantities, Quantity{
			Value: q.Value,
			Unit:  NormalizeUnit(deref(q.Unit)),
		})
	}

	return result, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type primaryExtraction func(ctx context.Context, text string) (ExtractionResult, error)

type fallbackExtraction func(text string) ExtractionResult

// withFallback primary 失敗時記錄錯誤並改用 fallback，結果永不為錯誤
func withFallback(primary primaryExtraction, fallback fallbackExtraction) func(ctx context.Context, text string) ExtractionResult {
	return func(ctx context.Context, text string) ExtractionResult {
		result, err := primary(ctx, text)
		if err == nil {
			return result
		}
		common.LogWarn("AI 實體抽取失敗，改用規則抽取",
			zap.Error(err),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
		)
		return fallback(text)
	}
}

// Extract 依 useAI 選擇抽取路徑；AI 路徑失敗一律退回規則路徑
func (e *Extractor) Extract(ctx context.Context, text string, useAI bool) ExtractionResult {
	if !useAI || e.completer == nil {
		return e.ExtractPatterns(text)
	}
	return withFallback(e.ExtractWithAI, e.ExtractPatterns)(ctx, text)
}
