package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"pantry-assistant/internal/core/ai/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-03-13 為星期三
var fixedNow = time.Date(2024, time.March, 13, 15, 4, 5, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestExtractor(opts ...ExtractorOption) *Extractor {
	return NewExtractor(append([]ExtractorOption{WithClock(fixedClock)}, opts...)...)
}

// fakeCompleter 模擬語言模型
type fakeCompleter struct {
	content string
	err     error
	block   bool
	calls   int
	lastReq *provider.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.calls++
	f.lastReq = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.content}, nil
}

func ingredientNamesOf(result ExtractionResult) []string {
	return ingredientNames(result.Ingredients)
}

// ==================== 規則路徑 ====================

func TestExtractPatterns_AddChickenToFridge(t *testing.T) {
	result := newTestExtractor().ExtractPatterns("add 2 lbs of chicken to the fridge")

	require.Len(t, result.Ingredients, 1)
	ing := result.Ingredients[0]
	assert.Equal(t, "chicken", ing.Name)
	assert.Equal(t, "meat", ing.Category)
	require.NotNil(t, ing.Quantity)
	assert.Equal(t, 2.0, *ing.Quantity)
	assert.Equal(t, "lb", ing.Unit)

	require.Len(t, result.Quantities, 1)
	assert.Equal(t, "2 lb", result.Quantities[0].String())
	assert.Equal(t, "2 lbs", result.Quantities[0].OriginalText)

	require.Len(t, result.Locations, 1)
	assert.Equal(t, "fridge", result.Locations[0].Type)
	assert.Equal(t, "to", result.Locations[0].Preposition)
	assert.Equal(t, "Fridge", result.Locations[0].Name())

	assert.Equal(t, []string{"add"}, result.Actions)
	assert.Equal(t, 0.7, result.Confidence)
	assert.Equal(t, SourcePattern, result.Source)
}

func TestExtractPatterns_Ingredients(t *testing.T) {
	tests := []struct {
		text     string
		expected []string
	}{
		{"do we have tomatoes and onions", []string{"tomatoes", "onions"}},
		{"Do we have tomatoes, onions & garlic?", []string{"tomatoes", "onions", "garlic"}},
		{"add milk to the fridge", []string{"milk"}},
		{"move chicken", []string{"chicken"}},
		{"i need to buy eggs and bread", []string{"eggs", "bread"}},
		{"add eggs and milk to my grocery list", []string{"eggs", "milk"}},
		{"we only have 2 eggs left", []string{"eggs"}},
		{"set eggs quantity to 12", []string{"eggs"}},
		{"what can i make with chicken and rice", []string{"chicken", "rice"}},
		{"put the chicken breast in the freezer", []string{"chicken breast"}},
		{"what's in the fridge", nil},
		{"what's expiring soon", nil},
		{"hey could you possibly tell me about chicken recipes", []string{"chicken"}},
	}

	extractor := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			names := ingredientNamesOf(extractor.ExtractPatterns(tt.text))
			if tt.expected == nil {
				assert.Empty(t, names)
				return
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestExtractPatterns_Quantities(t *testing.T) {
	tests := []struct {
		text  string
		value float64
		unit  string
	}{
		{"add 1/2 cup of sugar", 0.5, "cup"},
		{"add 1.5 liters of milk", 1.5, "l"},
		{"add two cans of beans", 2, "can"},
		{"add a dozen eggs", 12, ""},
		{"add 3 tomatoes", 3, ""},
		{"add 500g of flour", 500, "g"},
		{"add 2 Tablespoons of butter", 2, "tbsp"},
	}

	extractor := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result := extractor.ExtractPatterns(tt.text)
			require.Len(t, result.Quantities, 1)
			assert.InDelta(t, tt.value, result.Quantities[0].Value, 1e-9)
			assert.Equal(t, tt.unit, result.Quantities[0].Unit)
		})
	}
}

func TestExtractPatterns_TwoLocationsKeepOrder(t *testing.T) {
	result := newTestExtractor().ExtractPatterns("move the chicken from the fridge to the garage freezer")

	require.Len(t, result.Locations, 2)
	assert.Equal(t, Location{Type: "fridge", Preposition: "from"}, result.Locations[0])
	assert.Equal(t, Location{Type: "freezer", Specific: "garage", Preposition: "to"}, result.Locations[1])
	assert.Equal(t, "Garage Freezer", result.Locations[1].Name())
	assert.Equal(t, []string{"chicken"}, ingredientNamesOf(result))
}

func TestExtractPatterns_Dates(t *testing.T) {
	tests := []struct {
		text     string
		value    string
		dateType DateType
	}{
		{"milk expires in 3 days", "2024-03-16", DateRelative},
		{"add milk that expires tomorrow", "2024-03-14", DateRelative},
		{"add yogurt, use by next week", "2024-03-20", DateRelative},
		{"add bread best before 2024-04-01", "2024-04-01", DateAbsolute},
		{"add cheese expires on 3/20", "2024-03-20", DateAbsolute},
		{"add ham expires on march 30th", "2024-03-30", DateAbsolute},
		{"what's expiring this weekend", "2024-03-16", DateRelative},
		{"add fish, expires next friday", "2024-03-15", DateRelative},
		{"add soup expires in a month", "2024-04-13", DateRelative},
	}

	extractor := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result := extractor.ExtractPatterns(tt.text)
			require.Len(t, result.Dates, 1)
			assert.Equal(t, tt.value, result.Dates[0].Value)
			assert.Equal(t, tt.dateType, result.Dates[0].Type)
			// 日期中的數字不應被當成數量
			assert.Empty(t, result.Quantities)
		})
	}
}

func TestExtractPatterns_UnparseableExpiry(t *testing.T) {
	result := newTestExtractor().ExtractPatterns("add milk, expires on blursday")

	require.Len(t, result.Dates, 1)
	assert.Equal(t, "", result.Dates[0].Value)
	assert.Equal(t, "expires on blursday", result.Dates[0].OriginalText)
	assert.Equal(t, []string{"milk"}, ingredientNamesOf(result))
}

func TestExtractPatterns_ExpiringInLocationIsNotADate(t *testing.T) {
	extractor := newTestExtractor()
	for _, text := range []string{"what's expiring in the fridge", "what expires in the freezer?"} {
		t.Run(text, func(t *testing.T) {
			result := extractor.ExtractPatterns(text)
			assert.Empty(t, result.Dates)
			require.Len(t, result.Locations, 1)
			assert.Equal(t, "in", result.Locations[0].Preposition)
			assert.True(t, ValidateExtraction(result).Valid)
		})
	}
}

func TestExtractPatterns_Half(t *testing.T) {
	extractor := newTestExtractor()

	result := extractor.ExtractPatterns("add half and half")
	assert.Empty(t, result.Quantities)
	assert.Equal(t, []string{"half and half"}, ingredientNamesOf(result))

	result = extractor.ExtractPatterns("add half a gallon of milk")
	require.NotEmpty(t, result.Quantities)
	assert.Equal(t, 0.5, result.Quantities[0].Value)
	assert.Equal(t, "gal", result.Quantities[0].Unit)

	result = extractor.ExtractPatterns("add half cup of sugar")
	require.Len(t, result.Quantities, 1)
	assert.Equal(t, 0.5, result.Quantities[0].Value)
	assert.Equal(t, "cup", result.Quantities[0].Unit)
}

func TestExtractPatterns_Recipes(t *testing.T) {
	result := newTestExtractor().ExtractPatterns("find a recipe for banana bread")
	assert.Equal(t, []string{"banana bread"}, result.Recipes)
	assert.Empty(t, result.Ingredients)

	result = newTestExtractor().ExtractPatterns("how do I make pancakes with eggs?")
	assert.Equal(t, []string{"pancakes"}, result.Recipes)
	assert.Equal(t, []string{"eggs"}, ingredientNamesOf(result))
}

// ==================== AI 路徑 ====================

const validAIResponse = "```json\n" + `{
  "ingredients": [{"name": "Chicken", "quantity": 2, "unit": "pounds", "brand": null, "category": null}],
  "locations": [{"type": "refrigerator", "specific": null, "preposition": "to"}],
  "dates": [],
  "quantities": [{"value": 2, "unit": "pounds"}],
  "actions": ["add"],
  "recipes": []
}` + "\n```"

func TestExtractWithAI_Success(t *testing.T) {
	completer := &fakeCompleter{content: validAIResponse}
	extractor := newTestExtractor(WithCompleter(completer))

	result, err := extractor.ExtractWithAI(context.Background(), "add 2 lbs of chicken to the fridge")
	require.NoError(t, err)

	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, SourceAI, result.Source)
	require.Len(t, result.Ingredients, 1)
	assert.Equal(t, "chicken", result.Ingredients[0].Name)
	assert.Equal(t, "lb", result.Ingredients[0].Unit)
	assert.Equal(t, "meat", result.Ingredients[0].Category)
	require.Len(t, result.Locations, 1)
	assert.Equal(t, "fridge", result.Locations[0].Type)

	require.NotNil(t, completer.lastReq)
	assert.Equal(t, "extract_entities", completer.lastReq.Operation)
	assert.True(t, completer.lastReq.JSONMode)
	assert.Contains(t, completer.lastReq.System, "2024-03-13")
}

func TestExtractWithAI_Errors(t *testing.T) {
	tests := []struct {
		name      string
		completer *fakeCompleter
		target    error
	}{
		{"network error", &fakeCompleter{err: errors.New("dial tcp: connection refused")}, ErrDelegatedCallFailed},
		{"no json", &fakeCompleter{content: "Sorry, I can't help with that."}, ErrMalformedResponse},
		{"broken json", &fakeCompleter{content: `{"ingredients": [}`}, ErrMalformedResponse},
		{"schema violation", &fakeCompleter{content: `{"ingredients": "chicken"}`}, ErrMalformedResponse},
		{"missing name", &fakeCompleter{content: `{"ingredients": [{"quantity": 2}]}`}, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := newTestExtractor(WithCompleter(tt.completer))
			_, err := extractor.ExtractWithAI(context.Background(), "add chicken")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestExtractWithAI_NotConfigured(t *testing.T) {
	_, err := newTestExtractor().ExtractWithAI(context.Background(), "add chicken")
	assert.ErrorIs(t, err, ErrAIUnavailable)
}

// ==================== 備援 ====================

func TestExtract_NetworkErrorFallsBackToPatterns(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("connection reset by peer")}
	extractor := newTestExtractor(WithCompleter(completer))

	result := extractor.Extract(context.Background(), "add 2 lbs of chicken to the fridge", true)

	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, SourcePattern, result.Source)
	assert.Equal(t, 0.7, result.Confidence)
	assert.Equal(t, []string{"chicken"}, ingredientNamesOf(result))
}

func TestExtract_TimeoutFallsBackToPatterns(t *testing.T) {
	completer := &fakeCompleter{block: true}
	extractor := newTestExtractor(WithCompleter(completer), WithAITimeout(20*time.Millisecond))

	start := time.Now()
	result := extractor.Extract(context.Background(), "do we have tomatoes and onions", true)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, SourcePattern, result.Source)
	assert.Equal(t, []string{"tomatoes", "onions"}, ingredientNamesOf(result))
}

func TestExtract_UseAIFalseSkipsModel(t *testing.T) {
	completer := &fakeCompleter{content: validAIResponse}
	extractor := newTestExtractor(WithCompleter(completer))

	result := extractor.Extract(context.Background(), "add milk", false)
	assert.Equal(t, 0, completer.calls)
	assert.Equal(t, SourcePattern, result.Source)

	result = extractor.Extract(context.Background(), "add milk", true)
	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, SourceAI, result.Source)
}

func TestWithFallback_PrimaryResultWins(t *testing.T) {
	primary := func(ctx context.Context, text string) (ExtractionResult, error) {
		return ExtractionResult{Confidence: 0.9, Source: SourceAI}, nil
	}
	fallbackCalled := false
	fallback := func(text string) ExtractionResult {
		fallbackCalled = true
		return ExtractionResult{}
	}

	result := withFallback(primary, fallback)(context.Background(), "x")
	assert.Equal(t, SourceAI, result.Source)
	assert.False(t, fallbackCalled)
}
