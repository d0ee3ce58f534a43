package command

import (
	"context"
	"strings"

	"pantry-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// DefaultConfidenceThreshold 低於此信心值時先回問使用者
	DefaultConfidenceThreshold = 0.7

	knownIntentBase   = 0.7
	unknownIntentBase = 0.2
	entityBoost       = 0.3
	maxBoostEntities  = 3

	// unknownConfidenceCap 無法辨識的指令信心值上限
	unknownConfidenceCap = 0.2
)

var clarifications = map[Intent]string{
	IntentAddItem:           "What item would you like to add?",
	IntentRemoveItem:        "What item would you like to remove?",
	IntentMoveItem:          "Which item would you like to move, and where should it go?",
	IntentCheckAvailability: "Which ingredients would you like me to check?",
	IntentFindRecipes:       "What ingredients or dish would you like recipes for?",
	IntentCheckExpiration:   "Would you like to see everything expiring soon, or check a specific item?",
	IntentListItems:         "Which location would you like me to list, for example the fridge or the pantry?",
	IntentUpdateQuantity:    "Which item should I update, and to what quantity?",
	IntentAddToGrocery:      "What would you like to add to your grocery list?",
	IntentMealPlan:          "How many days would you like to plan meals for?",
	IntentUnknown:           `I'm not sure what you'd like to do. Try something like "add milk to the fridge" or "what's expiring soon?"`,
}

// Processor 指令處理器：意圖分類 + 實體抽取 + 參數整理
type Processor struct {
	extractor  *Extractor
	classifier *Classifier
	threshold  float64
}

// ProcessorOption 處理器選項
type ProcessorOption func(*Processor)

// WithThreshold 設定確認門檻
func WithThreshold(threshold float64) ProcessorOption {
	return func(p *Processor) {
		if threshold >= 0 && threshold <= 1 {
			p.threshold = threshold
		}
	}
}

// WithClassifier 設定 AI 意圖分類器
func WithClassifier(c *Classifier) ProcessorOption {
	return func(p *Processor) {
		p.classifier = c
	}
}

// NewProcessor 創建指令處理器
func NewProcessor(extractor *Extractor, opts ...ProcessorOption) *Processor {
	if extractor == nil {
		extractor = NewExtractor()
	}
	p := &Processor{
		extractor: extractor,
		threshold: DefaultConfidenceThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Threshold 目前的確認門檻
func (p *Processor) Threshold() float64 {
	return p.threshold
}

// Process 規則路徑處理指令
func (p *Processor) Process(text string) ProcessedCommand {
	return p.build(text, DetectIntent(text), p.extractor.ExtractPatterns(text))
}

// ProcessWithAI 規則表無法判斷時委派分類，實體抽取走 AI 路徑並以規則路徑備援
func (p *Processor) ProcessWithAI(ctx context.Context, text string) ProcessedCommand {
	intent := DetectIntent(text)
	if intent == IntentUnknown && p.classifier != nil {
		classified, err := p.classifier.ClassifyWithAI(ctx, text)
		if err != nil {
			common.LogWarn("AI 意圖分類失敗，維持規則結果", zap.Error(err))
		} else {
			intent = classified
		}
	}
	return p.build(text, intent, p.extractor.Extract(ctx, text, true))
}

func (p *Processor) build(text string, intent Intent, extraction ExtractionResult) ProcessedCommand {
	entities := buildEntities(extraction)
	cmd := ProcessedCommand{
		Intent:       intent,
		Entities:     entities,
		OriginalText: text,
		Confidence:   scoreConfidence(intent, entities),
		Parameters:   buildParameters(intent, extraction, p.extractor),
		Extraction:   extraction,
	}
	if cmd.Confidence < p.threshold {
		cmd.SuggestedAction = clarifications[intent]
	}
	return cmd
}

// scoreConfidence 基礎分 0.7（UNKNOWN 為 0.2），依實體數量加分，再與實體平均信心值取平均
func scoreConfidence(intent Intent, entities []ExtractedEntity) float64 {
	score := knownIntentBase
	if intent == IntentUnknown {
		score = unknownIntentBase
	}
	score += entityBoost * float64(min(len(entities), maxBoostEntities)) / maxBoostEntities

	if len(entities) > 0 {
		var sum float64
		for _, e := range entities {
			sum += e.Confidence
		}
		score = (score + sum/float64(len(entities))) / 2
	}

	score = common.Clamp01(score)
	if intent == IntentUnknown && score > unknownConfidenceCap {
		score = unknownConfidenceCap
	}
	return score
}

// buildEntities 依 食材、數量、位置、日期、動作、食譜 的順序展開實體
func buildEntities(ex ExtractionResult) []ExtractedEntity {
	entities := make([]ExtractedEntity, 0)
	add := func(t EntityType, value, normalized string) {
		entities = append(entities, ExtractedEntity{
			Type:       t,
			Value:      value,
			Normalized: normalized,
			Confidence: ex.Confidence,
		})
	}

	for _, ing := range ex.Ingredients {
		add(EntityIngredient, ing.Name, strings.ToLower(ing.Name))
	}
	for _, q := range ex.Quantities {
		value := q.OriginalText
		if value == "" {
			value = q.String()
		}
		add(EntityQuantity, value, q.String())
	}
	for _, loc := range ex.Locations {
		add(EntityLocation, strings.TrimSpace(loc.Specific+" "+loc.Type), loc.Name())
	}
	for _, d := range ex.Dates {
		add(EntityDate, d.OriginalText, d.Value)
	}
	for _, a := range ex.Actions {
		add(EntityAction, a, strings.ToLower(a))
	}
	for _, r := range ex.Recipes {
		add(EntityRecipe, r, strings.ToLower(r))
	}
	return entities
}

// buildParameters 依意圖整理參數。
// 指令中只取第一個數量與第一個位置，多個品項共用同一數量。
func buildParameters(intent Intent, ex ExtractionResult, extractor *Extractor) Parameters {
	var params Parameters

	var firstQty *Quantity
	if len(ex.Quantities) > 0 {
		firstQty = &ex.Quantities[0]
	}
	firstLocation := ""
	if len(ex.Locations) > 0 {
		firstLocation = ex.Locations[0].Name()
	}
	firstIngredient := ""
	if len(ex.Ingredients) > 0 {
		firstIngredient = ex.Ingredients[0].Name
	}

	switch intent {
	case IntentAddItem, IntentRemoveItem, IntentAddToGrocery:
		expiration := firstResolvedDate(ex.Dates)
		for _, ing := range ex.Ingredients {
			item := ItemParam{
				Name:     ing.Name,
				Quantity: ing.Quantity,
				Unit:     ing.Unit,
				Category: ing.Category,
				Brand:    ing.Brand,
				Location: firstLocation,
			}
			if item.Quantity == nil && firstQty != nil {
				item.Quantity = floatPtr(firstQty.Value)
				item.Unit = firstQty.Unit
			}
			if intent == IntentAddItem {
				item.ExpirationDate = expiration
			}
			params.Items = append(params.Items, item)
		}
		params.Location = firstLocation

	case IntentMoveItem:
		params.ItemName = firstIngredient
		params.FromLocation, params.ToLocation = moveLocations(ex.Locations)

	case IntentUpdateQuantity:
		params.ItemName = firstIngredient
		if len(ex.Ingredients) > 0 && ex.Ingredients[0].Quantity != nil {
			params.Quantity = floatPtr(*ex.Ingredients[0].Quantity)
			params.Unit = ex.Ingredients[0].Unit
		} else if firstQty != nil {
			params.Quantity = floatPtr(firstQty.Value)
			params.Unit = firstQty.Unit
		}
		params.Location = firstLocation

	case IntentCheckAvailability:
		params.Ingredients = ingredientNames(ex.Ingredients)

	case IntentFindRecipes:
		params.Ingredients = ingredientNames(ex.Ingredients)
		if len(ex.Recipes) > 0 {
			params.Recipe = ex.Recipes[0]
		}

	case IntentCheckExpiration:
		params.ItemName = firstIngredient
		params.Location = firstLocation
		if value := firstResolvedDate(ex.Dates); value != "" {
			if days, ok := DaysUntil(value, extractor.today()); ok && days >= 0 {
				params.Days = days
			}
		}

	case IntentListItems:
		params.Location = firstLocation

	case IntentMealPlan:
		if value := firstResolvedDate(ex.Dates); value != "" {
			if days, ok := DaysUntil(value, extractor.today()); ok && days > 0 {
				params.Days = days
			}
		}

	case IntentUnknown:
	}

	return params
}

// moveLocations 兩個位置時前者為來源、後者為目的地，除非介系詞明確相反；
// 只有一個位置時由介系詞判斷方向，沒有 from 一律視為目的地
func moveLocations(locations []Location) (from, to string) {
	switch len(locations) {
	case 0:
		return "", ""
	case 1:
		if IsSourcePreposition(locations[0].Preposition) {
			return locations[0].Name(), ""
		}
		return "", locations[0].Name()
	default:
		first, second := locations[0], locations[1]
		if IsSourcePreposition(second.Preposition) && !IsSourcePreposition(first.Preposition) {
			return second.Name(), first.Name()
		}
		return first.Name(), second.Name()
	}
}

func firstResolvedDate(dates []DateEntity) string {
	for _, d := range dates {
		if d.Value != "" {
			return d.Value
		}
	}
	return ""
}

func ingredientNames(ingredients []ExtractedIngredient) []string {
	names := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		names = append(names, ing.Name)
	}
	return names
}
