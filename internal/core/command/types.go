package command

import (
	"pantry-assistant/internal/pkg/common"
)

// Intent 指令意圖
type Intent string

const (
	IntentAddItem           Intent = "ADD_ITEM"
	IntentRemoveItem        Intent = "REMOVE_ITEM"
	IntentMoveItem          Intent = "MOVE_ITEM"
	IntentCheckAvailability Intent = "CHECK_AVAILABILITY"
	IntentFindRecipes       Intent = "FIND_RECIPES"
	IntentCheckExpiration   Intent = "CHECK_EXPIRATION"
	IntentListItems         Intent = "LIST_ITEMS"
	IntentUpdateQuantity    Intent = "UPDATE_QUANTITY"
	IntentAddToGrocery      Intent = "ADD_TO_GROCERY"
	IntentMealPlan          Intent = "MEAL_PLAN"
	IntentUnknown           Intent = "UNKNOWN"
)

// AllIntents 所有意圖，包含 UNKNOWN
var AllIntents = []Intent{
	IntentAddItem,
	IntentRemoveItem,
	IntentMoveItem,
	IntentCheckAvailability,
	IntentFindRecipes,
	IntentCheckExpiration,
	IntentListItems,
	IntentUpdateQuantity,
	IntentAddToGrocery,
	IntentMealPlan,
	IntentUnknown,
}

// ParseIntent 將字串轉為意圖，無法辨識時回傳 UNKNOWN
func ParseIntent(s string) Intent {
	for _, intent := range AllIntents {
		if string(intent) == s {
			return intent
		}
	}
	return IntentUnknown
}

// EntityType 實體類型
type EntityType string

const (
	EntityIngredient EntityType = "ingredient"
	EntityQuantity   EntityType = "quantity"
	EntityLocation   EntityType = "location"
	EntityRecipe     EntityType = "recipe"
	EntityDate       EntityType = "date"
	EntityAction     EntityType = "action"
)

// ExtractedEntity 從指令中取出的單一實體
type ExtractedEntity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Normalized string     `json:"normalized"`
	Confidence float64    `json:"confidence"`
}

// ExtractedIngredient 食材
type ExtractedIngredient struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	Category string   `json:"category,omitempty"`
}

// Location 存放位置；Preposition 為引導此位置的介系詞（from、to、in ...）
type Location struct {
	Type        string `json:"type"`
	Specific    string `json:"specific,omitempty"`
	Preposition string `json:"preposition,omitempty"`
}

// Name 位置顯示名稱，例如 "Fridge"、"Garage Freezer"
func (l Location) Name() string {
	if l.Specific != "" {
		return common.DisplayName(l.Specific + " " + l.Type)
	}
	return common.DisplayName(l.Type)
}

// DateType 日期類型
type DateType string

const (
	DateAbsolute DateType = "absolute"
	DateRelative DateType = "relative"
)

// DateEntity 日期；Value 為 YYYY-MM-DD，無法解析時為空字串
type DateEntity struct {
	Type         DateType `json:"type"`
	Value        string   `json:"value"`
	OriginalText string   `json:"originalText"`
}

// Quantity 數量
type Quantity struct {
	Value        float64 `json:"value"`
	Unit         string  `json:"unit,omitempty"`
	OriginalText string  `json:"originalText,omitempty"`
}

// String 以正規化單位輸出，例如 "2 lb"
func (q Quantity) String() string {
	value := formatNumber(q.Value)
	if q.Unit == "" {
		return value
	}
	return value + " " + q.Unit
}

// ExtractionSource 抽取來源
type ExtractionSource string

const (
	SourcePattern ExtractionSource = "pattern"
	SourceAI      ExtractionSource = "ai"
)

// ExtractionResult 實體抽取結果，產生後不再修改
type ExtractionResult struct {
	Ingredients []ExtractedIngredient `json:"ingredients"`
	Locations   []Location            `json:"locations"`
	Dates       []DateEntity          `json:"dates"`
	Quantities  []Quantity            `json:"quantities"`
	Actions     []string              `json:"actions"`
	Recipes     []string              `json:"recipes,omitempty"`
	Confidence  float64               `json:"confidence"`
	Source      ExtractionSource      `json:"source"`
}

// ItemParam 新增、移除、加入購物清單時的單一品項參數
type ItemParam struct {
	Name           string   `json:"name"`
	Quantity       *float64 `json:"quantity,omitempty"`
	Unit           string   `json:"unit,omitempty"`
	Category       string   `json:"category,omitempty"`
	Brand          string   `json:"brand,omitempty"`
	Location       string   `json:"location,omitempty"`
	ExpirationDate string   `json:"expirationDate,omitempty"`
}

// Parameters 依意圖整理後的參數
type Parameters struct {
	Items        []ItemParam `json:"items,omitempty"`
	Ingredients  []string    `json:"ingredients,omitempty"`
	ItemName     string      `json:"itemName,omitempty"`
	FromLocation string      `json:"fromLocation,omitempty"`
	ToLocation   string      `json:"toLocation,omitempty"`
	Location     string      `json:"location,omitempty"`
	Quantity     *float64    `json:"quantity,omitempty"`
	Unit         string      `json:"unit,omitempty"`
	Recipe       string      `json:"recipe,omitempty"`
	Days         int         `json:"days,omitempty"`
}

// ProcessedCommand 處理完成的指令
type ProcessedCommand struct {
	Intent          Intent            `json:"intent"`
	Entities        []ExtractedEntity `json:"entities"`
	OriginalText    string            `json:"originalText"`
	Confidence      float64           `json:"confidence"`
	SuggestedAction string            `json:"suggestedAction,omitempty"`
	Parameters      Parameters        `json:"parameters"`
	Extraction      ExtractionResult  `json:"-"`
}

// NeedsClarification 是否需要先向使用者確認
func (c ProcessedCommand) NeedsClarification() bool {
	return c.SuggestedAction != ""
}

func floatPtr(v float64) *float64 {
	return &v
}
