package pantry

import (
	"context"
	"fmt"
	"time"

	"pantry-assistant/internal/core/command"
	"pantry-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	defaultLocationName     = "Pantry"
	defaultExpiringSoonDays = 3
	defaultMaxRecipes       = 5
)

// RecipeIdea 語言模型產生的食譜建議
type RecipeIdea struct {
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	Ingredients        []string `json:"ingredients"`
	MissingIngredients []string `json:"missingIngredients,omitempty"`
}

// RecipeIdeaSource 庫存中沒有合適食譜時的建議來源
type RecipeIdeaSource interface {
	RecipeIdeas(ctx context.Context, ingredients []string, dish string) ([]RecipeIdea, error)
}

// handlerFunc 單一意圖的處理函式；回傳的錯誤一律在邊界轉為通用失敗訊息
type handlerFunc func(ctx context.Context, cmd command.ProcessedCommand, userID string) (ActionResult, error)

// Dispatcher 依意圖執行對應動作
type Dispatcher struct {
	store            Store
	ideas            RecipeIdeaSource
	now              func() time.Time
	defaultLocation  string
	expiringSoonDays int
	maxRecipes       int
}

// DispatcherOption 選項
type DispatcherOption func(*Dispatcher)

// WithRecipeIdeas 設定食譜建議來源
func WithRecipeIdeas(source RecipeIdeaSource) DispatcherOption {
	return func(d *Dispatcher) { d.ideas = source }
}

// WithNow 注入時鐘
func WithNow(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDefaultLocation 未指定位置時使用的位置名稱
func WithDefaultLocation(name string) DispatcherOption {
	return func(d *Dispatcher) {
		if name != "" {
			d.defaultLocation = name
		}
	}
}

// WithExpiringSoonDays 「即將到期」的天數
func WithExpiringSoonDays(days int) DispatcherOption {
	return func(d *Dispatcher) {
		if days > 0 {
			d.expiringSoonDays = days
		}
	}
}

// WithMaxRecipes 最多回傳的食譜數
func WithMaxRecipes(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxRecipes = n
		}
	}
}

// NewDispatcher 創建動作分派器
func NewDispatcher(store Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:            store,
		now:              time.Now,
		defaultLocation:  defaultLocationName,
		expiringSoonDays: defaultExpiringSoonDays,
		maxRecipes:       defaultMaxRecipes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// handlerFor 每個意圖對應一個處理函式與失敗時使用的動作描述
func (d *Dispatcher) handlerFor(intent command.Intent) (handlerFunc, string, bool) {
	switch intent {
	case command.IntentAddItem:
		return d.handleAddItem, "add items", true
	case command.IntentRemoveItem:
		return d.handleRemoveItem, "remove items", true
	case command.IntentMoveItem:
		return d.handleMoveItem, "move item", true
	case command.IntentCheckAvailability:
		return d.handleCheckAvailability, "check availability", true
	case command.IntentFindRecipes:
		return d.handleFindRecipes, "find recipes", true
	case command.IntentCheckExpiration:
		return d.handleCheckExpiration, "check expiration dates", true
	case command.IntentListItems:
		return d.handleListItems, "list items", true
	case command.IntentUpdateQuantity:
		return d.handleUpdateQuantity, "update quantity", true
	case command.IntentAddToGrocery:
		return d.handleAddToGrocery, "add to grocery list", true
	case command.IntentMealPlan:
		// 尚未實作，固定回傳 coming soon
		return d.handleMealPlan, "plan meals", true
	case command.IntentUnknown:
		return d.handleUnknown, "process command", true
	}
	return d.handleUnknown, "process command", false
}

// HandleCommand 執行指令；儲存層錯誤與 panic 都不會穿過此邊界
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd command.ProcessedCommand, userID string) (result ActionResult) {
	handler, action, _ := d.handlerFor(cmd.Intent)
	failure := ActionResult{
		Success: false,
		Message: fmt.Sprintf("Failed to %s. Please try again.", action),
	}

	defer func() {
		if r := recover(); r != nil {
			common.LogError("動作處理發生 panic",
				zap.String("intent", string(cmd.Intent)),
				zap.String("user_id", userID),
				zap.Any("error", r),
			)
			result = failure
		}
	}()

	result, err := handler(ctx, cmd, userID)
	if err != nil {
		common.LogError("動作處理失敗",
			zap.String("intent", string(cmd.Intent)),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return failure
	}
	return result
}

func (d *Dispatcher) today() time.Time {
	return startOfDay(d.now())
}

func guidance(message string, examples ...string) ActionResult {
	return ActionResult{
		Success:          false,
		Message:          message,
		SuggestedActions: examples,
	}
}
