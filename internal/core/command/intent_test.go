package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		text     string
		expected Intent
	}{
		// ==================== 新增 ====================
		{"add 2 lbs of chicken to the fridge", IntentAddItem},
		{"Put milk in the fridge", IntentAddItem},
		{"I just bought eggs", IntentAddItem},
		{"we picked up some apples", IntentAddItem},
		{"store the rice in the pantry", IntentAddItem},

		// ==================== 移除 ====================
		{"remove the yogurt", IntentRemoveItem},
		{"throw out the old bread", IntentRemoveItem},
		{"we ran out of milk", IntentRemoveItem},

		// ==================== 移動 ====================
		{"move chicken", IntentMoveItem},
		{"move the chicken from the fridge to the freezer", IntentMoveItem},
		{"put the milk from the fridge in the freezer", IntentMoveItem},

		// ==================== 數量 ====================
		{"update milk quantity to 2", IntentUpdateQuantity},
		{"set eggs to 6", IntentUpdateQuantity},
		{"we only have 2 eggs left", IntentUpdateQuantity},

		// ==================== 查詢 ====================
		{"do we have tomatoes and onions", IntentCheckAvailability},
		{"Is there any milk?", IntentCheckAvailability},
		{"check if we have eggs", IntentCheckAvailability},
		{"have i got any eggs", IntentCheckAvailability},
		{"have we got enough flour?", IntentCheckAvailability},
		{"what's expiring soon", IntentCheckExpiration},
		{"what is going bad this week", IntentCheckExpiration},
		{"what can I make with chicken", IntentFindRecipes},
		{"show me recipes", IntentFindRecipes},
		{"plan my meals for the week", IntentMealPlan},
		{"what's in the fridge", IntentListItems},
		{"what do we have", IntentListItems},
		{"list everything in the pantry", IntentListItems},

		// ==================== 購物清單 ====================
		{"add eggs and milk to my grocery list", IntentAddToGrocery},
		{"I need to buy bread", IntentAddToGrocery},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectIntent(tt.text))
		})
	}
}

func TestDetectIntent_Unknown(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"hello there",
		"the weather is nice today",
		"bananas",
	} {
		assert.Equal(t, IntentUnknown, DetectIntent(text), text)
	}
}

// 重疊的句子歸給表中較前面的意圖
func TestDetectIntent_OrderIsPolicy(t *testing.T) {
	text := "what's expiring in the fridge"
	intent, _ := detectIntent(normalizeText(text))
	assert.Equal(t, IntentCheckExpiration, intent)

	// 同時符合 ADD_TO_GROCERY 與 ADD_ITEM
	assert.Equal(t, IntentAddToGrocery, DetectIntent("add apples to the shopping list"))

	// 同時符合 FIND_RECIPES 與 LIST_ITEMS
	assert.Equal(t, IntentFindRecipes, DetectIntent("show recipes with chicken"))
}

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentMoveItem, ParseIntent("MOVE_ITEM"))
	assert.Equal(t, IntentUnknown, ParseIntent("move_item"))
	assert.Equal(t, IntentUnknown, ParseIntent("DANCE"))
}
