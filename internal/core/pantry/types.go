package pantry

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 資料不存在
var ErrNotFound = errors.New("pantry: not found")

// Item 食物櫃品項
type Item struct {
	ID             string     `json:"id" bson:"_id"`
	UserID         string     `json:"userId" bson:"user_id"`
	Name           string     `json:"name" bson:"name"`
	Quantity       float64    `json:"quantity" bson:"quantity"`
	Unit           string     `json:"unit,omitempty" bson:"unit"`
	Category       string     `json:"category,omitempty" bson:"category"`
	LocationID     string     `json:"locationId" bson:"location_id"`
	LocationName   string     `json:"location,omitempty" bson:"-"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty" bson:"expiration_date,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updated_at"`
}

// StorageLocation 存放位置，同一使用者下名稱不分大小寫唯一
type StorageLocation struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Name      string    `json:"name" bson:"name"`
	NameKey   string    `json:"-" bson:"name_key"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// GroceryItem 購物清單品項
type GroceryItem struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Name      string    `json:"name" bson:"name"`
	Quantity  float64   `json:"quantity,omitempty" bson:"quantity"`
	Unit      string    `json:"unit,omitempty" bson:"unit"`
	Category  string    `json:"category,omitempty" bson:"category"`
	Checked   bool      `json:"checked" bson:"checked"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// RecipeIngredient 食譜材料
type RecipeIngredient struct {
	Name     string  `json:"name" bson:"name"`
	Quantity float64 `json:"quantity,omitempty" bson:"quantity"`
	Unit     string  `json:"unit,omitempty" bson:"unit"`
}

// Recipe 食譜
type Recipe struct {
	ID          string             `json:"id" bson:"_id"`
	UserID      string             `json:"userId" bson:"user_id"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description"`
	Ingredients []RecipeIngredient `json:"ingredients" bson:"ingredients"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
}

// Store 資料存取介面，所有操作都以 userID 區隔
type Store interface {
	ListItems(ctx context.Context, userID string) ([]Item, error)
	// FindItemsByName 名稱不分大小寫包含 name 的品項
	FindItemsByName(ctx context.Context, userID, name string) ([]Item, error)
	CreateItem(ctx context.Context, item *Item) error
	UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity float64, unit string) error
	UpdateItemLocation(ctx context.Context, userID, itemID, locationID string) error
	DeleteItem(ctx context.Context, userID, itemID string) error
	CountItems(ctx context.Context, userID string) (int, error)

	// EnsureLocation 依名稱取得或建立位置（upsert），並行呼叫只會產生一筆
	EnsureLocation(ctx context.Context, userID, name string) (*StorageLocation, error)
	ListLocations(ctx context.Context, userID string) ([]StorageLocation, error)

	AddGroceryItems(ctx context.Context, userID string, items []GroceryItem) error
	ListGroceryItems(ctx context.Context, userID string) ([]GroceryItem, error)

	ListRecipes(ctx context.Context, userID string) ([]Recipe, error)
	CreateRecipe(ctx context.Context, recipe *Recipe) error

	Ping(ctx context.Context) error
	Close() error
}

// ActionResult 所有動作處理的統一回傳格式
type ActionResult struct {
	Success              bool        `json:"success"`
	Message              string      `json:"message"`
	Data                 interface{} `json:"data,omitempty"`
	RequiresConfirmation bool        `json:"requiresConfirmation,omitempty"`
	SuggestedActions     []string    `json:"suggestedActions,omitempty"`
}

// ExampleCommands 無法辨識指令時提供的範例
var ExampleCommands = []string{
	"add 2 lbs of chicken to the fridge",
	"what's expiring soon?",
	"do we have eggs and milk?",
	"move the chicken to the freezer",
	"what can I make for dinner?",
	"add bread to my grocery list",
	"show me what's in the pantry",
}
