package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"pantry-assistant/internal/core/pantry"
	"pantry-assistant/internal/pkg/common"
)

// MemoryStore 以記憶體保存資料，供開發與測試使用
type MemoryStore struct {
	mu        sync.RWMutex
	items     []pantry.Item
	locations []pantry.StorageLocation
	groceries []pantry.GroceryItem
	recipes   []pantry.Recipe
	now       func() time.Time
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// SetClock 測試用時鐘
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func locationKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// locationName 需持有讀鎖
func (s *MemoryStore) locationName(userID, locationID string) string {
	for _, l := range s.locations {
		if l.ID == locationID && l.UserID == userID {
			return l.Name
		}
	}
	return ""
}

func (s *MemoryStore) withLocation(item pantry.Item) pantry.Item {
	item.LocationName = s.locationName(item.UserID, item.LocationID)
	return item
}

// ListItems 依加入順序列出品項
func (s *MemoryStore) ListItems(ctx context.Context, userID string) ([]pantry.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]pantry.Item, 0)
	for _, item := range s.items {
		if item.UserID == userID {
			items = append(items, s.withLocation(item))
		}
	}
	return items, nil
}

// FindItemsByName 名稱不分大小寫包含查詢字串
func (s *MemoryStore) FindItemsByName(ctx context.Context, userID, name string) ([]pantry.Item, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]pantry.Item, 0)
	if needle == "" {
		return items, nil
	}
	for _, item := range s.items {
		if item.UserID == userID && strings.Contains(strings.ToLower(item.Name), needle) {
			items = append(items, s.withLocation(item))
		}
	}
	return items, nil
}

// CreateItem 新增品項並補上 ID 與時間戳
func (s *MemoryStore) CreateItem(ctx context.Context, item *pantry.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if item.ID == "" {
		item.ID = common.GenerateUUID()
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	item.LocationName = s.locationName(item.UserID, item.LocationID)
	s.items = append(s.items, *item)
	return nil
}

func (s *MemoryStore) indexOf(userID, itemID string) int {
	for i, item := range s.items {
		if item.ID == itemID && item.UserID == userID {
			return i
		}
	}
	return -1
}

// UpdateItemQuantity 設定數量與單位
func (s *MemoryStore) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity float64, unit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(userID, itemID)
	if i < 0 {
		return pantry.ErrNotFound
	}
	s.items[i].Quantity = quantity
	s.items[i].Unit = unit
	s.items[i].UpdatedAt = s.now()
	return nil
}

// UpdateItemLocation 移動品項
func (s *MemoryStore) UpdateItemLocation(ctx context.Context, userID, itemID, locationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(userID, itemID)
	if i < 0 {
		return pantry.ErrNotFound
	}
	s.items[i].LocationID = locationID
	s.items[i].UpdatedAt = s.now()
	return nil
}

// DeleteItem 刪除品項
func (s *MemoryStore) DeleteItem(ctx context.Context, userID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(userID, itemID)
	if i < 0 {
		return pantry.ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// CountItems 品項數量
func (s *MemoryStore) CountItems(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, item := range s.items {
		if item.UserID == userID {
			count++
		}
	}
	return count, nil
}

// EnsureLocation 查詢與建立在同一把鎖內完成
func (s *MemoryStore) EnsureLocation(ctx context.Context, userID, name string) (*pantry.StorageLocation, error) {
	key := locationKey(name)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.locations {
		if l.UserID == userID && l.NameKey == key {
			location := l
			return &location, nil
		}
	}

	location := pantry.StorageLocation{
		ID:        common.GenerateUUID(),
		UserID:    userID,
		Name:      common.DisplayName(name),
		NameKey:   key,
		CreatedAt: s.now(),
	}
	s.locations = append(s.locations, location)
	return &location, nil
}

// ListLocations 列出位置
func (s *MemoryStore) ListLocations(ctx context.Context, userID string) ([]pantry.StorageLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locations := make([]pantry.StorageLocation, 0)
	for _, l := range s.locations {
		if l.UserID == userID {
			locations = append(locations, l)
		}
	}
	return locations, nil
}

// AddGroceryItems 加入購物清單
func (s *MemoryStore) AddGroceryItems(ctx context.Context, userID string, items []pantry.GroceryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, item := range items {
		if item.ID == "" {
			item.ID = common.GenerateUUID()
		}
		item.UserID = userID
		item.CreatedAt = now
		s.groceries = append(s.groceries, item)
	}
	return nil
}

// ListGroceryItems 列出購物清單
func (s *MemoryStore) ListGroceryItems(ctx context.Context, userID string) ([]pantry.GroceryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]pantry.GroceryItem, 0)
	for _, item := range s.groceries {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	return items, nil
}

// ListRecipes 使用者自己的食譜加上共用食譜（UserID 為空）
func (s *MemoryStore) ListRecipes(ctx context.Context, userID string) ([]pantry.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipes := make([]pantry.Recipe, 0)
	for _, r := range s.recipes {
		if r.UserID == userID || r.UserID == "" {
			recipes = append(recipes, r)
		}
	}
	return recipes, nil
}

// CreateRecipe 新增食譜
func (s *MemoryStore) CreateRecipe(ctx context.Context, recipe *pantry.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	recipe.CreatedAt = s.now()
	s.recipes = append(s.recipes, *recipe)
	return nil
}

// Ping 記憶體儲存永遠可用
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close 無資源需釋放
func (s *MemoryStore) Close() error {
	return nil
}
