package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"pantry-assistant/internal/core/pantry"
	"pantry-assistant/internal/pkg/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	itemsCollection     = "pantry_items"
	locationsCollection = "storage_locations"
	groceryCollection   = "grocery_items"
	recipesCollection   = "recipes"
)

// MongoStore 以 MongoDB 保存資料
type MongoStore struct {
	client    *mongo.Client
	items     *mongo.Collection
	locations *mongo.Collection
	groceries *mongo.Collection
	recipes   *mongo.Collection
	now       func() time.Time
}

// OpenMongo 連線、確認可用並建立索引
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	store := &MongoStore{
		client:    client,
		items:     db.Collection(itemsCollection),
		locations: db.Collection(locationsCollection),
		groceries: db.Collection(groceryCollection),
		recipes:   db.Collection(recipesCollection),
		now:       time.Now,
	}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.locations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "name_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create location index: %w", err)
	}

	_, err = s.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create item indexes: %w", err)
	}
	return nil
}

// locationNames 使用者所有位置的 ID 對名稱
func (s *MongoStore) locationNames(ctx context.Context, userID string) (map[string]string, error) {
	locations, err := s.ListLocations(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(locations))
	for _, l := range locations {
		names[l.ID] = l.Name
	}
	return names, nil
}

func (s *MongoStore) findItems(ctx context.Context, userID string, filter bson.M) ([]pantry.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := s.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find items: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]pantry.Item, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}

	names, err := s.locationNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].LocationName = names[items[i].LocationID]
	}
	return items, nil
}

// ListItems 依加入時間列出品項
func (s *MongoStore) ListItems(ctx context.Context, userID string) ([]pantry.Item, error) {
	return s.findItems(ctx, userID, bson.M{"user_id": userID})
}

// FindItemsByName 名稱不分大小寫包含查詢字串
func (s *MongoStore) FindItemsByName(ctx context.Context, userID, name string) ([]pantry.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []pantry.Item{}, nil
	}
	return s.findItems(ctx, userID, bson.M{
		"user_id": userID,
		"name":    primitive.Regex{Pattern: regexp.QuoteMeta(name), Options: "i"},
	})
}

// CreateItem 新增品項
func (s *MongoStore) CreateItem(ctx context.Context, item *pantry.Item) error {
	now := s.now()
	if item.ID == "" {
		item.ID = common.GenerateUUID()
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	if _, err := s.items.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (s *MongoStore) updateItem(ctx context.Context, userID, itemID string, set bson.M) error {
	set["updated_at"] = s.now()
	result, err := s.items.UpdateOne(ctx,
		bson.M{"_id": itemID, "user_id": userID},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if result.MatchedCount == 0 {
		return pantry.ErrNotFound
	}
	return nil
}

// UpdateItemQuantity 設定數量與單位
func (s *MongoStore) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity float64, unit string) error {
	return s.updateItem(ctx, userID, itemID, bson.M{"quantity": quantity, "unit": unit})
}

// UpdateItemLocation 移動品項
func (s *MongoStore) UpdateItemLocation(ctx context.Context, userID, itemID, locationID string) error {
	return s.updateItem(ctx, userID, itemID, bson.M{"location_id": locationID})
}

// DeleteItem 刪除品項
func (s *MongoStore) DeleteItem(ctx context.Context, userID, itemID string) error {
	result, err := s.items.DeleteOne(ctx, bson.M{"_id": itemID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if result.DeletedCount == 0 {
		return pantry.ErrNotFound
	}
	return nil
}

// CountItems 品項數量
func (s *MongoStore) CountItems(ctx context.Context, userID string) (int, error) {
	count, err := s.items.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return int(count), nil
}

// EnsureLocation 以 upsert 取得或建立位置；唯一索引下並行 upsert 衝突時重新讀取
func (s *MongoStore) EnsureLocation(ctx context.Context, userID, name string) (*pantry.StorageLocation, error) {
	key := locationKey(name)
	filter := bson.M{"user_id": userID, "name_key": key}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        common.GenerateUUID(),
		"name":       common.DisplayName(name),
		"created_at": s.now(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var location pantry.StorageLocation
	err := s.locations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&location)
	if mongo.IsDuplicateKeyError(err) {
		err = s.locations.FindOne(ctx, filter).Decode(&location)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to ensure location: %w", err)
	}
	return &location, nil
}

// ListLocations 列出位置
func (s *MongoStore) ListLocations(ctx context.Context, userID string) ([]pantry.StorageLocation, error) {
	cursor, err := s.locations.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find locations: %w", err)
	}
	defer cursor.Close(ctx)

	locations := make([]pantry.StorageLocation, 0)
	if err := cursor.All(ctx, &locations); err != nil {
		return nil, fmt.Errorf("failed to decode locations: %w", err)
	}
	return locations, nil
}

// AddGroceryItems 加入購物清單
func (s *MongoStore) AddGroceryItems(ctx context.Context, userID string, items []pantry.GroceryItem) error {
	if len(items) == 0 {
		return nil
	}
	now := s.now()
	docs := make([]interface{}, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = common.GenerateUUID()
		}
		item.UserID = userID
		item.CreatedAt = now
		docs = append(docs, item)
	}
	if _, err := s.groceries.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert grocery items: %w", err)
	}
	return nil
}

// ListGroceryItems 列出購物清單
func (s *MongoStore) ListGroceryItems(ctx context.Context, userID string) ([]pantry.GroceryItem, error) {
	cursor, err := s.groceries.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find grocery items: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]pantry.GroceryItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode grocery items: %w", err)
	}
	return items, nil
}

// ListRecipes 使用者自己的食譜加上共用食譜
func (s *MongoStore) ListRecipes(ctx context.Context, userID string) ([]pantry.Recipe, error) {
	filter := bson.M{"user_id": bson.M{"$in": bson.A{userID, ""}}}
	cursor, err := s.recipes.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find recipes: %w", err)
	}
	defer cursor.Close(ctx)

	recipes := make([]pantry.Recipe, 0)
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, fmt.Errorf("failed to decode recipes: %w", err)
	}
	return recipes, nil
}

// CreateRecipe 新增食譜
func (s *MongoStore) CreateRecipe(ctx context.Context, recipe *pantry.Recipe) error {
	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	recipe.CreatedAt = s.now()
	if _, err := s.recipes.InsertOne(ctx, recipe); err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// Ping 檢查連線
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close 中斷連線
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return err
	}
	return nil
}
