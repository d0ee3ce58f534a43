package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pantry-assistant/internal/core/pantry"
	"pantry-assistant/internal/pkg/common"

	_ "github.com/lib/pq"
)

// schemaStatements 啟動時建立資料表，(user_id, name_key) 唯一索引確保位置不會重複
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS storage_locations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, name_key)
	)`,
	`CREATE TABLE IF NOT EXISTS pantry_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL DEFAULT 1,
		unit TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		location_id TEXT REFERENCES storage_locations(id),
		expiration_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pantry_items_user ON pantry_items (user_id)`,
	`CREATE TABLE IF NOT EXISTS grocery_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
		unit TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		checked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		ingredients JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

const itemColumns = `i.id, i.user_id, i.name, i.quantity, i.unit, i.category,
	COALESCE(i.location_id, ''), COALESCE(l.name, ''), i.expiration_date, i.created_at, i.updated_at`

const itemFrom = `FROM pantry_items i LEFT JOIN storage_locations l ON l.id = i.location_id`

// PostgresStore 以 lib/pq 存取 PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore 使用既有連線創建儲存，測試時傳入 sqlmock
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// OpenPostgres 開啟連線並確認可用
func OpenPostgres(ctx context.Context, dsn string, maxOpen, maxIdle int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

// Migrate 建立資料表
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (pantry.Item, error) {
	var item pantry.Item
	var expiration sql.NullTime
	err := row.Scan(
		&item.ID, &item.UserID, &item.Name, &item.Quantity, &item.Unit, &item.Category,
		&item.LocationID, &item.LocationName, &expiration, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return item, err
	}
	if expiration.Valid {
		t := expiration.Time
		item.ExpirationDate = &t
	}
	return item, nil
}

func (s *PostgresStore) queryItems(ctx context.Context, query string, args ...interface{}) ([]pantry.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]pantry.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListItems 依加入時間列出品項
func (s *PostgresStore) ListItems(ctx context.Context, userID string) ([]pantry.Item, error) {
	query := `SELECT ` + itemColumns + ` ` + itemFrom + `
		WHERE i.user_id = $1 ORDER BY i.created_at, i.name`
	return s.queryItems(ctx, query, userID)
}

// escapeLike 跳脫 LIKE 萬用字元
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// FindItemsByName 名稱不分大小寫包含查詢字串
func (s *PostgresStore) FindItemsByName(ctx context.Context, userID, name string) ([]pantry.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []pantry.Item{}, nil
	}
	query := `SELECT ` + itemColumns + ` ` + itemFrom + `
		WHERE i.user_id = $1 AND i.name ILIKE $2 ORDER BY i.created_at, i.name`
	return s.queryItems(ctx, query, userID, "%"+escapeLike(name)+"%")
}

// CreateItem 新增品項
func (s *PostgresStore) CreateItem(ctx context.Context, item *pantry.Item) error {
	now := s.now()
	if item.ID == "" {
		item.ID = common.GenerateUUID()
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	var locationID interface{}
	if item.LocationID != "" {
		locationID = item.LocationID
	}
	var expiration interface{}
	if item.ExpirationDate != nil {
		expiration = *item.ExpirationDate
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pantry_items (id, user_id, name, quantity, unit, category, location_id, expiration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		item.ID, item.UserID, item.Name, item.Quantity, item.Unit, item.Category,
		locationID, expiration, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *PostgresStore) execAffectingOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return pantry.ErrNotFound
	}
	return nil
}

// UpdateItemQuantity 設定數量與單位
func (s *PostgresStore) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity float64, unit string) error {
	return s.execAffectingOne(ctx,
		`UPDATE pantry_items SET quantity = $1, unit = $2, updated_at = $3 WHERE user_id = $4 AND id = $5`,
		quantity, unit, s.now(), userID, itemID,
	)
}

// UpdateItemLocation 移動品項
func (s *PostgresStore) UpdateItemLocation(ctx context.Context, userID, itemID, locationID string) error {
	return s.execAffectingOne(ctx,
		`UPDATE pantry_items SET location_id = $1, updated_at = $2 WHERE user_id = $3 AND id = $4`,
		locationID, s.now(), userID, itemID,
	)
}

// DeleteItem 刪除品項
func (s *PostgresStore) DeleteItem(ctx context.Context, userID, itemID string) error {
	return s.execAffectingOne(ctx,
		`DELETE FROM pantry_items WHERE user_id = $1 AND id = $2`,
		userID, itemID,
	)
}

// CountItems 品項數量
func (s *PostgresStore) CountItems(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pantry_items WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// EnsureLocation 以 ON CONFLICT 完成 upsert，並行呼叫只會留下一筆
func (s *PostgresStore) EnsureLocation(ctx context.Context, userID, name string) (*pantry.StorageLocation, error) {
	var location pantry.StorageLocation
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO storage_locations (id, user_id, name, name_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, name_key) DO UPDATE SET name_key = EXCLUDED.name_key
		RETURNING id, user_id, name, name_key, created_at`,
		common.GenerateUUID(), userID, common.DisplayName(name), locationKey(name), s.now(),
	).Scan(&location.ID, &location.UserID, &location.Name, &location.NameKey, &location.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ensure location: %w", err)
	}
	return &location, nil
}

// ListLocations 列出位置
func (s *PostgresStore) ListLocations(ctx context.Context, userID string) ([]pantry.StorageLocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, name_key, created_at FROM storage_locations WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	locations := make([]pantry.StorageLocation, 0)
	for rows.Next() {
		var l pantry.StorageLocation
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.NameKey, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// AddGroceryItems 在同一個交易內加入多筆
func (s *PostgresStore) AddGroceryItems(ctx context.Context, userID string, items []pantry.GroceryItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	for _, item := range items {
		if item.ID == "" {
			item.ID = common.GenerateUUID()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO grocery_items (id, user_id, name, quantity, unit, category, checked, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, userID, item.Name, item.Quantity, item.Unit, item.Category, item.Checked, now,
		)
		if err != nil {
			return fmt.Errorf("insert grocery item: %w", err)
		}
	}
	return tx.Commit()
}

// ListGroceryItems 列出購物清單
func (s *PostgresStore) ListGroceryItems(ctx context.Context, userID string) ([]pantry.GroceryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, quantity, unit, category, checked, created_at
		FROM grocery_items WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query grocery items: %w", err)
	}
	defer rows.Close()

	items := make([]pantry.GroceryItem, 0)
	for rows.Next() {
		var g pantry.GroceryItem
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Quantity, &g.Unit, &g.Category, &g.Checked, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan grocery item: %w", err)
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

// ListRecipes 使用者自己的食譜加上共用食譜
func (s *PostgresStore) ListRecipes(ctx context.Context, userID string) ([]pantry.Recipe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, ingredients, created_at
		FROM recipes WHERE user_id = $1 OR user_id = '' ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	recipes := make([]pantry.Recipe, 0)
	for rows.Next() {
		var r pantry.Recipe
		var ingredients []byte
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Description, &ingredients, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		if err := common.ParseJSONBytes(ingredients, &r.Ingredients); err != nil {
			return nil, fmt.Errorf("decode recipe ingredients: %w", err)
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

// CreateRecipe 新增食譜
func (s *PostgresStore) CreateRecipe(ctx context.Context, recipe *pantry.Recipe) error {
	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	recipe.CreatedAt = s.now()

	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("encode recipe ingredients: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recipes (id, user_id, name, description, ingredients, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		recipe.ID, recipe.UserID, recipe.Name, recipe.Description, ingredients, recipe.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recipe: %w", err)
	}
	return nil
}

// Ping 檢查連線
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 關閉連線池
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
