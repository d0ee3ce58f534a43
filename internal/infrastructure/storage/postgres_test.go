package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"pantry-assistant/internal/core/pantry"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== 測試輔助 ====================

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewPostgresStore(db)
	store.now = func() time.Time { return fixedNow }
	return store, mock
}

var itemRowColumns = []string{
	"id", "user_id", "name", "quantity", "unit", "category",
	"location_id", "location_name", "expiration_date", "created_at", "updated_at",
}

// ==================== 品項 ====================

func TestPostgresStore_ListItems(t *testing.T) {
	store, mock := newMockStore(t)
	expires := fixedNow.AddDate(0, 0, 3)

	mock.ExpectQuery(`SELECT .+ FROM pantry_items i LEFT JOIN storage_locations l`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(itemRowColumns).
			AddRow("item-1", "user-1", "chicken", 2.0, "lb", "meat", "loc-1", "Fridge", expires, fixedNow, fixedNow).
			AddRow("item-2", "user-1", "rice", 1.0, "", "grains", "loc-2", "Pantry", nil, fixedNow, fixedNow))

	items, err := store.ListItems(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "chicken", items[0].Name)
	assert.Equal(t, "Fridge", items[0].LocationName)
	require.NotNil(t, items[0].ExpirationDate)
	assert.True(t, expires.Equal(*items[0].ExpirationDate))
	assert.Nil(t, items[1].ExpirationDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindItemsByName_EscapesWildcards(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`ILIKE`).
		WithArgs("user-1", `%50\%%`).
		WillReturnRows(sqlmock.NewRows(itemRowColumns))

	items, err := store.FindItemsByName(context.Background(), "user-1", "50%")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateItem(t *testing.T) {
	store, mock := newMockStore(t)
	expires := fixedNow.AddDate(0, 0, 3)

	mock.ExpectExec(`INSERT INTO pantry_items`).
		WithArgs(sqlmock.AnyArg(), "user-1", "chicken", 2.0, "lb", "meat", "loc-1", expires, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := pantry.Item{UserID: "user-1", Name: "chicken", Quantity: 2, Unit: "lb", Category: "meat", LocationID: "loc-1", ExpirationDate: &expires}
	require.NoError(t, store.CreateItem(context.Background(), &item))

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, fixedNow, item.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE pantry_items SET quantity`).
		WithArgs(2.0, "gal", fixedNow, "user-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE pantry_items SET location_id`).
		WithArgs("loc-2", fixedNow, "user-1", "item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM pantry_items`).
		WithArgs("user-1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	assert.ErrorIs(t, store.UpdateItemQuantity(ctx, "user-1", "missing", 2, "gal"), pantry.ErrNotFound)
	assert.NoError(t, store.UpdateItemLocation(ctx, "user-1", "item-1", "loc-2"))
	assert.ErrorIs(t, store.DeleteItem(ctx, "user-1", "missing"), pantry.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryError(t *testing.T) {
	store, mock := newMockStore(t)
	dbErr := errors.New("connection reset")

	mock.ExpectQuery(`SELECT COUNT`).WithArgs("user-1").WillReturnError(dbErr)

	_, err := store.CountItems(context.Background(), "user-1")
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==================== 位置 ====================

func TestPostgresStore_EnsureLocation_Upsert(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO storage_locations .+ ON CONFLICT \(user_id, name_key\)`).
		WithArgs(sqlmock.AnyArg(), "user-1", "Spice Rack", "spice rack", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "name_key", "created_at"}).
			AddRow("loc-9", "user-1", "Spice Rack", "spice rack", fixedNow))

	loc, err := store.EnsureLocation(context.Background(), "user-1", "spice  RACK")
	require.NoError(t, err)
	assert.Equal(t, "loc-9", loc.ID)
	assert.Equal(t, "Spice Rack", loc.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==================== 購物清單與食譜 ====================

func TestPostgresStore_AddGroceryItems_Transaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO grocery_items`).
		WithArgs(sqlmock.AnyArg(), "user-1", "eggs", 0.0, "", "dairy", false, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO grocery_items`).
		WithArgs(sqlmock.AnyArg(), "user-1", "milk", 1.0, "gal", "dairy", false, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.AddGroceryItems(context.Background(), "user-1", []pantry.GroceryItem{
		{Name: "eggs", Category: "dairy"},
		{Name: "milk", Quantity: 1, Unit: "gal", Category: "dairy"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AddGroceryItems_RollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO grocery_items`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.AddGroceryItems(context.Background(), "user-1", []pantry.GroceryItem{{Name: "eggs"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRecipes(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM recipes WHERE user_id = \$1 OR user_id = ''`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "description", "ingredients", "created_at"}).
			AddRow("r-1", "", "Chicken Soup", "", []byte(`[{"name":"chicken"},{"name":"carrot"}]`), fixedNow))

	recipes, err := store.ListRecipes(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	require.Len(t, recipes[0].Ingredients, 2)
	assert.Equal(t, "carrot", recipes[0].Ingredients[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)
	for range schemaStatements {
		mock.ExpectExec(`CREATE (TABLE|INDEX) IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
