package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"pantry-assistant/internal/core/command"
	"pantry-assistant/internal/core/pantry"
	"pantry-assistant/internal/infrastructure/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

var fixedNow = time.Date(2024, 3, 13, 15, 4, 5, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestService(opts ...Option) (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	store.SetClock(clock)
	processor := command.NewProcessor(command.NewExtractor(command.WithClock(clock)))
	dispatcher := pantry.NewDispatcher(store, pantry.WithNow(clock))
	return NewService(processor, dispatcher, store, opts...), store
}

type fakeSuggester struct {
	suggestions []string
	err         error
	items       []string
}

func (f *fakeSuggester) CommandSuggestions(ctx context.Context, items []string) ([]string, error) {
	f.items = items
	return f.suggestions, f.err
}

// ==================== Execute ====================

func TestExecute_AddItem(t *testing.T) {
	s, store := newTestService()
	ctx := context.Background()

	outcome := s.Execute(ctx, "  add 2 lbs of chicken to the fridge ", testUser)
	assert.True(t, outcome.Success)
	assert.Equal(t, command.IntentAddItem, outcome.Intent)
	assert.Equal(t, "Added 2 lb chicken to Fridge.", outcome.Message)
	assert.GreaterOrEqual(t, outcome.Confidence, command.DefaultConfidenceThreshold)

	items, err := store.ListItems(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "chicken", items[0].Name)
}

func TestExecute_UnknownAsksForClarification(t *testing.T) {
	s, store := newTestService()
	ctx := context.Background()

	outcome := s.Execute(ctx, "xyzzy plugh", testUser)
	assert.False(t, outcome.Success)
	assert.Equal(t, command.IntentUnknown, outcome.Intent)
	assert.LessOrEqual(t, outcome.Confidence, 0.2)
	assert.NotEmpty(t, outcome.Message)
	assert.Equal(t, pantry.ExampleCommands, outcome.SuggestedActions)

	count, err := store.CountItems(ctx, testUser)
	require.NoError(t, err)
	assert.Zero(t, count)
	locations, err := store.ListLocations(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestExecute_ListItemsAfterAdd(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	require.True(t, s.Execute(ctx, "add 2 lbs of chicken to the fridge", testUser).Success)

	outcome := s.Execute(ctx, "show my items", "someone-else")
	assert.Equal(t, command.IntentListItems, outcome.Intent)
	assert.Equal(t, "Your pantry is empty.", outcome.Message)
}

// ==================== Validate ====================

func TestValidate_NoSideEffects(t *testing.T) {
	s, store := newTestService()
	ctx := context.Background()

	v := s.Validate(ctx, "add 2 lbs of chicken to the fridge")
	assert.True(t, v.Valid)
	assert.Empty(t, v.Issues)
	assert.Equal(t, command.IntentAddItem, v.Intent)
	assert.NotEmpty(t, v.Entities)

	count, err := store.CountItems(ctx, testUser)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestValidate_Unknown(t *testing.T) {
	s, _ := newTestService()

	v := s.Validate(context.Background(), "xyzzy plugh")
	assert.False(t, v.Valid)
	assert.Equal(t, command.IntentUnknown, v.Intent)
	assert.Contains(t, v.Issues, "Could not determine what you want to do")
	assert.NotNil(t, v.Entities)
}

// ==================== Suggestions ====================

func TestSuggestions_Fallback(t *testing.T) {
	s, _ := newTestService()
	got := s.Suggestions(context.Background(), testUser)
	assert.Equal(t, pantry.ExampleCommands, got)

	// 回傳的是複本
	got[0] = "changed"
	assert.NotEqual(t, "changed", pantry.ExampleCommands[0])
}

func TestSuggestions_FromModel(t *testing.T) {
	suggester := &fakeSuggester{suggestions: []string{"what can I make with rice?"}}
	s, store := newTestService(WithSuggester(suggester))
	ctx := context.Background()

	loc, err := store.EnsureLocation(ctx, testUser, "Pantry")
	require.NoError(t, err)
	require.NoError(t, store.CreateItem(ctx, &pantry.Item{UserID: testUser, Name: "rice", Quantity: 1, LocationID: loc.ID}))

	assert.Equal(t, []string{"what can I make with rice?"}, s.Suggestions(ctx, testUser))
	assert.Equal(t, []string{"rice"}, suggester.items)
}

func TestSuggestions_ModelError(t *testing.T) {
	s, _ := newTestService(WithSuggester(&fakeSuggester{err: errors.New("quota")}))
	assert.Equal(t, pantry.ExampleCommands, s.Suggestions(context.Background(), testUser))
}

func TestReady(t *testing.T) {
	s, _ := newTestService()
	assert.NoError(t, s.Ready(context.Background()))
}
