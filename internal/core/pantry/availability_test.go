package pantry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipeWith(name string, ingredients ...string) Recipe {
	r := Recipe{ID: name, Name: name}
	for _, ing := range ingredients {
		r.Ingredients = append(r.Ingredients, RecipeIngredient{Name: ing})
	}
	return r
}

func TestCheckAvailability(t *testing.T) {
	items := itemsNamed("onion", "eggs", "milk")

	report := CheckAvailability([]string{"yellow onion", "egg", "saffron"}, items)

	require.Len(t, report.Available, 2)
	assert.Equal(t, "yellow onion", report.Available[0].Ingredient)
	assert.Equal(t, "onion", report.Available[0].Item.Name)
	assert.False(t, report.Available[0].NeedsConfirmation)

	assert.Equal(t, MatchFuzzy, report.Available[1].MatchType)
	assert.True(t, report.Available[1].NeedsConfirmation, "fuzzy matches need the user to confirm")

	assert.Equal(t, []string{"saffron"}, report.Missing)
}

func TestCheckAvailability_EmptyInputs(t *testing.T) {
	report := CheckAvailability(nil, itemsNamed("milk"))
	assert.NotNil(t, report.Available)
	assert.NotNil(t, report.Missing)
	assert.Empty(t, report.Available)
	assert.Empty(t, report.Missing)
}

func TestCheckRecipeAvailability(t *testing.T) {
	items := itemsNamed("chicken", "onion", "carrots")
	recipe := recipeWith("Chicken Soup", "chicken", "carrot", "celery", "onion")

	result := CheckRecipeAvailability(recipe, items)

	assert.InDelta(t, 0.75, result.Coverage, 1e-9)
	assert.False(t, result.CanMake)
	assert.Equal(t, []string{"celery"}, result.Missing)

	full := CheckRecipeAvailability(recipeWith("Plain Chicken", "chicken"), items)
	assert.True(t, full.CanMake)
	assert.Equal(t, 1.0, full.Coverage)

	empty := CheckRecipeAvailability(recipeWith("Nothing"), items)
	assert.False(t, empty.CanMake)
	assert.Zero(t, empty.Coverage)
}

func TestRankRecipes(t *testing.T) {
	items := itemsNamed("bread", "cheese", "butter", "chicken")
	recipes := []Recipe{
		recipeWith("Chicken Soup", "chicken", "carrot", "celery", "onion"),
		recipeWith("Grilled Cheese", "bread", "cheese", "butter"),
		recipeWith("Fruit Salad", "apple", "banana"),
		recipeWith("Cheese Toast", "bread", "cheese", "tomato"),
	}

	t.Run("by coverage", func(t *testing.T) {
		ranked := RankRecipes(recipes, items, nil, "")

		require.Len(t, ranked, 3, "zero coverage recipes are dropped")
		assert.Equal(t, "Grilled Cheese", ranked[0].Recipe.Name)
		assert.Equal(t, "Cheese Toast", ranked[1].Recipe.Name)
		assert.Equal(t, "Chicken Soup", ranked[2].Recipe.Name)
	})

	t.Run("wanted ingredient", func(t *testing.T) {
		ranked := RankRecipes(recipes, items, []string{"chicken"}, "")

		require.Len(t, ranked, 1)
		assert.Equal(t, "Chicken Soup", ranked[0].Recipe.Name)
	})

	t.Run("dish name keeps zero coverage", func(t *testing.T) {
		ranked := RankRecipes(recipes, items, nil, "fruit salad")

		require.Len(t, ranked, 1)
		assert.Equal(t, "Fruit Salad", ranked[0].Recipe.Name)
		assert.Zero(t, ranked[0].Coverage)
	})
}
