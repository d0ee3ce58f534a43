package storage

import (
	"context"
	"fmt"
	"strings"

	"pantry-assistant/internal/core/pantry"
)

func ingredients(names ...string) []pantry.RecipeIngredient {
	out := make([]pantry.RecipeIngredient, len(names))
	for i, name := range names {
		out[i] = pantry.RecipeIngredient{Name: name}
	}
	return out
}

// demoRecipes 共用食譜（UserID 為空），所有使用者皆可查到
var demoRecipes = []pantry.Recipe{
	{Name: "Chicken Stir Fry", Description: "Quick weeknight stir fry", Ingredients: ingredients("chicken", "bell pepper", "onion", "soy sauce", "rice")},
	{Name: "Tomato Pasta", Description: "Simple pasta with tomato sauce", Ingredients: ingredients("pasta", "tomato", "garlic", "olive oil")},
	{Name: "Vegetable Omelette", Description: "Eggs with whatever vegetables are around", Ingredients: ingredients("eggs", "milk", "onion", "cheese")},
	{Name: "Chicken Soup", Description: "Classic chicken soup", Ingredients: ingredients("chicken", "carrot", "celery", "onion")},
	{Name: "Pancakes", Description: "Fluffy breakfast pancakes", Ingredients: ingredients("flour", "eggs", "milk", "butter", "sugar")},
	{Name: "Grilled Cheese", Description: "Toasted cheese sandwich", Ingredients: ingredients("bread", "cheese", "butter")},
}

// SeedRecipes 寫入尚未存在的共用食譜
func SeedRecipes(ctx context.Context, store pantry.Store) error {
	existing, err := store.ListRecipes(ctx, "")
	if err != nil {
		return fmt.Errorf("list recipes: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[strings.ToLower(r.Name)] = true
	}

	for _, r := range demoRecipes {
		if have[strings.ToLower(r.Name)] {
			continue
		}
		recipe := r
		recipe.Ingredients = append([]pantry.RecipeIngredient(nil), r.Ingredients...)
		if err := store.CreateRecipe(ctx, &recipe); err != nil {
			return fmt.Errorf("seed recipe %q: %w", r.Name, err)
		}
	}
	return nil
}
