package pantry

import (
	"sort"
	"strings"
)

// AutoApplyConfidence 達到此信心值的比對直接採用，較低者需使用者確認
const AutoApplyConfidence = 0.8

// IngredientMatch 單一食材的比對結果
type IngredientMatch struct {
	Ingredient        string    `json:"ingredient"`
	Item              *Item     `json:"item"`
	MatchType         MatchType `json:"matchType"`
	Confidence        float64   `json:"confidence"`
	NeedsConfirmation bool      `json:"needsConfirmation"`
}

// AvailabilityReport 可用與缺少的食材
type AvailabilityReport struct {
	Available []IngredientMatch `json:"available"`
	Missing   []string          `json:"missing"`
}

// CheckAvailability 逐一比對食材與庫存
func CheckAvailability(ingredients []string, items []Item) AvailabilityReport {
	report := AvailabilityReport{
		Available: make([]IngredientMatch, 0),
		Missing:   make([]string, 0),
	}
	for _, name := range ingredients {
		result := FindBestMatch(name, items)
		if !result.Matched() {
			report.Missing = append(report.Missing, name)
			continue
		}
		report.Available = append(report.Available, IngredientMatch{
			Ingredient:        name,
			Item:              result.Item,
			MatchType:         result.MatchType,
			Confidence:        result.Confidence,
			NeedsConfirmation: result.Confidence < AutoApplyConfidence,
		})
	}
	return report
}

// RecipeAvailability 食譜可做程度
type RecipeAvailability struct {
	Recipe   Recipe  `json:"recipe"`
	Coverage float64 `json:"coverage"`
	CanMake  bool    `json:"canMake"`
	AvailabilityReport
}

// CheckRecipeAvailability 以庫存檢查食譜材料
func CheckRecipeAvailability(recipe Recipe, items []Item) RecipeAvailability {
	names := make([]string, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		names = append(names, ing.Name)
	}
	report := CheckAvailability(names, items)

	coverage := 0.0
	if len(names) > 0 {
		coverage = float64(len(report.Available)) / float64(len(names))
	}
	return RecipeAvailability{
		Recipe:             recipe,
		Coverage:           coverage,
		CanMake:            len(names) > 0 && len(report.Missing) == 0,
		AvailabilityReport: report,
	}
}

// RankRecipes 依庫存覆蓋率排序食譜。
// dish 不為空時只保留名稱包含 dish 的食譜；wanted 不為空時食譜至少要用到其中一項。
func RankRecipes(recipes []Recipe, items []Item, wanted []string, dish string) []RecipeAvailability {
	dish = strings.ToLower(strings.TrimSpace(dish))
	ranked := make([]RecipeAvailability, 0, len(recipes))

	for _, recipe := range recipes {
		if dish != "" && !strings.Contains(strings.ToLower(recipe.Name), dish) {
			continue
		}
		if len(wanted) > 0 && !usesAny(recipe, wanted) {
			continue
		}
		availability := CheckRecipeAvailability(recipe, items)
		if dish == "" && availability.Coverage == 0 {
			continue
		}
		ranked = append(ranked, availability)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Coverage != ranked[j].Coverage {
			return ranked[i].Coverage > ranked[j].Coverage
		}
		return ranked[i].Recipe.Name < ranked[j].Recipe.Name
	})
	return ranked
}

func usesAny(recipe Recipe, wanted []string) bool {
	ingredients := make([]Item, len(recipe.Ingredients))
	for i, ing := range recipe.Ingredients {
		ingredients[i] = Item{Name: ing.Name}
	}
	for _, w := range wanted {
		if FindBestMatch(w, ingredients).Confidence >= AutoApplyConfidence {
			return true
		}
	}
	return false
}
