package command

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// unitAliases 單位別名對照表
var unitAliases = map[string]string{
	"pound": "lb", "pounds": "lb", "lb": "lb", "lbs": "lb",
	"ounce": "oz", "ounces": "oz", "oz": "oz",
	"gram": "g", "grams": "g", "g": "g",
	"kilogram": "kg", "kilograms": "kg", "kg": "kg", "kgs": "kg", "kilo": "kg", "kilos": "kg",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l", "l": "l",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml", "ml": "ml",
	"gallon": "gal", "gallons": "gal", "gal": "gal",
	"quart": "qt", "quarts": "qt", "qt": "qt",
	"pint": "pt", "pints": "pt", "pt": "pt",
	"cup": "cup", "cups": "cup", "c": "cup",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbsp": "tbsp", "tbs": "tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp", "tsp": "tsp",
	"can": "can", "cans": "can",
	"bottle": "bottle", "bottles": "bottle",
	"box": "box", "boxes": "box",
	"bag": "bag", "bags": "bag",
	"package": "pkg", "packages": "pkg", "pkg": "pkg", "pack": "pkg", "packs": "pkg",
	"dozen": "dozen",
	"piece": "piece", "pieces": "piece", "pcs": "piece",
	"loaf": "loaf", "loaves": "loaf",
	"bunch": "bunch", "bunches": "bunch",
	"head": "head", "heads": "head",
	"clove": "clove", "cloves": "clove",
	"jar": "jar", "jars": "jar",
	"carton": "carton", "cartons": "carton",
	"slice": "slice", "slices": "slice",
	"stick": "stick", "sticks": "stick",
}

// NormalizeUnit 將單位正規化為標準縮寫；未知單位原樣回傳（去除前後空白）
func NormalizeUnit(unit string) string {
	trimmed := strings.TrimSpace(unit)
	key := strings.TrimSuffix(strings.ToLower(trimmed), ".")
	if canonical, ok := unitAliases[key]; ok {
		return canonical
	}
	return trimmed
}

// unitAlternation 依長度排序，避免 "c" 搶先匹配 "cans"
var unitAlternation = func() string {
	units := make([]string, 0, len(unitAliases))
	for alias := range unitAliases {
		units = append(units, regexp.QuoteMeta(alias))
	}
	sort.Slice(units, func(i, j int) bool {
		if len(units[i]) != len(units[j]) {
			return len(units[i]) > len(units[j])
		}
		return units[i] < units[j]
	})
	return strings.Join(units, "|")
}()

var wordNumbers = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"half": 0.5, "half a": 0.5, "half an": 0.5, "a couple of": 2, "a dozen": 12,
}

// parseNumber 解析數字、分數與英文數字
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if v, ok := wordNumbers[s]; ok {
		return v, true
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// categoryKeywords 類別關鍵字表，依宣告順序比對
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"produce", []string{
		"apple", "banana", "orange", "lemon", "lime", "grape", "berry", "berries", "strawberry", "strawberries",
		"blueberry", "blueberries", "tomato", "tomatoes", "potato", "potatoes", "onion", "garlic", "carrot",
		"lettuce", "spinach", "kale", "cucumber", "pepper", "broccoli", "cauliflower", "celery", "mushroom",
		"avocado", "zucchini", "cabbage", "corn", "peach", "peaches", "pear", "mango", "mangoes", "cilantro",
		"parsley", "basil", "ginger", "squash", "herb",
	}},
	{"meat", []string{
		"chicken", "beef", "pork", "turkey", "lamb", "bacon", "sausage", "ham", "steak", "fish", "salmon",
		"tuna", "shrimp", "ground beef", "meat", "duck", "veal", "cod", "tilapia",
	}},
	{"dairy", []string{
		"milk", "cheese", "butter", "yogurt", "cream", "egg", "sour cream", "mozzarella", "cheddar",
		"parmesan", "creamer", "ricotta",
	}},
	{"grains", []string{
		"bread", "rice", "pasta", "flour", "oat", "oats", "cereal", "quinoa", "tortilla", "bagel", "noodle",
		"spaghetti", "barley", "couscous", "cracker",
	}},
	{"pantry", []string{
		"sugar", "salt", "oil", "vinegar", "sauce", "spice", "honey", "syrup", "bean", "lentil", "soup",
		"broth", "stock", "peanut butter", "jam", "ketchup", "mustard", "mayonnaise", "baking soda",
		"baking powder", "vanilla", "cinnamon", "paprika", "cumin", "oregano",
	}},
	{"frozen", []string{"frozen", "ice cream", "popsicle", "ice"}},
	{"beverages", []string{"juice", "soda", "coffee", "tea", "water", "wine", "beer", "lemonade", "kombucha"}},
	{"snacks", []string{"chips", "cookie", "candy", "chocolate", "popcorn", "pretzel", "nuts", "granola", "snack"}},
}

var categoryPatterns = func() []struct {
	category string
	re       *regexp.Regexp
} {
	out := make([]struct {
		category string
		re       *regexp.Regexp
	}, 0, len(categoryKeywords))
	for _, c := range categoryKeywords {
		parts := make([]string, len(c.keywords))
		for i, k := range c.keywords {
			parts[i] = regexp.QuoteMeta(k)
		}
		out = append(out, struct {
			category string
			re       *regexp.Regexp
		}{c.category, regexp.MustCompile(`\b(?:` + strings.Join(parts, "|") + `)(?:s|es)?\b`)})
	}
	return out
}()

// InferCategory 依關鍵字表推斷食材類別，找不到時回傳空字串
func InferCategory(name string) string {
	lower := strings.ToLower(name)
	for _, c := range categoryPatterns {
		if c.re.MatchString(lower) {
			return c.category
		}
	}
	return ""
}

// foodKeywords 依類別表展開的食材字典，供字典比對使用
var foodKeywordPattern = func() *regexp.Regexp {
	var parts []string
	for _, c := range categoryKeywords {
		if c.category == "frozen" {
			continue
		}
		for _, k := range c.keywords {
			parts = append(parts, regexp.QuoteMeta(k))
		}
	}
	sort.Slice(parts, func(i, j int) bool { return len(parts[i]) > len(parts[j]) })
	return regexp.MustCompile(`\b(?:` + strings.Join(parts, "|") + `)(?:s|es)?\b`)
}()
