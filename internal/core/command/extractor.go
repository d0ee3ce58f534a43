package command

import (
	"context"
	"regexp"
	"strings"
	"time"

	"pantry-assistant/internal/core/ai/provider"
)

const (
	patternConfidence = 0.7
	aiConfidence      = 0.9

	maxIngredientWords = 4
	defaultAITimeout   = 8 * time.Second
)

// Extractor 實體抽取器，規則路徑不需外部依賴，AI 路徑透過 Completer 委派
type Extractor struct {
	now       func() time.Time
	completer Completer
	timeout   time.Duration
}

// ExtractorOption 抽取器選項
type ExtractorOption func(*Extractor)

// WithClock 注入時鐘，相對日期以此為基準
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithCompleter 設定語言模型
func WithCompleter(c Completer) ExtractorOption {
	return func(e *Extractor) {
		e.completer = c
	}
}

// WithAITimeout 設定委派呼叫逾時
func WithAITimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewExtractor 創建抽取器
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		now:     time.Now,
		timeout: defaultAITimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AIEnabled 是否設定了語言模型
func (e *Extractor) AIEnabled() bool {
	return e.completer != nil
}

func (e *Extractor) today() time.Time {
	now := e.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// ExtractPatterns 規則路徑：詞彙表與正規表示式比對，信心值固定 0.7
func (e *Extractor) ExtractPatterns(text string) ExtractionResult {
	normalized := normalizeText(text)

	dates, masked := extractDates(joinCompoundFoods(normalized), e.today())
	quantities, masked := extractQuantities(masked)
	locations, masked := extractLocations(masked)
	recipes, masked := extractRecipes(masked)
	actions := extractActions(normalized)
	ingredients := extractIngredients(masked)

	// 只有一個數量與一個食材時直接掛上
	if len(quantities) == 1 && len(ingredients) == 1 {
		ingredients[0].Quantity = floatPtr(quantities[0].Value)
		ingredients[0].Unit = quantities[0].Unit
	}

	return ExtractionResult{
		Ingredients: ingredients,
		Locations:   locations,
		Dates:       dates,
		Quantities:  quantities,
		Actions:     actions,
		Recipes:     recipes,
		Confidence:  patternConfidence,
		Source:      SourcePattern,
	}
}

// ==================== 數量 ====================

var quantityPattern = regexp.MustCompile(
	`(?:^|[^\w./-])(-?\d+(?:\.\d+)?(?:/\d+)?|a\s+dozen|a\s+couple\s+of|half\s+an?|half|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)` +
		`(?:\s*(` + unitAlternation + `)\b\.?|\b)`)

func extractQuantities(text string) ([]Quantity, string) {
	matches := quantityPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, text
	}

	quantities := make([]Quantity, 0, len(matches))
	spans := make([][2]int, 0, len(matches))
	for _, m := range matches {
		number := strings.Join(strings.Fields(text[m[2]:m[3]]), " ")
		// 單獨的 half 只有接單位或 a/an 時才是數量
		if number == "half" && m[4] < 0 {
			continue
		}
		value, ok := parseNumber(number)
		if !ok {
			continue
		}
		q := Quantity{
			Value:        value,
			OriginalText: strings.TrimSpace(text[m[2]:m[1]]),
		}
		if m[4] >= 0 {
			q.Unit = NormalizeUnit(text[m[4]:m[5]])
		}
		quantities = append(quantities, q)
		spans = append(spans, [2]int{m[2], m[1]})
	}
	return quantities, maskSpans(text, spans)
}

// ==================== 位置 ====================

var locationPattern = regexp.MustCompile(
	`\b(?:(from|out\s+of|into|onto|inside|to|in|on|at)\s+)?(?:(?:the|my|our)\s+)?` +
		`(?:(garage|basement|kitchen|main|second|mini|chest|upstairs|downstairs|deep)\s+)?` +
		`(fridge|refrigerator|freezer|pantry|cupboard|cabinet|countertop|counter|spice\s+rack)s?\b`)

var locationAliases = map[string]string{
	"refrigerator": "fridge",
	"cabinet":      "cupboard",
	"countertop":   "counter",
}

func extractLocations(text string) ([]Location, string) {
	matches := locationPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, text
	}

	locations := make([]Location, 0, len(matches))
	spans := make([][2]int, 0, len(matches))
	for _, m := range matches {
		locType := strings.Join(strings.Fields(text[m[6]:m[7]]), " ")
		if alias, ok := locationAliases[locType]; ok {
			locType = alias
		}
		loc := Location{Type: locType}
		if m[2] >= 0 {
			loc.Preposition = strings.Join(strings.Fields(text[m[2]:m[3]]), " ")
		}
		if m[4] >= 0 {
			loc.Specific = text[m[4]:m[5]]
		}
		locations = append(locations, loc)
		spans = append(spans, [2]int{m[0], m[1]})
	}
	return locations, maskSpans(text, spans)
}

// IsSourcePreposition 介系詞是否表示來源位置
func IsSourcePreposition(p string) bool {
	return p == "from" || p == "out of"
}

// ==================== 食譜、動作 ====================

var recipePattern = regexp.MustCompile(
	`\b(?:recipes?\s+for|how\s+(?:do\s+i|to|can\s+i)\s+make)\s+(?:an?\s+|some\s+)?([a-z][a-z' -]*?)\s*(?:[?.!,]|\bwith\b|\busing\b|$)`)

func extractRecipes(text string) ([]string, string) {
	matches := recipePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, text
	}

	var recipes []string
	spans := make([][2]int, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(text[m[2]:m[3]])
		if name == "" {
			continue
		}
		recipes = append(recipes, strings.ReplaceAll(name, "_", " "))
		spans = append(spans, [2]int{m[0], m[3]})
	}
	return recipes, maskSpans(text, spans)
}

var actionPattern = regexp.MustCompile(
	`\b(add|put|store|stock|place|buy|bought|got|purchased|remove|delete|discard|toss|throw|used|finished|move|transfer|relocate|update|change|set|check|find|show|list|cook|make|bake|plan)\b`)

func extractActions(text string) []string {
	return uniqueStrings(actionPattern.FindAllString(text, -1))
}

// ==================== 食材 ====================

var chunkSplitter = regexp.MustCompile(`\s*(?:,|&|\band\b|\bor\b|\bwith\b|\busing\b|\bplus\b|[.;!?])\s*`)

var stopwords = toSet(
	"a", "an", "the", "some", "any", "of", "to", "in", "on", "at", "into", "from", "for", "by", "about",
	"my", "our", "your", "me", "we", "i", "us", "you", "it", "is", "are", "was", "be", "been",
	"do", "does", "did", "have", "has", "had", "there", "please", "can", "could", "would", "should", "will",
	"just", "still", "also", "more", "much", "many", "left", "all", "everything", "anything", "something",
	"what", "what's", "whats", "which", "where", "how", "if", "whether", "that", "this", "these", "those",
	"need", "needs", "want", "get", "got", "bought", "buy", "purchased", "picked", "up", "new", "now",
	"add", "put", "store", "stock", "place", "remove", "delete", "discard", "toss", "throw", "out", "away",
	"used", "ran", "run", "finished", "move", "transfer", "relocate", "update", "change", "set",
	"check", "find", "show", "list", "display", "cook", "make", "bake", "plan", "meal", "meals",
	"recipe", "recipes", "quantity", "amount", "count", "only", "enough",
	"expiring", "expire", "expires", "expired", "expiration", "going", "bad", "spoil", "spoiling", "spoiled",
	"soon", "use", "best", "before", "good", "until", "date",
	"grocery", "shopping", "inventory", "items", "item", "stuff", "food", "week", "dinner", "lunch", "breakfast",
	"tell", "let", "know", "see", "look", "give", "hey", "ok", "okay", "thanks", "again",
)

func extractIngredients(text string) []ExtractedIngredient {
	var names []string
	for _, chunk := range chunkSplitter.Split(text, -1) {
		words := trimStopwords(strings.Fields(chunk))
		switch {
		case len(words) == 0:
			continue
		case len(words) <= maxIngredientWords && !isNumeric(words):
			names = append(names, strings.Join(words, " "))
		default:
			names = append(names, foodKeywordPattern.FindAllString(chunk, -1)...)
		}
	}

	names = uniqueStrings(names)
	ingredients := make([]ExtractedIngredient, 0, len(names))
	for _, name := range names {
		name = strings.ReplaceAll(name, "_", " ")
		ingredients = append(ingredients, ExtractedIngredient{
			Name:     name,
			Category: InferCategory(name),
		})
	}
	return ingredients
}

// compoundFoodPattern 名稱內含 and 的食物，抽取前以底線連接避免被切開
var compoundFoodPattern = regexp.MustCompile(`\b(?:half and half|mac and cheese|macaroni and cheese)\b`)

func joinCompoundFoods(text string) string {
	return compoundFoodPattern.ReplaceAllStringFunc(text, func(s string) string {
		return strings.ReplaceAll(s, " ", "_")
	})
}

func trimStopwords(words []string) []string {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, `"'()[]:`)
		if w != "" {
			cleaned = append(cleaned, w)
		}
	}
	start, end := 0, len(cleaned)
	for start < end && stopwords[cleaned[start]] {
		start++
	}
	for end > start && stopwords[cleaned[end-1]] {
		end--
	}
	return cleaned[start:end]
}

func isNumeric(words []string) bool {
	for _, w := range words {
		if _, ok := parseNumber(w); !ok {
			return false
		}
	}
	return true
}

// ==================== 共用 ====================

// maskSpans 以逗號取代已抽取的片段，讓後續切分不會把它們當成食材
func maskSpans(text string, spans [][2]int) string {
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, s := range spans {
		if s[0] < last {
			continue
		}
		b.WriteString(text[last:s[0]])
		b.WriteString(" , ")
		last = s[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Completer 委派的語言模型呼叫
type Completer interface {
	Complete(ctx context.Context, req *provider.Request) (*provider.Response, error)
}
