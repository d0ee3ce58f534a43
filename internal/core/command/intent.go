package command

import (
	"regexp"
	"strings"
)

type intentPatterns struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// intentTable 依宣告順序比對，第一個命中的意圖勝出。
// 順序是政策而非偶然：重疊的句子歸給較前面的意圖，
// 例如 "what's expiring" 同時符合 CHECK_EXPIRATION 與 LIST_ITEMS，歸給 CHECK_EXPIRATION；
// "add eggs to my grocery list" 歸給 ADD_TO_GROCERY 而非 ADD_ITEM。
var intentTable = []intentPatterns{
	{IntentAddToGrocery, compileAll(
		`\b(add|put)\b.+\b(to|on)\s+(my\s+|the\s+|our\s+)?(grocery|shopping)\s+list\b`,
		`\bi\s+need\s+to\s+buy\b`,
		`\b(we|i)\s+need\s+(more|some)\b`,
	)},
	{IntentMoveItem, compileAll(
		`^\s*(move|transfer|relocate)\b`,
		`\bput\b.+\bfrom\b.+\b(to|into|in)\b`,
	)},
	{IntentUpdateQuantity, compileAll(
		`\b(update|change|set)\b.+\b(quantity|amount|count)\b`,
		`\b(update|change|set)\b.+\bto\s+\d`,
		`\bonly\s+\d+(\.\d+)?\b.*\bleft\b`,
	)},
	{IntentAddItem, compileAll(
		`^\s*(add|put|store|stock|place)\b`,
		`^\s*(i|we)\s+(just\s+)?(bought|got|purchased|picked\s+up)\b`,
	)},
	{IntentRemoveItem, compileAll(
		`^\s*(remove|delete|discard|throw\s+(out|away)|toss)\b`,
		`\b(used\s+up|ran\s+out\s+of|run\s+out\s+of|finished)\b`,
	)},
	{IntentCheckExpiration, compileAll(
		`\b(expir\w*|going\s+bad|spoil\w*|use\s+by|best\s+before)\b`,
	)},
	{IntentCheckAvailability, compileAll(
		`^\s*(do|did)\s+(we|i)\s+(still\s+)?have\b`,
		`\b(is|are)\s+there\s+(any\s+)?`,
		`\bcheck\s+(if|for|whether)\b`,
		`\b(have|got)\s+(any|enough)\b`,
	)},
	{IntentFindRecipes, compileAll(
		`\brecipes?\b`,
		`\bwhat\s+can\s+i\s+(make|cook|bake)\b`,
		`\b(cook|make)\s+(something|dinner|lunch|breakfast)\b`,
		`\bhow\s+(do\s+i|to)\s+make\b`,
	)},
	{IntentMealPlan, compileAll(
		`\bmeal\s*plan`,
		`\bplan\s+(my\s+|our\s+)?(meals?|week|dinners?)\b`,
	)},
	{IntentListItems, compileAll(
		`\b(list|show|display)\b`,
		`\bwhat('s|\s+is)\s+in\b`,
		`\bwhat\s+do\s+(we|i)\s+have\b`,
		`\binventory\b`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// normalizeText 轉小寫並統一引號與空白
func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`).Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// DetectIntent 依固定順序比對意圖規則，沒有任何規則命中時回傳 UNKNOWN
func DetectIntent(text string) Intent {
	intent, _ := detectIntent(normalizeText(text))
	return intent
}

// detectIntent 回傳命中的意圖與規則
func detectIntent(normalized string) (Intent, string) {
	if normalized == "" {
		return IntentUnknown, ""
	}
	for _, entry := range intentTable {
		for _, re := range entry.patterns {
			if re.MatchString(normalized) {
				return entry.intent, re.String()
			}
		}
	}
	return IntentUnknown, ""
}
