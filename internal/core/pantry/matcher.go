package pantry

import (
	"regexp"
	"strings"
)

// MatchType 比對階段
type MatchType string

const (
	MatchExact        MatchType = "exact"
	MatchWord         MatchType = "word"
	MatchSubstitution MatchType = "substitution"
	MatchAdjective    MatchType = "adjective"
	MatchFuzzy        MatchType = "fuzzy"
	MatchNone         MatchType = "none"
)

// 各階段信心值
const (
	exactConfidence        = 1.0
	wordConfidence         = 0.9
	substitutionConfidence = 0.8
	adjectiveConfidence    = 0.7
	fuzzyConfidence        = 0.6

	minStrippedLength = 3
)

// MatchResult 比對結果
type MatchResult struct {
	Item       *Item     `json:"item"`
	MatchType  MatchType `json:"matchType"`
	Confidence float64   `json:"confidence"`
}

// Matched 是否找到品項
func (r MatchResult) Matched() bool {
	return r.Item != nil
}

type matchStage struct {
	matchType  MatchType
	confidence float64
	match      func(search, candidate string) bool
}

// matchStages 嚴格依序嘗試，先精準後寬鬆，不可重排
var matchStages = []matchStage{
	{MatchExact, exactConfidence, exactMatch},
	{MatchWord, wordConfidence, wordMatch},
	{MatchSubstitution, substitutionConfidence, substitutionMatch},
	{MatchAdjective, adjectiveConfidence, adjectiveMatch},
	{MatchFuzzy, fuzzyConfidence, fuzzyMatch},
}

// FindBestMatch 以五段式比對在庫存中尋找食材，第一個成功的階段即回傳
func FindBestMatch(searchTerm string, items []Item) MatchResult {
	search := normalizeName(searchTerm)
	if search == "" {
		return MatchResult{MatchType: MatchNone}
	}

	for _, stage := range matchStages {
		for i := range items {
			candidate := normalizeName(items[i].Name)
			if candidate == "" {
				continue
			}
			if stage.match(search, candidate) {
				return MatchResult{
					Item:       &items[i],
					MatchType:  stage.matchType,
					Confidence: stage.confidence,
				}
			}
		}
	}
	return MatchResult{MatchType: MatchNone}
}

var (
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
	tokenSplitter        = regexp.MustCompile(`[^a-z0-9]+`)
)

// normalizeName 轉小寫，移除括號註記與逗號後的處理描述（例如 ", diced"）
func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = parentheticalPattern.ReplaceAllString(name, " ")
	if idx := strings.Index(name, ","); idx >= 0 {
		name = name[:idx]
	}
	return strings.Join(strings.Fields(name), " ")
}

func exactMatch(search, candidate string) bool {
	return search == candidate
}

// tokens 長度大於 2 的字詞
func tokens(s string) []string {
	var out []string
	for _, t := range tokenSplitter.Split(s, -1) {
		if len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

// wordMatch 搜尋詞的每個字都出現在候選名稱中（長度大於 3 時允許前綴），
// 或候選名稱中任一長度大於 3 的字出現在搜尋詞中
func wordMatch(search, candidate string) bool {
	searchTokens := tokens(search)
	candidateTokens := tokens(candidate)
	if len(searchTokens) == 0 || len(candidateTokens) == 0 {
		return false
	}

	all := true
	for _, st := range searchTokens {
		if !containsToken(candidateTokens, st) {
			all = false
			break
		}
	}
	if all {
		return true
	}

	searchSet := make(map[string]bool, len(searchTokens))
	for _, st := range searchTokens {
		searchSet[st] = true
	}
	for _, ct := range candidateTokens {
		if len(ct) > 3 && searchSet[ct] {
			return true
		}
	}
	return false
}

func containsToken(candidateTokens []string, st string) bool {
	for _, ct := range candidateTokens {
		if ct == st {
			return true
		}
		if len(st) > 3 && len(ct) > 3 && (strings.HasPrefix(ct, st) || strings.HasPrefix(st, ct)) {
			return true
		}
	}
	return false
}

type substitutionRule struct {
	pattern   *regexp.Regexp
	canonical string
}

// substitutionRules 常見變體寫法對應到標準名稱
var substitutionRules = []substitutionRule{
	{regexp.MustCompile(`^(?:yellow|white|red|sweet|spanish|vidalia|brown)\s+onions?$`), "onion"},
	{regexp.MustCompile(`^(?:scallions?|spring\s+onions?)$`), "green onion"},
	{regexp.MustCompile(`^(?:green|red|yellow|orange)\s+(?:bell\s+)?peppers?$`), "bell pepper"},
	{regexp.MustCompile(`^(?:fresh|dried|chopped|minced|flat[- ]leaf|curly)\s+(parsley|cilantro|basil|thyme|rosemary|oregano|dill|mint|sage|chives)$`), "$1"},
	{regexp.MustCompile(`^(?:low[- ]fat|reduced[- ]fat|fat[- ]free|part[- ]skim|whole[- ]milk|nonfat|light)\s+(mozzarella|cheddar|ricotta|cottage\s+cheese|cream\s+cheese|cheese|yogurt|milk)$`), "$1"},
	{regexp.MustCompile(`^(?:extra[- ]virgin|virgin|light|pure|refined)\s+olive\s+oil$`), "olive oil"},
	{regexp.MustCompile(`^(?:cherry|grape|roma|plum|heirloom|beefsteak|vine[- ]ripened)\s+tomato(?:es)?$`), "tomato"},
	{regexp.MustCompile(`^(?:russet|yukon\s+gold|red|gold|baby|new|idaho)\s+potato(?:es)?$`), "potato"},
	{regexp.MustCompile(`^(?:unsalted|salted|sweet\s+cream)\s+butter$`), "butter"},
	{regexp.MustCompile(`^(?:large|medium|small|jumbo|extra[- ]large|brown|white|free[- ]range)\s+eggs?$`), "egg"},
	{regexp.MustCompile(`^(?:all[- ]purpose|plain|bread|whole\s+wheat|self[- ]rising|cake)\s+flour$`), "flour"},
	{regexp.MustCompile(`^(?:granulated|white|cane|caster|superfine)\s+sugar$`), "sugar"},
	{regexp.MustCompile(`^(?:kosher|sea|table|fine|coarse)\s+salt$`), "salt"},
	{regexp.MustCompile(`^boneless(?:\s+skinless)?\s+chicken(?:\s+(?:breasts?|thighs?))?$`), "chicken"},
	{regexp.MustCompile(`^(?:ground|minced)\s+(beef|pork|turkey|chicken)$`), "$1"},
}

// substitutionMatch 規則命中後以標準名稱比對（完全相同或互相包含）
func substitutionMatch(search, candidate string) bool {
	for _, rule := range substitutionRules {
		if !rule.pattern.MatchString(search) {
			continue
		}
		canonical := rule.pattern.ReplaceAllString(search, rule.canonical)
		if canonical == "" {
			continue
		}
		if candidate == canonical || strings.Contains(candidate, canonical) || strings.Contains(canonical, candidate) {
			return true
		}
	}
	return false
}

var adjectives = map[string]bool{
	"fresh": true, "dried": true, "dry": true, "frozen": true, "organic": true, "raw": true,
	"cooked": true, "chopped": true, "diced": true, "minced": true, "sliced": true, "grated": true,
	"shredded": true, "ground": true, "whole": true, "ripe": true, "canned": true, "peeled": true,
	"boneless": true, "skinless": true, "unsalted": true, "salted": true, "lean": true, "crushed": true,
	"large": true, "medium": true, "small": true, "extra": true, "baby": true, "homemade": true,
}

func stripAdjectives(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !adjectives[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// adjectiveMatch 去除形容詞後再比對，至少一方有被去除且去除後長度需至少 3
func adjectiveMatch(search, candidate string) bool {
	s := stripAdjectives(search)
	c := stripAdjectives(candidate)
	if s == search && c == candidate {
		return false
	}
	if len(s) < minStrippedLength || len(c) < minStrippedLength {
		return false
	}
	return s == c || strings.Contains(c, s) || strings.Contains(s, c)
}

// fuzzyMatch 單複數變體相等
func fuzzyMatch(search, candidate string) bool {
	for _, s := range pluralVariants(search) {
		for _, c := range pluralVariants(candidate) {
			if s == c {
				return true
			}
		}
	}
	return false
}

func pluralVariants(s string) []string {
	variants := []string{s, s + "s"}
	if strings.HasSuffix(s, "es") {
		variants = append(variants, strings.TrimSuffix(s, "es"))
	}
	if strings.HasSuffix(s, "s") {
		variants = append(variants, strings.TrimSuffix(s, "s"))
	}
	return variants
}
