package pantry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsNamed(names ...string) []Item {
	items := make([]Item, len(names))
	for i, name := range names {
		items[i] = Item{ID: name, Name: name}
	}
	return items
}

// ==================== 各階段 ====================

func TestFindBestMatch_Stages(t *testing.T) {
	tests := []struct {
		name       string
		search     string
		items      []string
		wantItem   string
		wantType   MatchType
		confidence float64
	}{
		{"exact ignores case", "Milk", []string{"milk"}, "milk", MatchExact, 1.0},
		{"exact after dropping preparation", "onion, diced", []string{"Onion"}, "Onion", MatchExact, 1.0},
		{"exact after dropping parenthetical", "butter (softened)", []string{"butter"}, "butter", MatchExact, 1.0},
		{"word shares a long token", "yellow onion", []string{"onion"}, "onion", MatchWord, 0.9},
		{"word prefix", "tomato", []string{"tomatoes"}, "tomatoes", MatchWord, 0.9},
		{"substitution scallions", "scallions", []string{"green onion"}, "green onion", MatchSubstitution, 0.8},
		{"substitution onion variety", "vidalia onions", []string{"onion"}, "onion", MatchSubstitution, 0.8},
		{"adjective stripped", "raw fig", []string{"fig"}, "fig", MatchAdjective, 0.7},
		{"fuzzy plural", "egg", []string{"eggs"}, "eggs", MatchFuzzy, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindBestMatch(tt.search, itemsNamed(tt.items...))

			require.True(t, result.Matched())
			assert.Equal(t, tt.wantItem, result.Item.Name)
			assert.Equal(t, tt.wantType, result.MatchType)
			assert.Equal(t, tt.confidence, result.Confidence)
		})
	}
}

func TestFindBestMatch_None(t *testing.T) {
	tests := []struct {
		name   string
		search string
		items  []string
	}{
		{"unrelated", "banana", []string{"apple", "milk"}},
		{"empty search", "   ", []string{"apple"}},
		{"empty pantry", "milk", nil},
		{"short tokens only", "ham", []string{"jam"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindBestMatch(tt.search, itemsNamed(tt.items...))

			assert.False(t, result.Matched())
			assert.Nil(t, result.Item)
			assert.Equal(t, MatchNone, result.MatchType)
			assert.Zero(t, result.Confidence)
		})
	}
}

// ==================== 順序 ====================

func TestFindBestMatch_StrictStageBeatsItemOrder(t *testing.T) {
	items := itemsNamed("whole milk", "milk")

	result := FindBestMatch("milk", items)

	assert.Equal(t, MatchExact, result.MatchType)
	assert.Equal(t, "milk", result.Item.Name)
	assert.Same(t, &items[1], result.Item)
}

func TestFindBestMatch_FirstItemWinsWithinStage(t *testing.T) {
	items := itemsNamed("red onion", "white onion")

	result := FindBestMatch("onion", items)

	assert.Equal(t, MatchWord, result.MatchType)
	assert.Equal(t, "red onion", result.Item.Name)
}

func TestFindBestMatch_Deterministic(t *testing.T) {
	items := itemsNamed("chicken thighs", "chicken breast", "eggs", "onion")
	for _, search := range []string{"chicken", "egg", "yellow onion", "saffron"} {
		first := FindBestMatch(search, items)
		second := FindBestMatch(search, items)
		assert.Equal(t, first, second, search)
	}
}

func TestFindBestMatch_ConfidenceMatchesType(t *testing.T) {
	want := map[MatchType]float64{
		MatchExact:        1.0,
		MatchWord:         0.9,
		MatchSubstitution: 0.8,
		MatchAdjective:    0.7,
		MatchFuzzy:        0.6,
	}
	for _, stage := range matchStages {
		assert.Equal(t, want[stage.matchType], stage.confidence, string(stage.matchType))
	}
}

// ==================== 輔助函式 ====================

func TestStripAdjectives(t *testing.T) {
	assert.Equal(t, "basil", stripAdjectives("fresh chopped basil"))
	assert.Equal(t, "", stripAdjectives("fresh"))
	assert.Equal(t, "olive oil", stripAdjectives("olive oil"))
}

func TestAdjectiveMatch_RequiresStripping(t *testing.T) {
	assert.False(t, adjectiveMatch("egg", "eggs"), "nothing stripped")
	assert.False(t, adjectiveMatch("fresh ox", "ox"), "stripped term too short")
	assert.True(t, adjectiveMatch("raw fig", "fig"))
}
