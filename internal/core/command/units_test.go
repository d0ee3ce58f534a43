package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"pounds", "lb"},
		{"lbs", "lb"},
		{"pound", "lb"},
		{"ounces", "oz"},
		{"grams", "g"},
		{"kilograms", "kg"},
		{"liters", "l"},
		{"litres", "l"},
		{"milliliters", "ml"},
		{"gallons", "gal"},
		{"cups", "cup"},
		{"tablespoons", "tbsp"},
		{"tbs", "tbsp"},
		{"teaspoons", "tsp"},
		{"cans", "can"},
		{"packages", "pkg"},
		{"loaves", "loaf"},
		{"cloves", "clove"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			// 大小寫不影響結果
			assert.Equal(t, tt.expected, NormalizeUnit(tt.input))
			assert.Equal(t, tt.expected, NormalizeUnit(strings.ToUpper(tt.input)))
			assert.Equal(t, tt.expected, NormalizeUnit(strings.ToUpper(tt.input[:1])+tt.input[1:]))
		})
	}
}

func TestNormalizeUnit_UnknownPassesThrough(t *testing.T) {
	assert.Equal(t, "Smidgen", NormalizeUnit("  Smidgen "))
	assert.Equal(t, "", NormalizeUnit(""))
}

func TestNormalizeUnit_Idempotent(t *testing.T) {
	for alias := range unitAliases {
		once := NormalizeUnit(alias)
		assert.Equal(t, once, NormalizeUnit(once), alias)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"chicken", "meat"},
		{"chicken breast", "meat"},
		{"tomatoes", "produce"},
		{"onions", "produce"},
		{"milk", "dairy"},
		{"eggs", "dairy"},
		{"bread", "grains"},
		{"olive oil", "pantry"},
		{"frozen peas", "frozen"},
		{"orange juice", "produce"},
		{"apple juice", "produce"},
		{"coffee", "beverages"},
		{"potato chips", "produce"},
		{"chips", "snacks"},
		{"xylophone", ""},
		{"steakhouse", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferCategory(tt.name))
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"2", 2, true},
		{"1.5", 1.5, true},
		{"1/2", 0.5, true},
		{"-3", -3, true},
		{"two", 2, true},
		{"a dozen", 12, true},
		{"half", 0.5, true},
		{"1/0", 0, false},
		{"lots", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, ok := parseNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, v, 1e-9)
			}
		})
	}
}
