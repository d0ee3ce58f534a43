package common

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// DisplayName 將標準化名稱轉為顯示用名稱，例如 "spice rack" -> "Spice Rack"
func DisplayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	// Caser 帶狀態，不可跨 goroutine 共用
	return cases.Title(language.English).String(strings.ToLower(name))
}

// Clamp01 將數值限制在 [0,1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
