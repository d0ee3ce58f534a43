package command

import (
	"fmt"
	"strings"
	"time"
)

const maxLocations = 2

// ValidationReport 抽取結果檢查；只標記問題，不阻擋處理
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// ValidateExtraction 檢查非正數量、重複食材、過多位置與無法解析的日期
func ValidateExtraction(result ExtractionResult) ValidationReport {
	issues := make([]string, 0)

	for _, q := range result.Quantities {
		if q.Value <= 0 {
			issues = append(issues, fmt.Sprintf("Invalid quantity: %s", formatNumber(q.Value)))
		}
	}
	for _, ing := range result.Ingredients {
		if ing.Quantity != nil && *ing.Quantity <= 0 {
			issues = append(issues, fmt.Sprintf("Invalid quantity for %s: %s", ing.Name, formatNumber(*ing.Quantity)))
		}
	}

	seen := make(map[string]bool, len(result.Ingredients))
	for _, ing := range result.Ingredients {
		key := strings.ToLower(strings.TrimSpace(ing.Name))
		if seen[key] {
			issues = append(issues, fmt.Sprintf("Duplicate ingredient: %s", ing.Name))
			continue
		}
		seen[key] = true
	}

	if len(result.Locations) > maxLocations {
		issues = append(issues, fmt.Sprintf("Too many locations specified: %d", len(result.Locations)))
	}

	for _, d := range result.Dates {
		if _, err := time.Parse(dateLayout, d.Value); err != nil {
			issues = append(issues, fmt.Sprintf("Could not understand date: %q", d.OriginalText))
		}
	}

	return ValidationReport{
		Valid:  len(issues) == 0,
		Issues: issues,
	}
}
