package command

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

const numberWords = `\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve`

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

const weekdays = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`

// expiryPhrasePattern "expires on X"、"use by X"、"best before X"，X 無法解析時仍保留為空值日期（X 為位置時略過）
var expiryPhrasePattern = regexp.MustCompile(
	`\b(?:expires?\s+(?:on|in|by)|expiring\s+(?:on|in|by)|expiration(?:\s+date)?\s+is|use\s+by|best\s+before|good\s+until)\s+` +
		`([^,;!?]+?)(?:\s+(?:and|to|from|with|into|in|on|at|for)\b|[,;!?]|\.(?:\s|$)|$)`)

// dateScanPattern 句中獨立出現的日期片語
var dateScanPattern = regexp.MustCompile(
	`\b(?:\d{4}-\d{2}-\d{2}` +
		`|(?:(?:on|by|before|until)\s+)\d{1,2}/\d{1,2}(?:/\d{2,4})?` +
		`|\d{1,2}/\d{1,2}/\d{2,4}` +
		`|(?:` + monthNames + `)\s+\d{1,2}(?:st|nd|rd|th)?` +
		`|today|tonight|tomorrow|yesterday` +
		`|this\s+(?:weekend|week)` +
		`|next\s+(?:week|month|year|` + weekdays + `)` +
		`|in\s+(?:` + numberWords + `)\s+(?:days?|weeks?|months?)` +
		`|(?:on\s+)?(?:` + weekdays + `))\b`)

var (
	isoDatePattern      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	slashDatePattern    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?$`)
	monthDayPattern     = regexp.MustCompile(`^(` + monthNames + `)\s+(\d{1,2})(?:st|nd|rd|th)?$`)
	relativeSpanPattern = regexp.MustCompile(`^(?:in\s+)?(` + numberWords + `)\s+(day|week|month)s?$`)
	weekdayPattern      = regexp.MustCompile(`^(?:next\s+)?(` + weekdays + `)$`)
)

type dateMatch struct {
	start, end int
	date       DateEntity
}

// extractDates 抽取並解析日期，回傳移除日期片段後的文字
func extractDates(text string, today time.Time) ([]DateEntity, string) {
	var found []dateMatch

	for _, m := range expiryPhrasePattern.FindAllStringSubmatchIndex(text, -1) {
		target := strings.TrimSpace(text[m[2]:m[3]])
		date := DateEntity{Type: DateAbsolute, OriginalText: strings.TrimSpace(text[m[0]:m[3]])}
		if value, dateType, ok := resolveDate(target, today); ok {
			date.Value = value
			date.Type = dateType
		} else if startsWithLocation(target) {
			// "expiring in the fridge" 是位置不是日期
			continue
		}
		found = append(found, dateMatch{start: m[0], end: m[3], date: date})
	}

	for _, m := range dateScanPattern.FindAllStringIndex(text, -1) {
		if overlaps(found, m[0], m[1]) {
			continue
		}
		phrase := text[m[0]:m[1]]
		value, dateType, ok := resolveDate(phrase, today)
		if !ok {
			continue
		}
		found = append(found, dateMatch{
			start: m[0],
			end:   m[1],
			date:  DateEntity{Type: dateType, Value: value, OriginalText: phrase},
		})
	}

	if len(found) == 0 {
		return nil, text
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })
	dates := make([]DateEntity, len(found))
	spans := make([][2]int, len(found))
	for i, f := range found {
		dates[i] = f.date
		spans[i] = [2]int{f.start, f.end}
	}
	return dates, maskSpans(text, spans)
}

func startsWithLocation(phrase string) bool {
	loc := locationPattern.FindStringIndex(phrase)
	return loc != nil && loc[0] == 0
}

func overlaps(found []dateMatch, start, end int) bool {
	for _, f := range found {
		if start < f.end && end > f.start {
			return true
		}
	}
	return false
}

// resolveDate 將日期片語解析為 YYYY-MM-DD
func resolveDate(phrase string, today time.Time) (string, DateType, bool) {
	p := strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
	for _, prefix := range []string{"on ", "by ", "before ", "until "} {
		p = strings.TrimPrefix(p, prefix)
	}
	p = strings.TrimSuffix(p, ".")

	if t, ok := parseAbsoluteDate(p, today); ok {
		return t.Format(dateLayout), DateAbsolute, true
	}
	if t, ok := parseRelativeDate(p, today); ok {
		return t.Format(dateLayout), DateRelative, true
	}
	return "", "", false
}

func parseAbsoluteDate(p string, today time.Time) (time.Time, bool) {
	if m := isoDatePattern.FindStringSubmatch(p); m != nil {
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), today.Location())
	}

	if m := slashDatePattern.FindStringSubmatch(p); m != nil {
		year := today.Year()
		if m[3] != "" {
			year = atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		return buildDate(year, atoi(m[1]), atoi(m[2]), today.Location())
	}

	if m := monthDayPattern.FindStringSubmatch(p); m != nil {
		month, ok := parseMonth(m[1])
		if !ok {
			return time.Time{}, false
		}
		return buildDate(today.Year(), int(month), atoi(m[2]), today.Location())
	}

	return time.Time{}, false
}

func parseRelativeDate(p string, today time.Time) (time.Time, bool) {
	switch p {
	case "today", "tonight":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "this weekend":
		return nextWeekday(today, time.Saturday, true), true
	case "this week":
		return nextWeekday(today, time.Sunday, true), true
	case "next week":
		return today.AddDate(0, 0, 7), true
	case "next month":
		return today.AddDate(0, 1, 0), true
	case "next year":
		return today.AddDate(1, 0, 0), true
	}

	if m := relativeSpanPattern.FindStringSubmatch(p); m != nil {
		n, ok := parseCount(m[1])
		if !ok {
			return time.Time{}, false
		}
		switch m[2] {
		case "day":
			return today.AddDate(0, 0, n), true
		case "week":
			return today.AddDate(0, 0, 7*n), true
		case "month":
			return today.AddDate(0, n, 0), true
		}
	}

	if m := weekdayPattern.FindStringSubmatch(p); m != nil {
		day, ok := parseWeekday(m[1])
		if !ok {
			return time.Time{}, false
		}
		return nextWeekday(today, day, false), true
	}

	return time.Time{}, false
}

// buildDate 建立日期並拒絕溢位，例如 2/30
func buildDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// nextWeekday 下一個指定星期幾；includeToday 為 true 時當天也算
func nextWeekday(from time.Time, day time.Weekday, includeToday bool) time.Time {
	diff := (int(day) - int(from.Weekday()) + 7) % 7
	if diff == 0 && !includeToday {
		diff = 7
	}
	return from.AddDate(0, 0, diff)
}

func parseCount(s string) (int, bool) {
	if s == "a" || s == "an" {
		return 1, true
	}
	v, ok := parseNumber(s)
	if !ok || v < 0 {
		return 0, false
	}
	return int(v), true
}

func parseMonth(s string) (time.Month, bool) {
	if len(s) < 3 {
		return 0, false
	}
	prefix := s[:3]
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()[:3]) == prefix {
			return m, true
		}
	}
	return 0, false
}

func parseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == s {
			return d, true
		}
	}
	return 0, false
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// DaysUntil 距離日期的天數，日期無法解析時回傳 false
func DaysUntil(value string, today time.Time) (int, bool) {
	t, err := time.ParseInLocation(dateLayout, value, today.Location())
	if err != nil {
		return 0, false
	}
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	return int(math.Round(t.Sub(start).Hours() / 24)), true
}
