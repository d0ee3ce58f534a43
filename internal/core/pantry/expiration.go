package pantry

import (
	"strings"
	"time"
)

// storageKind 依位置名稱判斷保存方式
type storageKind string

const (
	storageFridge  storageKind = "fridge"
	storageFreezer storageKind = "freezer"
	storageShelf   storageKind = "shelf"
)

func storageKindOf(location string) storageKind {
	l := strings.ToLower(location)
	switch {
	case strings.Contains(l, "freezer"):
		return storageFreezer
	case strings.Contains(l, "fridge"), strings.Contains(l, "refrigerator"):
		return storageFridge
	default:
		return storageShelf
	}
}

// shelfLifeDays 類別與保存方式對應的保存天數，肉類最短、乾貨最長
var shelfLifeDays = map[string]map[storageKind]int{
	"meat":      {storageFridge: 3, storageFreezer: 120, storageShelf: 1},
	"dairy":     {storageFridge: 7, storageFreezer: 90, storageShelf: 2},
	"produce":   {storageFridge: 7, storageFreezer: 240, storageShelf: 5},
	"grains":    {storageFridge: 14, storageFreezer: 90, storageShelf: 30},
	"pantry":    {storageFridge: 180, storageFreezer: 365, storageShelf: 365},
	"frozen":    {storageFridge: 2, storageFreezer: 180, storageShelf: 1},
	"beverages": {storageFridge: 14, storageFreezer: 180, storageShelf: 180},
	"snacks":    {storageFridge: 30, storageFreezer: 90, storageShelf: 60},
	"":          {storageFridge: 7, storageFreezer: 90, storageShelf: 30},
}

// ShelfLifeDays 預估保存天數
func ShelfLifeDays(category, location string) int {
	table, ok := shelfLifeDays[strings.ToLower(category)]
	if !ok {
		table = shelfLifeDays[""]
	}
	return table[storageKindOf(location)]
}

// EstimateExpiration 以加入日期推估到期日（當天零時）
func EstimateExpiration(category, location string, from time.Time) time.Time {
	day := startOfDay(from)
	return day.AddDate(0, 0, ShelfLifeDays(category, location))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ExpirationStatus 到期狀態
type ExpirationStatus string

const (
	StatusExpired      ExpirationStatus = "expired"
	StatusExpiringSoon ExpirationStatus = "expiring_soon"
	StatusFresh        ExpirationStatus = "fresh"
	StatusNoDate       ExpirationStatus = "no_date"
)

// Status 依今天與「即將到期」天數判斷狀態
func Status(item Item, today time.Time, soonDays int) ExpirationStatus {
	if item.ExpirationDate == nil {
		return StatusNoDate
	}
	days := DaysLeft(item, today)
	switch {
	case days < 0:
		return StatusExpired
	case days <= soonDays:
		return StatusExpiringSoon
	default:
		return StatusFresh
	}
}

// DaysLeft 距到期日天數，已過期為負數
func DaysLeft(item Item, today time.Time) int {
	if item.ExpirationDate == nil {
		return 0
	}
	exp := startOfDay(item.ExpirationDate.In(today.Location()))
	return int(exp.Sub(startOfDay(today)).Round(24*time.Hour).Hours() / 24)
}

// ExpirationReport 到期分類
type ExpirationReport struct {
	Expired      []Item `json:"expired"`
	ExpiringSoon []Item `json:"expiringSoon"`
	Fresh        []Item `json:"fresh"`
	NoDate       []Item `json:"noDate"`
	WindowDays   int    `json:"windowDays"`
}

// PartitionByExpiration 將品項依到期狀態分類
func PartitionByExpiration(items []Item, today time.Time, soonDays int) ExpirationReport {
	report := ExpirationReport{
		Expired:      make([]Item, 0),
		ExpiringSoon: make([]Item, 0),
		Fresh:        make([]Item, 0),
		NoDate:       make([]Item, 0),
		WindowDays:   soonDays,
	}
	for _, item := range items {
		switch Status(item, today, soonDays) {
		case StatusExpired:
			report.Expired = append(report.Expired, item)
		case StatusExpiringSoon:
			report.ExpiringSoon = append(report.ExpiringSoon, item)
		case StatusFresh:
			report.Fresh = append(report.Fresh, item)
		case StatusNoDate:
			report.NoDate = append(report.NoDate, item)
		}
	}
	return report
}
