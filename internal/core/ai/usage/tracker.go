package usage

import (
	"fmt"
	"sync"
	"time"

	"pantry-assistant/internal/infrastructure/config"
)

// RateLimitError 使用者超過用量上限；可在 ResetAt 之後重試
type RateLimitError struct {
	UserID  string
	Limit   string
	ResetAt time.Time
	now     time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("usage limit exceeded for %s (%s), resets at %s", e.UserID, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// RetryAfter 距重置的時間，不小於一秒
func (e *RateLimitError) RetryAfter() time.Duration {
	d := e.ResetAt.Sub(e.now)
	if d < time.Second {
		return time.Second
	}
	return d.Round(time.Second)
}

// Temporary 可重試
func (e *RateLimitError) Temporary() bool { return true }

// UsageTracker 追蹤每位使用者的語言模型用量
type UsageTracker interface {
	// Allow 檢查是否允許下一次呼叫；超過上限時回傳 *RateLimitError
	Allow(userID string) error
	// Record 記錄實際用掉的 token
	Record(userID string, tokens int)
	// Sweep 清除已結束的時間窗，回傳清除數量
	Sweep() int
}

type window struct {
	start    time.Time
	requests int
	tokens   int
}

// Tracker 固定時間窗的用量計數
type Tracker struct {
	mu          sync.Mutex
	maxRequests int
	maxTokens   int
	window      time.Duration
	users       map[string]*window
	now         func() time.Time
}

// NewTracker 創建用量追蹤；上限為 0 表示不限制
func NewTracker(cfg config.UsageConfig) *Tracker {
	w := cfg.Window
	if w <= 0 {
		w = time.Hour
	}
	return &Tracker{
		maxRequests: cfg.Requests,
		maxTokens:   cfg.Tokens,
		window:      w,
		users:       make(map[string]*window),
		now:         time.Now,
	}
}

// current 需持有鎖
func (t *Tracker) current(userID string, now time.Time) *window {
	w, ok := t.users[userID]
	if !ok || !now.Before(w.start.Add(t.window)) {
		w = &window{start: now}
		t.users[userID] = w
	}
	return w
}

// Allow 檢查並計入一次請求
func (t *Tracker) Allow(userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	w := t.current(userID, now)
	resetAt := w.start.Add(t.window)

	if t.maxRequests > 0 && w.requests >= t.maxRequests {
		return &RateLimitError{UserID: userID, Limit: "requests", ResetAt: resetAt, now: now}
	}
	if t.maxTokens > 0 && w.tokens >= t.maxTokens {
		return &RateLimitError{UserID: userID, Limit: "tokens", ResetAt: resetAt, now: now}
	}
	w.requests++
	return nil
}

// Record 記錄 token 用量
func (t *Tracker) Record(userID string, tokens int) {
	if tokens <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current(userID, t.now()).tokens += tokens
}

// Sweep 清除過期時間窗
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for userID, w := range t.users {
		if !now.Before(w.start.Add(t.window)) {
			delete(t.users, userID)
			removed++
		}
	}
	return removed
}
