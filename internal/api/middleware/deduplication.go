package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry-assistant/internal/pkg/common"
)

const defaultDedupWindow = time.Second

// Deduplicator 短時間內相同的 POST 請求只處理一次
type Deduplicator struct {
	mu       sync.Mutex
	requests map[string]time.Time
	window   time.Duration
	now      func() time.Time
}

// NewDeduplicator 創建去重器
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = defaultDedupWindow
	}
	return &Deduplicator{
		requests: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// seen 記錄指紋，回傳是否在時間窗內出現過
func (d *Deduplicator) seen(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now
	return false
}

// Sweep 清除過期指紋
func (d *Deduplicator) Sweep(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0
	for k, t := range d.requests {
		if now.Sub(t) > d.window {
			delete(d.requests, k)
			removed++
		}
	}
	return removed, nil
}

// Deduplication 請求去重中間件
func Deduplication(d *Deduplicator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 只處理 POST 請求
		if d == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		fingerprint := c.Request.Method + ":" + c.Request.URL.Path + ":" + c.ClientIP()
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
					"code":    "REQUEST_TOO_LARGE",
					"message": "Request body too large",
				})
				return
			}
			hash := sha256.Sum256(body)
			fingerprint += ":" + hex.EncodeToString(hash[:])

			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		if d.seen(fingerprint) {
			common.LogInfo("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    common.ErrCodeTooManyRequests,
				"message": "Request too frequent",
			})
			return
		}

		c.Next()
	}
}
