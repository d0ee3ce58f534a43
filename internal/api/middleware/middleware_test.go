package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/ping", ok)
	r.POST("/echo", ok)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ==================== 限流 ====================

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	r := newEngine(RateLimit(rl))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", "").Code)

	w := do(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")
}

func TestRateLimiter_PerClientAndSweep(t *testing.T) {
	now := time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Reserve("10.0.0.1")
	assert.True(t, ok)
	ok, wait := rl.Reserve("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = rl.Reserve("10.0.0.2")
	assert.True(t, ok, "clients are limited independently")

	now = now.Add(2 * time.Minute)
	removed, err := rl.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	ok, _ = rl.Reserve("10.0.0.1")
	assert.True(t, ok)
}

func TestRateLimit_Nil(t *testing.T) {
	r := newEngine(RateLimit(nil))
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", "").Code)
}

// ==================== 去重 ====================

func TestDeduplication(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	r := newEngine(Deduplication(d))

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/echo", `{"command":"add milk"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/echo", `{"command":"add milk"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/echo", `{"command":"add eggs"}`).Code)

	// GET 不去重
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", "").Code)
}

func TestDeduplicator_Sweep(t *testing.T) {
	now := time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)
	d := NewDeduplicator(time.Second)
	d.now = func() time.Time { return now }

	assert.False(t, d.seen("a"))
	assert.True(t, d.seen("a"))

	now = now.Add(2 * time.Second)
	removed, err := d.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, d.seen("a"))
}

// ==================== 其他 ====================

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(8))
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, http.MethodPost, "/echo", `{"command":"way too long"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/echo", `{}`).Code)
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery(), Logger())
	w := do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	w := do(r, http.MethodGet, "/slow", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}
