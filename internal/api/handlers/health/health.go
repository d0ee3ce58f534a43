package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"pantry-assistant/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	AIEnabled bool                   `json:"ai_enabled"`
	Model     string                 `json:"model,omitempty"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// ReadyFunc 依賴檢查，例如儲存層 Ping
type ReadyFunc func(ctx context.Context) error

// Handler 健康檢查處理器
type Handler struct {
	version   string
	model     string
	ready     ReadyFunc
	startedAt time.Time
}

// NewHandler 創建健康檢查處理器；model 為空表示未啟用 AI
func NewHandler(version, model string, ready ReadyFunc) *Handler {
	return &Handler{
		version:   version,
		model:     model,
		ready:     ready,
		startedAt: time.Now(),
	}
}

// HealthCheck 健康檢查
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		AIEnabled: h.model != "",
		Model:     h.model,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 儲存層可用時才算就緒
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			common.LogWarn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  "storage is not reachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
