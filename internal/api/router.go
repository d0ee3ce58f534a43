package api

import (
	"time"

	commandHandler "pantry-assistant/internal/api/handlers/command"
	"pantry-assistant/internal/api/handlers/health"
	"pantry-assistant/internal/api/middleware"
	"pantry-assistant/internal/infrastructure/config"
	"pantry-assistant/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies 路由需要的服務與共用中間件狀態
type Dependencies struct {
	Assistant   commandHandler.Assistant
	Ready       health.ReadyFunc
	Model       string
	RateLimiter *middleware.RateLimiter
	Dedup       *middleware.Deduplicator
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.MaxBodySize))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, deps.Model, deps.Ready)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// API 路由組
	api := router.Group("/api/v1")
	api.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(deps.RateLimiter))
	}
	api.Use(middleware.Deduplication(deps.Dedup))
	{
		h := commandHandler.NewHandler(deps.Assistant, cfg.App.Debug)

		commandGroup := api.Group("/command")
		{
			commandGroup.POST("", h.HandleCommand)
			commandGroup.POST("/validate", h.HandleValidate)
			commandGroup.GET("/suggestions", h.HandleSuggestions)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Bool("ai_enabled", deps.Model != ""),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.MaxBodySize),
	)

	return router
}
