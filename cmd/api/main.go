package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pantry-assistant/internal/api"
	"pantry-assistant/internal/api/middleware"
	"pantry-assistant/internal/core/ai/cache"
	"pantry-assistant/internal/core/ai/service"
	"pantry-assistant/internal/core/ai/usage"
	"pantry-assistant/internal/core/assistant"
	"pantry-assistant/internal/core/command"
	"pantry-assistant/internal/core/pantry"
	"pantry-assistant/internal/core/recipe"
	"pantry-assistant/internal/infrastructure/config"
	"pantry-assistant/internal/infrastructure/scheduler"
	"pantry-assistant/internal/infrastructure/storage"
	"pantry-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含選用的 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("llm_enabled", cfg.LLM.Enabled),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("command_use_ai", cfg.Command.UseAI),
	)

	ctx := context.Background()

	// 儲存層
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		common.LogFatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	sched := scheduler.New(cfg.Scheduler.SweepSpec)

	// 語言模型、快取與用量
	extractorOpts := []command.ExtractorOption{command.WithAITimeout(cfg.Command.AITimeout)}
	processorOpts := []command.ProcessorOption{command.WithThreshold(cfg.Command.ConfidenceThreshold)}
	dispatcherOpts := []pantry.DispatcherOption{
		pantry.WithDefaultLocation(cfg.Command.DefaultLocation),
		pantry.WithExpiringSoonDays(cfg.Command.ExpiringSoonDays),
		pantry.WithMaxRecipes(cfg.Command.MaxRecipeResults),
	}
	var assistantOpts []assistant.Option
	var model string

	llmProvider, err := service.NewProvider(ctx, cfg.LLM)
	if err != nil {
		common.LogFatal("Failed to initialize LLM provider", zap.Error(err))
	}
	if llmProvider != nil {
		responseCache, err := cache.New(ctx, cfg)
		if err != nil {
			common.LogFatal("Failed to initialize cache", zap.Error(err))
		}

		svcOpts := []service.Option{}
		if responseCache != nil {
			svcOpts = append(svcOpts, service.WithCache(responseCache))
			sched.Register("ai_cache", responseCache.Sweep)
		}
		if cfg.Usage.Enabled {
			tracker := usage.NewTracker(cfg.Usage)
			svcOpts = append(svcOpts, service.WithUsage(tracker))
			sched.Register("usage", func(context.Context) (int, error) { return tracker.Sweep(), nil })
		}

		aiService := service.NewService(llmProvider, svcOpts...)
		defer aiService.Close()
		model = aiService.Model()

		suggestions := recipe.NewSuggestionService(aiService, cfg.Command.AITimeout)
		dispatcherOpts = append(dispatcherOpts, pantry.WithRecipeIdeas(suggestions))
		assistantOpts = append(assistantOpts, assistant.WithSuggester(suggestions))

		if cfg.Command.UseAI {
			extractorOpts = append(extractorOpts, command.WithCompleter(aiService))
			processorOpts = append(processorOpts, command.WithClassifier(command.NewClassifier(aiService, cfg.Command.AITimeout)))
			assistantOpts = append(assistantOpts, assistant.WithAI(true))
		}
	}

	processor := command.NewProcessor(command.NewExtractor(extractorOpts...), processorOpts...)
	dispatcher := pantry.NewDispatcher(store, dispatcherOpts...)
	assistantSvc := assistant.NewService(processor, dispatcher, store, assistantOpts...)

	// 共用中間件狀態，由排程器清理
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		sched.Register("rate_limit", limiter.Sweep)
	}
	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	sched.Register("dedup", dedup.Sweep)

	if cfg.Scheduler.Enabled {
		if err := sched.Start(); err != nil {
			common.LogFatal("Failed to start scheduler", zap.Error(err))
		}
	}

	router := api.SetupRouter(cfg, api.Dependencies{
		Assistant:   assistantSvc,
		Ready:       assistantSvc.Ready,
		Model:       model,
		RateLimiter: limiter,
		Dedup:       dedup,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Stop(shutdownCtx); err != nil {
			common.LogWarn("Scheduler did not stop cleanly", zap.Error(err))
		}
	}

	common.LogInfo("Server exited")
}
