package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pantry-assistant/internal/core/ai/cache"
	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/core/ai/usage"
	"pantry-assistant/internal/pkg/common"
	"pantry-assistant/internal/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("pantry-assistant/ai")

// Service 語言模型呼叫的統一入口：用量檢查、快取、實際呼叫
type Service struct {
	provider provider.Provider
	cache    cache.ResponseCache
	usage    usage.UsageTracker
}

// Option 服務選項
type Option func(*Service)

// WithCache 設定回應快取
func WithCache(c cache.ResponseCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithUsage 設定用量追蹤
func WithUsage(u usage.UsageTracker) Option {
	return func(s *Service) {
		s.usage = u
	}
}

// NewService 創建 AI 服務
func NewService(p provider.Provider, opts ...Option) *Service {
	s := &Service{provider: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled 是否有可用的提供者
func (s *Service) Enabled() bool {
	return s != nil && s.provider != nil
}

// Model 目前使用的模型
func (s *Service) Model() string {
	if !s.Enabled() {
		return ""
	}
	return s.provider.GetModel()
}

// Complete 執行一次語言模型呼叫
func (s *Service) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if !s.Enabled() {
		return nil, common.ErrAIDisabled
	}
	if req == nil || len(req.Messages) == 0 {
		return nil, common.ErrInvalidRequest.Wrap(errors.New("request has no messages"))
	}

	ctx, span := tracer.Start(ctx, "ai.complete", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.operation", req.Operation),
		attribute.String("ai.model", s.provider.GetModel()),
	)

	key := cache.RequestKey(req)
	if s.cache != nil {
		resp, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			common.LogCacheHit(req.Operation)
			span.SetAttributes(attribute.Bool("ai.cache_hit", true))
			return resp, nil
		case errors.Is(err, common.ErrCacheMiss):
			metrics.CacheLookups.WithLabelValues("miss").Inc()
			common.LogCacheMiss(req.Operation)
		default:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			common.LogWarn("讀取快取失敗", zap.String("operation", req.Operation), zap.Error(err))
		}
	}

	// 只有真正送到提供者的呼叫才計入用量
	userID := provider.UserFromContext(ctx)
	if s.usage != nil {
		if err := s.usage.Allow(userID); err != nil {
			metrics.DelegatedCallsTotal.WithLabelValues(req.Operation, "rate_limited").Inc()
			span.SetStatus(codes.Error, "usage limit exceeded")
			common.LogWarn("AI 用量已達上限", zap.String("user_id", userID), zap.Error(err))
			return nil, common.ErrTooManyRequests.Wrap(err)
		}
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, req)
	duration := time.Since(start)
	common.LogDelegatedCall(req.Operation, s.provider.GetModel(), duration, err)
	metrics.DelegatedCallDuration.WithLabelValues(req.Operation).Observe(duration.Seconds())

	if err != nil {
		metrics.DelegatedCallsTotal.WithLabelValues(req.Operation, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, common.ErrGatewayTimeout.Wrap(err)
		}
		return nil, common.ErrAIServiceError.Wrap(fmt.Errorf("%s: %w", req.Operation, err))
	}

	metrics.DelegatedCallsTotal.WithLabelValues(req.Operation, "success").Inc()
	metrics.TokensUsed.WithLabelValues(req.Operation).Add(float64(resp.Usage.TotalTokens))
	span.SetAttributes(attribute.Int("ai.total_tokens", resp.Usage.TotalTokens))

	if s.usage != nil {
		s.usage.Record(userID, resp.Usage.TotalTokens)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			common.LogWarn("寫入快取失敗", zap.String("operation", req.Operation), zap.Error(err))
		}
	}
	return resp, nil
}

// Close 關閉提供者與快取
func (s *Service) Close() error {
	if !s.Enabled() {
		return nil
	}
	var errs []error
	if err := s.provider.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
