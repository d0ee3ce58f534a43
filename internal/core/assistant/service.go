package assistant

import (
	"context"
	"strings"
	"time"

	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/core/command"
	"pantry-assistant/internal/core/pantry"
	"pantry-assistant/internal/pkg/common"
	"pantry-assistant/internal/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("pantry-assistant/assistant")

// 結果類別，用於指標標籤
const (
	outcomeSuccess       = "success"
	outcomeFailure       = "failure"
	outcomeClarification = "clarification"
)

// Outcome 一次指令執行的結果
type Outcome struct {
	pantry.ActionResult
	Intent     command.Intent `json:"intent"`
	Confidence float64        `json:"confidence"`
}

// Validation 只解析不執行的檢查結果
type Validation struct {
	Valid      bool                      `json:"valid"`
	Issues     []string                  `json:"issues"`
	Intent     command.Intent            `json:"intent"`
	Confidence float64                   `json:"confidence"`
	Entities   []command.ExtractedEntity `json:"entities"`
}

// CommandSuggester 依庫存產生指令建議
type CommandSuggester interface {
	CommandSuggestions(ctx context.Context, items []string) ([]string, error)
}

// Service 指令管線：解析、確認門檻、分派
type Service struct {
	processor  *command.Processor
	dispatcher *pantry.Dispatcher
	store      pantry.Store
	suggester  CommandSuggester
	useAI      bool
}

// Option 服務選項
type Option func(*Service)

// WithAI 啟用 AI 分類與抽取
func WithAI(enabled bool) Option {
	return func(s *Service) { s.useAI = enabled }
}

// WithSuggester 設定指令建議來源
func WithSuggester(suggester CommandSuggester) Option {
	return func(s *Service) { s.suggester = suggester }
}

// NewService 創建指令管線服務
func NewService(processor *command.Processor, dispatcher *pantry.Dispatcher, store pantry.Store, opts ...Option) *Service {
	s := &Service{
		processor:  processor,
		dispatcher: dispatcher,
		store:      store,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute 解析並執行一則指令；信心不足時回傳確認問題，不動到資料
func (s *Service) Execute(ctx context.Context, text, userID string) Outcome {
	start := time.Now()
	ctx = provider.WithUser(ctx, userID)
	ctx, span := tracer.Start(ctx, "assistant.execute", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	cmd := s.process(ctx, text)
	span.SetAttributes(
		attribute.String("command.intent", string(cmd.Intent)),
		attribute.Float64("command.confidence", cmd.Confidence),
		attribute.Int("command.entities", len(cmd.Entities)),
	)

	outcome := Outcome{Intent: cmd.Intent, Confidence: cmd.Confidence}
	label := outcomeSuccess

	if cmd.NeedsClarification() {
		label = outcomeClarification
		outcome.ActionResult = pantry.ActionResult{
			Success: false,
			Message: cmd.SuggestedAction,
		}
		if cmd.Intent == command.IntentUnknown {
			outcome.SuggestedActions = append([]string(nil), pantry.ExampleCommands...)
		}
		common.LogInfo("指令需要確認",
			zap.String("user_id", userID),
			zap.String("intent", string(cmd.Intent)),
			zap.Float64("confidence", cmd.Confidence),
		)
	} else {
		outcome.ActionResult = s.dispatcher.HandleCommand(ctx, cmd, userID)
		if !outcome.Success {
			label = outcomeFailure
			span.SetStatus(codes.Error, outcome.Message)
		}
	}

	duration := time.Since(start)
	metrics.CommandsTotal.WithLabelValues(string(cmd.Intent), label).Inc()
	metrics.CommandDuration.WithLabelValues(string(cmd.Intent)).Observe(duration.Seconds())
	metrics.CommandConfidence.Observe(cmd.Confidence)

	common.LogInfo("指令處理完成",
		zap.String("user_id", userID),
		zap.String("intent", string(cmd.Intent)),
		zap.String("outcome", label),
		zap.Float64("confidence", cmd.Confidence),
		zap.Duration("耗時", duration),
	)
	return outcome
}

// Validate 只做規則路徑解析並回報問題
func (s *Service) Validate(ctx context.Context, text string) Validation {
	_, span := tracer.Start(ctx, "assistant.validate")
	defer span.End()

	cmd := s.processor.Process(text)
	report := command.ValidateExtraction(cmd.Extraction)

	issues := append([]string{}, report.Issues...)
	if cmd.Intent == command.IntentUnknown {
		issues = append(issues, "Could not determine what you want to do")
	}
	if cmd.NeedsClarification() {
		issues = append(issues, cmd.SuggestedAction)
	}

	entities := cmd.Entities
	if entities == nil {
		entities = []command.ExtractedEntity{}
	}
	return Validation{
		Valid:      len(issues) == 0,
		Issues:     issues,
		Intent:     cmd.Intent,
		Confidence: cmd.Confidence,
		Entities:   entities,
	}
}

// Suggestions 有模型時依庫存產生建議，否則回傳固定範例
func (s *Service) Suggestions(ctx context.Context, userID string) []string {
	fallback := append([]string(nil), pantry.ExampleCommands...)
	if s.suggester == nil || userID == "" {
		return fallback
	}

	ctx = provider.WithUser(ctx, userID)
	var names []string
	if s.store != nil {
		items, err := s.store.ListItems(ctx, userID)
		if err != nil {
			common.LogWarn("讀取庫存失敗，使用預設建議", zap.String("user_id", userID), zap.Error(err))
			return fallback
		}
		for _, item := range items {
			names = append(names, item.Name)
		}
	}

	suggestions, err := s.suggester.CommandSuggestions(ctx, names)
	if err != nil {
		common.LogWarn("產生指令建議失敗，使用預設建議", zap.String("user_id", userID), zap.Error(err))
		return fallback
	}
	return suggestions
}

// Ready 檢查儲存層是否可用
func (s *Service) Ready(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}

func (s *Service) process(ctx context.Context, text string) command.ProcessedCommand {
	text = strings.TrimSpace(text)
	if s.useAI {
		return s.processor.ProcessWithAI(ctx, text)
	}
	return s.processor.Process(text)
}
