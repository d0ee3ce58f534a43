package command

import (
	"context"
	"net/http"
	"strings"

	"pantry-assistant/internal/core/assistant"
	"pantry-assistant/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Assistant 指令管線
type Assistant interface {
	Execute(ctx context.Context, text, userID string) assistant.Outcome
	Validate(ctx context.Context, text string) assistant.Validation
	Suggestions(ctx context.Context, userID string) []string
}

// CommandRequest 自然語言指令
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
	UserID  string `json:"userId" binding:"required"`
}

func (r CommandRequest) validate() error {
	if strings.TrimSpace(r.Command) == "" || strings.TrimSpace(r.UserID) == "" {
		return common.NewValidationError("command and userId must not be blank")
	}
	return nil
}

// ValidateRequest 只檢查不執行
type ValidateRequest struct {
	Command string `json:"command" binding:"required"`
}

// SuggestionsResponse 建議指令
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// Handler 指令處理程序
type Handler struct {
	assistant Assistant
	debug     bool
}

// NewHandler 創建指令處理程序
func NewHandler(a Assistant, debug bool) *Handler {
	return &Handler{assistant: a, debug: debug}
}

// HandleCommand 執行指令；無法理解或執行失敗都以 200 回傳 success:false
func (h *Handler) HandleCommand(c *gin.Context) {
	var req CommandRequest
	if !h.bind(c, &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.badRequest(c, err)
		return
	}

	common.LogInfo("開始處理指令",
		zap.String("request_id", requestid.Get(c)),
		zap.String("user_id", req.UserID),
	)

	outcome := h.assistant.Execute(c.Request.Context(), req.Command, req.UserID)
	c.JSON(http.StatusOK, outcome)
}

// HandleValidate 解析指令並回報問題，不修改資料
func (h *Handler) HandleValidate(c *gin.Context) {
	var req ValidateRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.assistant.Validate(c.Request.Context(), req.Command))
}

// HandleSuggestions 回傳建議指令
func (h *Handler) HandleSuggestions(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	c.JSON(http.StatusOK, SuggestionsResponse{
		Suggestions: h.assistant.Suggestions(c.Request.Context(), userID),
	})
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
		h.badRequest(c, err)
		return false
	}
	return true
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	if common.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, common.NewError(common.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest, nil).Response(h.debug))
		return
	}
	c.JSON(http.StatusBadRequest, common.ErrInvalidRequest.Wrap(err).Response(h.debug))
}
