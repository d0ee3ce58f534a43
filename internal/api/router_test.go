package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pantry-assistant/internal/api/middleware"
	"pantry-assistant/internal/core/assistant"
	"pantry-assistant/internal/core/command"
	"pantry-assistant/internal/core/pantry"
	"pantry-assistant/internal/infrastructure/config"
	"pantry-assistant/internal/infrastructure/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 13, 15, 4, 5, 0, time.UTC)

func clock() time.Time { return fixedNow }

func testConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Version: "test", Debug: true},
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		RateLimit:   config.RateLimitConfig{Enabled: true, Requests: 100, Window: time.Minute},
		Metrics:     config.MetricsConfig{Enabled: true, Path: "/metrics"},
		MaxBodySize: 1 << 20,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, ready func(context.Context) error) (*gin.Engine, *storage.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	store.SetClock(clock)
	svc := assistant.NewService(
		command.NewProcessor(command.NewExtractor(command.WithClock(clock))),
		pantry.NewDispatcher(store, pantry.WithNow(clock)),
		store,
	)
	if ready == nil {
		ready = svc.Ready
	}

	router := SetupRouter(cfg, Dependencies{
		Assistant:   svc,
		Ready:       ready,
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
	})
	return router, store
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

// ==================== 指令 ====================

func TestCommand_AddItem(t *testing.T) {
	r, store := newTestRouter(t, testConfig(), nil)

	w := post(r, "/api/v1/command", `{"command": "add 2 lbs of chicken to the fridge", "userId": "u1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Added 2 lb chicken to Fridge.", body["message"])
	assert.Equal(t, "ADD_ITEM", body["intent"])
	assert.InDelta(t, 0.85, body["confidence"], 1e-9)

	count, err := store.CountItems(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCommand_Unknown(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(), nil)

	w := post(r, "/api/v1/command", `{"command": "xyzzy plugh", "userId": "u1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "UNKNOWN", body["intent"])
	assert.NotEmpty(t, body["suggestedActions"])
}

func TestCommand_BadRequest(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(), nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing user", `{"command": "add milk"}`},
		{"missing command", `{"userId": "u1"}`},
		{"blank command", `{"command": "   ", "userId": "u1"}`},
		{"not json", `add milk`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(r, "/api/v1/command", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
		})
	}
}

func TestCommand_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Requests = 1
	r, _ := newTestRouter(t, cfg, nil)

	require.Equal(t, http.StatusOK, post(r, "/api/v1/command", `{"command": "add milk", "userId": "u1"}`).Code)

	w := post(r, "/api/v1/command", `{"command": "add eggs", "userId": "u1"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestValidate(t *testing.T) {
	r, store := newTestRouter(t, testConfig(), nil)

	w := post(r, "/api/v1/command/validate", `{"command": "add 2 lbs of chicken to the fridge"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body assistant.Validation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Valid)
	assert.Equal(t, command.IntentAddItem, body.Intent)
	assert.NotEmpty(t, body.Entities)

	count, err := store.CountItems(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSuggestions(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(), nil)

	w := get(r, "/api/v1/command/suggestions?userId=u1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, pantry.ExampleCommands, body.Suggestions)
}

// ==================== 健康檢查 ====================

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(), nil)

	assert.Equal(t, http.StatusOK, get(r, "/health").Code)
	assert.Equal(t, http.StatusOK, get(r, "/live").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ready").Code)

	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pantry_http_requests_total")
}

func TestReady_StoreDown(t *testing.T) {
	r, _ := newTestRouter(t, testConfig(), func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	w := get(r, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
