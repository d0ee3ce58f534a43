package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/infrastructure/config"
	"pantry-assistant/internal/pkg/common"
)

// ResponseCache 語言模型回應快取；未命中回傳 common.ErrCacheMiss
type ResponseCache interface {
	Get(ctx context.Context, key string) (*provider.Response, error)
	Set(ctx context.Context, key string, resp *provider.Response) error
	// Sweep 清除過期項目，回傳清除數量
	Sweep(ctx context.Context) (int, error)
	Close() error
}

// Key 以用途與參數產生快取鍵
func Key(operation string, args ...string) string {
	h := sha256.New()
	h.Write([]byte(operation))
	for _, a := range args {
		h.Write([]byte{0})
		h.Write([]byte(a))
	}
	return fmt.Sprintf("%s:%s", operation, hex.EncodeToString(h.Sum(nil)))
}

// RequestKey 以請求內容產生快取鍵，空白差異不影響結果
func RequestKey(req *provider.Request) string {
	args := []string{strings.Join(strings.Fields(req.System), " ")}
	for _, m := range req.Messages {
		args = append(args, m.Role, strings.Join(strings.Fields(m.Content), " "))
	}
	return Key(req.Operation, args...)
}

// New 依設定建立快取；停用時回傳 nil
func New(ctx context.Context, cfg *config.Config) (ResponseCache, error) {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "", "memory":
		return NewManager(cfg.Cache), nil
	case "redis":
		c, err := NewRedisCache(ctx, cfg.Redis, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}
