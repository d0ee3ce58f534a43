package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pantry-assistant/internal/core/ai/cache"
	"pantry-assistant/internal/core/ai/provider"
	"pantry-assistant/internal/core/ai/usage"
	"pantry-assistant/internal/infrastructure/config"
	"pantry-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	err    error
	tokens int
	closed bool
}

func (f *fakeProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{
		Content: "echo: " + req.UserMessage(),
		Model:   "fake-model",
		Usage:   provider.Usage{TotalTokens: f.tokens},
	}, nil
}

func (f *fakeProvider) GetModel() string          { return "fake-model" }
func (f *fakeProvider) GetTimeout() time.Duration { return time.Second }
func (f *fakeProvider) Close() error              { f.closed = true; return nil }

func request(text string) *provider.Request {
	return &provider.Request{
		Operation: "classify_intent",
		Messages:  []provider.Message{{Role: provider.RoleUser, Content: text}},
	}
}

// ==================== 基本呼叫 ====================

func TestService_Complete(t *testing.T) {
	p := &fakeProvider{tokens: 7}
	s := NewService(p)

	resp, err := s.Complete(context.Background(), request("add milk"))
	require.NoError(t, err)
	assert.Equal(t, "echo: add milk", resp.Content)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, 1, p.calls)
}

func TestService_Disabled(t *testing.T) {
	var s *Service
	assert.False(t, s.Enabled())
	assert.Empty(t, s.Model())
	assert.NoError(t, s.Close())

	_, err := NewService(nil).Complete(context.Background(), request("add milk"))
	assert.ErrorIs(t, err, common.ErrAIDisabled)
}

func TestService_RejectsEmptyRequest(t *testing.T) {
	s := NewService(&fakeProvider{})
	_, err := s.Complete(context.Background(), &provider.Request{Operation: "x"})
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeInvalidRequest, common.AsCustomError(err).Code)
}

func TestService_ProviderError(t *testing.T) {
	boom := errors.New("upstream exploded")
	s := NewService(&fakeProvider{err: boom})

	_, err := s.Complete(context.Background(), request("add milk"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "AI_SERVICE_ERROR", common.AsCustomError(err).Code)
}

func TestService_Timeout(t *testing.T) {
	s := NewService(&fakeProvider{err: context.DeadlineExceeded})

	_, err := s.Complete(context.Background(), request("add milk"))
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeGatewayTimeout, common.AsCustomError(err).Code)
}

// ==================== 快取 ====================

func TestService_CachesResponses(t *testing.T) {
	p := &fakeProvider{tokens: 3}
	s := NewService(p, WithCache(cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Hour})))
	ctx := context.Background()

	first, err := s.Complete(ctx, request("add milk"))
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.Complete(ctx, request("add  milk"))
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, p.calls)
}

func TestService_ErrorsAreNotCached(t *testing.T) {
	p := &fakeProvider{err: errors.New("flaky")}
	s := NewService(p, WithCache(cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Hour})))
	ctx := context.Background()

	_, err := s.Complete(ctx, request("add milk"))
	require.Error(t, err)

	p.err = nil
	resp, err := s.Complete(ctx, request("add milk"))
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, 2, p.calls)
}

// ==================== 用量 ====================

func TestService_UsageLimit(t *testing.T) {
	p := &fakeProvider{tokens: 1}
	tracker := usage.NewTracker(config.UsageConfig{Enabled: true, Requests: 2, Window: time.Hour})
	s := NewService(p, WithUsage(tracker))
	ctx := provider.WithUser(context.Background(), "alice")

	_, err := s.Complete(ctx, request("one"))
	require.NoError(t, err)
	_, err = s.Complete(ctx, request("two"))
	require.NoError(t, err)

	_, err = s.Complete(ctx, request("three"))
	require.Error(t, err)
	var rle *usage.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "alice", rle.UserID)
	assert.Equal(t, common.ErrCodeTooManyRequests, common.AsCustomError(err).Code)
	assert.Equal(t, 2, p.calls)

	// 其他使用者不受影響
	_, err = s.Complete(provider.WithUser(context.Background(), "bob"), request("one"))
	assert.NoError(t, err)
}

func TestService_CacheHitsDoNotCountAgainstUsage(t *testing.T) {
	p := &fakeProvider{tokens: 1}
	tracker := usage.NewTracker(config.UsageConfig{Enabled: true, Requests: 1, Window: time.Hour})
	s := NewService(p,
		WithCache(cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Hour})),
		WithUsage(tracker),
	)
	ctx := provider.WithUser(context.Background(), "alice")

	_, err := s.Complete(ctx, request("add milk"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		resp, err := s.Complete(ctx, request("add milk"))
		require.NoError(t, err)
		assert.True(t, resp.CacheHit)
	}
	assert.Equal(t, 1, p.calls)

	_, err = s.Complete(ctx, request("add eggs"))
	var rle *usage.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 1, p.calls)
}

func TestService_Close(t *testing.T) {
	p := &fakeProvider{}
	s := NewService(p, WithCache(cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 1, TTL: time.Minute})))
	require.NoError(t, s.Close())
	assert.True(t, p.closed)
}

// ==================== 提供者工廠 ====================

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), config.LLMConfig{})
	require.NoError(t, err)
	assert.Nil(t, p)

	for _, name := range []string{"openrouter", "openai", "claude"} {
		p, err := NewProvider(context.Background(), config.LLMConfig{Enabled: true, Provider: name, APIKey: "k", Model: "m-" + name})
		require.NoError(t, err, name)
		assert.Equal(t, "m-"+name, p.GetModel())
		require.NoError(t, p.Close())
	}

	_, err = NewProvider(context.Background(), config.LLMConfig{Enabled: true, Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
