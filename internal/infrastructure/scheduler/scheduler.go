package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pantry-assistant/internal/pkg/common"
	"pantry-assistant/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultSweepSpec = "@every 10m"

// SweepFunc 清理一個目標，回傳清除數量
type SweepFunc func(ctx context.Context) (int, error)

type target struct {
	name  string
	sweep SweepFunc
}

// Scheduler 以 cron 週期性清理快取與用量計數
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	mu      sync.Mutex
	targets []target
	entryID cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// New 創建排程器；spec 為空時每十分鐘執行
func New(spec string) *Scheduler {
	if spec == "" {
		spec = defaultSweepSpec
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register 加入清理目標；nil 會被忽略
func (s *Scheduler) Register(name string, sweep SweepFunc) {
	if sweep == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, target{name: name, sweep: sweep})
}

// Start 註冊 cron 工作並啟動
func (s *Scheduler) Start() error {
	entryID, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(s.ctx) })
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.spec, err)
	}
	s.entryID = entryID
	s.cron.Start()

	s.mu.Lock()
	count := len(s.targets)
	s.mu.Unlock()
	common.LogInfo("清理排程已啟動", zap.String("spec", s.spec), zap.Int("targets", count))
	return nil
}

// RunOnce 依序清理所有目標，單一目標失敗不影響其他
func (s *Scheduler) RunOnce(ctx context.Context) map[string]int {
	s.mu.Lock()
	targets := append([]target(nil), s.targets...)
	s.mu.Unlock()

	removed := make(map[string]int, len(targets))
	for _, t := range targets {
		start := time.Now()
		n, err := t.sweep(ctx)
		if err != nil {
			common.LogWarn("清理失敗", zap.String("target", t.name), zap.Error(err))
			continue
		}
		removed[t.name] = n
		metrics.SweepsTotal.WithLabelValues(t.name).Add(float64(n))
		if n > 0 {
			common.LogDebug("清理完成",
				zap.String("target", t.name),
				zap.Int("removed", n),
				zap.Duration("耗時", time.Since(start)),
			)
		}
	}
	return removed
}

// Stop 停止排程並等待執行中的工作結束
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		common.LogInfo("清理排程已停止")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
