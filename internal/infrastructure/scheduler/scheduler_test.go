package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnce(t *testing.T) {
	s := New("")
	s.Register("cache", func(ctx context.Context) (int, error) { return 3, nil })
	s.Register("broken", func(ctx context.Context) (int, error) { return 0, errors.New("redis down") })
	s.Register("usage", func(ctx context.Context) (int, error) { return 0, nil })
	s.Register("ignored", nil)

	removed := s.RunOnce(context.Background())
	assert.Equal(t, map[string]int{"cache": 3, "usage": 0}, removed)
}

func TestStart_InvalidSpec(t *testing.T) {
	s := New("not a cron spec")
	assert.Error(t, s.Start())
}

func TestStart_RunsOnSchedule(t *testing.T) {
	s := New("@every 1s")
	var runs atomic.Int32
	s.Register("counter", func(ctx context.Context) (int, error) {
		runs.Add(1)
		return 1, nil
	})

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
