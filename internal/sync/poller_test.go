package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPollerRunsImmediatelyAndOnTrigger(t *testing.T) {
	var runs atomic.Int32
	p := NewPoller("test", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, nil)

	p.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, p.Running())

	p.Trigger()
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)

	p.Stop()
	p.Wait()
	assert.False(t, p.Running())

	// Triggers on a stopped poller are ignored.
	p.Trigger()
	assert.Equal(t, int32(2), runs.Load())
}

func TestPollerTicks(t *testing.T) {
	var runs atomic.Int32
	p := NewPoller("test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}, nil)

	p.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	p.Stop()
	p.Wait()
}

func TestPollerStartIsIdempotent(t *testing.T) {
	var runs atomic.Int32
	p := NewPoller("test", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, nil)

	p.Start(context.Background())
	p.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	p.Stop()
	p.Wait()
}

func TestPollerStopFromRun(t *testing.T) {
	var p *Poller
	p = NewPoller("test", time.Hour, func(ctx context.Context) error {
		p.Stop()
		return ctx.Err()
	}, nil)

	p.Start(context.Background())
	p.Wait()
	assert.False(t, p.Running())
}

func TestPollerStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller("test", time.Hour, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil)

	p.Start(ctx)
	cancel()
	p.Wait()
}
