package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/observability"
)

func TestTaskRunsImmediatelyAndRearmsAfterFailure(t *testing.T) {
	var calls atomic.Int32
	task := NewTask("t", 5*time.Millisecond, func(context.Context) error {
		if calls.Add(1)%2 == 0 {
			return errors.New("flaky")
		}
		return nil
	}, WithMetrics(observability.NewMetrics("poller_test")))

	require.NoError(t, task.Start(context.Background()))
	assert.ErrorIs(t, task.Start(context.Background()), ErrAlreadyRunning)

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, time.Second, time.Millisecond)
	task.Stop()
	assert.False(t, task.Running())

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no cycles after Stop")

	task.Stop()
}

func TestTaskSingleFlight(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	var cycles atomic.Int32
	task := NewTask("slow", time.Millisecond, func(ctx context.Context) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		select {
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
		}
		cycles.Add(1)
		return nil
	})

	require.NoError(t, task.Start(context.Background()))
	require.Eventually(t, func() bool { return cycles.Load() >= 3 }, time.Second, time.Millisecond)
	task.Stop()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, int32(0), inFlight.Load())
}

func TestStopCancelsInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	var sawCancel atomic.Bool
	task := NewTask("blocking", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	})

	require.NoError(t, task.Start(context.Background()))
	<-started
	task.Stop()
	assert.True(t, sawCancel.Load())
}

func TestRegistryOneTaskPerKey(t *testing.T) {
	reg := NewRegistry()
	var mu sync.Mutex
	counts := map[string]int{}
	fn := func(key string) Func {
		return func(context.Context) error {
			mu.Lock()
			counts[key]++
			mu.Unlock()
			return nil
		}
	}

	first, created, err := reg.Ensure(context.Background(), "pool-a", time.Hour, fn("pool-a"))
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := reg.Ensure(context.Background(), "pool-a", time.Hour, fn("pool-a"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, first, again)

	_, _, err = reg.Ensure(context.Background(), "pool-b", time.Hour, fn("pool-b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"pool-a", "pool-b"}, reg.Keys())

	reg.Stop("pool-b")
	assert.Equal(t, []string{"pool-a"}, reg.Keys())

	reg.StopAll()
	assert.Empty(t, reg.Keys())
	assert.False(t, first.Running())
}

func TestLatestRejectsSupersededResults(t *testing.T) {
	var slot Latest[string]
	_, ok := slot.Get()
	assert.False(t, ok)

	first := slot.Begin()
	second := slot.Begin()

	assert.True(t, slot.Commit(second, "fresh"))
	assert.False(t, slot.Commit(first, "stale"))

	v, ok := slot.Get()
	assert.True(t, ok)
	assert.Equal(t, "fresh", v)

	third := slot.Begin()
	slot.Invalidate()
	assert.False(t, slot.Commit(third, "cancelled"))
	v, _ = slot.Get()
	assert.Equal(t, "fresh", v)
}
