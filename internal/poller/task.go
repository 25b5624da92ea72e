// Package poller runs fixed-interval refresh loops with explicit
// start/stop handles.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"launchpad/internal/observability"
)

// ErrAlreadyRunning is returned by Start on a running task.
var ErrAlreadyRunning = errors.New("task already running")

// Func is one polling cycle. Its ctx is cancelled by Stop.
type Func func(ctx context.Context) error

// Task runs Func immediately and then interval after each cycle finishes,
// so at most one cycle is in flight. Failures are logged and the task is
// re-armed.
type Task struct {
	name     string
	interval time.Duration
	fn       Func
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Task.
type Option func(*Task)

func WithLogger(logger *zap.Logger) Option {
	return func(t *Task) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(t *Task) { t.metrics = m }
}

func NewTask(name string, interval time.Duration, fn Func, opts ...Option) *Task {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Task) Name() string { return t.name }

// Start launches the loop. It returns once the loop goroutine is running.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go t.loop(runCtx, done)
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle to return.
// Stopping a stopped task is a no-op.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether Start has been called without a matching Stop.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done != nil
}

func (t *Task) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		t.runOnce(ctx)
		timer.Reset(t.interval)
	}
}

func (t *Task) runOnce(ctx context.Context) {
	start := time.Now()
	err := t.fn(ctx)
	if ctx.Err() != nil {
		// Stopped mid-cycle; the result is discarded.
		return
	}
	t.metrics.RecordPoll(t.name, time.Since(start), err)
	if err != nil {
		t.logger.Warn("poll cycle failed", zap.String("task", t.name), zap.Error(err))
	}
}
