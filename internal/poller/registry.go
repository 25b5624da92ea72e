package poller

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Registry keeps one task per resource key, e.g. one trade tracker per pool.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
	opts  []Option
}

func NewRegistry(opts ...Option) *Registry {
	return &Registry{tasks: make(map[string]*Task), opts: opts}
}

// Ensure starts a task for key unless one is already running. It reports
// whether a new task was started.
func (r *Registry) Ensure(ctx context.Context, key string, interval time.Duration, fn Func) (*Task, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task, ok := r.tasks[key]; ok && task.Running() {
		return task, false, nil
	}
	task := NewTask(key, interval, fn, r.opts...)
	if err := task.Start(ctx); err != nil {
		return nil, false, err
	}
	r.tasks[key] = task
	return task, true, nil
}

// Stop stops and forgets the task for key.
func (r *Registry) Stop(key string) {
	r.mu.Lock()
	task, ok := r.tasks[key]
	delete(r.tasks, key)
	r.mu.Unlock()

	if ok {
		task.Stop()
	}
}

// StopAll stops every task and waits for all of them.
func (r *Registry) StopAll() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = make(map[string]*Task)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(t *Task) {
			defer wg.Done()
			t.Stop()
		}(task)
	}
	wg.Wait()
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.tasks))
	for k := range r.tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
