package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"trade_go/internal/domain"
)

// TaskRegistry tracks the long-running trading programs. Each program runs
// at most once concurrently; stopping cancels its context and the program
// unwinds its own orders before exiting.
type TaskRegistry struct {
	notifier domain.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewTaskRegistry(notifier domain.Notifier, logger *slog.Logger) *TaskRegistry {
	return &TaskRegistry{
		notifier: notifier,
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Run starts fn under the given name. A second Run with the same name
// while the first is alive is refused.
func (r *TaskRegistry) Run(ctx context.Context, name string, fn func(ctx context.Context) (string, error)) error {
	r.mu.Lock()
	if _, running := r.cancels[name]; running {
		r.mu.Unlock()
		return fmt.Errorf("%s is already running", name)
	}
	taskCtx, cancel := context.WithCancel(ctx)
	r.cancels[name] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.cancels, name)
			r.mu.Unlock()
		}()

		r.logger.Info("task started", "task", name)
		report, err := fn(taskCtx)
		if err != nil {
			r.logger.Error("task failed", "task", name, "error", err)
			r.notifier.Notify(fmt.Sprintf("%s failed: %v", name, err))
			return
		}
		r.logger.Info("task finished", "task", name)
		if report != "" {
			r.notifier.Notify(report)
		}
	}()
	return nil
}

// Running lists the names of live tasks, sorted for stable output.
func (r *TaskRegistry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.cancels))
	for name := range r.cancels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StopAll cancels every live task and waits for them to unwind.
func (r *TaskRegistry) StopAll() int {
	r.mu.Lock()
	stopped := len(r.cancels)
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
	return stopped
}
