package application

import (
	"context"
	"log/slog"
	"sync"
)

// TaskError is a failure reported by a background task.
type TaskError struct {
	Name string
	Err  error
}

// TaskRunner runs fire-and-forget background work decoupled from the
// request that scheduled it. All tasks share one cancellable context so they
// can be stopped together before the process is replaced.
type TaskRunner struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	errs   chan TaskError

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewTaskRunner creates a TaskRunner whose tasks are cancelled by Shutdown.
func NewTaskRunner(logger *slog.Logger) *TaskRunner {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskRunner{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		errs:   make(chan TaskError, 64),
	}
}

// Go schedules fn in its own goroutine. It returns false without running fn
// once Shutdown has been called.
func (r *TaskRunner) Go(name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("task rejected, runner is shut down", "task", name)
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		if err := fn(r.ctx); err != nil {
			r.report(TaskError{Name: name, Err: err})
		}
	}()
	return true
}

// Errors returns the channel task failures are published on. Failures are
// dropped, after being logged, when nobody keeps up with the channel.
func (r *TaskRunner) Errors() <-chan TaskError {
	return r.errs
}

// Shutdown stops accepting tasks, cancels the running ones and waits for them
// to return. It gives up and returns ctx.Err() when ctx expires first.
func (r *TaskRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *TaskRunner) report(te TaskError) {
	r.logger.Error("background task failed", "task", te.Name, "error", te.Err)
	select {
	case r.errs <- te:
	default:
	}
}
