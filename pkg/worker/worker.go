package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of background work.
type Task func(ctx context.Context) error

// ErrorHandler is called when a task fails or panics.
type ErrorHandler func(name string, err error)

// Pool runs fire-and-forget tasks with bounded concurrency.
// Tasks run under a context owned by the pool, not the caller, so they outlive the request
// that scheduled them. Failures are logged and never reach the caller.
type Pool struct {
	limiter chan struct{}
	timeout time.Duration
	onError ErrorHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool

	processed atomic.Int64
	failed    atomic.Int64
}

// Config holds pool construction options.
type Config struct {
	Concurrency int           // Max tasks running at once (default: 8)
	Timeout     time.Duration // Per-task deadline (default: 1m)
	OnError     ErrorHandler  // Called on task error (optional)
	Logger      *slog.Logger  // Logger (optional)
}

// New creates a new Pool.
func New(cfg *Config) *Pool {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		limiter: make(chan struct{}, cfg.Concurrency),
		timeout: cfg.Timeout,
		onError: cfg.OnError,
		logger:  cfg.Logger.With("component", "worker"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Go schedules task without blocking the caller.
// It returns false if the pool is closed, in which case the task does not run.
func (p *Pool) Go(name string, task Task) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("task rejected, pool closed", "task", name)
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		select {
		case p.limiter <- struct{}{}:
		case <-p.ctx.Done():
			p.logger.Warn("task dropped, pool canceled", "task", name)
			return
		}
		defer func() { <-p.limiter }()

		p.run(name, task)
	}()
	return true
}

func (p *Pool) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return task(ctx)
	}()

	if err != nil {
		p.failed.Add(1)
		p.logger.Error("task failed", "task", name, "duration", time.Since(start), "error", err)
		if p.onError != nil {
			p.onError(name, err)
		}
		return
	}
	p.processed.Add(1)
	p.logger.Debug("task done", "task", name, "duration", time.Since(start))
}

// Wait blocks until every scheduled task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Stats returns the number of completed and failed tasks.
func (p *Pool) Stats() (processed, failed int64) {
	return p.processed.Load(), p.failed.Load()
}

// Close stops accepting tasks and waits for scheduled ones to finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	return nil
}

// Shutdown is Close bounded by ctx; when ctx ends first, running tasks are canceled.
func (p *Pool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
