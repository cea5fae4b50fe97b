package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsTasks(t *testing.T) {
	p := New(&Config{Concurrency: 2})
	var n atomic.Int32
	for i := 0; i < 10; i++ {
		if !p.Go("count", func(ctx context.Context) error {
			n.Add(1)
			return nil
		}) {
			t.Fatal("expected task to be accepted")
		}
	}
	p.Wait()
	if n.Load() != 10 {
		t.Errorf("expected 10 runs, got %d", n.Load())
	}
	if done, failed := p.Stats(); done != 10 || failed != 0 {
		t.Errorf("Stats = %d, %d", done, failed)
	}
	p.Close()
}

func TestPoolLimitsConcurrency(t *testing.T) {
	p := New(&Config{Concurrency: 2})
	defer p.Close()

	var running, peak atomic.Int32
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		p.Go("slow", func(ctx context.Context) error {
			cur := running.Add(1)
			mu.Lock()
			if cur > peak.Load() {
				peak.Store(cur)
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}
	p.Wait()
	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
}

func TestPoolReportsErrorsAndPanics(t *testing.T) {
	var mu sync.Mutex
	failures := map[string]error{}
	p := New(&Config{
		Concurrency: 1,
		OnError: func(name string, err error) {
			mu.Lock()
			failures[name] = err
			mu.Unlock()
		},
	})
	defer p.Close()

	boom := errors.New("boom")
	p.Go("fails", func(ctx context.Context) error { return boom })
	p.Go("panics", func(ctx context.Context) error { panic("bad") })
	p.Wait()

	if !errors.Is(failures["fails"], boom) {
		t.Errorf("expected boom, got %v", failures["fails"])
	}
	if failures["panics"] == nil {
		t.Error("expected panic to be reported as an error")
	}
	if _, failed := p.Stats(); failed != 2 {
		t.Errorf("expected 2 failures, got %d", failed)
	}
}

func TestPoolTaskDeadline(t *testing.T) {
	p := New(&Config{Timeout: 20 * time.Millisecond})
	defer p.Close()

	var got error
	p.Go("waits", func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return nil
	})
	p.Wait()
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", got)
	}
}

func TestPoolCloseWaitsAndRejects(t *testing.T) {
	p := New(nil)
	var finished atomic.Bool
	p.Go("slow", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	p.Close()
	if !finished.Load() {
		t.Error("Close returned before scheduled task finished")
	}
	if p.Go("late", func(ctx context.Context) error { return nil }) {
		t.Error("expected closed pool to reject tasks")
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestPoolShutdownCancelsOnDeadline(t *testing.T) {
	p := New(&Config{Timeout: time.Hour})
	p.Go("blocked", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
