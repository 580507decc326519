package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// runner owns the lifecycle of a periodic background loop.
type runner struct {
	name string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// start runs tick immediately and then every interval until stop is
// called or ctx is done. It returns an error if already running.
func (r *runner) start(ctx context.Context, interval time.Duration, tick func(context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("%s: interval must be positive", r.name)
	}
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("%s is already running", r.name)
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go func() {
		defer close(doneCh)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		tick(ctx)
		for {
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick(ctx)
			}
		}
	}()

	slog.InfoContext(ctx, "Background processor started",
		"processor", r.name,
		"interval", interval)
	return nil
}

// stop signals the loop and waits for the current tick to finish.
func (r *runner) stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}
	doneCh := r.doneCh
	r.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Background processor stopped gracefully", "processor", r.name)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Background processor stop timed out", "processor", r.name)
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *runner) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
