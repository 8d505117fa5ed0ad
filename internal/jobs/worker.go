// Package jobs runs the background work of the API process.
package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Worker runs Handler in its own goroutine. A panic stops the worker and
// is reported through OnPanic instead of taking the process down.
type Worker struct {
	Name    string
	Handler func(ctx context.Context) error
	OnPanic func(reason any)
	Log     *log.Logger

	alive  atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (w *Worker) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.alive.Store(true)
	logger := w.Log.With("worker", w.Name)

	go func() {
		defer close(w.done)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic", "reason", r)
				w.alive.Store(false)
				if w.OnPanic != nil {
					w.OnPanic(r)
				}
			}
		}()

		logger.Info("starting")
		if err := w.Handler(ctx); err != nil && ctx.Err() == nil {
			logger.Error("stopped", "error", err)
		}
		w.alive.Store(false)
	}()
}

// Stop cancels the worker and waits for it to return.
func (w *Worker) Stop() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.done
		}
	})
}

func (w *Worker) IsAlive() bool {
	return w.alive.Load()
}

// Every runs fn immediately and then on every tick of interval until ctx
// is done. Errors from fn are logged and do not stop the loop.
func Every(interval time.Duration, logger *log.Logger, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				logger.Error("job run failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}
