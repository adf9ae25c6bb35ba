package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// RunnerDeps wires the stages executed by one pipeline pass.
type RunnerDeps struct {
	Pipeline    *Pipeline
	Dispatcher  *Dispatcher
	FetchLimit  int
	PassTimeout time.Duration
	Logger      *slog.Logger
}

// Runner executes single-flight pipeline passes. A trigger arriving while
// a pass is still running is dropped, and every pass is bounded by a
// watchdog timeout so the lock always returns to idle.
type Runner struct {
	pipeline    *Pipeline
	dispatcher  *Dispatcher
	fetchLimit  int
	passTimeout time.Duration
	logger      *slog.Logger
	running     atomic.Bool
}

// NewRunner constructs the pass runner.
func NewRunner(deps RunnerDeps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		pipeline:    deps.Pipeline,
		dispatcher:  deps.Dispatcher,
		fetchLimit:  deps.FetchLimit,
		passTimeout: deps.PassTimeout,
		logger:      logger,
	}
}

// RunPass performs one ingestion → scoring → fan-out pass unless another
// pass is already in flight. Failures and panics are logged, never
// propagated; the next trigger proceeds normally.
//
// The pass body runs in its own goroutine so the watchdog can abandon
// it outright. Even an adapter that ignores its context cannot keep the
// runner out of the idle state past the pass timeout.
func (r *Runner) RunPass(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Warn("previous pass still running, dropping trigger")
		return
	}
	defer r.running.Store(false)

	passCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.passTimeout > 0 {
		passCtx, cancel = context.WithTimeout(ctx, r.passTimeout)
	}
	defer cancel()

	started := time.Now()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("pass panicked", "panic", rec)
			}
		}()
		r.pass(passCtx, started)
	}()

	select {
	case <-done:
	case <-passCtx.Done():
		r.logger.Error("pass abandoned", "reason", passCtx.Err(), "elapsed", time.Since(started))
	}
}

func (r *Runner) pass(ctx context.Context, started time.Time) {
	r.logger.Info("pass started")

	batch := r.pipeline.FetchScored(ctx, r.fetchLimit)
	r.logger.Info("batch scored", "items", len(batch))

	if err := r.dispatcher.Dispatch(ctx, batch); err != nil {
		r.logger.Error("pass failed", "error", err, "elapsed", time.Since(started))
		return
	}

	r.logger.Info("pass complete", "items", len(batch), "elapsed", time.Since(started))
}
