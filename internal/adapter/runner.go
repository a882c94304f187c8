package adapter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

// pollInterval matches the 100 Hz cadence the reference adapter runner uses
// to keep broker callbacks responsive without busy-waiting.
const pollInterval = 10 * time.Millisecond

// errorBackoff is how long the runner waits after an iteration error before
// trying again, separate from the steady-state poll interval.
const errorBackoff = 1 * time.Second

// joinTimeout bounds how long Stop waits for the loop goroutine to notice
// cancellation before giving up.
const joinTimeout = 2 * time.Second

// OnFatal is invoked, at most once, when the adapter reports a FatalError —
// an identity collision with the broker. The caller is expected to exit the
// process with FatalError.Code after this returns.
type OnFatal func(err *FatalError)

// Runner drives an Adapter's event loop on a background goroutine, isolating
// the engine cycle from adapter I/O entirely: the adapter only ever talks to
// its InboundQueue, never to the engine.
type Runner struct {
	adapter Adapter
	log     logging.Logger
	onFatal OnFatal

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
	running bool
}

// NewRunner builds a Runner for adapter. onFatal may be nil (fatal errors are
// then only logged).
func NewRunner(a Adapter, log logging.Logger, onFatal OnFatal) *Runner {
	return &Runner{adapter: a, log: log, onFatal: onFatal}
}

// Start connects the adapter and begins polling it on a background
// goroutine. Safe to call once; a second call while already running is a
// no-op.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	if err := r.adapter.Connect(ctx); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(runCtx)
	return nil
}

// Stop cancels the loop and waits up to joinTimeout for it to exit, then
// disconnects the adapter regardless of whether the goroutine acknowledged.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(joinTimeout):
			r.log.WarnCtx(context.Background(), "adapter runner: stop timed out waiting for loop exit")
		}
	}
	r.adapter.Disconnect()
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := r.adapter.RunEventLoopIteration(ctx)
			if err == nil {
				continue
			}
			var fatal *FatalError
			if errors.As(err, &fatal) {
				r.log.ErrorCtx(ctx, "adapter runner: fatal error, stopping", "code", fatal.Code, "message", fatal.Message)
				if r.onFatal != nil {
					r.onFatal(fatal)
				}
				return
			}
			r.log.ErrorCtx(ctx, "adapter runner: iteration error, backing off", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
		}
	}
}
