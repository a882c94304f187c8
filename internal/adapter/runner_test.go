package adapter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgehunter/kernel/internal/telemetry/logging"
)

type fakeAdapter struct {
	connected  atomic.Bool
	iterations atomic.Int64
	iterErr    error
	fatal      *FatalError
}

func (f *fakeAdapter) Connect(ctx context.Context) error {
	f.connected.Store(true)
	return nil
}
func (f *fakeAdapter) Disconnect() { f.connected.Store(false) }
func (f *fakeAdapter) RunEventLoopIteration(ctx context.Context) error {
	f.iterations.Add(1)
	if f.fatal != nil {
		return f.fatal
	}
	return f.iterErr
}

func TestRunner_PollsUntilStopped(t *testing.T) {
	a := &fakeAdapter{}
	r := NewRunner(a, logging.New(nil), nil)
	require.NoError(t, r.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	assert.True(t, a.iterations.Load() > 0)
	assert.False(t, a.connected.Load())
}

func TestRunner_FatalErrorInvokesOnFatalAndStops(t *testing.T) {
	a := &fakeAdapter{fatal: &FatalError{Code: 1, Message: "collision"}}
	var gotCode atomic.Int64
	gotCode.Store(-1)
	r := NewRunner(a, logging.New(nil), func(err *FatalError) {
		gotCode.Store(int64(err.Code))
	})
	require.NoError(t, r.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int64(1), gotCode.Load())
	r.Stop()
}

func TestRunner_NonFatalErrorBacksOff(t *testing.T) {
	a := &fakeAdapter{iterErr: errors.New("transient")}
	r := NewRunner(a, logging.New(nil), nil)
	require.NoError(t, r.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	r.Stop()

	assert.Equal(t, int64(1), a.iterations.Load(), "backoff should prevent a second iteration within 30ms")
}
