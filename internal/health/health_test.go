package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_UnknownWithNoProbes(t *testing.T) {
	e := NewEvaluator(time.Second)
	snap := e.Evaluate(context.Background())
	assert.Equal(t, StatusUnknown, snap.Overall)
}

func TestEvaluator_OverallIsWorstOfAllProbes(t *testing.T) {
	e := NewEvaluator(time.Second)
	e.Register(ProbeFunc(func(ctx context.Context) ProbeResult { return Healthy("a") }))
	e.Register(ProbeFunc(func(ctx context.Context) ProbeResult { return Degraded("b", "slow") }))

	snap := e.Evaluate(context.Background())
	assert.Equal(t, StatusDegraded, snap.Overall)
	require.Len(t, snap.Probes, 2)

	e.ForceInvalidate()
	e.Register(ProbeFunc(func(ctx context.Context) ProbeResult { return Unhealthy("c", "down") }))
	snap = e.Evaluate(context.Background())
	assert.Equal(t, StatusUnhealthy, snap.Overall)
}

func TestEvaluator_CachesWithinTTL(t *testing.T) {
	calls := 0
	e := NewEvaluator(time.Hour)
	e.Register(ProbeFunc(func(ctx context.Context) ProbeResult {
		calls++
		return Healthy("a")
	}))

	e.Evaluate(context.Background())
	e.Evaluate(context.Background())
	assert.Equal(t, 1, calls, "second call within TTL should use the cached snapshot")

	e.ForceInvalidate()
	e.Evaluate(context.Background())
	assert.Equal(t, 2, calls)
}

func TestNewQueueProbe_DegradesAtWarnFraction(t *testing.T) {
	p := NewQueueProbe("inbound", func() (int, int) { return 85, 100 }, 0.8)
	r := p.Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)

	p = NewQueueProbe("inbound", func() (int, int) { return 10, 100 }, 0.8)
	r = p.Check(context.Background())
	assert.Equal(t, StatusHealthy, r.Status)
}

func TestNewQueueProbe_UnknownWhenCapacityZero(t *testing.T) {
	p := NewQueueProbe("inbound", func() (int, int) { return 0, 0 }, 0.8)
	r := p.Check(context.Background())
	assert.Equal(t, StatusUnknown, r.Status)
}
