package health

import (
	"context"
	"fmt"

	"github.com/edgehunter/kernel/internal/datahub"
)

// NewDataHubProbe reports Unhealthy until the first snapshot is published,
// Degraded while the engine reports itself degraded or the feed is
// disconnected, and Healthy otherwise. Gate readiness is not consulted.
func NewDataHubProbe(hub *datahub.DataHub) Probe {
	return ProbeFunc(func(ctx context.Context) ProbeResult {
		snap := hub.GetLatest()
		if snap == nil {
			return Unhealthy("datahub", "no snapshot published yet")
		}
		if snap.Loop.EngineDegraded {
			return Degraded("datahub", "engine_degraded set on latest snapshot")
		}
		if !snap.Feed.Connected {
			return Degraded("datahub", "feed disconnected")
		}
		return Healthy("datahub")
	})
}

// QueueDepthFunc reports current length and capacity for a saturation probe.
type QueueDepthFunc func() (length, capacity int)

// NewQueueProbe reports Degraded once a queue's buffered length crosses the
// given fraction of its capacity (a sustained high-water mark is an early
// warning that a producer is about to overflow it).
func NewQueueProbe(name string, depth QueueDepthFunc, warnFraction float64) Probe {
	if warnFraction <= 0 {
		warnFraction = 0.8
	}
	return ProbeFunc(func(ctx context.Context) ProbeResult {
		length, capacity := depth()
		if capacity <= 0 {
			return Unknown(name, "capacity unknown")
		}
		if float64(length)/float64(capacity) >= warnFraction {
			return Degraded(name, fmt.Sprintf("depth %d/%d at or above warn threshold", length, capacity))
		}
		return Healthy(name)
	})
}
