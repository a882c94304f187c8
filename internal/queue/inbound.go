// Package queue implements the two bounded MPSC queues that decouple the
// adapter and UI producers from the single-writer engine loop: InboundQueue
// for normalized events and CommandQueue for UI control commands.
package queue

import (
	"sync/atomic"

	"github.com/edgehunter/kernel/internal/model"
)

// DefaultInboundCapacity matches spec.md §4.4's default bound of 1000 events.
const DefaultInboundCapacity = 1000

// DefaultDrainBatch bounds a single Drain call so a burst of producers can
// never starve the engine's command handling or its sleep.
const DefaultDrainBatch = 4096

// Inbound is a bounded, multi-producer single-consumer queue of adapter
// events. Push never blocks: a full queue drops the event and counts it as
// an overflow for the producer to log.
type Inbound struct {
	ch       chan model.Event
	overflow atomic.Int64
}

// NewInbound returns an Inbound queue with the given capacity (DefaultInboundCapacity if <= 0).
func NewInbound(capacity int) *Inbound {
	if capacity <= 0 {
		capacity = DefaultInboundCapacity
	}
	return &Inbound{ch: make(chan model.Event, capacity)}
}

// Push enqueues an event. It never blocks: if the queue is full it reports
// ok=false and increments the overflow counter.
func (q *Inbound) Push(e model.Event) (ok bool) {
	select {
	case q.ch <- e:
		return true
	default:
		q.overflow.Add(1)
		return false
	}
}

// Drain returns all currently-available events, up to DefaultDrainBatch, without blocking.
func (q *Inbound) Drain() []model.Event {
	out := make([]model.Event, 0, 16)
	for len(out) < DefaultDrainBatch {
		select {
		case e := <-q.ch:
			out = append(out, e)
		default:
			return out
		}
	}
	return out
}

// Len reports the number of currently-buffered events (for depth metrics).
func (q *Inbound) Len() int { return len(q.ch) }

// Overflow reports the cumulative count of dropped pushes.
func (q *Inbound) Overflow() int64 { return q.overflow.Load() }
