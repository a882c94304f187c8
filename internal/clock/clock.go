// Package clock provides an injectable time source so staleness, session,
// and logger-cadence math can be frozen and advanced deterministically in
// tests while production code reads the real wall/monotonic clock.
package clock

import (
	"sync"
	"time"
)

// Clock is the contract every timing-sensitive component depends on instead
// of calling the time package directly. All age/staleness arithmetic must
// use NowMonoNS; NowWallMS is for display and record-stamping only, since
// wall clocks can jump (NTP, DST) while monotonic never decreases.
type Clock interface {
	NowWallMS() int64
	NowMonoNS() int64
	NowLocal() time.Time
	NowUTC() time.Time
}

// SystemClock is the real clock, backed by time.Now() and a process-start
// monotonic reference point.
type SystemClock struct {
	loc     *time.Location
	monoRef time.Time
}

// NewSystemClock returns a SystemClock reporting local times in loc (falls
// back to time.Local if loc is nil).
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.Local
	}
	return &SystemClock{loc: loc, monoRef: time.Now()}
}

func (c *SystemClock) NowWallMS() int64 { return time.Now().UnixMilli() }

func (c *SystemClock) NowMonoNS() int64 { return time.Since(c.monoRef).Nanoseconds() }

func (c *SystemClock) NowLocal() time.Time { return time.Now().In(c.loc) }

func (c *SystemClock) NowUTC() time.Time { return time.Now().UTC() }

// FakeClock is a manually-advanced Clock for tests. Zero value is usable;
// Set/Advance mutate the held instant under a mutex so it is safe to share
// across a test's goroutines.
type FakeClock struct {
	mu      sync.Mutex
	wallMS  int64
	monoNS  int64
	local   time.Time
	loc     *time.Location
}

// NewFakeClock returns a FakeClock starting at the given local time, whose
// location determines NowLocal's zone.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{
		wallMS: start.UnixMilli(),
		monoNS: 0,
		local:  start,
		loc:    start.Location(),
	}
}

func (f *FakeClock) NowWallMS() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wallMS
}

func (f *FakeClock) NowMonoNS() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.monoNS
}

func (f *FakeClock) NowLocal() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.local
}

func (f *FakeClock) NowUTC() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.local.UTC()
}

// Advance moves both the wall and monotonic clocks forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallMS += d.Milliseconds()
	f.monoNS += d.Nanoseconds()
	f.local = f.local.Add(d)
}

// Set pins the local wall time (and derived wall-ms) without moving the
// monotonic clock, useful for session-boundary tests that only care about
// local time-of-day.
func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local = t
	f.wallMS = t.UnixMilli()
}

var (
	defaultMu    sync.RWMutex
	defaultClock Clock = NewSystemClock(nil)
)

// Default returns the process-wide default clock. It is an injected
// dependency, not a true global: production code should still accept a
// Clock parameter, and Default exists only for call sites (e.g. package
// init) that run before explicit wiring.
func Default() Clock {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultClock
}

// SetDefault replaces the process-wide default clock, for tests.
func SetDefault(c Clock) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultClock = c
}
