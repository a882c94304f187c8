// Package metrics defines a minimal metrics Provider contract with two
// backends (Prometheus, OpenTelemetry), consolidated from the teacher's
// dual-backend telemetry design so the engine loop, queues, adapter and
// trigger-card logger can all emit through one interface regardless of
// which backend is configured.
package metrics

import "context"

// CommonOpts names a metric; Namespace/Subsystem compose into the final
// name the same way across both backends.
type CommonOpts struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	Labels    []string
}

type CounterOpts struct{ CommonOpts }
type GaugeOpts struct{ CommonOpts }
type HistogramOpts struct {
	CommonOpts
	Buckets []float64
}

// Counter only increases.
type Counter interface {
	Inc(delta float64, labels ...string)
}

// Gauge can be set or incremented/decremented.
type Gauge interface {
	Set(v float64, labels ...string)
	Add(delta float64, labels ...string)
}

// Histogram records a distribution of observed values.
type Histogram interface {
	Observe(value float64, labels ...string)
}

// Timer records an elapsed duration in seconds when ObserveDuration is called.
type Timer interface {
	ObserveDuration(labels ...string)
}

// Provider constructs instruments and reports backend health.
type Provider interface {
	NewCounter(opts CounterOpts) Counter
	NewGauge(opts GaugeOpts) Gauge
	NewHistogram(opts HistogramOpts) Histogram
	NewTimer(opts HistogramOpts) func() Timer
	Health(ctx context.Context) error
}

// noop implementations, used when metrics are disabled.

type noopProvider struct{}

// NewNoop returns a Provider whose instruments discard everything.
func NewNoop() Provider { return noopProvider{} }

func (noopProvider) NewCounter(CounterOpts) Counter         { return noopCounter{} }
func (noopProvider) NewGauge(GaugeOpts) Gauge               { return noopGauge{} }
func (noopProvider) NewHistogram(HistogramOpts) Histogram   { return noopHistogram{} }
func (noopProvider) NewTimer(HistogramOpts) func() Timer {
	return func() Timer { return noopTimer{} }
}
func (noopProvider) Health(context.Context) error { return nil }

type noopCounter struct{}

func (noopCounter) Inc(float64, ...string) {}

type noopGauge struct{}

func (noopGauge) Set(float64, ...string) {}
func (noopGauge) Add(float64, ...string) {}

type noopHistogram struct{}

func (noopHistogram) Observe(float64, ...string) {}

type noopTimer struct{}

func (noopTimer) ObserveDuration(...string) {}
