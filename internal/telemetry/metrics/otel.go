package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelProviderOptions configures NewOTelProvider.
type OTelProviderOptions struct {
	MeterName        string // defaults to "edgehunter"
	CardinalityLimit int    // warn threshold; <= 0 => 100
}

// NewOTelProvider returns a Provider backed by an OTel SDK MeterProvider.
// The MeterProvider is created without a reader and is not exposed by the
// returned Provider, so recorded values are not exported anywhere.
func NewOTelProvider(opts OTelProviderOptions) Provider {
	name := opts.MeterName
	if name == "" {
		name = "edgehunter"
	}
	limit := opts.CardinalityLimit
	if limit <= 0 {
		limit = 100
	}
	mp := sdkmetric.NewMeterProvider()
	meter := mp.Meter(name)
	warn, _ := meter.Float64Counter(
		name+".internal.cardinality_exceeded.total",
		metric.WithDescription("count of metrics whose label cardinality exceeded the configured limit"),
	)
	return &otelProvider{
		mp:           mp,
		meter:        meter,
		cardLimit:    limit,
		cardinality:  make(map[string]map[string]struct{}),
		warnedOnce:   make(map[string]struct{}),
		cardWarnings: warn,
	}
}

type otelProvider struct {
	mp    *sdkmetric.MeterProvider
	meter metric.Meter

	mu          sync.Mutex
	cardinality map[string]map[string]struct{}
	cardLimit   int
	warnedOnce  map[string]struct{}

	cardWarnings metric.Float64Counter
}

func otelName(c CommonOpts) string {
	switch {
	case c.Namespace != "" && c.Subsystem != "":
		return c.Namespace + "." + c.Subsystem + "." + c.Name
	case c.Namespace != "":
		return c.Namespace + "." + c.Name
	case c.Subsystem != "":
		return c.Subsystem + "." + c.Name
	default:
		return c.Name
	}
}

func (p *otelProvider) NewCounter(opts CounterOpts) Counter {
	name := otelName(opts.CommonOpts)
	inst, err := p.meter.Float64Counter(name, metric.WithDescription(opts.Help))
	if err != nil {
		return noopCounter{}
	}
	return &otelCounter{inst: inst, labelKeys: opts.Labels, provider: p, id: name}
}

func (p *otelProvider) NewGauge(opts GaugeOpts) Gauge {
	name := otelName(opts.CommonOpts)
	inst, err := p.meter.Float64UpDownCounter(name, metric.WithDescription(opts.Help))
	if err != nil {
		return noopGauge{}
	}
	return &otelGauge{inst: inst, labelKeys: opts.Labels, provider: p, id: name}
}

func (p *otelProvider) NewHistogram(opts HistogramOpts) Histogram {
	name := otelName(opts.CommonOpts)
	inst, err := p.meter.Float64Histogram(name, metric.WithDescription(opts.Help))
	if err != nil {
		return noopHistogram{}
	}
	return &otelHistogram{inst: inst, labelKeys: opts.Labels, provider: p, id: name}
}

func (p *otelProvider) NewTimer(opts HistogramOpts) func() Timer {
	hist := p.NewHistogram(opts)
	return func() Timer { return &otelTimer{hist: hist, start: time.Now()} }
}

func (p *otelProvider) Health(ctx context.Context) error { return nil }

func (p *otelProvider) trackCardinality(id string, labelValues []string) {
	if p.cardLimit <= 0 || len(labelValues) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.cardinality[id]
	if set == nil {
		set = make(map[string]struct{})
		p.cardinality[id] = set
	}
	key := fmt.Sprint(labelValues)
	if _, seen := set[key]; seen {
		return
	}
	set[key] = struct{}{}
	if len(set) <= p.cardLimit {
		return
	}
	if _, warned := p.warnedOnce[id]; warned {
		return
	}
	p.warnedOnce[id] = struct{}{}
	if p.cardWarnings != nil {
		p.cardWarnings.Add(context.Background(), 1, metric.WithAttributes(attribute.String("metric", id)))
	}
}

func pairAttributes(keys, values []string) []attribute.KeyValue {
	n := min(len(keys), len(values))
	if n == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, n)
	for i := 0; i < n; i++ {
		out[i] = attribute.String(keys[i], values[i])
	}
	return out
}

type otelCounter struct {
	inst      metric.Float64Counter
	labelKeys []string
	provider  *otelProvider
	id        string
}

func (c *otelCounter) Inc(delta float64, labels ...string) {
	if delta <= 0 {
		return
	}
	c.provider.trackCardinality(c.id, labels)
	if attrs := pairAttributes(c.labelKeys, labels); attrs != nil {
		c.inst.Add(context.Background(), delta, metric.WithAttributes(attrs...))
		return
	}
	c.inst.Add(context.Background(), delta)
}

type otelGauge struct {
	inst      metric.Float64UpDownCounter
	value     atomic.Value
	mu        sync.Mutex
	labelKeys []string
	provider  *otelProvider
	id        string
}

func (g *otelGauge) Set(v float64, labels ...string) {
	g.mu.Lock()
	prev, _ := g.value.Load().(float64)
	diff := v - prev
	g.value.Store(v)
	g.mu.Unlock()
	if diff == 0 {
		return
	}
	g.provider.trackCardinality(g.id, labels)
	if attrs := pairAttributes(g.labelKeys, labels); attrs != nil {
		g.inst.Add(context.Background(), diff, metric.WithAttributes(attrs...))
		return
	}
	g.inst.Add(context.Background(), diff)
}

func (g *otelGauge) Add(delta float64, labels ...string) {
	if delta == 0 {
		return
	}
	g.mu.Lock()
	prev, _ := g.value.Load().(float64)
	g.value.Store(prev + delta)
	g.mu.Unlock()
	g.provider.trackCardinality(g.id, labels)
	if attrs := pairAttributes(g.labelKeys, labels); attrs != nil {
		g.inst.Add(context.Background(), delta, metric.WithAttributes(attrs...))
		return
	}
	g.inst.Add(context.Background(), delta)
}

type otelHistogram struct {
	inst      metric.Float64Histogram
	labelKeys []string
	provider  *otelProvider
	id        string
}

func (h *otelHistogram) Observe(value float64, labels ...string) {
	h.provider.trackCardinality(h.id, labels)
	if attrs := pairAttributes(h.labelKeys, labels); attrs != nil {
		h.inst.Record(context.Background(), value, metric.WithAttributes(attrs...))
		return
	}
	h.inst.Record(context.Background(), value)
}

type otelTimer struct {
	hist  Histogram
	start time.Time
}

func (t *otelTimer) ObserveDuration(labels ...string) {
	t.hist.Observe(time.Since(t.start).Seconds(), labels...)
}
