package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

var fqNameRE = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// PrometheusProviderOptions configures NewPrometheusProvider.
type PrometheusProviderOptions struct {
	Registry         *prom.Registry // nil => a fresh registry
	CardinalityLimit int            // warn threshold; <= 0 => 100
}

// PrometheusProvider implements Provider over a Prometheus registry, lazily
// registering one vec per distinct metric name on first use.
type PrometheusProvider struct {
	reg *prom.Registry

	mu         sync.RWMutex
	counters   map[string]*prom.CounterVec
	gauges     map[string]*prom.GaugeVec
	histograms map[string]*prom.HistogramVec
	problems   []error

	cardinality  map[string]map[string]struct{}
	cardLimit    int
	warnedOnce   map[string]struct{}
	cardWarnings *prom.CounterVec

	handler http.Handler
}

// NewPrometheusProvider constructs a PrometheusProvider and pre-registers
// the cardinality-warning counter and the /metrics handler.
func NewPrometheusProvider(opts PrometheusProviderOptions) *PrometheusProvider {
	reg := opts.Registry
	if reg == nil {
		reg = prom.NewRegistry()
	}
	limit := opts.CardinalityLimit
	if limit <= 0 {
		limit = 100
	}
	cardWarnings := prom.NewCounterVec(prom.CounterOpts{
		Name: "edgehunter_internal_cardinality_exceeded_total",
		Help: "count of metrics whose observed label-value cardinality exceeded the configured limit",
	}, []string{"metric"})
	_ = reg.Register(cardWarnings)

	return &PrometheusProvider{
		reg:          reg,
		counters:     make(map[string]*prom.CounterVec),
		gauges:       make(map[string]*prom.GaugeVec),
		histograms:   make(map[string]*prom.HistogramVec),
		cardinality:  make(map[string]map[string]struct{}),
		cardLimit:    limit,
		warnedOnce:   make(map[string]struct{}),
		cardWarnings: cardWarnings,
		handler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func (p *PrometheusProvider) MetricsHandler() http.Handler { return p.handler }

func fqName(c CommonOpts) (string, error) {
	if c.Name == "" {
		return "", errors.New("metric name required")
	}
	fq := c.Name
	if c.Subsystem != "" {
		fq = c.Subsystem + "_" + fq
	}
	if c.Namespace != "" {
		fq = c.Namespace + "_" + fq
	}
	if !fqNameRE.MatchString(fq) {
		return "", fmt.Errorf("invalid prometheus metric name %q", fq)
	}
	return fq, nil
}

func (p *PrometheusProvider) NewCounter(opts CounterOpts) Counter {
	fq, err := fqName(opts.CommonOpts)
	if err != nil {
		return noopCounter{}
	}
	p.mu.RLock()
	vec := p.counters[fq]
	p.mu.RUnlock()
	if vec != nil {
		return &promCounter{vec: vec, provider: p, id: fq}
	}

	vec = prom.NewCounterVec(prom.CounterOpts{Name: fq, Help: opts.Help}, opts.Labels)
	if err := p.reg.Register(vec); err != nil {
		existing, ok := err.(prom.AlreadyRegisteredError)
		if !ok {
			p.recordProblem(err)
			return noopCounter{}
		}
		vec = existing.ExistingCollector.(*prom.CounterVec)
	}
	p.mu.Lock()
	p.counters[fq] = vec
	p.mu.Unlock()
	return &promCounter{vec: vec, provider: p, id: fq}
}

func (p *PrometheusProvider) NewGauge(opts GaugeOpts) Gauge {
	fq, err := fqName(opts.CommonOpts)
	if err != nil {
		return noopGauge{}
	}
	p.mu.RLock()
	vec := p.gauges[fq]
	p.mu.RUnlock()
	if vec != nil {
		return &promGauge{vec: vec, provider: p, id: fq}
	}

	vec = prom.NewGaugeVec(prom.GaugeOpts{Name: fq, Help: opts.Help}, opts.Labels)
	if err := p.reg.Register(vec); err != nil {
		existing, ok := err.(prom.AlreadyRegisteredError)
		if !ok {
			p.recordProblem(err)
			return noopGauge{}
		}
		vec = existing.ExistingCollector.(*prom.GaugeVec)
	}
	p.mu.Lock()
	p.gauges[fq] = vec
	p.mu.Unlock()
	return &promGauge{vec: vec, provider: p, id: fq}
}

func (p *PrometheusProvider) NewHistogram(opts HistogramOpts) Histogram {
	fq, err := fqName(opts.CommonOpts)
	if err != nil {
		return noopHistogram{}
	}
	p.mu.RLock()
	vec := p.histograms[fq]
	p.mu.RUnlock()
	if vec != nil {
		return &promHistogram{vec: vec, provider: p, id: fq}
	}

	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}
	vec = prom.NewHistogramVec(prom.HistogramOpts{Name: fq, Help: opts.Help, Buckets: buckets}, opts.Labels)
	if err := p.reg.Register(vec); err != nil {
		existing, ok := err.(prom.AlreadyRegisteredError)
		if !ok {
			p.recordProblem(err)
			return noopHistogram{}
		}
		vec = existing.ExistingCollector.(*prom.HistogramVec)
	}
	p.mu.Lock()
	p.histograms[fq] = vec
	p.mu.Unlock()
	return &promHistogram{vec: vec, provider: p, id: fq}
}

func (p *PrometheusProvider) NewTimer(opts HistogramOpts) func() Timer {
	hist := p.NewHistogram(opts)
	return func() Timer { return &promTimer{hist: hist, start: time.Now()} }
}

func (p *PrometheusProvider) Health(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.problems) == 0 {
		return nil
	}
	return fmt.Errorf("prometheus provider: %d registration problems (first: %v)", len(p.problems), p.problems[0])
}

func (p *PrometheusProvider) recordProblem(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.problems = append(p.problems, err)
}

// trackCardinality warns once per metric if the observed set of distinct
// label-value combinations exceeds the configured limit. Best effort: it
// never blocks or rejects an observation.
func (p *PrometheusProvider) trackCardinality(id string, labelValues []string) {
	if p.cardLimit <= 0 {
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
	p.cardWarnings.WithLabelValues(id).Inc()
}

type promCounter struct {
	vec      *prom.CounterVec
	provider *PrometheusProvider
	id       string
}

func (c *promCounter) Inc(delta float64, labels ...string) {
	if delta <= 0 {
		return
	}
	c.provider.trackCardinality(c.id, labels)
	c.vec.WithLabelValues(labels...).Add(delta)
}

type promGauge struct {
	vec      *prom.GaugeVec
	provider *PrometheusProvider
	id       string
}

func (g *promGauge) Set(value float64, labels ...string) {
	g.provider.trackCardinality(g.id, labels)
	g.vec.WithLabelValues(labels...).Set(value)
}

func (g *promGauge) Add(delta float64, labels ...string) {
	if delta == 0 {
		return
	}
	g.provider.trackCardinality(g.id, labels)
	g.vec.WithLabelValues(labels...).Add(delta)
}

type promHistogram struct {
	vec      *prom.HistogramVec
	provider *PrometheusProvider
	id       string
}

func (h *promHistogram) Observe(value float64, labels ...string) {
	h.provider.trackCardinality(h.id, labels)
	h.vec.WithLabelValues(labels...).Observe(value)
}

type promTimer struct {
	hist  Histogram
	start time.Time
}

func (t *promTimer) ObserveDuration(labels ...string) {
	t.hist.Observe(time.Since(t.start).Seconds(), labels...)
}
