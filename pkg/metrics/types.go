package metrics

import (
	"context"
	"strings"
	"sync"

	"github.com/go-kit/kit/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// durationBuckets are in seconds, sized for Graph API round trips.
var durationBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// labels holds alternating key and value pairs the way go-kit passes them.
type labels []string

func (l labels) with(pairs ...string) labels {
	if len(pairs)%2 != 0 {
		pairs = append(pairs, "unknown")
	}
	out := make(labels, 0, len(l)+len(pairs))
	out = append(out, l...)
	return append(out, pairs...)
}

func (l labels) attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(l)/2)
	for i := 0; i+1 < len(l); i += 2 {
		attrs = append(attrs, attribute.String(l[i], l[i+1]))
	}
	return attrs
}

func (l labels) key() string {
	return strings.Join(l, "\x00")
}

type Counter struct {
	labels labels
	c      metric.Float64Counter
}

func NewCounter(meter metric.Meter, name string, desc string) (*Counter, error) {
	c, err := meter.Float64Counter(name, metric.WithDescription(desc), metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	return &Counter{c: c}, nil
}

func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{labels: c.labels.with(labelValues...), c: c.c}
}

func (c *Counter) Add(delta float64) {
	c.c.Add(context.Background(), delta, metric.WithAttributes(c.labels.attributes()...))
}

// Gauge records absolute values. Add is applied to the last value recorded
// for the same labels.
type Gauge struct {
	labels labels
	g      metric.Float64Gauge
	state  *gaugeState
}

type gaugeState struct {
	mux    sync.Mutex
	values map[string]float64
}

func NewGauge(meter metric.Meter, name string, desc string) (*Gauge, error) {
	g, err := meter.Float64Gauge(name, metric.WithDescription(desc), metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	return &Gauge{g: g, state: &gaugeState{values: make(map[string]float64)}}, nil
}

func (g *Gauge) With(labelValues ...string) metrics.Gauge {
	return &Gauge{labels: g.labels.with(labelValues...), g: g.g, state: g.state}
}

func (g *Gauge) Set(value float64) {
	g.state.mux.Lock()
	g.state.values[g.labels.key()] = value
	g.state.mux.Unlock()
	g.record(value)
}

func (g *Gauge) Add(delta float64) {
	g.state.mux.Lock()
	key := g.labels.key()
	value := g.state.values[key] + delta
	g.state.values[key] = value
	g.state.mux.Unlock()
	g.record(value)
}

func (g *Gauge) record(value float64) {
	g.g.Record(context.Background(), value, metric.WithAttributes(g.labels.attributes()...))
}

type Histogram struct {
	labels labels
	h      metric.Float64Histogram
}

func NewHistogram(meter metric.Meter, name string, desc string, unit string) (*Histogram, error) {
	h, err := meter.Float64Histogram(
		name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	return &Histogram{h: h}, nil
}

func (h *Histogram) With(labelValues ...string) metrics.Histogram {
	return &Histogram{labels: h.labels.with(labelValues...), h: h.h}
}

func (h *Histogram) Observe(value float64) {
	h.h.Record(context.Background(), value, metric.WithAttributes(h.labels.attributes()...))
}
