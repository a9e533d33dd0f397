package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/pkg/schedule"
	"go.uber.org/zap"
)

type Metrics struct {
	ctx    context.Context
	cancel context.CancelFunc

	Enabled  bool
	Interval time.Duration

	// runtime metrics

	RuntimeGoroutine    metrics.Gauge
	RuntimeAlloc        metrics.Gauge
	RuntimeSys          metrics.Gauge
	RuntimeHeapObjects  metrics.Gauge
	RuntimePauseTotalNs metrics.Gauge
	RuntimeGC           metrics.Gauge

	// delivery metrics, labelled by pixel_id

	DeliveryTotalCounter      metrics.Counter
	DeliveryFailedCounter     metrics.Counter
	DeliveryDurationHistogram metrics.Histogram

	// event metrics, labelled by event_name

	EventTotalCounter  metrics.Counter
	EventQueuedCounter metrics.Counter
}

// NewDiscard returns metrics that record nothing.
func NewDiscard() *Metrics {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Metrics{ctx: ctx, cancel: cancel}
	m.discardAll()
	return m
}

func (m *Metrics) discardAll() {
	m.RuntimeGoroutine = discard.NewGauge()
	m.RuntimeAlloc = discard.NewGauge()
	m.RuntimeSys = discard.NewGauge()
	m.RuntimeHeapObjects = discard.NewGauge()
	m.RuntimePauseTotalNs = discard.NewGauge()
	m.RuntimeGC = discard.NewGauge()
	m.DeliveryTotalCounter = discard.NewCounter()
	m.DeliveryFailedCounter = discard.NewCounter()
	m.DeliveryDurationHistogram = discard.NewHistogram()
	m.EventTotalCounter = discard.NewCounter()
	m.EventQueuedCounter = discard.NewCounter()
}

func (m *Metrics) Stop() error {
	m.cancel()
	if m.Enabled {
		return StopOpentelemetry()
	}
	return nil
}

func New(cfg modules.MetricsConfig) (*Metrics, error) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Metrics{
		ctx:     ctx,
		cancel:  cancel,
		Enabled: len(cfg.Exports) > 0,
	}
	m.discardAll()

	if m.Enabled {
		m.Interval = time.Second * time.Duration(cfg.PushInterval)
		err := SetupOpentelemetry(cfg.Attributes, cfg.Opentelemetry, m)
		if err != nil {
			return nil, err
		}
		schedule.Every(m.ctx, m.Interval, m.collectRuntimeStats)
		zap.S().Infof("enabled metric exports: %v", cfg.Exports)
	}

	return m, nil
}

func (m *Metrics) collectRuntimeStats() {
	m.RuntimeGoroutine.Set(float64(runtime.NumGoroutine()))

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.RuntimeAlloc.Set(float64(stats.Alloc))
	m.RuntimeSys.Set(float64(stats.Sys))
	m.RuntimeHeapObjects.Set(float64(stats.HeapObjects))
	m.RuntimePauseTotalNs.Set(float64(stats.PauseTotalNs))
	m.RuntimeGC.Set(float64(stats.NumGC))
}
