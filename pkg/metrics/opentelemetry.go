package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trackify-io/trackify"
	"github.com/trackify-io/trackify/config/modules"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	prefix = "trackify."
)

func newHTTPExporter(endpoint string) (metric.Exporter, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(endpoint),
	}
	return otlpmetrichttp.New(context.Background(), opts...)
}

func newGRPCExporter(endpoint string) (metric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	}
	return otlpmetricgrpc.New(context.Background(), opts...)
}

func SetupOpentelemetry(attributes map[string]string, cfg modules.OpentelemetryMetrics, metrics *Metrics) error {
	var err error
	var exporter metric.Exporter
	switch cfg.Protocol {
	case modules.OtlpProtocolHTTP:
		exporter, err = newHTTPExporter(cfg.Endpoint)
	case modules.OtlpProtocolGRPC:
		exporter, err = newGRPCExporter(cfg.Endpoint)
	default:
		err = fmt.Errorf("unknown protocol: %s", cfg.Protocol)
	}
	if err != nil {
		return fmt.Errorf("failed to setup exporter: %v", err)
	}

	// custom attributes
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for name, value := range attributes {
		attrs = append(attrs, attribute.String(name, value))
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String("trackify")),
		resource.WithAttributes(semconv.ServiceVersionKey.String(trackify.VERSION)),
		resource.WithFromEnv(),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return fmt.Errorf("failed to build resource: %w", err)
	}

	opts := []metric.PeriodicReaderOption{
		metric.WithInterval(metrics.Interval),
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter, opts...)),
	)
	otel.SetMeterProvider(meterProvider)

	return register(otel.Meter("github.com/trackify-io/trackify"), metrics)
}

// register replaces the discard instruments of m with ones created on meter.
func register(meter otelmetric.Meter, m *Metrics) error {
	var errs []error
	gauge := func(name string) *Gauge {
		g, err := NewGauge(meter, prefix+name, "")
		errs = append(errs, err)
		return g
	}
	counter := func(name, desc string) *Counter {
		c, err := NewCounter(meter, prefix+name, desc)
		errs = append(errs, err)
		return c
	}

	m.RuntimeGoroutine = gauge("runtime.num_goroutine")
	m.RuntimeAlloc = gauge("runtime.alloc_bytes")
	m.RuntimeSys = gauge("runtime.sys_bytes")
	m.RuntimeHeapObjects = gauge("runtime.heap_objects")
	m.RuntimePauseTotalNs = gauge("runtime.pause_total_ns")
	m.RuntimeGC = gauge("runtime.num_gc")

	m.DeliveryTotalCounter = counter("delivery.total", "Graph API calls")
	m.DeliveryFailedCounter = counter("delivery.failed", "Graph API calls that did not succeed")
	histogram, err := NewHistogram(meter, prefix+"delivery.duration", "Graph API call latency", "s")
	errs = append(errs, err)
	m.DeliveryDurationHistogram = histogram

	m.EventTotalCounter = counter("event.total", "Events accepted for delivery")
	m.EventQueuedCounter = counter("event.queued", "Events held until the end of the request")

	if err := errors.Join(errs...); err != nil {
		m.discardAll()
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	return nil
}

func StopOpentelemetry() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return otel.GetMeterProvider().(*metric.MeterProvider).Shutdown(ctx)
}
