package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackify-io/trackify/config/modules"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestLabels(t *testing.T) {
	l := labels{}.with("pixel_id", "1", "status")
	attrs := l.attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, "pixel_id", string(attrs[0].Key))
	assert.Equal(t, "1", attrs[0].Value.AsString())
	assert.Equal(t, "unknown", attrs[1].Value.AsString())
}

func TestDisabled(t *testing.T) {
	m, err := New(modules.MetricsConfig{})
	require.NoError(t, err)
	assert.False(t, m.Enabled)

	// discard instruments accept observations
	m.DeliveryTotalCounter.With("pixel_id", "1").Add(1)
	m.DeliveryDurationHistogram.Observe(0.2)
	m.collectRuntimeStats()
	assert.NoError(t, m.Stop())
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	data := make(map[string]metricdata.Aggregation)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			data[m.Name] = m.Data
		}
	}
	return data
}

func TestRegister(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m := NewDiscard()
	require.NoError(t, register(provider.Meter("test"), m))

	m.DeliveryTotalCounter.With("pixel_id", "111").Add(1)
	m.DeliveryTotalCounter.With("pixel_id", "111").Add(2)
	m.DeliveryDurationHistogram.With("pixel_id", "111").Observe(0.3)
	m.RuntimeGoroutine.Set(4)
	m.RuntimeGoroutine.Add(2)

	data := collect(t, reader)

	sum, ok := data["trackify.delivery.total"].(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, 3.0, sum.DataPoints[0].Value)
	pixel, _ := sum.DataPoints[0].Attributes.Value("pixel_id")
	assert.Equal(t, "111", pixel.AsString())

	histogram, ok := data["trackify.delivery.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)
	assert.EqualValues(t, 1, histogram.DataPoints[0].Count)

	gauge, ok := data["trackify.runtime.num_goroutine"].(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, 6.0, gauge.DataPoints[0].Value)
}
