package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsIface defines the interface for metrics operations
type MetricsIface interface {
	// IncrementCounter increments a counter metric
	IncrementCounter(ctx context.Context, name string, attrs ...attribute.KeyValue)

	// RecordGauge records the current value of a gauge
	RecordGauge(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)

	// RecordHistogram records a histogram metric
	RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)
}

// Metrics records OpenTelemetry instruments, creating each one on first use.
type Metrics struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	gauges     map[string]metric.Float64Gauge
	histograms map[string]metric.Float64Histogram
}

// NewMetrics creates a Metrics instance on the global meter provider.
func NewMetrics(serviceName string) *Metrics {
	return NewMetricsWithMeter(otel.Meter(serviceName))
}

// NewMetricsWithMeter is NewMetrics with an explicit meter.
func NewMetricsWithMeter(meter metric.Meter) *Metrics {
	return &Metrics{
		meter:      meter,
		counters:   map[string]metric.Int64Counter{},
		gauges:     map[string]metric.Float64Gauge{},
		histograms: map[string]metric.Float64Histogram{},
	}
}

func (m *Metrics) IncrementCounter(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	counter, ok := m.counters[name]
	if !ok {
		var err error
		counter, err = m.meter.Int64Counter(name, metric.WithDescription(fmt.Sprintf("Counter for %s", name)))
		if err != nil {
			m.mu.Unlock()
			return
		}
		m.counters[name] = counter
	}
	m.mu.Unlock()
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordGauge(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	gauge, ok := m.gauges[name]
	if !ok {
		var err error
		gauge, err = m.meter.Float64Gauge(name, metric.WithDescription(fmt.Sprintf("Gauge for %s", name)))
		if err != nil {
			m.mu.Unlock()
			return
		}
		m.gauges[name] = gauge
	}
	m.mu.Unlock()
	gauge.Record(ctx, value, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
	m.mu.Lock()
	histogram, ok := m.histograms[name]
	if !ok {
		var err error
		histogram, err = m.meter.Float64Histogram(name, metric.WithDescription(fmt.Sprintf("Histogram for %s", name)))
		if err != nil {
			m.mu.Unlock()
			return
		}
		m.histograms[name] = histogram
	}
	m.mu.Unlock()
	histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}
