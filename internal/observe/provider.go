package observe

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Provider is an in-process MeterProvider whose data is pulled on demand
// through a ManualReader. Nothing is exported over the network.
type Provider struct {
	mp     *sdkmetric.MeterProvider
	reader *sdkmetric.ManualReader
}

// NewProvider creates the SDK provider for service version version.
func NewProvider(version string) *Provider {
	res := resource.NewSchemaless(
		semconv.ServiceName("micmon"),
		semconv.ServiceVersion(version),
	)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	return &Provider{mp: mp, reader: reader}
}

// MeterProvider returns the provider for NewMetrics.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.mp
}

// Shutdown releases the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}

// Summary totals a monitoring session.
type Summary struct {
	Blocks          int64
	Callbacks       int64
	Underruns       int64
	Overruns        int64
	GateTransitions int64
	MaxCallback     time.Duration
}

// Summary collects the current totals.
func (p *Provider) Summary(ctx context.Context) (Summary, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return Summary{}, fmt.Errorf("observe: collect metrics: %w", err)
	}
	return summarize(rm), nil
}

func summarize(rm metricdata.ResourceMetrics) Summary {
	var s Summary
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case MetricBlocks:
				s.Blocks = sumInt64(m)
			case MetricCallbacks:
				s.Callbacks = sumInt64(m)
			case MetricUnderruns:
				s.Underruns = sumInt64(m)
			case MetricOverruns:
				s.Overruns = sumInt64(m)
			case MetricGateTransitions:
				s.GateTransitions = sumInt64(m)
			case MetricCallbackDuration:
				s.MaxCallback = maxSeconds(m)
			}
		}
	}
	return s
}

func sumInt64(m metricdata.Metrics) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func maxSeconds(m metricdata.Metrics) time.Duration {
	h, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		return 0
	}
	var best float64
	for _, dp := range h.DataPoints {
		if v, defined := dp.Max.Value(); defined && v > best {
			best = v
		}
	}
	return time.Duration(math.Round(best * float64(time.Second)))
}
