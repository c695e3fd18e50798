package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/cwbudde/micmon/internal/engine"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordInterval(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordInterval(ctx,
		engine.Stats{Callbacks: 10, InputUnderflows: 2, OutputOverflows: 1, Overruns: 1, MaxCallback: 3 * time.Millisecond},
		engine.MeterSnapshot{Blocks: 10, Opens: 1, Open: true, Gain: 0.5, LevelDB: -12},
	)
	m.RecordInterval(ctx,
		engine.Stats{Callbacks: 5, MaxCallback: time.Millisecond},
		engine.MeterSnapshot{Blocks: 15, Opens: 1, Closes: 1, LevelDB: -60},
	)

	rm := collect(t, reader)

	counters := []struct {
		name string
		want int64
	}{
		{MetricBlocks, 15},
		{MetricCallbacks, 15},
		{MetricOverruns, 1},
		{MetricUnderruns, 3},
		{MetricGateTransitions, 2},
	}
	for _, tc := range counters {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			if got := sumInt64(*met); got != tc.want {
				t.Fatalf("%s = %d, want %d", tc.name, got, tc.want)
			}
		})
	}

	under := findMetric(rm, MetricUnderruns)
	sum := under.Data.(metricdata.Sum[int64])
	found := false
	for _, dp := range sum.DataPoints {
		dir, _ := dp.Attributes.Value(attribute.Key("direction"))
		kind, _ := dp.Attributes.Value(attribute.Key("kind"))
		if dir.AsString() == "input" && kind.AsString() == "underflow" {
			found = true
			if dp.Value != 2 {
				t.Fatalf("input underflows = %d, want 2", dp.Value)
			}
		}
	}
	if !found {
		t.Fatal("input/underflow data point missing")
	}

	open := findMetric(rm, MetricGateOpen)
	if open == nil {
		t.Fatal("gate gauge missing")
	}
	gauge := open.Data.(metricdata.Gauge[int64])
	if len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 0 {
		t.Fatalf("gate gauge = %+v, want last value 0", gauge.DataPoints)
	}

	if got := maxSeconds(*findMetric(rm, MetricCallbackDuration)); got != 3*time.Millisecond {
		t.Fatalf("max callback = %v, want 3ms", got)
	}
}

func TestRecordIntervalNewSession(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordInterval(ctx, engine.Stats{}, engine.MeterSnapshot{Blocks: 100})
	m.RecordInterval(ctx, engine.Stats{}, engine.MeterSnapshot{Blocks: 7})

	if got := sumInt64(*findMetric(collect(t, reader), MetricBlocks)); got != 107 {
		t.Fatalf("blocks = %d, want 107", got)
	}
}

func TestProviderSummary(t *testing.T) {
	p := NewProvider("test")
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := NewMetrics(p.MeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.RecordInterval(ctx,
		engine.Stats{Callbacks: 4, OutputUnderflows: 1, MaxCallback: 2 * time.Millisecond},
		engine.MeterSnapshot{Blocks: 4, Opens: 1},
	)

	s, err := p.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	want := Summary{Blocks: 4, Callbacks: 4, Underruns: 1, GateTransitions: 1, MaxCallback: 2 * time.Millisecond}
	if s != want {
		t.Fatalf("Summary() = %+v, want %+v", s, want)
	}
}
