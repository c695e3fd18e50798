package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cwbudde/micmon/internal/engine"
)

const meterName = "github.com/cwbudde/micmon"

// Metric names.
const (
	MetricBlocks           = "micmon.blocks"
	MetricCallbacks        = "micmon.callbacks"
	MetricUnderruns        = "micmon.underruns"
	MetricOverruns         = "micmon.overruns"
	MetricCallbackDuration = "micmon.callback.duration"
	MetricGateOpen         = "micmon.gate.open"
	MetricGateGain         = "micmon.gate.gain"
	MetricLevel            = "micmon.level"
	MetricGateTransitions  = "micmon.gate.transitions"
)

// Metrics holds the OpenTelemetry instruments. It implements
// engine.Recorder.
type Metrics struct {
	// Blocks counts processed pipeline blocks.
	Blocks metric.Int64Counter

	// Callbacks counts audio callbacks.
	Callbacks metric.Int64Counter

	// Underruns counts flagged callbacks. Use with attributes:
	//   attribute.String("direction", "input"|"output"),
	//   attribute.String("kind", "underflow"|"overflow")
	Underruns metric.Int64Counter

	// Overruns counts callbacks that exceeded their block period.
	Overruns metric.Int64Counter

	// GateTransitions counts gate opens and closes. Use with attribute:
	//   attribute.String("to", "open"|"closed")
	GateTransitions metric.Int64Counter

	// CallbackDuration records the longest callback of every monitor
	// interval, in seconds.
	CallbackDuration metric.Float64Histogram

	GateOpen metric.Int64Gauge
	GateGain metric.Float64Gauge
	Level    metric.Float64Gauge

	mu   sync.Mutex
	prev engine.MeterSnapshot
}

// callbackBuckets covers sub-millisecond callbacks up to a stalled one.
var callbackBuckets = []float64{
	0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Blocks, err = m.Int64Counter(MetricBlocks,
		metric.WithDescription("Pipeline blocks processed."),
	); err != nil {
		return nil, err
	}
	if met.Callbacks, err = m.Int64Counter(MetricCallbacks,
		metric.WithDescription("Audio callbacks handled."),
	); err != nil {
		return nil, err
	}
	if met.Underruns, err = m.Int64Counter(MetricUnderruns,
		metric.WithDescription("Callbacks flagged by the audio subsystem, by direction and kind."),
	); err != nil {
		return nil, err
	}
	if met.Overruns, err = m.Int64Counter(MetricOverruns,
		metric.WithDescription("Callbacks that took longer than the audio they produced."),
	); err != nil {
		return nil, err
	}
	if met.GateTransitions, err = m.Int64Counter(MetricGateTransitions,
		metric.WithDescription("Noise gate state changes."),
	); err != nil {
		return nil, err
	}
	if met.CallbackDuration, err = m.Float64Histogram(MetricCallbackDuration,
		metric.WithDescription("Longest audio callback per monitor interval."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(callbackBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GateOpen, err = m.Int64Gauge(MetricGateOpen,
		metric.WithDescription("1 while the noise gate is open."),
	); err != nil {
		return nil, err
	}
	if met.GateGain, err = m.Float64Gauge(MetricGateGain,
		metric.WithDescription("Current noise gate gain."),
	); err != nil {
		return nil, err
	}
	if met.Level, err = m.Float64Gauge(MetricLevel,
		metric.WithDescription("Smoothed input level."),
		metric.WithUnit("dBFS"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordInterval records one monitor report.
func (m *Metrics) RecordInterval(ctx context.Context, delta engine.Stats, meter engine.MeterSnapshot) {
	m.mu.Lock()
	prev := m.prev
	m.prev = meter
	m.mu.Unlock()

	// A new session restarts the meter counters.
	if meter.Blocks < prev.Blocks {
		prev = engine.MeterSnapshot{}
	}

	m.Blocks.Add(ctx, int64(meter.Blocks-prev.Blocks))
	m.Callbacks.Add(ctx, int64(delta.Callbacks))
	m.Overruns.Add(ctx, int64(delta.Overruns))

	m.addUnderrun(ctx, delta.InputUnderflows, "input", "underflow")
	m.addUnderrun(ctx, delta.InputOverflows, "input", "overflow")
	m.addUnderrun(ctx, delta.OutputUnderflows, "output", "underflow")
	m.addUnderrun(ctx, delta.OutputOverflows, "output", "overflow")

	if n := meter.Opens - prev.Opens; n > 0 {
		m.GateTransitions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("to", "open")))
	}
	if n := meter.Closes - prev.Closes; n > 0 {
		m.GateTransitions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("to", "closed")))
	}

	if delta.Callbacks > 0 {
		m.CallbackDuration.Record(ctx, delta.MaxCallback.Seconds())
	}

	open := int64(0)
	if meter.Open {
		open = 1
	}
	m.GateOpen.Record(ctx, open)
	m.GateGain.Record(ctx, meter.Gain)
	m.Level.Record(ctx, meter.LevelDB)
}

func (m *Metrics) addUnderrun(ctx context.Context, n uint64, direction, kind string) {
	if n == 0 {
		return
	}
	m.Underruns.Add(ctx, int64(n),
		metric.WithAttributes(
			attribute.String("direction", direction),
			attribute.String("kind", kind),
		),
	)
}

var _ engine.Recorder = (*Metrics)(nil)
