package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/micmon/dsp/core"
	"github.com/cwbudde/micmon/dsp/dynamics"
	"github.com/cwbudde/micmon/internal/config"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	fadeGrace           = 50 * time.Millisecond
	fadeDuration        = time.Duration(dynamics.FadeMs * float64(time.Millisecond))
)

// Engine owns the stream lifecycle around a Processor.
type Engine struct {
	backend      Backend
	logger       *slog.Logger
	recorder     Recorder
	pollInterval time.Duration

	cfg      atomic.Pointer[config.Runtime]
	counters counters

	mu      sync.Mutex
	proc    *Processor
	stream  Stream
	cancel  context.CancelFunc
	monDone chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder attaches a metrics recorder fed by the monitor goroutine.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithPollInterval sets how often the monitor reads the callback counters.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// New creates a stopped engine for rt.
func New(rt *config.Runtime, backend Backend, opts ...Option) (*Engine, error) {
	if rt == nil {
		return nil, fmt.Errorf("engine: nil runtime config")
	}
	if backend == nil {
		return nil, fmt.Errorf("engine: nil backend")
	}

	e := &Engine{
		backend:      backend,
		logger:       slog.New(slog.DiscardHandler),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.cfg.Store(rt)

	return e, nil
}

// Config returns the current runtime snapshot.
func (e *Engine) Config() *config.Runtime {
	return e.cfg.Load()
}

// Running reports whether a stream is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stream != nil
}

// Start builds a fresh pipeline, opens the stream and starts the monitor.
// The monitor stops when ctx is canceled or Stop is called; the stream
// only stops on Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream != nil {
		return ErrAlreadyRunning
	}

	rt := e.cfg.Load()
	proc, err := NewProcessor(rt)
	if err != nil {
		return err
	}

	e.counters.reset()
	nsPerFrame := float64(time.Second) / rt.SampleRate()
	cb := func(in, out []float32, status Status) {
		start := time.Now()
		proc.Process(in, out)
		elapsed := time.Since(start)
		e.counters.record(status, len(out), elapsed, time.Duration(float64(len(out))*nsPerFrame))
	}

	stream, err := e.backend.OpenDuplex(StreamParams{
		SampleRate:   rt.SampleRate(),
		BlockSize:    rt.BlockSize(),
		InputDevice:  rt.InputDevice(),
		OutputDevice: rt.OutputDevice(),
	}, cb)
	if err != nil {
		return fmt.Errorf("engine: open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("engine: start stream: %w", err)
	}

	info := stream.Info()
	e.logger.Info("audio stream started",
		"profile", rt.Profile().Name,
		"block_size", rt.BlockSize(),
		"sample_rate", info.SampleRate,
		"input", info.InputDevice,
		"output", info.OutputDevice,
		"input_latency", info.InputLatency,
		"output_latency", info.OutputLatency,
	)

	mctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go e.monitor(mctx, proc, done)

	e.proc = proc
	e.stream = stream
	e.cancel = cancel
	e.monDone = done

	return nil
}

// Stop fades the output to silence, closes the stream and waits for the
// monitor's final report.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return ErrNotRunning
	}

	e.proc.BeginFade()
	select {
	case <-e.proc.Faded():
	case <-time.After(e.fadeTimeout()):
		e.logger.Warn("fade-out not confirmed by audio callback", "timeout", e.fadeTimeout())
	}

	errStop := e.stream.Stop()
	errClose := e.stream.Close()

	e.cancel()
	<-e.monDone

	stats := e.counters.snapshot()
	e.logger.Info("audio stream stopped",
		"callbacks", stats.Callbacks,
		"underruns", stats.Underruns(),
		"overflows", stats.Overflows(),
		"overruns", stats.Overruns,
		"max_callback", stats.MaxCallback,
	)

	e.proc = nil
	e.stream = nil
	e.cancel = nil
	e.monDone = nil

	if err := errors.Join(errStop, errClose); err != nil {
		return fmt.Errorf("engine: stop stream: %w", err)
	}
	return nil
}

// Run starts the engine, blocks until ctx is done and stops it.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return e.Stop()
}

// Update publishes a new snapshot. While running only the threshold and
// the volume can change; other differences return ErrRestartRequired. A
// stopped engine accepts any snapshot for the next Start.
func (e *Engine) Update(rt *config.Runtime) error {
	if rt == nil {
		return fmt.Errorf("engine: nil runtime config")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc != nil {
		if err := e.proc.Update(rt); err != nil {
			return err
		}
	}
	e.cfg.Store(rt)

	e.logger.Info("settings updated",
		"threshold_db", rt.ThresholdDB(),
		"volume_pct", rt.VolumePercent(),
	)

	return nil
}

// Meter returns the live pipeline state, or the configured values with a
// closed gate when stopped.
func (e *Engine) Meter() MeterSnapshot {
	e.mu.Lock()
	proc := e.proc
	e.mu.Unlock()

	if proc != nil {
		return proc.Meter()
	}

	rt := e.cfg.Load()
	return MeterSnapshot{
		LevelDB:       core.SilenceFloorDB,
		ThresholdDB:   rt.ThresholdDB(),
		VolumePercent: rt.VolumePercent(),
	}
}

// Stats returns cumulative callback counters for the current or last
// session.
func (e *Engine) Stats() Stats {
	return e.counters.snapshot()
}

func (e *Engine) fadeTimeout() time.Duration {
	return 4*e.cfg.Load().BlockLatency() + fadeDuration + fadeGrace
}

func (e *Engine) monitor(ctx context.Context, proc *Processor, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	var prev Stats
	var prevMeter MeterSnapshot
	for {
		select {
		case <-ctx.Done():
			e.report(context.WithoutCancel(ctx), proc, &prev, &prevMeter)
			return
		case <-ticker.C:
			e.report(ctx, proc, &prev, &prevMeter)
		}
	}
}

func (e *Engine) report(ctx context.Context, proc *Processor, prev *Stats, prevMeter *MeterSnapshot) {
	cur := e.counters.snapshot()
	delta := cur.Sub(*prev)
	delta.MaxCallback = e.counters.takeIntervalMax()
	*prev = cur

	meter := proc.Meter()

	if delta.Underruns() > 0 {
		e.logger.Warn("audio underrun",
			"input", delta.InputUnderflows,
			"output", delta.OutputUnderflows,
			"total", cur.Underruns(),
		)
	}
	if delta.Overflows() > 0 {
		e.logger.Warn("audio overflow",
			"input", delta.InputOverflows,
			"output", delta.OutputOverflows,
			"total", cur.Overflows(),
		)
	}
	if delta.Overruns > 0 {
		e.logger.Warn("audio callback overran its block period",
			"count", delta.Overruns,
			"max_callback", delta.MaxCallback,
			"block", e.cfg.Load().BlockLatency(),
		)
	}
	if meter.NonFinite != prevMeter.NonFinite {
		e.logger.Warn("non-finite input samples replaced with silence",
			"count", meter.NonFinite-prevMeter.NonFinite,
			"total", meter.NonFinite,
		)
	}
	if meter.Opens != prevMeter.Opens || meter.Closes != prevMeter.Closes {
		e.logger.Debug("gate transitions",
			"opens", meter.Opens-prevMeter.Opens,
			"closes", meter.Closes-prevMeter.Closes,
			"open", meter.Open,
			"level_db", meter.LevelDB,
		)
	}
	*prevMeter = meter

	if e.recorder != nil {
		e.recorder.RecordInterval(ctx, delta, meter)
	}
}
