package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/micmon/dsp/core"
	"github.com/cwbudde/micmon/dsp/dynamics"
	"github.com/cwbudde/micmon/internal/config"
)

// Processor is the per-block pipeline. Process is called from a single
// real-time goroutine; Update, BeginFade and Meter may be called
// concurrently from anywhere.
type Processor struct {
	cfg atomic.Pointer[config.Runtime]

	follower  *dynamics.EnvelopeFollower
	gate      *dynamics.Gate
	work      []float64
	blockSize int

	stopping atomic.Bool
	faded    atomic.Bool
	fadeDone chan struct{}

	levelBits atomic.Uint64
	gainBits  atomic.Uint64
	open      atomic.Bool
	blocks    atomic.Uint64
	opens     atomic.Uint64
	closes    atomic.Uint64
	nonFinite atomic.Uint64
}

// MeterSnapshot is a point-in-time view of the pipeline.
type MeterSnapshot struct {
	LevelDB       float64
	Gain          float64
	Open          bool
	Blocks        uint64
	Opens         uint64
	Closes        uint64
	ThresholdDB   float64
	VolumePercent float64

	// NonFinite counts NaN or infinite input samples replaced by silence.
	NonFinite uint64
}

// NewProcessor builds the pipeline for rt. All buffers are allocated here.
func NewProcessor(rt *config.Runtime) (*Processor, error) {
	if rt == nil {
		return nil, fmt.Errorf("engine: nil runtime config")
	}

	cfg := rt.ProcessorConfig()

	follower, err := dynamics.NewEnvelopeFollower(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: envelope follower: %w", err)
	}
	if err := follower.SetDetectorHighPass(rt.DetectorHighPassHz()); err != nil {
		return nil, fmt.Errorf("engine: envelope follower: %w", err)
	}

	gate, err := dynamics.NewGate(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: gate: %w", err)
	}
	if err := gate.SetAttack(rt.AttackMs()); err != nil {
		return nil, fmt.Errorf("engine: gate: %w", err)
	}
	if err := gate.SetRelease(rt.ReleaseMs()); err != nil {
		return nil, fmt.Errorf("engine: gate: %w", err)
	}
	if err := gate.SetHysteresis(rt.HysteresisDB()); err != nil {
		return nil, fmt.Errorf("engine: gate: %w", err)
	}

	p := &Processor{
		follower:  follower,
		gate:      gate,
		work:      make([]float64, cfg.BlockSize),
		blockSize: cfg.BlockSize,
		fadeDone:  make(chan struct{}, 1),
	}
	p.cfg.Store(rt)
	p.levelBits.Store(math.Float64bits(follower.Level()))

	return p, nil
}

// Config returns the snapshot currently in effect.
func (p *Processor) Config() *config.Runtime {
	return p.cfg.Load()
}

// BlockSize returns the processing block size.
func (p *Processor) BlockSize() int {
	return p.blockSize
}

// Update publishes rt to the callback. Only the threshold and the volume
// may differ from the current snapshot.
func (p *Processor) Update(rt *config.Runtime) error {
	if rt == nil {
		return fmt.Errorf("engine: nil runtime config")
	}
	if err := checkLive(p.cfg.Load(), rt); err != nil {
		return err
	}
	p.cfg.Store(rt)
	return nil
}

// Process runs one callback's worth of audio. in and out are mono and
// normally block-sized; longer buffers are processed in block-size chunks
// with a shorter final chunk. Output beyond len(in) is silence.
func (p *Processor) Process(in, out []float32) {
	n := min(len(in), len(out))

	if p.stopping.Load() {
		p.fade(in[:n], out[:n])
		core.Zero32(out[n:])
		return
	}

	for off := 0; off < n; off += p.blockSize {
		end := min(off+p.blockSize, n)
		p.processBlock(in[off:end], out[off:end])
	}

	core.Zero32(out[n:])
}

func (p *Processor) processBlock(in, out []float32) {
	rt := p.cfg.Load()
	w := p.work[:len(in)]

	p.load(w, in)
	level := p.follower.Measure(w)
	state := p.gate.Apply(w, level, rt.ThresholdDB())
	rt.Volume().Process(w)
	core.ToFloat32(out, w)

	p.publish(state)
}

// load widens in into w and replaces samples a misbehaving driver may
// deliver as NaN or Inf, which would otherwise stick in the detector.
func (p *Processor) load(w []float64, in []float32) {
	core.FromFloat32(w, in)
	if k := core.ZeroNonFinite(w); k > 0 {
		p.nonFinite.Add(uint64(k))
	}
}

// fade ramps the gain down block by block, no longer than
// dynamics.FadeMs, then outputs zeros.
func (p *Processor) fade(in, out []float32) {
	if p.faded.Load() {
		core.Zero32(out)
		return
	}

	for off := 0; off < len(in); off += p.blockSize {
		if p.gate.State().CurrentGain == 0 {
			core.Zero32(out[off:])
			break
		}

		end := min(off+p.blockSize, len(in))
		w := p.work[:end-off]

		p.load(w, in[off:end])
		state := p.gate.Silence(w)
		p.cfg.Load().Volume().Process(w)
		core.ToFloat32(out[off:end], w)

		p.publish(state)
	}

	if p.gate.State().CurrentGain > 0 {
		return
	}

	p.faded.Store(true)
	select {
	case p.fadeDone <- struct{}{}:
	default:
	}
}

func (p *Processor) publish(state dynamics.GateState) {
	m := p.gate.GetMetrics()
	p.levelBits.Store(math.Float64bits(state.EnvelopeDB))
	p.gainBits.Store(math.Float64bits(state.CurrentGain))
	p.open.Store(state.IsOpen)
	p.opens.Store(m.Opens)
	p.closes.Store(m.Closes)
	p.blocks.Add(1)
}

// BeginFade makes the following callbacks fade the output to zero, then
// output silence.
func (p *Processor) BeginFade() {
	p.stopping.Store(true)
}

// Faded is signaled once the fade-out has reached zero gain.
func (p *Processor) Faded() <-chan struct{} {
	return p.fadeDone
}

// Meter reads the latest pipeline state.
func (p *Processor) Meter() MeterSnapshot {
	rt := p.cfg.Load()
	return MeterSnapshot{
		LevelDB:       math.Float64frombits(p.levelBits.Load()),
		Gain:          math.Float64frombits(p.gainBits.Load()),
		Open:          p.open.Load(),
		Blocks:        p.blocks.Load(),
		Opens:         p.opens.Load(),
		Closes:        p.closes.Load(),
		ThresholdDB:   rt.ThresholdDB(),
		VolumePercent: rt.VolumePercent(),
		NonFinite:     p.nonFinite.Load(),
	}
}

func checkLive(cur, next *config.Runtime) error {
	switch {
	case cur.Profile().Name != next.Profile().Name:
		return fmt.Errorf("%w: profile", ErrRestartRequired)
	case cur.SampleRate() != next.SampleRate():
		return fmt.Errorf("%w: sample rate", ErrRestartRequired)
	case cur.AttackMs() != next.AttackMs(), cur.ReleaseMs() != next.ReleaseMs():
		return fmt.Errorf("%w: gate timing", ErrRestartRequired)
	case cur.HysteresisDB() != next.HysteresisDB():
		return fmt.Errorf("%w: hysteresis", ErrRestartRequired)
	case cur.DetectorHighPassHz() != next.DetectorHighPassHz():
		return fmt.Errorf("%w: detector high-pass", ErrRestartRequired)
	case cur.InputDevice() != next.InputDevice(), cur.OutputDevice() != next.OutputDevice():
		return fmt.Errorf("%w: device", ErrRestartRequired)
	}
	return nil
}
