package dynamics

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/micmon/dsp/core"
)

const (
	// Default gate parameters
	defaultGateAttackMs     = 5.0
	defaultGateReleaseMs    = 100.0
	defaultGateHysteresisDB = 0.0

	// Gate parameter validation ranges
	minGateAttackMs     = 0.1
	maxGateAttackMs     = 1000.0
	minGateReleaseMs    = 1.0
	maxGateReleaseMs    = 5000.0
	minGateHysteresisDB = 0.0
	maxGateHysteresisDB = 12.0
)

// FadeMs is the longest a fade-out started by Silence takes to reach zero
// gain. Slower release settings do not lengthen it.
const FadeMs = 5.0

// GateState is the history the gate carries from one block to the next.
type GateState struct {
	CurrentGain float64 // Gain reached at the last sample of the previous block, in [0, 1]
	EnvelopeDB  float64 // Detector level the decision was made on
	IsOpen      bool    // Logical gate state
}

// GateMetrics holds transition counts for metering.
type GateMetrics struct {
	Opens  uint64 // Closed to open transitions since last reset
	Closes uint64 // Open to closed transitions since last reset
}

// Gate implements a block-rate noise gate with a continuous gain ramp.
//
// Each block the detector level is compared with the threshold: at or above
// it the target gain is 1, below it 0. The gain then moves toward the target
// by at most one step per block, where the step is derived from the attack
// (opening) or release (closing) time:
//
//	step = blockSize / (time * sampleRate)
//
// so a full 0 to 1 swing takes exactly the configured time. Within a block
// the gain is interpolated per sample from the previous block's final gain
// to this block's final gain, so no stair-step appears at block boundaries.
//
// With a hysteresis margin m > 0 the gate opens only at threshold + m and
// closes only below threshold - m. The default margin is 0, which reduces
// to the plain level >= threshold rule.
//
// The gate starts closed. This implementation is single-threaded and not
// thread-safe. Parameter changes should occur outside audio processing
// callbacks.
type Gate struct {
	sampleRate   float64
	blockSize    int
	attackMs     float64
	releaseMs    float64
	hysteresisDB float64

	// Per-sample gain slopes
	attackSlope  float64
	releaseSlope float64
	fadeSlope    float64

	state   GateState
	ramp    []float64
	metrics GateMetrics
}

// NewGate creates a closed gate with a 5 ms attack, 100 ms release and no
// hysteresis.
func NewGate(cfg core.ProcessorConfig) (*Gate, error) {
	if err := validateProcessorConfig(cfg); err != nil {
		return nil, err
	}

	g := &Gate{
		sampleRate:   cfg.SampleRate,
		blockSize:    cfg.BlockSize,
		attackMs:     defaultGateAttackMs,
		releaseMs:    defaultGateReleaseMs,
		hysteresisDB: defaultGateHysteresisDB,
		ramp:         make([]float64, cfg.BlockSize),
	}

	g.updateTimeConstants()
	g.Reset()

	return g, nil
}

// SetAttack sets the attack time in milliseconds (gate opening speed).
// Range: 0.1 to 1000 ms.
func (g *Gate) SetAttack(ms float64) error {
	if ms < minGateAttackMs || ms > maxGateAttackMs || !core.IsFinite(ms) {
		return fmt.Errorf("gate attack must be in [%f, %f]: %f",
			minGateAttackMs, maxGateAttackMs, ms)
	}

	g.attackMs = ms
	g.updateTimeConstants()

	return nil
}

// SetRelease sets the release time in milliseconds (gate closing speed).
// Range: 1 to 5000 ms.
func (g *Gate) SetRelease(ms float64) error {
	if ms < minGateReleaseMs || ms > maxGateReleaseMs || !core.IsFinite(ms) {
		return fmt.Errorf("gate release must be in [%f, %f]: %f",
			minGateReleaseMs, maxGateReleaseMs, ms)
	}

	g.releaseMs = ms
	g.updateTimeConstants()

	return nil
}

// SetHysteresis sets the open/close margin in dB. Range: 0 to 12 dB.
func (g *Gate) SetHysteresis(dB float64) error {
	if dB < minGateHysteresisDB || dB > maxGateHysteresisDB || !core.IsFinite(dB) {
		return fmt.Errorf("gate hysteresis must be in [%f, %f]: %f",
			minGateHysteresisDB, maxGateHysteresisDB, dB)
	}

	g.hysteresisDB = dB

	return nil
}

// SetBlockSize resizes the ramp buffer for a new block size.
func (g *Gate) SetBlockSize(blockSize int) error {
	if blockSize <= 0 {
		return fmt.Errorf("gate block size must be positive: %d", blockSize)
	}

	g.blockSize = blockSize
	g.ramp = core.EnsureLen(g.ramp, blockSize)

	return nil
}

// SetSampleRate updates sample rate and recalculates time constants.
func (g *Gate) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("gate sample rate must be positive and finite: %f", sampleRate)
	}

	g.sampleRate = sampleRate
	g.updateTimeConstants()

	return nil
}

// Attack returns the current attack time in milliseconds.
func (g *Gate) Attack() float64 { return g.attackMs }

// Release returns the current release time in milliseconds.
func (g *Gate) Release() float64 { return g.releaseMs }

// Hysteresis returns the current open/close margin in dB.
func (g *Gate) Hysteresis() float64 { return g.hysteresisDB }

// BlockSize returns the configured block size.
func (g *Gate) BlockSize() int { return g.blockSize }

// SampleRate returns the current sample rate in Hz.
func (g *Gate) SampleRate() float64 { return g.sampleRate }

// AttackStep returns the largest gain increase over one full block.
func (g *Gate) AttackStep() float64 {
	return min(g.attackSlope*float64(g.blockSize), 1)
}

// ReleaseStep returns the largest gain decrease over one full block.
func (g *Gate) ReleaseStep() float64 {
	return min(g.releaseSlope*float64(g.blockSize), 1)
}

// FadeStep returns the largest gain decrease over one full block while
// fading out.
func (g *Gate) FadeStep() float64 {
	return min(g.fadeSlope*float64(g.blockSize), 1)
}

// State returns the gate state after the most recent Apply.
func (g *Gate) State() GateState { return g.state }

// Apply gates block in place using the detector level and threshold, and
// returns the new state. Blocks longer than the configured block size are
// accepted but allocate a larger ramp once.
func (g *Gate) Apply(block []float64, levelDB, thresholdDB float64) GateState {
	n := len(block)
	if n == 0 {
		return g.state
	}

	open := g.decide(levelDB, thresholdDB)
	if open != g.state.IsOpen {
		if open {
			g.metrics.Opens++
		} else {
			g.metrics.Closes++
		}
	}

	start := g.state.CurrentGain
	end := g.nextGain(start, open, n)

	g.state = GateState{
		CurrentGain: end,
		EnvelopeDB:  levelDB,
		IsOpen:      open,
	}

	g.applyRamp(block, start, end)

	return g.state
}

// Silence closes the gate and moves the gain toward zero at the release
// rate or the FadeMs rate, whichever is faster, regardless of level. Call
// it once per block until the returned CurrentGain is 0 to fade out before
// a stream stops.
func (g *Gate) Silence(block []float64) GateState {
	n := len(block)
	if n == 0 {
		return g.state
	}

	start := g.state.CurrentGain
	if g.state.IsOpen {
		g.metrics.Closes++
	}

	end := max(start-g.fadeSlope*float64(n), 0)

	g.state = GateState{CurrentGain: end, EnvelopeDB: g.state.EnvelopeDB}
	g.applyRamp(block, start, end)

	return g.state
}

// Reset closes the gate and clears metrics.
func (g *Gate) Reset() {
	g.state = GateState{EnvelopeDB: core.SilenceFloorDB}
	g.metrics = GateMetrics{}
}

// GetMetrics returns current transition counts.
func (g *Gate) GetMetrics() GateMetrics {
	return g.metrics
}

// ResetMetrics clears transition counts.
func (g *Gate) ResetMetrics() {
	g.metrics = GateMetrics{}
}

func (g *Gate) decide(levelDB, thresholdDB float64) bool {
	if g.hysteresisDB <= 0 {
		return levelDB >= thresholdDB
	}

	if g.state.IsOpen {
		return levelDB >= thresholdDB-g.hysteresisDB
	}

	return levelDB >= thresholdDB+g.hysteresisDB
}

func (g *Gate) nextGain(current float64, open bool, n int) float64 {
	target := 0.0
	if open {
		target = 1.0
	}

	delta := target - current
	switch {
	case delta > 0:
		if step := g.attackSlope * float64(n); delta > step {
			return core.Clamp(current+step, 0, 1)
		}
	case delta < 0:
		if step := g.releaseSlope * float64(n); -delta > step {
			return core.Clamp(current-step, 0, 1)
		}
	}

	return target
}

// applyRamp scales block by a gain moving linearly from start to end, with
// the last sample landing exactly on end.
func (g *Gate) applyRamp(block []float64, start, end float64) {
	n := len(block)

	if start == end {
		switch end {
		case 0:
			core.Zero(block)
		case 1:
		default:
			for i := range block {
				block[i] *= end
			}
		}

		return
	}

	if n > len(g.ramp) {
		g.ramp = core.EnsureLen(g.ramp, n)
	}

	ramp := g.ramp[:n]
	step := (end - start) / float64(n)

	for i := range ramp {
		ramp[i] = start + step*float64(i+1)
	}

	ramp[n-1] = end

	vecmath.MulBlockInPlace(block, ramp)
}

func (g *Gate) updateTimeConstants() {
	g.attackSlope = 1.0 / (g.attackMs * 0.001 * g.sampleRate)
	g.releaseSlope = 1.0 / (g.releaseMs * 0.001 * g.sampleRate)
	g.fadeSlope = max(g.releaseSlope, 1.0/(FadeMs*0.001*g.sampleRate))
}
