package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/micmon/dsp/core"
)

const (
	// Default follower parameters
	defaultFollowerAttackMs  = 1.0
	defaultFollowerReleaseMs = 20.0

	// Follower parameter validation ranges
	minFollowerAttackMs  = 0.01
	maxFollowerAttackMs  = 1000.0
	minFollowerReleaseMs = 0.1
	maxFollowerReleaseMs = 5000.0
	minDetectorCutoffHz  = 1.0
)

// EnvelopeFollower converts audio blocks into a smoothed loudness in dB.
//
// Each call to Measure computes the RMS of one block and folds it into a
// first-order recursive average. Rising levels use the attack time
// constant, falling levels the release time constant. Both are converted to
// per-block coefficients exp(-blockSize / (tau * sampleRate)), so a shorter
// block uses a coefficient closer to 1 for the same wall-clock smoothing.
//
// The smoothed magnitude is reported in dBFS clamped to [floor, 0]; silence
// yields the floor (default -96 dB), never -Inf.
//
// An optional one-pole high-pass on the detector input keeps DC offset and
// low rumble from holding a gate open. The measured block itself is never
// modified.
type EnvelopeFollower struct {
	sampleRate float64
	blockSize  int
	attackMs   float64
	releaseMs  float64
	floorDB    float64
	cutoffHz   float64

	// Per-block coefficients for blockSize
	attackCoeff  float64
	releaseCoeff float64

	smoothed float64
	levelDB  float64

	hp onePoleHighPass
}

// NewEnvelopeFollower creates a follower for the given sample rate and
// block size with a 1 ms attack, 20 ms release and a -96 dB floor.
func NewEnvelopeFollower(cfg core.ProcessorConfig) (*EnvelopeFollower, error) {
	if err := validateProcessorConfig(cfg); err != nil {
		return nil, err
	}

	f := &EnvelopeFollower{
		sampleRate: cfg.SampleRate,
		blockSize:  cfg.BlockSize,
		attackMs:   defaultFollowerAttackMs,
		releaseMs:  defaultFollowerReleaseMs,
		floorDB:    core.SilenceFloorDB,
	}

	f.updateCoefficients()
	f.Reset()

	return f, nil
}

// SetAttack sets the rise time constant in milliseconds.
func (f *EnvelopeFollower) SetAttack(ms float64) error {
	if ms < minFollowerAttackMs || ms > maxFollowerAttackMs || !core.IsFinite(ms) {
		return fmt.Errorf("follower attack must be in [%f, %f]: %f",
			minFollowerAttackMs, maxFollowerAttackMs, ms)
	}

	f.attackMs = ms
	f.updateCoefficients()

	return nil
}

// SetRelease sets the fall time constant in milliseconds.
func (f *EnvelopeFollower) SetRelease(ms float64) error {
	if ms < minFollowerReleaseMs || ms > maxFollowerReleaseMs || !core.IsFinite(ms) {
		return fmt.Errorf("follower release must be in [%f, %f]: %f",
			minFollowerReleaseMs, maxFollowerReleaseMs, ms)
	}

	f.releaseMs = ms
	f.updateCoefficients()

	return nil
}

// SetBlockSize recomputes the per-block coefficients for a new block size.
func (f *EnvelopeFollower) SetBlockSize(blockSize int) error {
	if blockSize <= 0 {
		return fmt.Errorf("follower block size must be positive: %d", blockSize)
	}

	f.blockSize = blockSize
	f.updateCoefficients()

	return nil
}

// SetSampleRate updates the sample rate and recalculates coefficients.
func (f *EnvelopeFollower) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("follower sample rate must be positive and finite: %f", sampleRate)
	}

	f.sampleRate = sampleRate
	f.updateCoefficients()
	f.hp.Configure(f.cutoffHz, f.sampleRate)

	return nil
}

// SetFloor sets the lowest reported level in dB. Range: -144 to -24 dB.
func (f *EnvelopeFollower) SetFloor(dB float64) error {
	if dB < -144 || dB > -24 || !core.IsFinite(dB) {
		return fmt.Errorf("follower floor must be in [%f, %f]: %f", -144.0, -24.0, dB)
	}

	f.floorDB = dB
	f.levelDB = math.Max(f.levelDB, dB)

	return nil
}

// SetDetectorHighPass enables a one-pole high-pass on the detector input.
// Zero disables it. The cutoff must stay below Nyquist.
func (f *EnvelopeFollower) SetDetectorHighPass(hz float64) error {
	if hz < 0 || !core.IsFinite(hz) {
		return fmt.Errorf("detector high-pass must be non-negative and finite: %f", hz)
	}

	if hz > 0 && (hz < minDetectorCutoffHz || hz >= f.sampleRate*0.5) {
		return fmt.Errorf("detector high-pass must be in [%f, nyquist): %f", minDetectorCutoffHz, hz)
	}

	f.cutoffHz = hz
	f.hp.Configure(hz, f.sampleRate)

	return nil
}

// Attack returns the rise time constant in milliseconds.
func (f *EnvelopeFollower) Attack() float64 { return f.attackMs }

// Release returns the fall time constant in milliseconds.
func (f *EnvelopeFollower) Release() float64 { return f.releaseMs }

// BlockSize returns the block size the coefficients are computed for.
func (f *EnvelopeFollower) BlockSize() int { return f.blockSize }

// SampleRate returns the current sample rate in Hz.
func (f *EnvelopeFollower) SampleRate() float64 { return f.sampleRate }

// Floor returns the lowest reported level in dB.
func (f *EnvelopeFollower) Floor() float64 { return f.floorDB }

// DetectorHighPass returns the detector high-pass cutoff, 0 when disabled.
func (f *EnvelopeFollower) DetectorHighPass() float64 { return f.cutoffHz }

// Level returns the most recent smoothed level in dB.
func (f *EnvelopeFollower) Level() float64 { return f.levelDB }

// Coefficients returns the per-block attack and release coefficients.
func (f *EnvelopeFollower) Coefficients() (attack, release float64) {
	return f.attackCoeff, f.releaseCoeff
}

// Measure folds block into the running envelope and returns the smoothed
// level in dB. The block is not modified. An empty block leaves the
// envelope unchanged. NaN and infinite samples count as silence.
func (f *EnvelopeFollower) Measure(block []float64) float64 {
	n := len(block)
	if n == 0 {
		return f.levelDB
	}

	var sum float64
	if f.hp.enabled {
		for _, x := range block {
			if !core.IsFinite(x) {
				x = 0
			}
			x = f.hp.Process(x)
			sum += x * x
		}
		if !core.IsFinite(f.hp.lp.state) {
			f.hp.Reset()
		}
	} else {
		for _, x := range block {
			if core.IsFinite(x) {
				sum += x * x
			}
		}
	}

	rms := math.Sqrt(sum / float64(n))
	if !core.IsFinite(rms) {
		// Finite samples too large to square; keep the previous envelope.
		return f.levelDB
	}

	attack, release := f.attackCoeff, f.releaseCoeff
	if n != f.blockSize {
		attack = f.coefficient(f.attackMs, n)
		release = f.coefficient(f.releaseMs, n)
	}

	coeff := release
	if rms > f.smoothed {
		coeff = attack
	}

	f.smoothed = core.FlushDenormals(rms + (f.smoothed-rms)*coeff)
	f.levelDB = math.Min(core.LinearToDBFloor(f.smoothed, f.floorDB), 0)

	return f.levelDB
}

// Reset clears the envelope to silence.
func (f *EnvelopeFollower) Reset() {
	f.smoothed = 0
	f.levelDB = f.floorDB
	f.hp.Reset()
}

func (f *EnvelopeFollower) updateCoefficients() {
	f.attackCoeff = f.coefficient(f.attackMs, f.blockSize)
	f.releaseCoeff = f.coefficient(f.releaseMs, f.blockSize)
}

// coefficient is the per-sample pole exp(-1/(tau*fs)) raised to n.
func (f *EnvelopeFollower) coefficient(ms float64, n int) float64 {
	return math.Exp(-float64(n) / (ms * 0.001 * f.sampleRate))
}

func validateProcessorConfig(cfg core.ProcessorConfig) error {
	if cfg.SampleRate <= 0 || !core.IsFinite(cfg.SampleRate) {
		return fmt.Errorf("sample rate must be positive and finite: %f", cfg.SampleRate)
	}

	if cfg.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive: %d", cfg.BlockSize)
	}

	return nil
}
