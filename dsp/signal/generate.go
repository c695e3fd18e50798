// Package signal generates deterministic test material for the monitor:
// tones and noise at a given dBFS level, a synthetic voiced "speech" signal,
// and timed segment sequences used by offline simulation.
package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/micmon/dsp/core"
)

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...core.ProcessorOption) *Generator {
	return NewGeneratorWithOptions(opts)
}

// NewGeneratorWithOptions creates a configured signal generator with signal-specific options.
func NewGeneratorWithOptions(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processor configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// SampleRate returns the generator sample rate in Hz.
func (g *Generator) SampleRate() float64 {
	return g.cfg.SampleRate
}

// Seed returns the noise seed.
func (g *Generator) Seed() int64 {
	return g.seed
}

// SetSeed changes the noise seed.
func (g *Generator) SetSeed(seed int64) {
	g.seed = seed
}

// Samples converts a duration in seconds to a sample count at the
// generator rate.
func (g *Generator) Samples(seconds float64) int {
	return int(math.Round(seconds * g.cfg.SampleRate))
}

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if err := g.validate("sine", samples); err != nil {
		return nil, err
	}
	if freqHz <= 0 || freqHz >= g.cfg.SampleRate/2 {
		return nil, fmt.Errorf("sine frequency must be in (0, %f): %f", g.cfg.SampleRate/2, freqHz)
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if err := g.validate("noise", samples); err != nil {
		return nil, err
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out, nil
}

// ToneAtDB generates a sine whose RMS level is levelDB dBFS.
func (g *Generator) ToneAtDB(freqHz, levelDB float64, samples int) ([]float64, error) {
	return g.Sine(freqHz, core.DBToLinear(levelDB)*math.Sqrt2, samples)
}

// NoiseAtDB generates white noise whose RMS level is levelDB dBFS.
func (g *Generator) NoiseAtDB(levelDB float64, samples int) ([]float64, error) {
	// Uniform noise in [-a, a] has RMS a/sqrt(3).
	return g.WhiteNoise(core.DBToLinear(levelDB)*math.Sqrt(3), samples)
}

// Voice parameters for Speech.
const (
	speechFundamentalHz = 140.0
	speechHarmonics     = 8
	speechSyllableHz    = 4.0
	speechModDepth      = 0.4
)

// Speech generates a voiced, syllable-modulated harmonic signal whose RMS
// level is levelDB dBFS. Over any 10 ms window its level stays within a
// few dB of levelDB.
func (g *Generator) Speech(levelDB float64, samples int) ([]float64, error) {
	if err := g.validate("speech", samples); err != nil {
		return nil, err
	}

	nyquist := g.cfg.SampleRate / 2
	out := make([]float64, samples)
	for i := range out {
		t := float64(i) / g.cfg.SampleRate
		v := 0.0
		for k := 1; k <= speechHarmonics; k++ {
			f := speechFundamentalHz * float64(k)
			if f >= nyquist {
				break
			}
			v += math.Sin(2*math.Pi*f*t) / float64(k)
		}
		env := 1 - speechModDepth*0.5*(1-math.Cos(2*math.Pi*speechSyllableHz*t))
		out[i] = v * env
	}

	return scaleToRMS(out, core.DBToLinear(levelDB)), nil
}

// Silence returns samples zeros.
func (g *Generator) Silence(samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("silence samples must be > 0: %d", samples)
	}
	return make([]float64, samples), nil
}

func (g *Generator) validate(kind string, samples int) error {
	if samples <= 0 {
		return fmt.Errorf("%s samples must be > 0: %d", kind, samples)
	}
	if g.cfg.SampleRate <= 0 {
		return fmt.Errorf("%s sample rate must be > 0: %f", kind, g.cfg.SampleRate)
	}
	return nil
}

// Normalize scales data to target peak amplitude and returns a new slice.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("normalize input must not be empty")
	}

	maxAbs := 0.0
	for _, v := range data {
		av := math.Abs(v)
		if av > maxAbs {
			maxAbs = av
		}
	}

	out := make([]float64, len(data))
	if maxAbs == 0 || targetPeak == 0 {
		return out, nil
	}

	scale := targetPeak / maxAbs
	for i, v := range data {
		out[i] = v * scale
	}
	return out, nil
}

// RMS returns the root-mean-square of data, 0 for empty input.
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(data)))
}

func scaleToRMS(data []float64, target float64) []float64 {
	rms := RMS(data)
	if rms == 0 {
		return data
	}
	scale := target / rms
	for i := range data {
		data[i] *= scale
	}
	return data
}
