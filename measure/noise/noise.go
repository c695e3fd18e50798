// Package noise analyzes captured ambient input for calibration: the
// broadband noise floor, the peak, the DC offset and the level of mains hum
// at the local mains frequency and its harmonics.
package noise

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/micmon/dsp/core"
	"github.com/cwbudde/micmon/stats/frequency"
	"github.com/cwbudde/micmon/stats/level"
)

const (
	defaultFFTSize   = 8192
	defaultHarmonics = 3
	defaultMarginDB  = 10.0
	defaultMainsHz   = 50.0
	minFFTSize       = 256

	// captureBins is the half-width, in bins, of the Hann main lobe
	// summed around each hum frequency.
	captureBins = 2
)

// ErrNoSignal is returned by Result when nothing has been analyzed.
var ErrNoSignal = errors.New("noise: no samples analyzed")

// Config holds analysis parameters.
type Config struct {
	SampleRate float64
	// FFTSize is the power-of-two frame length used for hum detection.
	FFTSize int
	// MainsHz is the mains fundamental, usually 50 or 60.
	MainsHz float64
	// Harmonics is the number of hum components measured, fundamental
	// included.
	Harmonics int
	// MarginDB is added to the floor to suggest a gate threshold.
	// Zero fields select the defaults.
	MarginDB float64
}

// HumLevel is the measured level of one hum component.
type HumLevel struct {
	FrequencyHz float64
	LevelDB     float64
}

// Result holds calibration measurements. Levels are dBFS. Spectrum
// describes the averaged noise spectrum and is zero when the capture was
// shorter than one FFT frame.
type Result struct {
	Samples              int
	FloorDB              float64
	PeakDB               float64
	DCOffset             float64
	CrestDB              float64
	Spectrum             frequency.Shape
	MainsHz              float64
	Hum                  []HumLevel
	HumDB                float64
	SuggestedThresholdDB float64
}

// Analyzer accumulates input blocks and produces a Result. Spectral frames
// are averaged across the whole capture.
type Analyzer struct {
	cfg Config

	plan   *algofft.Plan[complex128]
	window []float64
	winSq  float64

	frame   []float64
	conv    []float64
	fill    int
	in      []complex128
	out     []complex128
	re      []float64
	im      []float64
	mag     []float64
	power   []float64
	nFrames int

	level level.Meter
}

// NewAnalyzer validates cfg and allocates all analysis buffers.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	cfg = normalizeConfig(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("noise: fft plan: %w", err)
	}

	bins := cfg.FFTSize/2 + 1
	a := &Analyzer{
		cfg:    cfg,
		plan:   plan,
		window: hann(cfg.FFTSize),
		frame:  make([]float64, cfg.FFTSize),
		conv:   make([]float64, cfg.FFTSize),
		in:     make([]complex128, cfg.FFTSize),
		out:    make([]complex128, cfg.FFTSize),
		re:     make([]float64, bins),
		im:     make([]float64, bins),
		mag:    make([]float64, bins),
		power:  make([]float64, bins),
	}
	for _, w := range a.window {
		a.winSq += w * w
	}

	return a, nil
}

// Config returns the normalized analysis configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Add feeds one block of samples.
func (a *Analyzer) Add(block []float64) error {
	a.level.Add(block)
	for _, v := range block {
		a.frame[a.fill] = v
		a.fill++
		if a.fill == len(a.frame) {
			if err := a.processFrame(); err != nil {
				return err
			}
			a.fill = 0
		}
	}
	return nil
}

// AddFloat32 feeds one block of float32 samples, as delivered by an audio
// device.
func (a *Analyzer) AddFloat32(block []float32) error {
	for len(block) > 0 {
		n := len(block)
		if n > len(a.frame) {
			n = len(a.frame)
		}
		core.FromFloat32(a.conv[:n], block[:n])
		if err := a.Add(a.conv[:n]); err != nil {
			return err
		}
		block = block[n:]
	}
	return nil
}

// Frames returns the number of complete spectral frames analyzed.
func (a *Analyzer) Frames() int {
	return a.nFrames
}

// Reset clears all accumulated state.
func (a *Analyzer) Reset() {
	a.fill = 0
	a.nFrames = 0
	a.level.Reset()
	core.Zero(a.power)
}

// Result summarizes everything added so far. Hum levels are only reported
// once at least one full spectral frame has been analyzed.
func (a *Analyzer) Result() (Result, error) {
	if a.level.Samples() == 0 {
		return Result{}, ErrNoSignal
	}

	st := a.level.Result()
	res := Result{
		Samples:  st.Samples,
		FloorDB:  st.RMSDB,
		PeakDB:   st.PeakDB,
		DCOffset: st.DC,
		CrestDB:  st.CrestDB,
		MainsHz:  a.cfg.MainsHz,
		HumDB:    core.SilenceFloorDB,
		SuggestedThresholdDB: core.Clamp(
			st.RMSDB+a.cfg.MarginDB, core.SilenceFloorDB, 0),
	}

	if a.nFrames > 0 {
		res.Hum, res.HumDB = a.hum()
		res.Spectrum = a.shape()
	}

	return res, nil
}

func (a *Analyzer) processFrame() error {
	vecmath.MulBlockInPlace(a.frame, a.window)
	for i, v := range a.frame {
		a.in[i] = complex(v, 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return fmt.Errorf("noise: fft: %w", err)
	}

	for k := range a.mag {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)

	for k, m := range a.mag {
		a.power[k] += m * m
	}
	a.nFrames++

	return nil
}

// hum converts averaged bin power around each harmonic into an RMS level.
// For a Hann-windowed sinusoid the positive-frequency bins hold
// N*sum(w^2)*rms^2/2 of energy.
func (a *Analyzer) hum() ([]HumLevel, float64) {
	size := float64(a.cfg.FFTSize)
	binHz := a.cfg.SampleRate / size
	maxBin := len(a.power) - 1
	norm := 2 / (size * a.winSq * float64(a.nFrames))

	levels := make([]HumLevel, 0, a.cfg.Harmonics)
	total := 0.0
	for h := 1; h <= a.cfg.Harmonics; h++ {
		freq := a.cfg.MainsHz * float64(h)
		center := int(math.Round(freq / binHz))
		if center+captureBins > maxBin {
			break
		}

		energy := 0.0
		for k := max(center-captureBins, 1); k <= center+captureBins; k++ {
			energy += a.power[k]
		}

		ms := energy * norm
		total += ms
		levels = append(levels, HumLevel{
			FrequencyHz: freq,
			LevelDB:     core.LinearToDBFloor(math.Sqrt(ms), core.SilenceFloorDB),
		})
	}

	return levels, core.LinearToDBFloor(math.Sqrt(total), core.SilenceFloorDB)
}

// shape describes the averaged magnitude spectrum. It reuses the per-frame
// magnitude buffer, which is free between frames.
func (a *Analyzer) shape() frequency.Shape {
	n := float64(a.nFrames)
	for k, p := range a.power {
		a.mag[k] = math.Sqrt(p / n)
	}
	return frequency.Describe(a.mag, a.cfg.SampleRate)
}

// Analyze is a one-shot analysis of a complete capture.
func Analyze(signal []float64, cfg Config) (Result, error) {
	a, err := NewAnalyzer(cfg)
	if err != nil {
		return Result{}, err
	}
	if err := a.Add(signal); err != nil {
		return Result{}, err
	}
	return a.Result()
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func normalizeConfig(cfg Config) Config {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = core.DefaultSampleRate
	}
	if cfg.FFTSize == 0 {
		cfg.FFTSize = defaultFFTSize
	}
	if cfg.MainsHz == 0 {
		cfg.MainsHz = defaultMainsHz
	}
	if cfg.Harmonics == 0 {
		cfg.Harmonics = defaultHarmonics
	}
	if cfg.MarginDB == 0 {
		cfg.MarginDB = defaultMarginDB
	}
	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.SampleRate <= 0 || math.IsNaN(cfg.SampleRate) {
		return fmt.Errorf("noise: sample rate must be > 0: %f", cfg.SampleRate)
	}
	if cfg.FFTSize < minFFTSize || bits.OnesCount(uint(cfg.FFTSize)) != 1 {
		return fmt.Errorf("noise: fft size must be a power of two >= %d: %d", minFFTSize, cfg.FFTSize)
	}
	if cfg.MainsHz <= 0 || cfg.MainsHz >= cfg.SampleRate/2 {
		return fmt.Errorf("noise: mains frequency must be in (0, %f): %f", cfg.SampleRate/2, cfg.MainsHz)
	}
	if cfg.Harmonics < 1 {
		return fmt.Errorf("noise: harmonics must be >= 1: %d", cfg.Harmonics)
	}
	if cfg.MarginDB < 0 || cfg.MarginDB > 40 {
		return fmt.Errorf("noise: margin must be in [0, 40]: %f", cfg.MarginDB)
	}
	return nil
}
