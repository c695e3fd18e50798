package config

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/micmon/dsp/core"
	"github.com/cwbudde/micmon/dsp/dynamics"
)

// Validation ranges.
const (
	MinThresholdDB    = -96.0
	MaxThresholdDB    = 0.0
	MinSampleRate     = 8000.0
	MaxSampleRate     = 192000.0
	MinBlockSize      = 16
	MaxBlockSize      = 4096
	MinAttackMs       = 0.1
	MaxAttackMs       = 1000.0
	MinReleaseMs      = 1.0
	MaxReleaseMs      = 5000.0
	MinHysteresisDB   = 0.0
	MaxHysteresisDB   = 12.0
	DefaultAttackMs   = 5.0
	DefaultReleaseMs  = 100.0
	DefaultVolumePct  = 100.0
	DefaultSampleRate = 48000.0
)

// Options are the already-parsed user choices a Runtime is built from.
type Options struct {
	Profile       string
	VolumePercent float64
	// ThresholdDB overrides the profile threshold when non-nil.
	ThresholdDB        *float64
	SampleRate         float64
	AttackMs           float64
	ReleaseMs          float64
	HysteresisDB       float64
	DetectorHighPassHz float64
	InputDevice        string
	OutputDevice       string
}

// DefaultOptions returns the options used when nothing is overridden.
func DefaultOptions() Options {
	return Options{
		Profile:       DefaultProfile,
		VolumePercent: DefaultVolumePct,
		SampleRate:    DefaultSampleRate,
		AttackMs:      DefaultAttackMs,
		ReleaseMs:     DefaultReleaseMs,
	}
}

// Runtime is the immutable configuration of one monitoring session. Live
// changes produce a new Runtime through WithVolume or WithThreshold; a
// Runtime is never mutated after New returns.
type Runtime struct {
	profile            Profile
	thresholdDB        float64
	volume             dynamics.Volume
	sampleRate         float64
	attackMs           float64
	releaseMs          float64
	hysteresisDB       float64
	detectorHighPassHz float64
	inputDevice        string
	outputDevice       string
}

// New validates opts and builds a Runtime. Every failure wraps
// ErrConfiguration.
func New(opts Options) (*Runtime, error) {
	name := opts.Profile
	if name == "" {
		name = DefaultProfile
	}

	profile, err := LookupProfile(name)
	if err != nil {
		return nil, err
	}

	volume, err := newVolume(opts.VolumePercent)
	if err != nil {
		return nil, err
	}

	threshold := profile.ThresholdDB
	if opts.ThresholdDB != nil {
		threshold = *opts.ThresholdDB
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}

	if err := validateRange("sample rate", opts.SampleRate, MinSampleRate, MaxSampleRate); err != nil {
		return nil, err
	}
	if err := validateRange("attack", opts.AttackMs, MinAttackMs, MaxAttackMs); err != nil {
		return nil, err
	}
	if err := validateRange("release", opts.ReleaseMs, MinReleaseMs, MaxReleaseMs); err != nil {
		return nil, err
	}
	if err := validateRange("hysteresis", opts.HysteresisDB, MinHysteresisDB, MaxHysteresisDB); err != nil {
		return nil, err
	}

	hpf := opts.DetectorHighPassHz
	if hpf != 0 {
		if err := validateRange("detector high-pass", hpf, 1, opts.SampleRate/2-1); err != nil {
			return nil, err
		}
	}

	return &Runtime{
		profile:            profile,
		thresholdDB:        threshold,
		volume:             volume,
		sampleRate:         opts.SampleRate,
		attackMs:           opts.AttackMs,
		releaseMs:          opts.ReleaseMs,
		hysteresisDB:       opts.HysteresisDB,
		detectorHighPassHz: hpf,
		inputDevice:        opts.InputDevice,
		outputDevice:       opts.OutputDevice,
	}, nil
}

// WithVolume returns a copy with a new output volume.
func (r *Runtime) WithVolume(percent float64) (*Runtime, error) {
	volume, err := newVolume(percent)
	if err != nil {
		return nil, err
	}

	next := *r
	next.volume = volume

	return &next, nil
}

// WithThreshold returns a copy with a new gate threshold.
func (r *Runtime) WithThreshold(dB float64) (*Runtime, error) {
	if err := validateThreshold(dB); err != nil {
		return nil, err
	}

	next := *r
	next.thresholdDB = dB

	return &next, nil
}

// Profile returns the selected latency profile.
func (r *Runtime) Profile() Profile { return r.profile }

// BlockSize returns the processing block size in samples.
func (r *Runtime) BlockSize() int { return r.profile.BlockSize }

// ThresholdDB returns the gate threshold in dBFS.
func (r *Runtime) ThresholdDB() float64 { return r.thresholdDB }

// Volume returns the output volume stage.
func (r *Runtime) Volume() dynamics.Volume { return r.volume }

// VolumePercent returns the output volume in percent.
func (r *Runtime) VolumePercent() float64 { return r.volume.Percent() }

// SampleRate returns the stream sample rate in Hz.
func (r *Runtime) SampleRate() float64 { return r.sampleRate }

// AttackMs returns the gate attack time.
func (r *Runtime) AttackMs() float64 { return r.attackMs }

// ReleaseMs returns the gate release time.
func (r *Runtime) ReleaseMs() float64 { return r.releaseMs }

// HysteresisDB returns the gate open/close margin.
func (r *Runtime) HysteresisDB() float64 { return r.hysteresisDB }

// DetectorHighPassHz returns the detector high-pass cutoff, 0 when off.
func (r *Runtime) DetectorHighPassHz() float64 { return r.detectorHighPassHz }

// InputDevice returns the requested capture device selector.
func (r *Runtime) InputDevice() string { return r.inputDevice }

// OutputDevice returns the requested playback device selector.
func (r *Runtime) OutputDevice() string { return r.outputDevice }

// ProcessorConfig returns the DSP settings for this runtime.
func (r *Runtime) ProcessorConfig() core.ProcessorConfig {
	return core.ApplyProcessorOptions(
		core.WithSampleRate(r.sampleRate),
		core.WithBlockSize(r.profile.BlockSize),
	)
}

// BlockLatency is the duration of one block.
func (r *Runtime) BlockLatency() time.Duration {
	return r.profile.BlockLatency(r.sampleRate)
}

// RoundTripLatency is the nominal capture-to-playback latency.
func (r *Runtime) RoundTripLatency() time.Duration {
	return r.profile.RoundTripLatency(r.sampleRate)
}

func newVolume(percent float64) (dynamics.Volume, error) {
	v, err := dynamics.NewVolume(percent)
	if err != nil {
		return dynamics.Volume{}, &Error{
			Field:  "volume",
			Value:  percent,
			Reason: fmt.Sprintf("must be between %.0f and %.0f percent", dynamics.MinVolumePercent, dynamics.MaxVolumePercent),
		}
	}
	return v, nil
}

func validateThreshold(dB float64) error {
	return validateRange("threshold", dB, MinThresholdDB, MaxThresholdDB)
}

func validateRange(field string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return &Error{
			Field:  field,
			Value:  v,
			Reason: fmt.Sprintf("must be in [%g, %g]", lo, hi),
		}
	}
	return nil
}
