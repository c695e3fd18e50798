package dynamics

import (
	"fmt"

	"github.com/cwbudde/micmon/dsp/core"
)

// Output volume limits in percent of unity gain.
const (
	MinVolumePercent = 1.0
	MaxVolumePercent = 200.0
)

// Volume is an immutable output scale stage. The percentage is converted
// to a linear multiplier once, at construction.
type Volume struct {
	percent float64
	gain    float64
}

// NewVolume returns a Volume for percent in [1, 200].
func NewVolume(percent float64) (Volume, error) {
	if percent < MinVolumePercent || percent > MaxVolumePercent || !core.IsFinite(percent) {
		return Volume{}, fmt.Errorf("volume must be in [%.0f, %.0f] percent: %v",
			MinVolumePercent, MaxVolumePercent, percent)
	}

	return Volume{percent: percent, gain: percent / 100}, nil
}

// Percent returns the configured volume in percent.
func (v Volume) Percent() float64 { return v.percent }

// Gain returns the linear multiplier.
func (v Volume) Gain() float64 { return v.gain }

// DB returns the multiplier in dB.
func (v Volume) DB() float64 { return core.LinearToDB(v.gain) }

// Process scales block in place and clamps every sample to [-1, 1].
func (v Volume) Process(block []float64) {
	gain := v.gain
	for i, x := range block {
		x *= gain
		if x > 1 {
			x = 1
		} else if x < -1 {
			x = -1
		}
		block[i] = x
	}
}

// Scale applies a one-off volume to block. It validates percent on every
// call; prefer a Volume value in hot paths.
func Scale(block []float64, percent float64) error {
	v, err := NewVolume(percent)
	if err != nil {
		return err
	}

	v.Process(block)

	return nil
}
