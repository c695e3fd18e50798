// Package config holds the latency profile table and the immutable runtime
// configuration the audio engine is built from.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Profile maps a named latency/stability tradeoff to a block size and a
// default gate threshold. Profiles are pure data.
type Profile struct {
	Name        string
	BlockSize   int
	ThresholdDB float64
	Description string
}

// DefaultProfile is used when no profile is named.
const DefaultProfile = "balanced"

var profiles = mustValidateProfiles([]Profile{
	{Name: "ultra", BlockSize: 32, ThresholdDB: -25, Description: "Ultra-low (~0.67ms) - May be unstable"},
	{Name: "minimum", BlockSize: 64, ThresholdDB: -25, Description: "Minimum latency (~1.3ms)"},
	{Name: "balanced", BlockSize: 128, ThresholdDB: -25, Description: "Balanced (~2.7ms) - Recommended"},
	{Name: "stable", BlockSize: 256, ThresholdDB: -25, Description: "Stable (~5.3ms)"},
})

// Profiles returns the built-in profiles ordered from lowest latency to
// most stable.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// ProfileNames returns the built-in profile names in table order.
func ProfileNames() []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// LookupProfile finds a profile by case-insensitive name.
func LookupProfile(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range profiles {
		if p.Name == key {
			return p, nil
		}
	}

	return Profile{}, &Error{
		Field:  "profile",
		Value:  name,
		Reason: "unknown profile, want one of " + strings.Join(ProfileNames(), ", "),
	}
}

// BlockLatency is the duration of one block at sampleRate.
func (p Profile) BlockLatency(sampleRate float64) time.Duration {
	return blockDuration(p.BlockSize, sampleRate)
}

// RoundTripLatency estimates capture-to-playback latency at sampleRate as
// two block periods, ignoring any extra hardware buffering.
func (p Profile) RoundTripLatency(sampleRate float64) time.Duration {
	return 2 * p.BlockLatency(sampleRate)
}

func blockDuration(blockSize int, sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(blockSize) / sampleRate * float64(time.Second))
}

func mustValidateProfiles(table []Profile) []Profile {
	seen := make(map[string]bool, len(table))
	for _, p := range table {
		if p.Name == "" || p.Name != strings.ToLower(p.Name) {
			panic(fmt.Sprintf("config: profile name %q must be non-empty lower case", p.Name))
		}
		if seen[p.Name] {
			panic(fmt.Sprintf("config: duplicate profile %q", p.Name))
		}
		seen[p.Name] = true

		if p.BlockSize < MinBlockSize || p.BlockSize > MaxBlockSize {
			panic(fmt.Sprintf("config: profile %q block size %d out of range", p.Name, p.BlockSize))
		}
		if err := validateThreshold(p.ThresholdDB); err != nil {
			panic(fmt.Sprintf("config: profile %q: %v", p.Name, err))
		}
	}
	return table
}
