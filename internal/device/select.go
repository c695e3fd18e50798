// Package device connects the engine to real audio hardware through
// PortAudio: device enumeration and selection, full-duplex monitoring
// streams and input-only capture streams.
package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Direction selects the capture or playback side of a device.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Info describes one audio device.
type Info struct {
	Index             int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	LowOutputLatency  time.Duration
	DefaultInput      bool
	DefaultOutput     bool
}

// Channels returns the channel count for dir.
func (i Info) Channels(dir Direction) int {
	if dir == Output {
		return i.MaxOutputChannels
	}
	return i.MaxInputChannels
}

// IsDefault reports whether the device is the system default for dir.
func (i Info) IsDefault(dir Direction) bool {
	if dir == Output {
		return i.DefaultOutput
	}
	return i.DefaultInput
}

var errNoMatch = errors.New("no matching device")

// Select picks a device for dir. An empty selector picks the system
// default, a number picks by index, and anything else is a
// case-insensitive name match: exact names win over substrings, and an
// ambiguous substring is an error.
func Select(devices []Info, selector string, dir Direction) (Info, error) {
	selector = strings.TrimSpace(selector)

	var candidates []Info
	for _, d := range devices {
		if d.Channels(dir) > 0 {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return Info{}, &Error{Op: "select " + dir.String(), Device: selector, Err: errNoMatch}
	}

	if selector == "" {
		for _, d := range candidates {
			if d.IsDefault(dir) {
				return d, nil
			}
		}
		return candidates[0], nil
	}

	if idx, err := strconv.Atoi(selector); err == nil {
		for _, d := range candidates {
			if d.Index == idx {
				return d, nil
			}
		}
		return Info{}, &Error{
			Op:     "select " + dir.String(),
			Device: selector,
			Err:    fmt.Errorf("%w: no %s device with index %d", errNoMatch, dir, idx),
		}
	}

	want := strings.ToLower(selector)
	var matches []Info
	for _, d := range candidates {
		name := strings.ToLower(d.Name)
		if name == want {
			return d, nil
		}
		if strings.Contains(name, want) {
			matches = append(matches, d)
		}
	}

	switch len(matches) {
	case 0:
		return Info{}, &Error{Op: "select " + dir.String(), Device: selector, Err: errNoMatch}
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = fmt.Sprintf("%d: %s", m.Index, m.Name)
		}
		return Info{}, &Error{
			Op:     "select " + dir.String(),
			Device: selector,
			Err:    fmt.Errorf("ambiguous name matches %s", strings.Join(names, ", ")),
		}
	}
}
