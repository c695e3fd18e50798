package engine

import (
	"context"
	"time"
)

// Callback is invoked by the audio subsystem for every buffer. in holds
// captured mono samples and out receives the samples to play; both are
// only valid for the duration of the call.
type Callback func(in, out []float32, status Status)

// StreamParams describes the stream the engine asks for.
type StreamParams struct {
	SampleRate   float64
	BlockSize    int
	InputDevice  string
	OutputDevice string
}

// StreamInfo is what the subsystem actually opened.
type StreamInfo struct {
	InputDevice   string
	OutputDevice  string
	SampleRate    float64
	InputLatency  time.Duration
	OutputLatency time.Duration
}

// Stream is an opened full-duplex stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
	Info() StreamInfo
}

// Backend opens streams on an audio subsystem.
type Backend interface {
	OpenDuplex(params StreamParams, cb Callback) (Stream, error)
}

// Recorder receives the monitor's periodic reports. delta holds counter
// increases since the previous report.
type Recorder interface {
	RecordInterval(ctx context.Context, delta Stats, meter MeterSnapshot)
}
