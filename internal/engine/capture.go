package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CaptureCallback receives captured mono samples, valid only during the
// call.
type CaptureCallback func(in []float32, status Status)

// CaptureBackend opens input-only streams.
type CaptureBackend interface {
	OpenCapture(params StreamParams, cb CaptureCallback) (Stream, error)
}

// Capture records d of input into memory and returns it with the stream
// counters. The callback only copies into a preallocated buffer. A
// canceled ctx returns what was captured so far together with ctx.Err().
// Stop and Close failures are joined into the returned error.
func Capture(ctx context.Context, backend CaptureBackend, params StreamParams, d time.Duration) (samples []float32, stats Stats, err error) {
	if params.SampleRate <= 0 || d <= 0 {
		return nil, Stats{}, fmt.Errorf("engine: capture needs a positive sample rate and duration")
	}

	buf := make([]float32, int(d.Seconds()*params.SampleRate))
	var (
		c    counters
		fill int
	)
	full := make(chan struct{}, 1)

	stream, err := backend.OpenCapture(params, func(in []float32, status Status) {
		c.record(status, len(in), 0, 0)
		if fill >= len(buf) {
			return
		}
		fill += copy(buf[fill:], in)
		if fill == len(buf) {
			select {
			case full <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("engine: open capture: %w", err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("engine: close capture: %w", cerr))
		}
	}()

	if err := stream.Start(); err != nil {
		return nil, Stats{}, fmt.Errorf("engine: start capture: %w", err)
	}

	var waitErr error
	select {
	case <-full:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	if serr := stream.Stop(); serr != nil {
		waitErr = errors.Join(waitErr, fmt.Errorf("engine: stop capture: %w", serr))
	}

	// The callback has stopped; fill is safe to read.
	return buf[:fill], c.snapshot(), waitErr
}
