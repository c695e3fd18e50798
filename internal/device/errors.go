package device

import (
	"errors"
	"fmt"
)

// ErrDevice is matched by every audio device failure.
var ErrDevice = errors.New("audio device error")

// Error is an audio subsystem failure during Op on Device.
type Error struct {
	Op     string
	Device string
	Err    error
}

func (e *Error) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("audio %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("audio %s %q: %v", e.Op, e.Device, e.Err)
}

// Unwrap exposes both ErrDevice and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrDevice, e.Err}
}
