package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every configuration validation error.
var ErrConfiguration = errors.New("invalid configuration")

// Error describes one rejected configuration value.
type Error struct {
	Field  string
	Value  any
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is(err, ErrConfiguration) match.
func (e *Error) Unwrap() error { return ErrConfiguration }
