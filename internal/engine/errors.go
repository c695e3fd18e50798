package engine

import "errors"

var (
	// ErrNotRunning is returned when stopping an engine that is not running.
	ErrNotRunning = errors.New("engine: not running")
	// ErrAlreadyRunning is returned when starting a running engine.
	ErrAlreadyRunning = errors.New("engine: already running")
	// ErrRestartRequired is returned by Update for settings that cannot be
	// changed on a live stream.
	ErrRestartRequired = errors.New("engine: setting requires restart")
)
