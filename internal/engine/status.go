package engine

import (
	"strings"
	"sync/atomic"
	"time"
)

// Status carries the audio subsystem's per-callback condition flags.
type Status uint32

const (
	InputUnderflow Status = 1 << iota
	InputOverflow
	OutputUnderflow
	OutputOverflow
	PrimingOutput
)

var statusNames = []struct {
	flag Status
	name string
}{
	{InputUnderflow, "input-underflow"},
	{InputOverflow, "input-overflow"},
	{OutputUnderflow, "output-underflow"},
	{OutputOverflow, "output-overflow"},
	{PrimingOutput, "priming-output"},
}

func (s Status) String() string {
	if s == 0 {
		return "ok"
	}
	var parts []string
	for _, n := range statusNames {
		if s&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Stats are cumulative callback counters. MaxCallback is the longest
// callback seen in the covered period.
type Stats struct {
	Callbacks        uint64
	Frames           uint64
	InputUnderflows  uint64
	InputOverflows   uint64
	OutputUnderflows uint64
	OutputOverflows  uint64
	// Overruns counts callbacks that took longer than the audio they
	// produced.
	Overruns    uint64
	MaxCallback time.Duration
}

// Underruns is the number of callbacks where either side ran dry.
func (s Stats) Underruns() uint64 {
	return s.InputUnderflows + s.OutputUnderflows
}

// Overflows is the number of callbacks where either side dropped data.
func (s Stats) Overflows() uint64 {
	return s.InputOverflows + s.OutputOverflows
}

// Sub returns the counter increase since prev. MaxCallback is kept from s.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		Callbacks:        s.Callbacks - prev.Callbacks,
		Frames:           s.Frames - prev.Frames,
		InputUnderflows:  s.InputUnderflows - prev.InputUnderflows,
		InputOverflows:   s.InputOverflows - prev.InputOverflows,
		OutputUnderflows: s.OutputUnderflows - prev.OutputUnderflows,
		OutputOverflows:  s.OutputOverflows - prev.OutputOverflows,
		Overruns:         s.Overruns - prev.Overruns,
		MaxCallback:      s.MaxCallback,
	}
}

// counters is written by the callback and read by the monitor.
type counters struct {
	callbacks        atomic.Uint64
	frames           atomic.Uint64
	inputUnderflows  atomic.Uint64
	inputOverflows   atomic.Uint64
	outputUnderflows atomic.Uint64
	outputOverflows  atomic.Uint64
	overruns         atomic.Uint64
	maxCallback      atomic.Int64
	intervalMax      atomic.Int64
}

func (c *counters) record(status Status, frames int, elapsed, budget time.Duration) {
	c.callbacks.Add(1)
	c.frames.Add(uint64(frames))

	if status&InputUnderflow != 0 {
		c.inputUnderflows.Add(1)
	}
	if status&InputOverflow != 0 {
		c.inputOverflows.Add(1)
	}
	if status&OutputUnderflow != 0 {
		c.outputUnderflows.Add(1)
	}
	if status&OutputOverflow != 0 {
		c.outputOverflows.Add(1)
	}
	if budget > 0 && elapsed > budget {
		c.overruns.Add(1)
	}

	storeMax(&c.maxCallback, int64(elapsed))
	storeMax(&c.intervalMax, int64(elapsed))
}

func storeMax(v *atomic.Int64, x int64) {
	for {
		cur := v.Load()
		if x <= cur || v.CompareAndSwap(cur, x) {
			return
		}
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Callbacks:        c.callbacks.Load(),
		Frames:           c.frames.Load(),
		InputUnderflows:  c.inputUnderflows.Load(),
		InputOverflows:   c.inputOverflows.Load(),
		OutputUnderflows: c.outputUnderflows.Load(),
		OutputOverflows:  c.outputOverflows.Load(),
		Overruns:         c.overruns.Load(),
		MaxCallback:      time.Duration(c.maxCallback.Load()),
	}
}

// takeIntervalMax returns the longest callback since the previous call.
func (c *counters) takeIntervalMax() time.Duration {
	return time.Duration(c.intervalMax.Swap(0))
}

func (c *counters) reset() {
	c.callbacks.Store(0)
	c.frames.Store(0)
	c.inputUnderflows.Store(0)
	c.inputOverflows.Store(0)
	c.outputUnderflows.Store(0)
	c.outputOverflows.Store(0)
	c.overruns.Store(0)
	c.maxCallback.Store(0)
	c.intervalMax.Store(0)
}
