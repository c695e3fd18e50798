package engine

import (
	"fmt"
	"time"

	"github.com/cwbudde/micmon/dsp/core"
	"github.com/cwbudde/micmon/dsp/signal"
	"github.com/cwbudde/micmon/internal/config"
	"github.com/cwbudde/micmon/stats/level"
)

// Transition is a gate state change observed during a simulation.
type Transition struct {
	Block   int
	At      time.Duration
	Open    bool
	LevelDB float64
}

// SegmentResult summarizes one scene segment after processing.
type SegmentResult struct {
	Segment     signal.Segment
	Start       time.Duration
	End         time.Duration
	InputRMSDB  float64
	OutputRMSDB float64
	// Silent reports that every output sample of the segment was exactly 0.
	Silent bool
}

// Simulation is the outcome of running a scene through a Processor.
type Simulation struct {
	Segments    []SegmentResult
	Transitions []Transition
	Meter       MeterSnapshot
	Output      []float32
}

// Simulate renders scene at the configured sample rate and feeds it
// through the same Processor the live engine uses, one block per call.
func Simulate(rt *config.Runtime, scene signal.Scene, seed int64) (*Simulation, error) {
	if rt == nil {
		return nil, fmt.Errorf("engine: nil runtime config")
	}

	gen := signal.NewGeneratorWithOptions(
		[]core.ProcessorOption{core.WithSampleRate(rt.SampleRate())},
		signal.WithSeed(seed),
	)
	rendered, spans, err := gen.Render(scene)
	if err != nil {
		return nil, fmt.Errorf("engine: render scene: %w", err)
	}

	proc, err := NewProcessor(rt)
	if err != nil {
		return nil, err
	}

	in := make([]float32, len(rendered))
	for i, v := range rendered {
		in[i] = float32(v)
	}
	out := make([]float32, len(in))

	sim := &Simulation{Output: out}
	n := proc.BlockSize()
	open := false
	for block, off := 0, 0; off < len(in); block, off = block+1, off+n {
		end := min(off+n, len(in))
		proc.Process(in[off:end], out[off:end])

		m := proc.Meter()
		if m.Open != open {
			open = m.Open
			sim.Transitions = append(sim.Transitions, Transition{
				Block:   block,
				At:      samplesToDuration(off, rt.SampleRate()),
				Open:    open,
				LevelDB: m.LevelDB,
			})
		}
	}
	sim.Meter = proc.Meter()

	for _, sp := range spans {
		sim.Segments = append(sim.Segments, SegmentResult{
			Segment:     sp.Segment,
			Start:       samplesToDuration(sp.Start, rt.SampleRate()),
			End:         samplesToDuration(sp.End, rt.SampleRate()),
			InputRMSDB:  level.RMSDB(in[sp.Start:sp.End]),
			OutputRMSDB: level.RMSDB(out[sp.Start:sp.End]),
			Silent:      core.IsSilent(out[sp.Start:sp.End]),
		})
	}

	return sim, nil
}

func samplesToDuration(n int, sampleRate float64) time.Duration {
	return time.Duration(float64(n) / sampleRate * float64(time.Second))
}
