package engine

import (
	"math"
	"testing"
	"time"

	"github.com/cwbudde/micmon/dsp/signal"
)

func TestSimulateDefaultScene(t *testing.T) {
	rt := newRuntime(t, nil)

	sim, err := Simulate(rt, signal.DefaultScene(), 3)
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	if len(sim.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(sim.Segments))
	}

	first, speech, last := sim.Segments[0], sim.Segments[1], sim.Segments[2]
	if !first.Silent {
		t.Errorf("leading noise segment not silent: output %.1f dBFS", first.OutputRMSDB)
	}
	if d := math.Abs(speech.OutputRMSDB - speech.InputRMSDB); d > 1 {
		t.Errorf("speech output %.2f dBFS differs from input %.2f dBFS by %.2f dB",
			speech.OutputRMSDB, speech.InputRMSDB, d)
	}
	if last.OutputRMSDB > last.InputRMSDB-3 {
		t.Errorf("trailing noise not attenuated: in %.1f out %.1f", last.InputRMSDB, last.OutputRMSDB)
	}

	if len(sim.Transitions) != 2 {
		t.Fatalf("transitions = %+v, want open then close", sim.Transitions)
	}
	opened, closed := sim.Transitions[0], sim.Transitions[1]
	if !opened.Open || closed.Open {
		t.Fatalf("transitions = %+v, want open then close", sim.Transitions)
	}
	if opened.At < speech.Start || opened.At > speech.Start+20*time.Millisecond {
		t.Errorf("gate opened at %v, want within 20ms of %v", opened.At, speech.Start)
	}
	if closed.At < speech.End {
		t.Errorf("gate closed at %v before speech ended at %v", closed.At, speech.End)
	}
	if sim.Meter.Opens != 1 || sim.Meter.Closes != 1 {
		t.Errorf("meter opens/closes = %d/%d, want 1/1", sim.Meter.Opens, sim.Meter.Closes)
	}
	if got, want := len(sim.Output), int(signal.DefaultScene().Duration().Seconds()*rt.SampleRate()); got != want {
		t.Errorf("output length = %d, want %d", got, want)
	}
}

func TestSimulateErrors(t *testing.T) {
	if _, err := Simulate(nil, signal.DefaultScene(), 1); err == nil {
		t.Error("Simulate(nil) error = nil")
	}
	if _, err := Simulate(newRuntime(t, nil), nil, 1); err == nil {
		t.Error("Simulate(empty scene) error = nil")
	}
}
