package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/cwbudde/micmon/internal/engine"
	"github.com/cwbudde/micmon/internal/mains"
	"github.com/cwbudde/micmon/internal/observe"
	"github.com/cwbudde/micmon/measure/noise"
	"github.com/cwbudde/micmon/stats/frequency"
)

// rumbleRolloffHz is the rolloff below which noise counts as rumble.
const rumbleRolloffHz = 120

// PrintCalibration reports an ambient noise capture and the threshold it
// suggests.
func PrintCalibration(w io.Writer, res noise.Result, det mains.Detection, sampleRate float64) {
	fmt.Fprintln(w, TitleStyle.Render("Calibration"))
	fmt.Fprintln(w, rule)
	keyValue(w, "Captured", "%.1f s (%d samples)", float64(res.Samples)/sampleRate, res.Samples)
	keyValue(w, "Noise floor", "%.1f dBFS RMS", res.FloorDB)
	keyValue(w, "Peak", "%.1f dBFS", res.PeakDB)
	keyValue(w, "DC offset", "%+.5f", res.DCOffset)
	keyValue(w, "Crest", "%.1f dB", res.CrestDB)
	if res.Spectrum != (frequency.Shape{}) {
		character := "broadband"
		if res.Spectrum.Tonal() {
			character = "tonal"
		}
		keyValue(w, "Spectrum", "%s, flatness %.2f, centroid %.0f Hz, peak %.0f Hz",
			character, res.Spectrum.Flatness, res.Spectrum.CentroidHz, res.Spectrum.PeakHz)
	}
	keyValue(w, "Mains", "%s", det)
	for _, h := range res.Hum {
		keyValue(w, "", "%4.0f Hz  %.1f dBFS", h.FrequencyHz, h.LevelDB)
	}
	keyValue(w, "Total hum", "%.1f dBFS", res.HumDB)
	if res.HumDB > res.FloorDB-6 {
		PrintWarning(w, "mains hum dominates the noise floor; try the detector high-pass or check grounding")
	} else if res.Spectrum.RolloffHz > 0 && res.Spectrum.RolloffHz < rumbleRolloffHz {
		PrintWarning(w, fmt.Sprintf("noise energy sits below %.0f Hz; --detector-hpf=%.0f keeps rumble from opening the gate",
			rumbleRolloffHz, rumbleRolloffHz))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n",
		OKStyle.Render("Suggested threshold:"),
		ValueStyle.Render(fmt.Sprintf("%.0f dB  (--threshold=%.0f)", res.SuggestedThresholdDB, res.SuggestedThresholdDB)),
	)
}

// PrintSimulation reports per-segment levels and gate transitions of an
// offline run.
func PrintSimulation(w io.Writer, sim *engine.Simulation) {
	fmt.Fprintln(w, TitleStyle.Render("Simulation"))
	fmt.Fprintln(w, rule)
	for _, seg := range sim.Segments {
		out := fmt.Sprintf("%6.1f dBFS", seg.OutputRMSDB)
		if seg.Silent {
			out = OKStyle.Render("  silent   ")
		}
		fmt.Fprintf(w, "  %s %-22s in %6.1f dBFS  out %s\n",
			KeyStyle.Render(fmt.Sprintf("%6s-%-6s", fmtSeconds(seg.Start), fmtSeconds(seg.End))),
			seg.Segment,
			seg.InputRMSDB,
			out,
		)
	}

	fmt.Fprintln(w)
	if len(sim.Transitions) == 0 {
		fmt.Fprintln(w, KeyStyle.Render("  gate never changed state"))
	}
	for _, tr := range sim.Transitions {
		state := ErrorStyle.Render("closed")
		if tr.Open {
			state = OKStyle.Render("open  ")
		}
		fmt.Fprintf(w, "  %s gate %s at block %d (level %.1f dBFS)\n",
			KeyStyle.Render(fmt.Sprintf("%8s", fmtSeconds(tr.At))), state, tr.Block, tr.LevelDB)
	}
}

// PrintSummary reports session totals collected by the metric reader.
func PrintSummary(w io.Writer, s observe.Summary) {
	fmt.Fprintln(w, TitleStyle.Render("Session summary"))
	keyValue(w, "Blocks", "%d", s.Blocks)
	keyValue(w, "Callbacks", "%d", s.Callbacks)
	keyValue(w, "Gate changes", "%d", s.GateTransitions)
	keyValue(w, "Max callback", "%v", s.MaxCallback.Round(time.Microsecond))
	if s.Underruns > 0 || s.Overruns > 0 {
		PrintWarning(w, fmt.Sprintf("%d underruns, %d overruns", s.Underruns, s.Overruns))
	}
}

func fmtSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
