package signal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/micmon/dsp/core"
)

// Kind selects the material of a Segment.
type Kind int

const (
	KindSilence Kind = iota
	KindNoise
	KindTone
	KindSpeech
)

var kindNames = [...]string{"silence", "noise", "tone", "speech"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown segment kind %q", s)
}

// ToneFrequencyHz is the frequency used for KindTone segments.
const ToneFrequencyHz = 1000.0

// Segment is one timed piece of a Scene.
type Segment struct {
	Kind     Kind
	LevelDB  float64
	Duration time.Duration
}

func (s Segment) String() string {
	if s.Kind == KindSilence {
		return fmt.Sprintf("%s:%s", s.Kind, s.Duration)
	}
	return fmt.Sprintf("%s:%g:%s", s.Kind, s.LevelDB, s.Duration)
}

// Scene is an ordered list of segments rendered back to back.
type Scene []Segment

// DefaultScene is background noise, a spoken phrase, then noise again:
// 2 s of -40 dBFS noise, 1 s of -10 dBFS speech and 1 s of -40 dBFS noise.
func DefaultScene() Scene {
	return Scene{
		{Kind: KindNoise, LevelDB: -40, Duration: 2 * time.Second},
		{Kind: KindSpeech, LevelDB: -10, Duration: time.Second},
		{Kind: KindNoise, LevelDB: -40, Duration: time.Second},
	}
}

// Duration is the total length of the scene.
func (s Scene) Duration() time.Duration {
	var d time.Duration
	for _, seg := range s {
		d += seg.Duration
	}
	return d
}

func (s Scene) String() string {
	parts := make([]string, len(s))
	for i, seg := range s {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ",")
}

// Span locates a rendered segment inside the scene signal.
type Span struct {
	Segment Segment
	Start   int
	End     int
}

// Render generates the scene as one signal and returns the sample span of
// every segment. Each noise segment draws from a seed derived from the
// generator seed and its index so repeated segments are not identical.
func (g *Generator) Render(scene Scene) ([]float64, []Span, error) {
	if len(scene) == 0 {
		return nil, nil, fmt.Errorf("scene must not be empty")
	}

	var out []float64
	spans := make([]Span, 0, len(scene))
	for i, seg := range scene {
		n := g.Samples(seg.Duration.Seconds())
		if n <= 0 {
			return nil, nil, fmt.Errorf("segment %d (%s) is shorter than one sample", i, seg)
		}

		part, err := g.segment(seg, int64(i), n)
		if err != nil {
			return nil, nil, fmt.Errorf("segment %d (%s): %w", i, seg, err)
		}

		spans = append(spans, Span{Segment: seg, Start: len(out), End: len(out) + n})
		out = append(out, part...)
	}

	return out, spans, nil
}

func (g *Generator) segment(seg Segment, index int64, n int) ([]float64, error) {
	switch seg.Kind {
	case KindSilence:
		return g.Silence(n)
	case KindNoise:
		sub := NewGeneratorWithOptions(
			[]core.ProcessorOption{core.WithSampleRate(g.cfg.SampleRate)},
			WithSeed(g.seed+index),
		)
		return sub.NoiseAtDB(seg.LevelDB, n)
	case KindTone:
		return g.ToneAtDB(ToneFrequencyHz, seg.LevelDB, n)
	case KindSpeech:
		return g.Speech(seg.LevelDB, n)
	default:
		return nil, fmt.Errorf("unsupported segment kind %v", seg.Kind)
	}
}

// ParseScene parses a comma-separated scene description. Each entry is
// kind:level_db:duration, or silence:duration, for example
// "noise:-40:2s,speech:-10:1s,noise:-40:1s".
func ParseScene(s string) (Scene, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("scene must not be empty")
	}

	var scene Scene
	for i, entry := range strings.Split(s, ",") {
		seg, err := parseSegment(strings.TrimSpace(entry))
		if err != nil {
			return nil, fmt.Errorf("scene entry %d: %w", i, err)
		}
		scene = append(scene, seg)
	}
	return scene, nil
}

func parseSegment(entry string) (Segment, error) {
	fields := strings.Split(entry, ":")

	kind, err := ParseKind(fields[0])
	if err != nil {
		return Segment{}, err
	}

	var seg Segment
	seg.Kind = kind

	var durField string
	switch {
	case kind == KindSilence && len(fields) == 2:
		durField = fields[1]
	case kind != KindSilence && len(fields) == 3:
		level, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Segment{}, fmt.Errorf("level %q: %w", fields[1], err)
		}
		if level > 0 {
			return Segment{}, fmt.Errorf("level must be <= 0 dBFS: %g", level)
		}
		seg.LevelDB = level
		durField = fields[2]
	default:
		return Segment{}, fmt.Errorf("malformed segment %q", entry)
	}

	d, err := time.ParseDuration(durField)
	if err != nil {
		return Segment{}, fmt.Errorf("duration %q: %w", durField, err)
	}
	if d <= 0 {
		return Segment{}, fmt.Errorf("duration must be > 0: %s", d)
	}
	seg.Duration = d

	return seg, nil
}
