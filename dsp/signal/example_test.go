package signal_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/micmon/dsp/core"
	"github.com/cwbudde/micmon/dsp/signal"
)

func ExampleGenerator_Sine() {
	g := signal.NewGenerator(core.WithSampleRate(1000))
	x, err := g.Sine(250, 1, 5)
	if err != nil {
		panic(err)
	}
	if math.Abs(x[4]) < 1e-12 {
		x[4] = 0
	}

	fmt.Printf("%.0f %.0f %.0f %.0f %.0f\n", x[0], x[1], x[2], x[3], x[4])

	// Output:
	// 0 1 0 -1 0
}

func ExampleParseScene() {
	scene, err := signal.ParseScene("noise:-40:2s,speech:-10:1s,noise:-40:1s")
	if err != nil {
		panic(err)
	}
	for _, seg := range scene {
		fmt.Println(seg.Kind, seg.LevelDB, seg.Duration)
	}
	fmt.Println("total", scene.Duration())

	// Output:
	// noise -40 2s
	// speech -10 1s
	// noise -40 1s
	// total 4s
}
