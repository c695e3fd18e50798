package level_test

import (
	"fmt"

	"github.com/cwbudde/micmon/stats/level"
)

func ExampleMeasure() {
	s := level.Measure([]float64{0.5, -0.5, 0.5, -0.5})
	fmt.Printf("rms=%.1f dBFS zc=%d\n", s.RMSDB, s.ZeroCrossings)

	// Output:
	// rms=-6.0 dBFS zc=3
}

func ExampleMeter() {
	var m level.Meter
	m.Add([]float64{0.1, 0.1})
	m.AddFloat32([]float32{0.1, 0.1})
	s := m.Result()
	fmt.Printf("samples=%d dc=%.2f\n", s.Samples, s.DC)

	// Output:
	// samples=4 dc=0.10
}
