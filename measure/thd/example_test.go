package thd_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mbdist/measure/thd"
)

func ExampleMeter_Measure() {
	const (
		sampleRate = 48000.0
		size       = 4096
	)

	fundamental := 64 * sampleRate / size

	signal := make([]float64, size)
	for i := range signal {
		t := float64(i) / sampleRate
		signal[i] = math.Sin(2*math.Pi*fundamental*t) + 0.02*math.Sin(2*math.Pi*2*fundamental*t)
	}

	m, err := thd.NewMeter(size, thd.Config{SampleRate: sampleRate, Fundamental: fundamental})
	if err != nil {
		panic(err)
	}

	res, err := m.Measure(signal)
	if err != nil {
		panic(err)
	}

	fmt.Printf("THD: %.2f%%\n", res.THD*100)
	fmt.Printf("THD: %.1f dB\n", res.THDdB())
	// Output:
	// THD: 2.00%
	// THD: -34.0 dB
}
