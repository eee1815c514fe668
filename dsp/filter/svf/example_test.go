package svf_test

import (
	"fmt"

	"github.com/cwbudde/algo-zdf/dsp/filter/svf"
)

func ExampleNew() {
	f, err := svf.New(48000, svf.WithCutoffHz(1000), svf.WithResonance(0.7071))
	if err != nil {
		panic(err)
	}

	var y float64
	for range 4000 {
		y = f.ProcessSample(0.5)
	}

	fmt.Printf("%.3f\n", y)
	// Output:
	// 0.500
}

func ExampleFilter_Notch() {
	f, err := svf.New(48000, svf.WithCutoffHz(1000))
	if err != nil {
		panic(err)
	}

	// The notch tap is the sum of the low-pass and high-pass taps.
	f.Write(0.8)
	fmt.Printf("%.5f\n", f.Notch()-(f.LowPass()+f.HighPass()))
	// Output:
	// 0.00000
}
