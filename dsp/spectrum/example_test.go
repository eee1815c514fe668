package spectrum_test

import (
	"fmt"

	"github.com/cwbudde/algo-zdf/dsp/spectrum"
)

func ExampleMagnitude() {
	bins := []complex128{1 + 0i, 0 + 1i, 3 + 4i}
	mag := spectrum.Magnitude(bins)
	fmt.Printf("%.1f %.1f %.1f\n", mag[0], mag[1], mag[2])
	// Output:
	// 1.0 1.0 5.0
}

func ExampleMagnitudeDB() {
	bins := []complex128{10 + 0i, 1 + 0i}
	db := spectrum.MagnitudeDB(bins)
	fmt.Printf("%.1f %.1f\n", db[0], db[1])
	// Output:
	// 20.0 0.0
}
