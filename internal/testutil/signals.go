package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// ToneRMS feeds a sine of the given frequency through process and returns
// the RMS of the output after discarding warmup samples.
func ToneRMS(process func(float64) float64, sampleRate, freqHz float64, length, warmup int) float64 {
	var sum float64

	for i := range length {
		x := 0.7 * math.Sin(2*math.Pi*freqHz*float64(i)/sampleRate)

		y := process(x)
		if i >= warmup {
			sum += y * y
		}
	}

	return math.Sqrt(sum / float64(length-warmup))
}
