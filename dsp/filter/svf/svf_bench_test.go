package svf

import (
	"math"
	"testing"
)

func BenchmarkProcessSample(b *testing.B) {
	f, err := New(48000, WithCutoffHz(2000), WithResonance(5))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	x := 0.5
	for b.Loop() {
		x = f.ProcessSample(x)
	}
}

func BenchmarkProcessSampleShaped(b *testing.B) {
	f, err := New(48000, WithCutoffHz(2000), WithResonance(5),
		WithShaper(math.Tanh))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	x := 0.5
	for b.Loop() {
		x = f.ProcessSample(x)
	}
}
