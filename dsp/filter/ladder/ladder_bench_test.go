package ladder

import (
	"testing"
)

func BenchmarkProcessSampleLinear(b *testing.B) {
	f, err := New(48000, WithCutoffHz(2000), WithFeedback(2))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	x := 0.5
	for b.Loop() {
		x = f.ProcessSample(x)
	}
}

func BenchmarkProcessSampleDriven(b *testing.B) {
	f, err := New(48000, WithCutoffHz(2000), WithFeedback(3.5), WithDrive(4))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	x := 0.5
	for b.Loop() {
		x = f.ProcessSample(x)
	}
}

func BenchmarkProcessSampleOversampled4x(b *testing.B) {
	f, err := New(48000, WithCutoffHz(2000), WithFeedback(3.5),
		WithDrive(4), WithOversampling(4))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	x := 0.5
	for b.Loop() {
		x = f.ProcessSample(x)
	}
}

func BenchmarkProcessInPlace(b *testing.B) {
	f, err := New(48000, WithCutoffHz(2000), WithFeedback(2))
	if err != nil {
		b.Fatal(err)
	}

	buf := make([]float64, 4096)
	for i := range buf {
		buf[i] = 0.1
	}

	b.ResetTimer()

	for b.Loop() {
		f.ProcessInPlace(buf)
	}
}
