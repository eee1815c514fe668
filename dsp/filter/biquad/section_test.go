package biquad

import (
	"math"
	"testing"
)

func testCoefficients() Coefficients {
	// A mild one-pole-ish lowpass expressed as a biquad.
	return Coefficients{B0: 0.2, B1: 0.2, A1: -0.6}
}

func TestProcessSampleImpulse(t *testing.T) {
	s := NewSection(testCoefficients())

	// y[n] = 0.2*x[n] + 0.2*x[n-1] + 0.6*y[n-1]
	want := []float64{0.2, 0.32, 0.192, 0.1152}

	for i, w := range want {
		x := 0.0
		if i == 0 {
			x = 1
		}

		if got := s.ProcessSample(x); math.Abs(got-w) > 1e-15 {
			t.Fatalf("sample %d: got %v, want %v", i, got, w)
		}
	}
}

func TestProcessBlockMatchesSample(t *testing.T) {
	s1 := NewSection(testCoefficients())
	s2 := NewSection(testCoefficients())

	in := make([]float64, 257)
	for i := range in {
		in[i] = math.Sin(2*math.Pi*float64(i)/31) + 0.3*math.Sin(2*math.Pi*float64(i)/7)
	}

	want := make([]float64, len(in))
	for i, x := range in {
		want[i] = s1.ProcessSample(x)
	}

	got := append([]float64(nil), in...)
	s2.ProcessBlock(got)

	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestProcessBlockTo(t *testing.T) {
	s1 := NewSection(testCoefficients())
	s2 := NewSection(testCoefficients())

	in := make([]float64, 64)
	for i := range in {
		in[i] = math.Cos(2 * math.Pi * float64(i) / 13)
	}

	want := make([]float64, len(in))
	for i, x := range in {
		want[i] = s1.ProcessSample(x)
	}

	dst := make([]float64, len(in))
	s2.ProcessBlockTo(dst, in)

	for i := range dst {
		if math.Abs(dst[i]-want[i]) > 1e-12 {
			t.Fatalf("sample %d: got %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestResetAndStateRoundTrip(t *testing.T) {
	s := NewSection(testCoefficients())
	s.ProcessSample(1)
	s.ProcessSample(0.5)

	saved := s.State()

	clone := NewSection(testCoefficients())
	clone.SetState(saved)

	for i := range 32 {
		x := math.Sin(float64(i))
		if y1, y2 := s.ProcessSample(x), clone.ProcessSample(x); y1 != y2 {
			t.Fatalf("state mismatch at %d: %v vs %v", i, y1, y2)
		}
	}

	s.Reset()
	if st := s.State(); st != [2]float64{} {
		t.Fatalf("Reset left state %v", st)
	}
}
