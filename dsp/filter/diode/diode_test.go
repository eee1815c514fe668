package diode

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-zdf/internal/testutil"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}

	if _, err := New(48000, WithCutoffHz(24000)); err == nil {
		t.Fatal("expected error for cutoff at Nyquist")
	}

	if _, err := New(48000, WithCutoffHz(0.5)); err == nil {
		t.Fatal("expected error for cutoff below minimum")
	}

	if _, err := New(48000, WithFeedback(-0.1)); err == nil {
		t.Fatal("expected error for negative feedback")
	}

	if _, err := New(48000, WithFeedback(17.5)); err == nil {
		t.Fatal("expected error for feedback above maximum")
	}

	if _, err := New(48000, WithDrive(25)); err == nil {
		t.Fatal("expected error for drive above maximum")
	}

	if _, err := New(48000, WithBassCompensation(-0.1)); err == nil {
		t.Fatal("expected error for negative bass compensation")
	}
}

func TestImpulseResponseGolden(t *testing.T) {
	f, err := New(10000, WithCutoffHz(1000), WithFeedback(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := make([]float64, 5)
	got[0] = f.ProcessSample(1)
	for i := 1; i < len(got); i++ {
		got[i] = f.ProcessSample(0)
	}

	want := []float64{
		0.0004805911274650485,
		0.002991824283400031,
		0.008718812628291897,
		0.016457491141772567,
		0.023731532670675945,
	}
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestDCGainFollowsFeedback(t *testing.T) {
	// The resolved diode loop attenuates DC by 1/(1+feedback).
	for _, feedback := range []float64{0, 1, 8} {
		f, err := New(48000, WithCutoffHz(1000), WithFeedback(feedback))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		var y float64
		for range 30000 {
			y = f.ProcessSample(0.5)
		}

		want := 0.5 / (1 + feedback)
		if math.Abs(y-want) > 1e-6 {
			t.Fatalf("feedback=%v: DC output = %v, want %v", feedback, y, want)
		}
	}
}

func TestBassCompensationRestoresUnityDC(t *testing.T) {
	f, err := New(48000, WithCutoffHz(1000), WithFeedback(8), WithBassCompensation(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var y float64
	for range 30000 {
		y = f.ProcessSample(0.5)
	}

	if math.Abs(y-0.5) > 1e-6 {
		t.Fatalf("compensated DC output = %v, want 0.5", y)
	}
}

func TestResonanceGrowsWithFeedback(t *testing.T) {
	const (
		sampleRate = 48000.0
		cutoffHz   = 1000.0
	)

	prev := 0.0
	for _, feedback := range []float64{0, 4, 8, 15} {
		f, err := New(sampleRate, WithCutoffHz(cutoffHz), WithFeedback(feedback))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		rms := testutil.ToneRMS(f.ProcessSample, sampleRate, cutoffHz, 8192, 4096)
		if rms <= prev {
			t.Fatalf("feedback=%v: tone RMS %v did not grow past %v", feedback, rms, prev)
		}

		prev = rms
	}
}

func TestSelfOscillationSustains(t *testing.T) {
	// Near the feedback limit of 17 the linear loop is unstable; the
	// saturator bounds the amplitude so the filter rings instead of
	// blowing up.
	f, err := New(10000, WithCutoffHz(1000), WithFeedback(16.5), WithDrive(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f.Write(1)

	var sum float64
	const total, tail = 10000, 2000

	for i := 1; i < total; i++ {
		y := f.ProcessSample(0)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatalf("sample %d is not finite: %v", i, y)
		}

		if i >= total-tail {
			sum += y * y
		}
	}

	rms := math.Sqrt(sum / tail)
	if rms < 0.01 {
		t.Fatalf("tail RMS = %v, oscillation decayed", rms)
	}

	if rms > 1 {
		t.Fatalf("tail RMS = %v, oscillation unbounded", rms)
	}
}

func TestStateRoundTrip(t *testing.T) {
	f, err := New(48000, WithCutoffHz(2000), WithFeedback(6))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, x := range testutil.DeterministicNoise(5, 0.8, 256) {
		f.Write(x)
	}

	saved := f.State()
	want := make([]float64, 64)
	for i := range want {
		want[i] = f.ProcessSample(0.1)
	}

	if err := f.SetState(saved); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	got := make([]float64, 64)
	for i := range got {
		got[i] = f.ProcessSample(0.1)
	}

	testutil.RequireSliceNearlyEqual(t, got, want, 0)

	if err := f.SetState(State{Stage: [4]float64{math.Inf(1)}}); err == nil {
		t.Fatal("expected error for Inf state")
	}
}

func TestProcessInPlaceMatchesPerSample(t *testing.T) {
	fa, err := New(48000, WithCutoffHz(3000), WithFeedback(10), WithDrive(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	fb, err := New(48000, WithCutoffHz(3000), WithFeedback(10), WithDrive(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := testutil.DeterministicNoise(9, 0.8, 512)
	want := make([]float64, len(src))
	for i, x := range src {
		want[i] = fa.ProcessSample(x)
	}

	buf := append([]float64(nil), src...)
	fb.ProcessInPlace(buf)
	testutil.RequireSliceNearlyEqual(t, buf, want, 0)

	dst := make([]float64, len(src))
	fb.Reset()
	fb.ProcessTo(dst, src)
	testutil.RequireSliceNearlyEqual(t, dst, want, 0)
}

func TestAutomationStaysFinite(t *testing.T) {
	f, err := New(48000, WithCutoffHz(500), WithFeedback(12), WithDrive(6))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	noise := testutil.DeterministicNoise(11, 0.8, 4096)
	for i, x := range noise {
		if i%64 == 0 {
			cutoff := 200 + 10000*float64(i)/float64(len(noise))
			if err := f.SetCutoffHz(cutoff); err != nil {
				t.Fatalf("SetCutoffHz(%v) error = %v", cutoff, err)
			}
		}

		y := f.ProcessSample(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatalf("sample %d is not finite: %v", i, y)
		}
	}
}

func TestNonFiniteInputSanitized(t *testing.T) {
	f, err := New(48000, WithCutoffHz(2000), WithFeedback(4))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, x := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0.5} {
		y := f.ProcessSample(x)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatalf("output for input %v is not finite: %v", x, y)
		}
	}
}
