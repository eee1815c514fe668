package svf

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

	if _, err := New(48000, WithResonance(0)); err == nil {
		t.Fatal("expected error for zero resonance")
	}

	if _, err := New(48000, WithResonance(-1)); err == nil {
		t.Fatal("expected error for negative resonance")
	}

	if _, err := New(48000, WithShelfGainDB(40)); err == nil {
		t.Fatal("expected error for shelf gain out of range")
	}

	if _, err := New(48000, WithMode(Mode(99))); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestImpulseResponseGolden(t *testing.T) {
	f, err := New(48000, WithCutoffHz(1000))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var lp, bp, hp []float64

	for i := range 5 {
		x := 0.0
		if i == 0 {
			x = 1
		}

		f.Write(x)
		lp = append(lp, f.LowPass())
		bp = append(bp, f.BandPass())
		hp = append(hp, f.HighPass())
	}

	testutil.RequireSliceNearlyEqual(t, lp, []float64{
		0.003916126660547369,
		0.014941358933061023,
		0.02778546621966322,
		0.03802374554484482,
		0.04593618967471593,
	}, 1e-12)

	testutil.RequireSliceNearlyEqual(t, bp, []float64{
		0.05974854687776593,
		0.10846399177910825,
		0.08749921698220955,
		0.06870673988098651,
		0.05201382918897031,
	}, 1e-12)

	testutil.RequireSliceNearlyEqual(t, hp, []float64{
		0.9115866680128315,
		-0.1683326071361998,
		-0.15152804557293023,
		-0.13518974891097635,
		-0.11949485234471532,
	}, 1e-12)
}

func TestDCGainUnityLowPass(t *testing.T) {
	f, err := New(48000, WithCutoffHz(200))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var lp float64
	for range 48000 {
		f.Write(1)
		lp = f.LowPass()
	}

	if math.Abs(lp-1) > 1e-6 {
		t.Fatalf("DC gain = %v, want 1", lp)
	}
}

func TestTapsDeriveFromSingleWrite(t *testing.T) {
	f, err := New(48000, WithCutoffHz(2000), WithResonance(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f.Write(1)

	saved := f.State()

	notch := f.Notch()
	allpass := f.AllPass()
	peak := f.Peak()
	unitBP := f.UnitBandPass()

	// Reading every tap must not advance the filter.
	if f.State() != saved {
		t.Fatal("tap accessors mutated state")
	}

	if math.Abs(notch-(f.LowPass()+f.HighPass())) > 1e-15 {
		t.Fatalf("notch = %v, want lp+hp = %v", notch, f.LowPass()+f.HighPass())
	}

	damping := 1 / (2 * f.Resonance())
	if math.Abs(allpass-(notch-2*damping*f.BandPass())) > 1e-15 {
		t.Fatal("allpass combination mismatch")
	}

	if math.Abs(peak-(f.LowPass()-f.HighPass())) > 1e-15 {
		t.Fatal("peak combination mismatch")
	}

	if math.Abs(unitBP-2*damping*f.BandPass()) > 1e-15 {
		t.Fatal("unit bandpass combination mismatch")
	}
}

func TestBandPassPeaksAtCutoff(t *testing.T) {
	const (
		sr = 48000.0
		fc = 2000.0
	)

	newBP := func() *Filter {
		f, err := New(sr, WithCutoffHz(fc), WithResonance(4), WithMode(ModeBandPass))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		return f
	}

	center := testutil.ToneRMS(newBP().ProcessSample, sr, fc, 8192, 2048)
	below := testutil.ToneRMS(newBP().ProcessSample, sr, fc/4, 8192, 2048)
	above := testutil.ToneRMS(newBP().ProcessSample, sr, fc*4, 8192, 2048)

	if center <= below*2 || center <= above*2 {
		t.Fatalf("bandpass not peaked at cutoff: center=%g below=%g above=%g", center, below, above)
	}
}

func TestNotchNullsCutoff(t *testing.T) {
	const (
		sr = 48000.0
		fc = 2000.0
	)

	newNotch := func() *Filter {
		f, err := New(sr, WithCutoffHz(fc), WithResonance(2), WithMode(ModeNotch))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		return f
	}

	center := testutil.ToneRMS(newNotch().ProcessSample, sr, fc, 8192, 2048)

	offCenter := testutil.ToneRMS(newNotch().ProcessSample, sr, fc/8, 8192, 2048)
	if center >= offCenter*0.1 {
		t.Fatalf("notch not nulled at cutoff: center=%g off=%g", center, offCenter)
	}
}

func TestAllPassPreservesMagnitude(t *testing.T) {
	const sr = 48000.0

	inputRMS := 0.7 / math.Sqrt2

	for _, freq := range []float64{200, 1000, 2000, 8000} {
		f, err := New(sr, WithCutoffHz(2000), WithMode(ModeAllPass))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		rms := testutil.ToneRMS(f.ProcessSample, sr, freq, 16384, 4096)
		if math.Abs(rms-inputRMS)/inputRMS > 0.02 {
			t.Fatalf("allpass altered magnitude at %g Hz: rms=%g want~%g", freq, rms, inputRMS)
		}
	}
}

func TestBandShelfGainAtCenter(t *testing.T) {
	const (
		sr = 48000.0
		fc = 2000.0
	)

	boost, err := New(sr, WithCutoffHz(fc), WithShelfGainDB(12), WithMode(ModeBandShelf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	flat, err := New(sr, WithCutoffHz(fc), WithShelfGainDB(0), WithMode(ModeBandShelf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	boosted := testutil.ToneRMS(boost.ProcessSample, sr, fc, 16384, 4096)
	unity := testutil.ToneRMS(flat.ProcessSample, sr, fc, 16384, 4096)

	gain := boosted / unity

	want := math.Pow(10, 12.0/20)
	if math.Abs(gain-want)/want > 0.05 {
		t.Fatalf("band shelf center gain = %g, want ~%g", gain, want)
	}

	// Far below the band the shelf must leave the signal alone.
	farBoost, err := New(sr, WithCutoffHz(fc), WithShelfGainDB(12), WithMode(ModeBandShelf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	far := testutil.ToneRMS(farBoost.ProcessSample, sr, 50, 16384, 4096)
	if math.Abs(far-0.7/math.Sqrt2)/(0.7/math.Sqrt2) > 0.05 {
		t.Fatalf("band shelf altered out-of-band signal: rms=%g", far)
	}
}

func TestResonancePeakGrows(t *testing.T) {
	const (
		sr = 48000.0
		fc = 1000.0
	)

	var prev float64

	for i, res := range []float64{0.7071, 2, 8, 32} {
		f, err := New(sr, WithCutoffHz(fc), WithResonance(res), WithMode(ModeBandPass))
		if err != nil {
			t.Fatalf("New(res=%g) error = %v", res, err)
		}

		rms := testutil.ToneRMS(f.ProcessSample, sr, fc, 32768, 16384)
		if i > 0 && rms <= prev {
			t.Fatalf("resonance peak did not grow: res=%g rms=%g prev=%g", res, rms, prev)
		}

		prev = rms
	}
}

func TestShaperBoundsResonantOutput(t *testing.T) {
	clamp := func(x float64) float64 { return math.Tanh(x) }

	f, err := New(48000,
		WithCutoffHz(1500),
		WithResonance(64),
		WithShaper(clamp),
		WithMode(ModeBandPass),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := range 20000 {
		y := f.ProcessSample(0.9 * math.Sin(2*math.Pi*1500*float64(i)/48000))
		if math.Abs(y) > 1 {
			t.Fatalf("shaped bandpass exceeded clamp at %d: %v", i, y)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	f, err := New(48000, WithCutoffHz(1200), WithResonance(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := range 96 {
		f.Write(math.Sin(2 * math.Pi * float64(i) / 29))
	}

	saved := f.State()

	clone, err := New(48000, WithCutoffHz(1200), WithResonance(3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := clone.SetState(saved); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	for i := range 128 {
		x := math.Sin(2*math.Pi*float64(i)/31) + 0.2*math.Sin(2*math.Pi*float64(i)/7)

		y1 := f.ProcessSample(x)

		y2 := clone.ProcessSample(x)
		if math.Abs(y1-y2) > 1e-12 {
			t.Fatalf("state mismatch at %d: %g vs %g", i, y1, y2)
		}
	}
}

func TestSetStateRejectsNonFinite(t *testing.T) {
	f, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := f.SetState(State{S1: math.Inf(1)}); err == nil {
		t.Fatal("expected error for non-finite state")
	}
}

func TestRapidAutomationStaysFinite(t *testing.T) {
	f, err := New(48000, WithResonance(10))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out := make([]float64, 10000)
	for i := range out {
		cutoff := 50 + 20000*(0.5+0.5*math.Sin(2*math.Pi*float64(i)/211))
		res := 0.1 + 40*(0.5+0.5*math.Sin(2*math.Pi*float64(i)/137))

		if err := f.SetCutoffHz(cutoff); err != nil {
			t.Fatalf("SetCutoffHz(%g) error = %v", cutoff, err)
		}

		if err := f.SetResonance(res); err != nil {
			t.Fatalf("SetResonance(%g) error = %v", res, err)
		}

		out[i] = f.ProcessSample(0.7 * math.Sin(2*math.Pi*float64(i)/37))
	}

	testutil.RequireFinite(t, out)
}

func TestProcessInPlaceMatchesSample(t *testing.T) {
	f1, err := New(48000, WithCutoffHz(2400), WithResonance(1.5), WithMode(ModeHighPass))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	f2, err := New(48000, WithCutoffHz(2400), WithResonance(1.5), WithMode(ModeHighPass))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	in := testutil.DeterministicNoise(3, 0.8, 384)

	want := make([]float64, len(in))
	for i, x := range in {
		want[i] = f1.ProcessSample(x)
	}

	got := append([]float64(nil), in...)
	f2.ProcessInPlace(got)

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestStereoIndependentChannels(t *testing.T) {
	st, err := NewStereo(48000, WithCutoffHz(1400), WithResonance(2))
	if err != nil {
		t.Fatalf("NewStereo() error = %v", err)
	}

	left := testutil.DeterministicSine(440, 48000, 1, 128)
	right := testutil.DC(0, 128)

	st.ProcessInPlace(left, right)

	testutil.RequireFinite(t, left)

	for i, v := range right {
		if v != 0 {
			t.Fatalf("silent channel produced output at %d: %v", i, v)
		}
	}
}
