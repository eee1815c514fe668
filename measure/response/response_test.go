package response

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-zdf/dsp/filter/ladder"
	"github.com/cwbudde/algo-zdf/dsp/filter/onepole"
	"github.com/cwbudde/algo-zdf/dsp/filter/svf"
)

func TestImpulseResponseValidation(t *testing.T) {
	if _, err := ImpulseResponse(nil, 16); err == nil {
		t.Fatal("expected error for nil processor")
	}

	if _, err := ImpulseResponse(ProcessorFunc(func(x float64) float64 { return x }), 0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestMagnitudeResponseValidation(t *testing.T) {
	identity := ProcessorFunc(func(x float64) float64 { return x })

	if _, err := MagnitudeResponse(identity, 0, 1024); err == nil {
		t.Fatal("expected error for invalid sample rate")
	}

	if _, err := MagnitudeResponse(identity, 48000, 1000); err == nil {
		t.Fatal("expected error for non-power-of-two fft size")
	}

	if _, err := MagnitudeResponse(identity, 48000, 8); err == nil {
		t.Fatal("expected error for tiny fft size")
	}
}

func TestIdentityProcessorIsFlat(t *testing.T) {
	m, err := MagnitudeResponse(ProcessorFunc(func(x float64) float64 { return x }), 48000, 1024)
	if err != nil {
		t.Fatalf("MagnitudeResponse() error = %v", err)
	}

	if len(m.Bins) != 513 {
		t.Fatalf("bin count = %d, want 513", len(m.Bins))
	}

	for i, v := range m.Bins {
		if math.Abs(v-1) > 1e-12 {
			t.Fatalf("bin %d: magnitude = %v, want 1", i, v)
		}
	}
}

func TestOnePoleLowPassResponse(t *testing.T) {
	const (
		sampleRate = 48000.0
		cutoffHz   = 1000.0
	)

	f, err := onepole.New(sampleRate, onepole.WithCutoffHz(cutoffHz))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m, err := MagnitudeResponse(f, sampleRate, 4096)
	if err != nil {
		t.Fatalf("MagnitudeResponse() error = %v", err)
	}

	if dc := m.At(0); math.Abs(dc-1) > 1e-6 {
		t.Fatalf("DC magnitude = %v, want 1", dc)
	}

	// Bilinear prewarping lands the -3 dB point exactly on the cutoff.
	if g := m.At(cutoffHz); math.Abs(g-1/math.Sqrt2) > 0.02 {
		t.Fatalf("magnitude at cutoff = %v, want ~%v", g, 1/math.Sqrt2)
	}

	if hf := m.At(20000); hf > 0.1 {
		t.Fatalf("magnitude at 20 kHz = %v, want strong attenuation", hf)
	}
}

func TestBinFrequency(t *testing.T) {
	m, err := MagnitudeResponse(ProcessorFunc(func(x float64) float64 { return x }), 48000, 1024)
	if err != nil {
		t.Fatalf("MagnitudeResponse() error = %v", err)
	}

	if got := m.BinFrequency(0); got != 0 {
		t.Fatalf("BinFrequency(0) = %v", got)
	}

	if got := m.BinFrequency(512); math.Abs(got-24000) > 1e-9 {
		t.Fatalf("BinFrequency(512) = %v, want 24000", got)
	}

	if m.FFTSize() != 1024 {
		t.Fatalf("FFTSize() = %d, want 1024", m.FFTSize())
	}
}

func TestAtClampsToEdgeBins(t *testing.T) {
	f, err := onepole.New(48000, onepole.WithCutoffHz(1000))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m, err := MagnitudeResponse(f, 48000, 1024)
	if err != nil {
		t.Fatalf("MagnitudeResponse() error = %v", err)
	}

	if got := m.At(-500); got != m.Bins[0] {
		t.Fatalf("At(-500) = %v, want first bin %v", got, m.Bins[0])
	}

	if got := m.At(1e9); got != m.Bins[len(m.Bins)-1] {
		t.Fatalf("At(1e9) = %v, want last bin %v", got, m.Bins[len(m.Bins)-1])
	}
}

func TestBandPassPeaksAtCutoff(t *testing.T) {
	const (
		sampleRate = 48000.0
		cutoffHz   = 2000.0
	)

	f, err := svf.New(sampleRate, svf.WithCutoffHz(cutoffHz),
		svf.WithResonance(5), svf.WithMode(svf.ModeBandPass))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m, err := MagnitudeResponse(f, sampleRate, 8192)
	if err != nil {
		t.Fatalf("MagnitudeResponse() error = %v", err)
	}

	center := m.At(cutoffHz)
	if low := m.At(cutoffHz / 4); low >= center {
		t.Fatalf("magnitude at %v Hz (%v) not below center (%v)", cutoffHz/4, low, center)
	}

	if high := m.At(cutoffHz * 4); high >= center {
		t.Fatalf("magnitude at %v Hz (%v) not below center (%v)", cutoffHz*4, high, center)
	}
}

func TestLadderDCFollowsFeedback(t *testing.T) {
	f, err := ladder.New(48000, ladder.WithCutoffHz(1000), ladder.WithFeedback(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m, err := MagnitudeResponse(f, 48000, 8192)
	if err != nil {
		t.Fatalf("MagnitudeResponse() error = %v", err)
	}

	if dc := m.At(0); math.Abs(dc-0.5) > 1e-3 {
		t.Fatalf("DC magnitude = %v, want 0.5", dc)
	}
}
