// Package response captures impulse responses from sample processors and
// derives frequency-domain magnitude responses from them.
package response

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-zdf/dsp/core"
	"github.com/cwbudde/algo-zdf/dsp/spectrum"
)

// Processor is any per-sample filter. All filters in this module satisfy it
// through their ProcessSample method.
type Processor interface {
	ProcessSample(x float64) float64
}

// ProcessorFunc adapts a plain function as a [Processor].
type ProcessorFunc func(x float64) float64

// ProcessSample calls f(x).
func (f ProcessorFunc) ProcessSample(x float64) float64 { return f(x) }

// ImpulseResponse drives a unit impulse through p and records length output
// samples. The processor should start from a cleared state.
func ImpulseResponse(p Processor, length int) ([]float64, error) {
	if p == nil {
		return nil, fmt.Errorf("response: processor is nil")
	}

	if length <= 0 {
		return nil, fmt.Errorf("response: length must be > 0: %d", length)
	}

	out := make([]float64, length)
	out[0] = p.ProcessSample(1)

	for i := 1; i < length; i++ {
		out[i] = p.ProcessSample(0)
	}

	return out, nil
}

// Magnitude holds a one-sided magnitude response over [0, Nyquist].
type Magnitude struct {
	// Bins holds linear magnitude per bin, length fftSize/2 + 1.
	Bins []float64

	// SampleRate is the rate the response was captured at, in Hz.
	SampleRate float64

	fftSize int
}

// FFTSize returns the FFT size that produced the bins.
func (m *Magnitude) FFTSize() int { return m.fftSize }

// BinFrequency returns the center frequency of bin i in Hz.
func (m *Magnitude) BinFrequency(i int) float64 {
	return float64(i) * m.SampleRate / float64(m.fftSize)
}

// At returns the linear magnitude at the bin nearest to freqHz. Frequencies
// outside [0, Nyquist] clamp to the edge bins.
func (m *Magnitude) At(freqHz float64) float64 {
	if len(m.Bins) == 0 {
		return 0
	}

	bin := math.Round(freqHz * float64(m.fftSize) / m.SampleRate)
	bin = core.Clamp(bin, 0, float64(len(m.Bins)-1))

	return m.Bins[int(bin)]
}

// MagnitudeResponse captures an impulse response of fftSize samples from p
// and returns its one-sided magnitude spectrum. fftSize must be a power of
// two of at least 16 so that the FFT plan accepts it and the response has
// usable resolution.
func MagnitudeResponse(p Processor, sampleRate float64, fftSize int) (*Magnitude, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("response: sample rate must be > 0 and finite: %f", sampleRate)
	}

	if fftSize < 16 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("response: fft size must be a power of two >= 16: %d", fftSize)
	}

	ir, err := ImpulseResponse(p, fftSize)
	if err != nil {
		return nil, err
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("response: failed to create FFT plan: %w", err)
	}

	in := make([]complex128, fftSize)
	for i, v := range ir {
		in[i] = complex(v, 0)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("response: forward FFT failed: %w", err)
	}

	bins := spectrum.Magnitude(out[:fftSize/2+1])

	return &Magnitude{
		Bins:       bins,
		SampleRate: sampleRate,
		fftSize:    fftSize,
	}, nil
}
