// Package biquad provides biquad (second-order IIR) filter runtime primitives.
//
// A [Section] implements Direct Form II Transposed processing for a single
// second-order section defined by [Coefficients]. The zero-delay-feedback
// filter packages use sections for anti-alias filtering in oversampled
// nonlinear processing; hosts can use [Coefficients.IsStable] to vet
// runtime-derived coefficient sets before they reach the audio path.
//
// Coefficient design (RBJ lowpass, highpass, ...) lives in dsp/filter/design.
package biquad
