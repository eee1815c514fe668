// Package onepole provides a one-pole zero-delay-feedback filter with
// simultaneous low-pass and high-pass outputs.
//
// The linear form resolves the trapezoidal integrator's implicit equation in
// closed form, so a single Write per sample yields the true instantaneous
// outputs without a unit-sample feedback lag. With drive enabled, a tanh
// saturator shapes the integrator's input and feedback; the per-sample
// equation then has no closed form and is resolved by bounded Newton
// iteration.
//
// Filters are stateful and single-owner: Write must be called once per
// sample in time order, and instances are not safe for concurrent use.
// Control-rate setters validate their arguments; the audio path never
// returns errors and sanitizes non-finite samples to 0.
package onepole
