// Package design computes biquad coefficient sets from continuous-time
// parameters (frequency, Q) using the RBJ cookbook formulas.
//
// Invalid parameters (non-positive sample rate, frequency at or above
// Nyquist) yield a zero [biquad.Coefficients] value, which mutes rather
// than destabilizes a section; callers that need a through-pass fallback
// should substitute [biquad.Identity] after checking IsStable.
package design
