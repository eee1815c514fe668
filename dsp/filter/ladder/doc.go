// Package ladder provides a four-pole zero-delay-feedback ladder filter.
//
// The global feedback loop, in which stage 1's input depends on all four
// stage states including the downstream stage 4, is resolved in closed form:
// per-stage feedback weights are derived at coefficient time so the loop
// reduces to one weighted sum of the previous sample's states and a single
// loop gain, with no per-sample iteration. One Write produces every tap:
// 1st/2nd/4th-order low-pass plus 2nd/4th-order band-pass and high-pass
// outputs formed from fixed binomial combinations of the stage outputs.
//
// Feedback values of 4 and above drive the loop into self-oscillation.
// This is an intentional operating mode, not an error; enable drive so the
// saturator bounds the oscillation amplitude.
//
// Filters are stateful and single-owner; Write must be called once per
// sample in time order and instances are not safe for concurrent use.
package ladder
