// Package svf provides a two-pole topology-preserving state-variable filter.
//
// A single Write resolves the two-integrator feedback loop in closed form
// and produces every tap at once: low-pass, band-pass, high-pass, and the
// derived notch, all-pass, peak, band-shelf, and unit-gain band-pass
// outputs, which are linear combinations of the same computation. Reading a
// tap never recomputes or mutates state.
//
// Filters are stateful and single-owner: Write must be called once per
// sample in time order, and instances are not safe for concurrent use. If a
// host automates parameters from another goroutine it must provide its own
// handoff; this package performs no locking.
package svf
