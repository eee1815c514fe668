// Package sallenkey implements Korg35-style Sallen-Key low-pass and
// high-pass filters with zero-delay feedback. Three one-pole stages form a
// non-ladder loop: the second and third stages feed back into the first
// stage's output with resonance-derived betas, and the loop gain alpha0
// resolves the remaining implicit dependency in closed form.
//
// Resonance runs from 0.01 to 2; the filter self-oscillates at 2. The final
// output is scaled by resonance inside the loop and divided back out, so the
// pass-band level stays put while the resonant peak grows.
package sallenkey
