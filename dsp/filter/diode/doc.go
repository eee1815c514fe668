// Package diode implements a four-stage diode ladder filter with zero-delay
// feedback. The diode network couples every stage to its neighbours, so the
// closed-form elimination produces distinct recursive gains G1..G4 and a full
// coefficient set (beta, gamma, delta, epsilon) per stage.
//
// Each sample runs two passes: a backward pass S4..S1 that folds every
// stage's feedback contribution into the stage before it, then a forward
// pass that drives the four one-pole stages in order. The passes must run in
// exactly this order; the backward pass prepares the pre-resolved feedback
// values the forward pass consumes.
//
// Feedback reaches self-oscillation at 17. An optional tanh saturator on the
// resolved ladder input bounds the oscillation amplitude.
package diode
