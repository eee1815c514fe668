// Package zdf holds the raw one-pole zero-delay-feedback integrator stage
// shared by the public filter packages. The stage resolves its own feedback
// loop in closed form; the extra Beta/Gamma/Delta/Epsilon coefficients exist
// so that composite topologies (ladder, diode ladder, Sallen-Key) can fold
// inter-stage feedback into a single pre-resolved sum per sample.
package zdf

import "math"

// Stage is a single trapezoidal one-pole integrator with resolved feedback.
//
// The zero value is a unity-bypass stage; callers are expected to configure
// Alpha (and the composite coefficients where applicable) before ticking.
type Stage struct {
	// Alpha is the resolved integrator gain g/(1+g) with g = tan(pi*fc/fs).
	Alpha float64

	// Composite-topology coefficients. A plain one-pole uses the defaults
	// set by Init (Gamma = A0 = 1, everything else 0).
	Beta    float64
	Gamma   float64
	Delta   float64
	Epsilon float64
	A0      float64

	// Feedback is the pre-resolved feedback sample injected by composite
	// topologies before each tick. Plain one-poles leave it at 0.
	Feedback float64

	state float64
	lp    float64
	hp    float64
}

// Init restores the plain one-pole coefficient defaults without touching
// Alpha or the integrator state.
func (s *Stage) Init() {
	s.Beta = 0
	s.Gamma = 1
	s.Delta = 0
	s.Epsilon = 0
	s.A0 = 1
	s.Feedback = 0
}

// PrewarpGain returns g = tan(pi * cutoffHz / sampleRate), the bilinear
// pre-warped integrator gain. Callers must guarantee 0 < cutoffHz < fs/2.
func PrewarpGain(cutoffHz, sampleRate float64) float64 {
	return math.Tan(math.Pi * cutoffHz / sampleRate)
}

// SetCutoff derives Alpha from cutoff and sample rate.
func (s *Stage) SetCutoff(cutoffHz, sampleRate float64) {
	g := PrewarpGain(cutoffHz, sampleRate)
	s.Alpha = g / (1 + g)
}

// Tick advances the stage by one sample and returns the low-pass output.
//
// The update is the closed-form resolution of the trapezoidal integrator:
//
//	v  = (a0*x - state) * alpha
//	lp = v + state
//	hp = x - lp
//	state = lp + v
func (s *Stage) Tick(x float64) float64 {
	x = x*s.Gamma + s.Feedback + s.Epsilon*s.FeedbackOutput()

	v := (s.A0*x - s.state) * s.Alpha
	s.lp = v + s.state
	s.hp = x - s.lp
	s.state = s.lp + v

	return s.lp
}

// TickHighPass advances the stage and returns the high-pass output.
func (s *Stage) TickHighPass(x float64) float64 {
	s.Tick(x)
	return s.hp
}

// LowPass returns the low-pass output of the last Tick.
func (s *Stage) LowPass() float64 { return s.lp }

// HighPass returns the high-pass output of the last Tick.
func (s *Stage) HighPass() float64 { return s.hp }

// FeedbackOutput returns this stage's contribution to a composite feedback
// sum, computed from the state stored before the current sample.
func (s *Stage) FeedbackOutput() float64 {
	return s.Beta * (s.state + s.Feedback*s.Delta)
}

// SetOutputs overwrites the cached tap outputs. Used by callers that
// resolve a nonlinear update externally and commit the result.
func (s *Stage) SetOutputs(lp, hp float64) {
	s.lp = lp
	s.hp = hp
}

// State returns the integrator state.
func (s *Stage) State() float64 { return s.state }

// SetState overwrites the integrator state.
func (s *Stage) SetState(state float64) { s.state = state }

// Reset clears the integrator state and cached outputs.
func (s *Stage) Reset() {
	s.state = 0
	s.lp = 0
	s.hp = 0
	s.Feedback = 0
}
