package diode

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-zdf/dsp/core"
	"github.com/cwbudde/algo-zdf/internal/zdf"
)

const (
	defaultCutoffHz = 1000.0
	defaultFeedback = 1.0

	minCutoffHz = 1.0

	// Self-oscillation boundary of the diode topology.
	maxFeedback = 17.0

	maxDrive = 24.0
)

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	cutoffHz float64
	feedback float64
	drive    float64
	bassComp float64
}

func defaultConfig() config {
	return config{
		cutoffHz: defaultCutoffHz,
		feedback: defaultFeedback,
	}
}

// WithCutoffHz sets cutoff in Hz. Must be finite, >= 1 and below Nyquist.
func WithCutoffHz(cutoffHz float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(cutoffHz, minCutoffHz, math.Inf(1), "cutoff"); err != nil {
			return err
		}

		cfg.cutoffHz = cutoffHz

		return nil
	}
}

// WithFeedback sets the global feedback factor in [0, 17]. The filter
// self-oscillates as feedback approaches 17.
func WithFeedback(feedback float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(feedback, 0, maxFeedback, "feedback"); err != nil {
			return err
		}

		cfg.feedback = feedback

		return nil
	}
}

// WithDrive sets tanh saturation drive on the resolved ladder input in
// [0, 24]. Zero disables the nonlinearity.
func WithDrive(drive float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(drive, 0, maxDrive, "drive"); err != nil {
			return err
		}

		cfg.drive = drive

		return nil
	}
}

// WithBassCompensation sets pass-band gain compensation in [0, 1].
func WithBassCompensation(amount float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(amount, 0, 1, "bass compensation"); err != nil {
			return err
		}

		cfg.bassComp = amount

		return nil
	}
}

// State contains explicit runtime state for save/restore workflows.
type State struct {
	Stage [4]float64
}

// Filter is a four-stage diode ladder filter with zero-delay feedback.
type Filter struct {
	sampleRate float64

	cutoffHz float64
	feedback float64
	drive    float64
	bassComp float64

	alpha0    float64
	driveNorm float64
	sg        [4]float64
	stages    [4]zdf.Stage
	lp        float64
}

// New constructs a diode ladder filter.
func New(sampleRate float64, opts ...Option) (*Filter, error) {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("diode: sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	f := &Filter{
		sampleRate: sampleRate,
		cutoffHz:   cfg.cutoffHz,
		feedback:   cfg.feedback,
		drive:      cfg.drive,
		bassComp:   cfg.bassComp,
	}

	for i := range f.stages {
		f.stages[i].Init()
	}

	if err := f.rebuild(); err != nil {
		return nil, err
	}

	return f, nil
}

// SampleRate returns the sample rate in Hz.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// CutoffHz returns the cutoff frequency in Hz.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// Feedback returns the global feedback factor.
func (f *Filter) Feedback() float64 { return f.feedback }

// Drive returns the ladder input saturation drive; zero means linear.
func (f *Filter) Drive() float64 { return f.drive }

// BassCompensation returns the pass-band gain compensation amount.
func (f *Filter) BassCompensation() float64 { return f.bassComp }

// SetSampleRate updates sample rate and rebuilds coefficients.
func (f *Filter) SetSampleRate(sampleRate float64) error {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return fmt.Errorf("diode: sample rate must be > 0 and finite: %f", sampleRate)
	}

	f.sampleRate = sampleRate

	return f.rebuild()
}

// SetCutoffHz updates cutoff and rebuilds coefficients.
func (f *Filter) SetCutoffHz(cutoffHz float64) error {
	if err := validateFiniteRange(cutoffHz, minCutoffHz, math.Inf(1), "cutoff"); err != nil {
		return err
	}

	f.cutoffHz = cutoffHz

	return f.rebuild()
}

// SetFeedback updates the global feedback factor and rebuilds coefficients.
func (f *Filter) SetFeedback(feedback float64) error {
	if err := validateFiniteRange(feedback, 0, maxFeedback, "feedback"); err != nil {
		return err
	}

	f.feedback = feedback

	return f.rebuild()
}

// SetDrive updates the input saturation drive.
func (f *Filter) SetDrive(drive float64) error {
	if err := validateFiniteRange(drive, 0, maxDrive, "drive"); err != nil {
		return err
	}

	f.drive = drive
	f.updateDriveNorm()

	return nil
}

// SetBassCompensation updates pass-band gain compensation.
func (f *Filter) SetBassCompensation(amount float64) error {
	if err := validateFiniteRange(amount, 0, 1, "bass compensation"); err != nil {
		return err
	}

	f.bassComp = amount

	return nil
}

// Reset clears all stage states and the cached output.
func (f *Filter) Reset() {
	for i := range f.stages {
		f.stages[i].Reset()
	}

	f.lp = 0
}

// State returns a copy of the current runtime state.
func (f *Filter) State() State {
	var st State
	for i := range f.stages {
		st.Stage[i] = f.stages[i].State()
	}

	return st
}

// SetState restores an externally saved runtime state.
func (f *Filter) SetState(state State) error {
	for _, v := range state.Stage {
		if !core.IsFinite(v) {
			return fmt.Errorf("diode: state contains NaN or Inf")
		}
	}

	for i := range f.stages {
		f.stages[i].SetState(state.Stage[i])
	}

	return nil
}

// Write advances the filter by one sample.
func (f *Filter) Write(x float64) {
	if !core.IsFinite(x) {
		x = 0
	}

	// Backward pass: fold each stage's feedback contribution into the
	// stage before it. The forward pass below depends on this order.
	f.stages[3].Feedback = 0
	f.stages[2].Feedback = f.stages[3].FeedbackOutput()
	f.stages[1].Feedback = f.stages[2].FeedbackOutput()
	f.stages[0].Feedback = f.stages[1].FeedbackOutput()

	sigma := f.sg[0]*f.stages[0].FeedbackOutput() +
		f.sg[1]*f.stages[1].FeedbackOutput() +
		f.sg[2]*f.stages[2].FeedbackOutput() +
		f.sg[3]*f.stages[3].FeedbackOutput()

	x *= 1 + f.bassComp*f.feedback

	u := (x - f.feedback*sigma) * f.alpha0
	if f.drive > 0 {
		u = math.Tanh(f.drive*u) * f.driveNorm
	}

	y := f.stages[3].Tick(f.stages[2].Tick(f.stages[1].Tick(f.stages[0].Tick(u))))

	for i := range f.stages {
		f.stages[i].SetState(core.FlushDenormals(f.stages[i].State()))
	}

	f.lp = y
}

// LowPass returns the low-pass output of the last Write.
func (f *Filter) LowPass() float64 { return f.lp }

// ProcessSample writes one sample and returns the low-pass output.
func (f *Filter) ProcessSample(x float64) float64 {
	f.Write(x)
	return f.lp
}

// ProcessInPlace processes a mono buffer in place.
func (f *Filter) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = f.ProcessSample(buf[i])
	}
}

// ProcessTo processes src into dst. Both slices must have the same length.
func (f *Filter) ProcessTo(dst, src []float64) {
	n := len(src)
	if n == 0 {
		return
	}

	_ = dst[n-1]
	for i, x := range src {
		dst[i] = f.ProcessSample(x)
	}
}

func (f *Filter) rebuild() error {
	if err := validateFiniteRange(f.cutoffHz, minCutoffHz, math.Inf(1), "cutoff"); err != nil {
		return err
	}

	if err := validateFiniteRange(f.feedback, 0, maxFeedback, "feedback"); err != nil {
		return err
	}

	nyquist := f.sampleRate * 0.5
	if f.cutoffHz >= nyquist {
		return fmt.Errorf("diode: cutoff must be < Nyquist (%f Hz): %f", nyquist, f.cutoffHz)
	}

	g := zdf.PrewarpGain(f.cutoffHz, f.sampleRate)

	// Recursive elimination of the diode coupling network. Each gain
	// accounts for the loading of the stage after it, so G4 must be
	// computed first.
	g4 := 0.5 * g / (1 + g)
	g3 := 0.5 * g / (1 + g - 0.5*g*g4)
	g2 := 0.5 * g / (1 + g - 0.5*g*g3)
	g1 := g / (1 + g - g*g2)
	gammaProduct := g4 * g3 * g2 * g1

	f.sg = [4]float64{g4 * g3 * g2, g4 * g3, g4, 1}

	alpha := g / (1 + g)
	for i := range f.stages {
		f.stages[i].Alpha = alpha
	}

	f.stages[0].Beta = 1 / (1 + g - g*g2)
	f.stages[1].Beta = 1 / (1 + g - 0.5*g*g3)
	f.stages[2].Beta = 1 / (1 + g - 0.5*g*g4)
	f.stages[3].Beta = 1 / (1 + g)

	f.stages[0].Delta = g
	f.stages[1].Delta = 0.5 * g
	f.stages[2].Delta = 0.5 * g
	f.stages[3].Delta = 0

	f.stages[0].Gamma = 1 + g1*g2
	f.stages[1].Gamma = 1 + g2*g3
	f.stages[2].Gamma = 1 + g3*g4
	f.stages[3].Gamma = 1

	f.stages[0].Epsilon = g2
	f.stages[1].Epsilon = g3
	f.stages[2].Epsilon = g4
	f.stages[3].Epsilon = 0

	f.stages[0].A0 = 1
	f.stages[1].A0 = 0.5
	f.stages[2].A0 = 0.5
	f.stages[3].A0 = 0.5

	f.alpha0 = 1 / (1 + f.feedback*gammaProduct)
	f.updateDriveNorm()

	return nil
}

func (f *Filter) updateDriveNorm() {
	if f.drive > 0 {
		f.driveNorm = 1 / math.Tanh(f.drive)
	} else {
		f.driveNorm = 1
	}
}

func validateFiniteRange(value, min, max float64, name string) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("diode: %s must be finite: %v", name, value)
	}

	if value < min || value > max {
		return fmt.Errorf("diode: %s must be in [%g, %g]: %f", name, min, max, value)
	}

	return nil
}
