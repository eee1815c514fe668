package onepole

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-zdf/dsp/core"
	"github.com/cwbudde/algo-zdf/internal/solver"
	"github.com/cwbudde/algo-zdf/internal/zdf"
)

const (
	defaultCutoffHz         = 1000.0
	defaultNewtonIterations = 4
	defaultNewtonTolerance  = 1e-9

	minCutoffHz = 1.0

	minDrive = 0.0
	maxDrive = 24.0

	minNewtonIterations = 1
	maxNewtonIterations = 8
)

// Mode selects which tap ProcessSample returns.
type Mode int

const (
	// ModeLowPass returns the low-pass tap.
	ModeLowPass Mode = iota
	// ModeHighPass returns the high-pass tap.
	ModeHighPass
)

func (m Mode) String() string {
	switch m {
	case ModeLowPass:
		return "lowpass"
	case ModeHighPass:
		return "highpass"
	default:
		return "unknown"
	}
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	mode             Mode
	cutoffHz         float64
	drive            float64
	newtonIterations int
	newtonTolerance  float64
}

func defaultConfig() config {
	return config{
		mode:             ModeLowPass,
		cutoffHz:         defaultCutoffHz,
		drive:            0,
		newtonIterations: defaultNewtonIterations,
		newtonTolerance:  defaultNewtonTolerance,
	}
}

// WithMode selects the tap returned by ProcessSample.
func WithMode(mode Mode) Option {
	return func(cfg *config) error {
		if !validMode(mode) {
			return fmt.Errorf("onepole: invalid mode: %d", mode)
		}

		cfg.mode = mode

		return nil
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

// WithDrive sets tanh saturation drive in [0, 24]. Zero disables the
// nonlinearity and restores the closed-form linear update.
func WithDrive(drive float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(drive, minDrive, maxDrive, "drive"); err != nil {
			return err
		}

		cfg.drive = drive

		return nil
	}
}

// WithNewtonIterations bounds the per-sample Newton solve in [1, 8].
// Only relevant when drive is non-zero.
func WithNewtonIterations(iterations int) Option {
	return func(cfg *config) error {
		if iterations < minNewtonIterations || iterations > maxNewtonIterations {
			return fmt.Errorf("onepole: newton iterations must be in [%d, %d]: %d",
				minNewtonIterations, maxNewtonIterations, iterations)
		}

		cfg.newtonIterations = iterations

		return nil
	}
}

// WithNewtonTolerance sets the residual tolerance of the per-sample solve.
func WithNewtonTolerance(tolerance float64) Option {
	return func(cfg *config) error {
		if !core.IsFinite(tolerance) || tolerance <= 0 {
			return fmt.Errorf("onepole: newton tolerance must be > 0 and finite: %v", tolerance)
		}

		cfg.newtonTolerance = tolerance

		return nil
	}
}

// State contains the filter's runtime state for save/restore workflows.
type State struct {
	Integrator float64
	LowPass    float64
	HighPass   float64
}

// Filter is a one-pole zero-delay-feedback low-pass/high-pass filter.
type Filter struct {
	sampleRate float64

	mode             Mode
	cutoffHz         float64
	drive            float64
	newtonIterations int
	newtonTolerance  float64

	g     float64 // pre-warped integrator gain tan(pi*fc/fs)
	stage zdf.Stage
}

// New constructs a one-pole ZDF filter.
func New(sampleRate float64, opts ...Option) (*Filter, error) {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("onepole: sample rate must be > 0 and finite: %f", sampleRate)
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
		sampleRate:       sampleRate,
		mode:             cfg.mode,
		cutoffHz:         cfg.cutoffHz,
		drive:            cfg.drive,
		newtonIterations: cfg.newtonIterations,
		newtonTolerance:  cfg.newtonTolerance,
	}

	f.stage.Init()

	if err := f.rebuild(); err != nil {
		return nil, err
	}

	return f, nil
}

// SampleRate returns the sample rate in Hz.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// Mode returns the tap returned by ProcessSample.
func (f *Filter) Mode() Mode { return f.mode }

// CutoffHz returns the cutoff frequency in Hz.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// Drive returns the tanh saturation drive; zero means linear.
func (f *Filter) Drive() float64 { return f.drive }

// NewtonIterations returns the per-sample iteration bound.
func (f *Filter) NewtonIterations() int { return f.newtonIterations }

// Gain returns the resolved integrator gain g/(1+g).
func (f *Filter) Gain() float64 { return f.stage.Alpha }

// SetSampleRate updates sample rate and rebuilds coefficients.
func (f *Filter) SetSampleRate(sampleRate float64) error {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return fmt.Errorf("onepole: sample rate must be > 0 and finite: %f", sampleRate)
	}

	f.sampleRate = sampleRate

	return f.rebuild()
}

// SetMode updates the tap returned by ProcessSample.
func (f *Filter) SetMode(mode Mode) error {
	if !validMode(mode) {
		return fmt.Errorf("onepole: invalid mode: %d", mode)
	}

	f.mode = mode

	return nil
}

// SetCutoffHz updates cutoff and rebuilds coefficients.
func (f *Filter) SetCutoffHz(cutoffHz float64) error {
	if err := validateFiniteRange(cutoffHz, minCutoffHz, math.Inf(1), "cutoff"); err != nil {
		return err
	}

	f.cutoffHz = cutoffHz

	return f.rebuild()
}

// SetDrive updates saturation drive; zero disables the nonlinearity.
func (f *Filter) SetDrive(drive float64) error {
	if err := validateFiniteRange(drive, minDrive, maxDrive, "drive"); err != nil {
		return err
	}

	f.drive = drive

	return nil
}

// SetNewtonIterations updates the per-sample iteration bound.
func (f *Filter) SetNewtonIterations(iterations int) error {
	if iterations < minNewtonIterations || iterations > maxNewtonIterations {
		return fmt.Errorf("onepole: newton iterations must be in [%d, %d]: %d",
			minNewtonIterations, maxNewtonIterations, iterations)
	}

	f.newtonIterations = iterations

	return nil
}

// Reset clears the integrator state and cached outputs.
func (f *Filter) Reset() {
	f.stage.Reset()
}

// State returns a copy of the current runtime state.
func (f *Filter) State() State {
	return State{
		Integrator: f.stage.State(),
		LowPass:    f.stage.LowPass(),
		HighPass:   f.stage.HighPass(),
	}
}

// SetState restores an externally saved runtime state.
func (f *Filter) SetState(state State) error {
	if !core.IsFinite(state.Integrator) || !core.IsFinite(state.LowPass) || !core.IsFinite(state.HighPass) {
		return fmt.Errorf("onepole: state contains NaN or Inf")
	}

	f.stage.SetState(state.Integrator)

	return nil
}

// Write advances the filter by one sample. The low-pass and high-pass taps
// are then available from LowPass and HighPass without recomputation.
func (f *Filter) Write(x float64) {
	if !core.IsFinite(x) {
		x = 0
	}

	if f.drive > 0 {
		f.writeNonlinear(x)
		return
	}

	f.stage.Tick(x)
	f.stage.SetState(core.FlushDenormals(f.stage.State()))
}

// LowPass returns the low-pass tap of the last Write.
func (f *Filter) LowPass() float64 { return f.stage.LowPass() }

// HighPass returns the high-pass tap of the last Write.
func (f *Filter) HighPass() float64 { return f.stage.HighPass() }

// WriteAndReadLowPass writes one sample and returns the low-pass tap.
func (f *Filter) WriteAndReadLowPass(x float64) float64 {
	f.Write(x)
	return f.stage.LowPass()
}

// WriteAndReadHighPass writes one sample and returns the high-pass tap.
func (f *Filter) WriteAndReadHighPass(x float64) float64 {
	f.Write(x)
	return f.stage.HighPass()
}

// ProcessSample writes one sample and returns the tap selected by Mode.
func (f *Filter) ProcessSample(x float64) float64 {
	f.Write(x)

	if f.mode == ModeHighPass {
		return f.stage.HighPass()
	}

	return f.stage.LowPass()
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

// writeNonlinear resolves the saturated integrator update
//
//	y = s + (g/drive) * (tanh(drive*x) - tanh(drive*y))
//
// per sample. Both the input and the resolved feedback pass through the
// same slope-normalized tanh, so the small-signal response matches the
// linear filter and the DC equilibrium stays at y = x for any drive. The
// implicit equation has no closed form; it is solved by Newton iteration
// seeded with the closed-form linear solution.
func (f *Filter) writeNonlinear(x float64) {
	g := f.g
	s := f.stage.State()
	drive := f.drive

	shapedInput := math.Tanh(drive*x) / drive

	fn := func(y float64) float64 {
		return y - s - g*(shapedInput-math.Tanh(drive*y)/drive)
	}
	dfn := func(y float64) float64 {
		th := math.Tanh(drive * y)
		return 1 + g*(1-th*th)
	}

	linear := f.stage.Alpha*x + s/(1+g)

	res := solver.Newton(fn, dfn, linear, f.newtonTolerance, f.newtonIterations)

	// Audio must never stall: proceed with the best estimate even when the
	// iteration budget ran out before convergence.
	y := res.Root
	if !core.IsFinite(y) {
		y = linear
	}

	// Commit the resolved low-pass output: v = y - s, state = y + v.
	f.stage.SetState(core.FlushDenormals(2*y - s))
	f.stage.SetOutputs(y, x-y)
}

func (f *Filter) rebuild() error {
	if err := validateFiniteRange(f.cutoffHz, minCutoffHz, math.Inf(1), "cutoff"); err != nil {
		return err
	}

	nyquist := f.sampleRate * 0.5
	if f.cutoffHz >= nyquist {
		return fmt.Errorf("onepole: cutoff must be < Nyquist (%f Hz): %f", nyquist, f.cutoffHz)
	}

	f.g = zdf.PrewarpGain(f.cutoffHz, f.sampleRate)
	f.stage.Alpha = f.g / (1 + f.g)

	return nil
}

// Stereo runs one filter state per channel.
type Stereo struct {
	left  *Filter
	right *Filter
}

// NewStereo constructs a stereo helper with independent left/right state.
func NewStereo(sampleRate float64, opts ...Option) (*Stereo, error) {
	left, err := New(sampleRate, opts...)
	if err != nil {
		return nil, err
	}

	right, err := New(sampleRate, opts...)
	if err != nil {
		return nil, err
	}

	return &Stereo{left: left, right: right}, nil
}

// Left returns the left-channel filter.
func (s *Stereo) Left() *Filter { return s.left }

// Right returns the right-channel filter.
func (s *Stereo) Right() *Filter { return s.right }

// Reset clears both channel states.
func (s *Stereo) Reset() {
	s.left.Reset()
	s.right.Reset()
}

// ProcessSample processes one stereo sample frame.
func (s *Stereo) ProcessSample(leftIn, rightIn float64) (leftOut, rightOut float64) {
	return s.left.ProcessSample(leftIn), s.right.ProcessSample(rightIn)
}

// ProcessInPlace processes stereo planar buffers in place.
func (s *Stereo) ProcessInPlace(left, right []float64) {
	n := len(left)
	if n == 0 {
		return
	}

	_ = right[n-1]

	for i := range n {
		left[i], right[i] = s.ProcessSample(left[i], right[i])
	}
}

func validMode(mode Mode) bool {
	return mode == ModeLowPass || mode == ModeHighPass
}

func validateFiniteRange(value, min, max float64, name string) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("onepole: %s must be finite: %v", name, value)
	}

	if value < min || value > max {
		return fmt.Errorf("onepole: %s must be in [%g, %g]: %f", name, min, max, value)
	}

	return nil
}
