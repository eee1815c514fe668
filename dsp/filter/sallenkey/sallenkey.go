package sallenkey

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-zdf/dsp/core"
	"github.com/cwbudde/algo-zdf/internal/zdf"
)

const (
	defaultCutoffHz  = 1000.0
	defaultResonance = 0.5

	minCutoffHz = 1.0

	minResonance = 0.01

	// Self-oscillation boundary of the Korg35 loop.
	maxResonance = 2.0

	maxDrive = 24.0
)

// Mode selects the filter topology.
type Mode int

const (
	// ModeLowPass is the Korg35 low-pass topology.
	ModeLowPass Mode = iota
	// ModeHighPass is the Korg35 high-pass topology.
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
	mode      Mode
	cutoffHz  float64
	resonance float64
	drive     float64
}

func defaultConfig() config {
	return config{
		mode:      ModeLowPass,
		cutoffHz:  defaultCutoffHz,
		resonance: defaultResonance,
	}
}

// WithMode selects the low-pass or high-pass topology.
func WithMode(mode Mode) Option {
	return func(cfg *config) error {
		if mode != ModeLowPass && mode != ModeHighPass {
			return fmt.Errorf("sallenkey: invalid mode: %d", mode)
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

// WithResonance sets the resonance factor in [0.01, 2]. The filter
// self-oscillates at 2.
func WithResonance(resonance float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(resonance, minResonance, maxResonance, "resonance"); err != nil {
			return err
		}

		cfg.resonance = resonance

		return nil
	}
}

// WithDrive sets tanh saturation drive on the resolved loop node in [0, 24].
// Zero disables the nonlinearity.
func WithDrive(drive float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(drive, 0, maxDrive, "drive"); err != nil {
			return err
		}

		cfg.drive = drive

		return nil
	}
}

// State contains explicit runtime state for save/restore workflows.
type State struct {
	Stage [3]float64
}

// Filter is a Korg35-style Sallen-Key filter.
type Filter struct {
	sampleRate float64

	mode      Mode
	cutoffHz  float64
	resonance float64
	drive     float64

	alpha0    float64
	driveNorm float64

	// Low-pass topology: stage1 LP in, stage2 LP loop, stage3 HP feedback.
	// High-pass topology: stage1 HP in, stage2 HP loop, stage3 LP feedback.
	stages [3]zdf.Stage

	out float64
}

// New constructs a Sallen-Key filter.
func New(sampleRate float64, opts ...Option) (*Filter, error) {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("sallenkey: sample rate must be > 0 and finite: %f", sampleRate)
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
		mode:       cfg.mode,
		cutoffHz:   cfg.cutoffHz,
		resonance:  cfg.resonance,
		drive:      cfg.drive,
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

// Mode returns the filter topology.
func (f *Filter) Mode() Mode { return f.mode }

// CutoffHz returns the cutoff frequency in Hz.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// Resonance returns the resonance factor.
func (f *Filter) Resonance() float64 { return f.resonance }

// Drive returns the loop saturation drive; zero means linear.
func (f *Filter) Drive() float64 { return f.drive }

// SetSampleRate updates sample rate and rebuilds coefficients.
func (f *Filter) SetSampleRate(sampleRate float64) error {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return fmt.Errorf("sallenkey: sample rate must be > 0 and finite: %f", sampleRate)
	}

	f.sampleRate = sampleRate

	return f.rebuild()
}

// SetMode switches topology and rebuilds coefficients. Stage states are
// kept; callers that need a clean transition should Reset.
func (f *Filter) SetMode(mode Mode) error {
	if mode != ModeLowPass && mode != ModeHighPass {
		return fmt.Errorf("sallenkey: invalid mode: %d", mode)
	}

	f.mode = mode

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

// SetResonance updates the resonance factor and rebuilds coefficients.
func (f *Filter) SetResonance(resonance float64) error {
	if err := validateFiniteRange(resonance, minResonance, maxResonance, "resonance"); err != nil {
		return err
	}

	f.resonance = resonance

	return f.rebuild()
}

// SetDrive updates the loop saturation drive.
func (f *Filter) SetDrive(drive float64) error {
	if err := validateFiniteRange(drive, 0, maxDrive, "drive"); err != nil {
		return err
	}

	f.drive = drive
	f.updateDriveNorm()

	return nil
}

// Reset clears all stage states and the cached output.
func (f *Filter) Reset() {
	for i := range f.stages {
		f.stages[i].Reset()
	}

	f.out = 0
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
			return fmt.Errorf("sallenkey: state contains NaN or Inf")
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

	switch f.mode {
	case ModeHighPass:
		f.writeHighPass(x)
	default:
		f.writeLowPass(x)
	}

	for i := range f.stages {
		f.stages[i].SetState(core.FlushDenormals(f.stages[i].State()))
	}
}

func (f *Filter) writeLowPass(x float64) {
	y1 := f.stages[0].Tick(x)

	s35 := f.stages[1].FeedbackOutput() + f.stages[2].FeedbackOutput()
	u := f.alpha0 * (y1 + s35)

	if f.drive > 0 {
		u = math.Tanh(f.drive*u) * f.driveNorm
	}

	y := f.resonance * f.stages[1].Tick(u)

	// The high-pass stage only exists to shape the feedback path.
	f.stages[2].TickHighPass(y)

	if f.resonance > 0 {
		y /= f.resonance
	}

	f.out = y
}

func (f *Filter) writeHighPass(x float64) {
	y1 := f.stages[0].TickHighPass(x)

	s35 := f.stages[1].FeedbackOutput() + f.stages[2].FeedbackOutput()
	u := f.alpha0 * (y1 + s35)

	y := f.resonance * u
	if f.drive > 0 {
		y = math.Tanh(f.drive*y) * f.driveNorm
	}

	// Output taps before the feedback chain; the chain shapes what the
	// next sample's loop sees.
	f.stages[2].Tick(f.stages[1].TickHighPass(y))

	if f.resonance > 0 {
		y /= f.resonance
	}

	f.out = y
}

// Output returns the output of the last Write.
func (f *Filter) Output() float64 { return f.out }

// ProcessSample writes one sample and returns the output.
func (f *Filter) ProcessSample(x float64) float64 {
	f.Write(x)
	return f.out
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

	if err := validateFiniteRange(f.resonance, minResonance, maxResonance, "resonance"); err != nil {
		return err
	}

	nyquist := f.sampleRate * 0.5
	if f.cutoffHz >= nyquist {
		return fmt.Errorf("sallenkey: cutoff must be < Nyquist (%f Hz): %f", nyquist, f.cutoffHz)
	}

	g := zdf.PrewarpGain(f.cutoffHz, f.sampleRate)
	gain := g / (1 + g)
	k := f.resonance

	for i := range f.stages {
		f.stages[i].Init()
		f.stages[i].Alpha = gain
	}

	switch f.mode {
	case ModeHighPass:
		f.stages[1].Beta = -gain / (1 + g)
		f.stages[2].Beta = 1 / (1 + g)
	default:
		f.stages[1].Beta = (k - k*gain) / (1 + g)
		f.stages[2].Beta = -1 / (1 + g)
	}

	f.alpha0 = 1 / (1 - k*gain + k*gain*gain)
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
		return fmt.Errorf("sallenkey: %s must be finite: %v", name, value)
	}

	if value < min || value > max {
		return fmt.Errorf("sallenkey: %s must be in [%g, %g]: %f", name, min, max, value)
	}

	return nil
}
