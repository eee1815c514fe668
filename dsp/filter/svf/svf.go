package svf

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-zdf/dsp/core"
	"github.com/cwbudde/algo-zdf/internal/zdf"
)

const (
	defaultCutoffHz    = 1000.0
	defaultResonance   = 0.7071067811865476
	defaultShelfGainDB = 0.0

	minCutoffHz = 1.0

	minResonance = 0.01
	maxResonance = 100.0

	minShelfGainDB = -24.0
	maxShelfGainDB = 24.0
)

// Mode selects which tap ProcessSample returns.
type Mode int

const (
	// ModeLowPass returns the 12 dB/oct low-pass tap.
	ModeLowPass Mode = iota
	// ModeBandPass returns the band-pass tap (peak gain 2*resonance).
	ModeBandPass
	// ModeHighPass returns the 12 dB/oct high-pass tap.
	ModeHighPass
	// ModeNotch returns the band-reject tap.
	ModeNotch
	// ModeAllPass returns the unity-magnitude phase-rotation tap.
	ModeAllPass
	// ModePeak returns the low-minus-high peaking tap.
	ModePeak
	// ModeBandShelf returns the band-shelving tap scaled by the shelf gain.
	ModeBandShelf
	// ModeUnitBandPass returns the band-pass tap normalized to unity peak gain.
	ModeUnitBandPass
)

func (m Mode) String() string {
	switch m {
	case ModeLowPass:
		return "lowpass"
	case ModeBandPass:
		return "bandpass"
	case ModeHighPass:
		return "highpass"
	case ModeNotch:
		return "notch"
	case ModeAllPass:
		return "allpass"
	case ModePeak:
		return "peak"
	case ModeBandShelf:
		return "bandshelf"
	case ModeUnitBandPass:
		return "unit_bandpass"
	default:
		return "unknown"
	}
}

// Shaper is an optional nonlinearity applied at the band-pass node before
// the state update. A nil Shaper keeps the filter fully linear.
type Shaper func(float64) float64

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	mode        Mode
	cutoffHz    float64
	resonance   float64
	shelfGainDB float64
	shaper      Shaper
}

func defaultConfig() config {
	return config{
		mode:        ModeLowPass,
		cutoffHz:    defaultCutoffHz,
		resonance:   defaultResonance,
		shelfGainDB: defaultShelfGainDB,
	}
}

// WithMode selects the tap returned by ProcessSample.
func WithMode(mode Mode) Option {
	return func(cfg *config) error {
		if !validMode(mode) {
			return fmt.Errorf("svf: invalid mode: %d", mode)
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

// WithResonance sets resonance in [0.01, 100]. Damping is 1/(2*resonance),
// so zero resonance is rejected rather than dividing by zero.
func WithResonance(resonance float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(resonance, minResonance, maxResonance, "resonance"); err != nil {
			return err
		}

		cfg.resonance = resonance

		return nil
	}
}

// WithShelfGainDB sets the band-shelf tap gain in [-24, 24] dB.
func WithShelfGainDB(gainDB float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(gainDB, minShelfGainDB, maxShelfGainDB, "shelf gain"); err != nil {
			return err
		}

		cfg.shelfGainDB = gainDB

		return nil
	}
}

// WithShaper installs a nonlinearity at the band-pass node. Pass nil for a
// fully linear filter (the default).
func WithShaper(shaper Shaper) Option {
	return func(cfg *config) error {
		cfg.shaper = shaper
		return nil
	}
}

// State contains the two integrator states for save/restore workflows.
type State struct {
	S1 float64
	S2 float64
}

// Filter is a two-pole topology-preserving state-variable filter.
type Filter struct {
	sampleRate float64

	mode        Mode
	cutoffHz    float64
	resonance   float64
	shelfGainDB float64
	shaper      Shaper

	g          float64
	damping    float64
	gainFactor float64
	shelfGain  float64

	s1, s2 float64

	in float64
	lp float64
	bp float64
	hp float64
}

// New constructs a state-variable filter.
func New(sampleRate float64, opts ...Option) (*Filter, error) {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("svf: sample rate must be > 0 and finite: %f", sampleRate)
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
		sampleRate:  sampleRate,
		mode:        cfg.mode,
		cutoffHz:    cfg.cutoffHz,
		resonance:   cfg.resonance,
		shelfGainDB: cfg.shelfGainDB,
		shaper:      cfg.shaper,
	}

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

// Resonance returns the resonance factor.
func (f *Filter) Resonance() float64 { return f.resonance }

// ShelfGainDB returns the band-shelf tap gain in dB.
func (f *Filter) ShelfGainDB() float64 { return f.shelfGainDB }

// SetSampleRate updates sample rate and rebuilds coefficients.
func (f *Filter) SetSampleRate(sampleRate float64) error {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return fmt.Errorf("svf: sample rate must be > 0 and finite: %f", sampleRate)
	}

	f.sampleRate = sampleRate

	return f.rebuild()
}

// SetMode updates the tap returned by ProcessSample.
func (f *Filter) SetMode(mode Mode) error {
	if !validMode(mode) {
		return fmt.Errorf("svf: invalid mode: %d", mode)
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

// SetResonance updates resonance and rebuilds coefficients.
func (f *Filter) SetResonance(resonance float64) error {
	if err := validateFiniteRange(resonance, minResonance, maxResonance, "resonance"); err != nil {
		return err
	}

	f.resonance = resonance

	return f.rebuild()
}

// SetShelfGainDB updates the band-shelf tap gain.
func (f *Filter) SetShelfGainDB(gainDB float64) error {
	if err := validateFiniteRange(gainDB, minShelfGainDB, maxShelfGainDB, "shelf gain"); err != nil {
		return err
	}

	f.shelfGainDB = gainDB
	f.shelfGain = core.DBToLinear(gainDB)

	return nil
}

// SetShaper installs or removes (nil) the band-pass node nonlinearity.
func (f *Filter) SetShaper(shaper Shaper) {
	f.shaper = shaper
}

// Reset clears both integrator states and cached taps.
func (f *Filter) Reset() {
	f.s1 = 0
	f.s2 = 0
	f.in = 0
	f.lp = 0
	f.bp = 0
	f.hp = 0
}

// State returns a copy of the integrator states.
func (f *Filter) State() State {
	return State{S1: f.s1, S2: f.s2}
}

// SetState restores externally saved integrator states.
func (f *Filter) SetState(state State) error {
	if !core.IsFinite(state.S1) || !core.IsFinite(state.S2) {
		return fmt.Errorf("svf: state contains NaN or Inf")
	}

	f.s1 = state.S1
	f.s2 = state.S2

	return nil
}

// Write advances the filter by one sample. All taps are then available from
// the accessor methods without recomputation.
func (f *Filter) Write(x float64) {
	if !core.IsFinite(x) {
		x = 0
	}

	hp := (x - 2*f.damping*f.s1 - f.g*f.s1 - f.s2) * f.gainFactor

	bp := f.g*hp + f.s1
	if f.shaper != nil {
		bp = f.shaper(bp)
	}

	lp := f.g*bp + f.s2

	f.s1 = core.FlushDenormals(f.g*hp + bp)
	f.s2 = core.FlushDenormals(f.g*bp + lp)

	f.in = x
	f.lp = lp
	f.bp = bp
	f.hp = hp
}

// LowPass returns the low-pass tap of the last Write.
func (f *Filter) LowPass() float64 { return f.lp }

// BandPass returns the band-pass tap of the last Write.
func (f *Filter) BandPass() float64 { return f.bp }

// HighPass returns the high-pass tap of the last Write.
func (f *Filter) HighPass() float64 { return f.hp }

// Notch returns the band-reject tap of the last Write.
func (f *Filter) Notch() float64 { return f.lp + f.hp }

// AllPass returns the unity-magnitude all-pass tap of the last Write.
func (f *Filter) AllPass() float64 { return f.lp + f.hp - 2*f.damping*f.bp }

// Peak returns the low-minus-high peaking tap of the last Write.
func (f *Filter) Peak() float64 { return f.lp - f.hp }

// BandShelf returns the band-shelving tap of the last Write. The shelf gain
// applies inside the band and leaves the rest of the spectrum untouched.
func (f *Filter) BandShelf() float64 {
	return f.in + 2*f.damping*(f.shelfGain-1)*f.bp
}

// UnitBandPass returns the band-pass tap normalized to unity peak gain.
func (f *Filter) UnitBandPass() float64 { return 2 * f.damping * f.bp }

// ProcessSample writes one sample and returns the tap selected by Mode.
func (f *Filter) ProcessSample(x float64) float64 {
	f.Write(x)

	switch f.mode {
	case ModeBandPass:
		return f.BandPass()
	case ModeHighPass:
		return f.HighPass()
	case ModeNotch:
		return f.Notch()
	case ModeAllPass:
		return f.AllPass()
	case ModePeak:
		return f.Peak()
	case ModeBandShelf:
		return f.BandShelf()
	case ModeUnitBandPass:
		return f.UnitBandPass()
	default:
		return f.LowPass()
	}
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
		return fmt.Errorf("svf: cutoff must be < Nyquist (%f Hz): %f", nyquist, f.cutoffHz)
	}

	f.g = zdf.PrewarpGain(f.cutoffHz, f.sampleRate)
	f.damping = 1 / (2 * f.resonance)
	f.gainFactor = 1 / (1 + 2*f.damping*f.g + f.g*f.g)
	f.shelfGain = core.DBToLinear(f.shelfGainDB)

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
	return mode >= ModeLowPass && mode <= ModeUnitBandPass
}

func validateFiniteRange(value, min, max float64, name string) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("svf: %s must be finite: %v", name, value)
	}

	if value < min || value > max {
		return fmt.Errorf("svf: %s must be in [%g, %g]: %f", name, min, max, value)
	}

	return nil
}
