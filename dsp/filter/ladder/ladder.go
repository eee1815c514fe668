package ladder

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-zdf/dsp/core"
	"github.com/cwbudde/algo-zdf/dsp/filter/biquad"
	"github.com/cwbudde/algo-zdf/dsp/filter/design"
	"github.com/cwbudde/algo-zdf/internal/zdf"
)

const (
	defaultCutoffHz = 1000.0
	defaultFeedback = 1.0

	minCutoffHz = 1.0

	// Feedback of 4 reaches the self-oscillation boundary; headroom above
	// it is deliberate.
	maxFeedback = 10.0

	minDrive = 0.0
	maxDrive = 24.0

	antiAliasQ = 0.7071067811865476
)

// Mode selects which tap ProcessSample returns.
type Mode int

const (
	// ModeLowPass4 returns the 24 dB/oct low-pass tap (stage 4).
	ModeLowPass4 Mode = iota
	// ModeLowPass2 returns the 12 dB/oct low-pass tap (stage 2).
	ModeLowPass2
	// ModeLowPass1 returns the 6 dB/oct low-pass tap (stage 1).
	ModeLowPass1
	// ModeBandPass4 returns the 4th-order band-pass combination.
	ModeBandPass4
	// ModeBandPass2 returns the 2nd-order band-pass combination.
	ModeBandPass2
	// ModeHighPass4 returns the 4th-order high-pass combination.
	ModeHighPass4
	// ModeHighPass2 returns the 2nd-order high-pass combination.
	ModeHighPass2
)

func (m Mode) String() string {
	switch m {
	case ModeLowPass4:
		return "lowpass4"
	case ModeLowPass2:
		return "lowpass2"
	case ModeLowPass1:
		return "lowpass1"
	case ModeBandPass4:
		return "bandpass4"
	case ModeBandPass2:
		return "bandpass2"
	case ModeHighPass4:
		return "highpass4"
	case ModeHighPass2:
		return "highpass2"
	default:
		return "unknown"
	}
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	mode         Mode
	cutoffHz     float64
	feedback     float64
	drive        float64
	bassComp     float64
	overSampling int
}

func defaultConfig() config {
	return config{
		mode:         ModeLowPass4,
		cutoffHz:     defaultCutoffHz,
		feedback:     defaultFeedback,
		drive:        0,
		bassComp:     0,
		overSampling: 1,
	}
}

// WithMode selects the tap returned by ProcessSample.
func WithMode(mode Mode) Option {
	return func(cfg *config) error {
		if !validMode(mode) {
			return fmt.Errorf("ladder: invalid mode: %d", mode)
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

// WithFeedback sets the global feedback factor in [0, 10]. Values of 4 and
// above self-oscillate.
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
		if err := validateFiniteRange(drive, minDrive, maxDrive, "drive"); err != nil {
			return err
		}

		cfg.drive = drive

		return nil
	}
}

// WithBassCompensation sets pass-band gain compensation in [0, 1]. At 1 the
// low-frequency loss caused by feedback is fully compensated.
func WithBassCompensation(amount float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(amount, 0, 1, "bass compensation"); err != nil {
			return err
		}

		cfg.bassComp = amount

		return nil
	}
}

// WithOversampling sets nonlinear oversampling mode. Allowed values: 1, 2, 4, 8.
func WithOversampling(factor int) Option {
	return func(cfg *config) error {
		if !validOversampling(factor) {
			return fmt.Errorf("ladder: oversampling factor must be one of {1,2,4,8}: %d", factor)
		}

		cfg.overSampling = factor

		return nil
	}
}

// State contains explicit runtime state for save/restore workflows.
type State struct {
	Stage     [4]float64
	PrevInput float64
}

// Filter is a four-pole zero-delay-feedback ladder filter.
type Filter struct {
	sampleRate float64

	mode         Mode
	cutoffHz     float64
	feedback     float64
	drive        float64
	bassComp     float64
	overSampling int

	alpha0     float64
	driveNorm  float64
	stages     [4]zdf.Stage
	prevInput  float64
	stageTaps  [4]float64
	resolvedIn float64

	antiAliasUp   *biquad.Section
	antiAliasDown *biquad.Section
}

// New constructs a ladder filter.
func New(sampleRate float64, opts ...Option) (*Filter, error) {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("ladder: sample rate must be > 0 and finite: %f", sampleRate)
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
		sampleRate:   sampleRate,
		mode:         cfg.mode,
		cutoffHz:     cfg.cutoffHz,
		feedback:     cfg.feedback,
		drive:        cfg.drive,
		bassComp:     cfg.bassComp,
		overSampling: cfg.overSampling,
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

// Mode returns the tap returned by ProcessSample.
func (f *Filter) Mode() Mode { return f.mode }

// CutoffHz returns the cutoff frequency in Hz.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// Feedback returns the global feedback factor.
func (f *Filter) Feedback() float64 { return f.feedback }

// Drive returns the ladder input saturation drive; zero means linear.
func (f *Filter) Drive() float64 { return f.drive }

// BassCompensation returns the pass-band gain compensation amount.
func (f *Filter) BassCompensation() float64 { return f.bassComp }

// Oversampling returns the nonlinear oversampling factor.
func (f *Filter) Oversampling() int { return f.overSampling }

// SetSampleRate updates sample rate and rebuilds coefficients.
func (f *Filter) SetSampleRate(sampleRate float64) error {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return fmt.Errorf("ladder: sample rate must be > 0 and finite: %f", sampleRate)
	}

	f.sampleRate = sampleRate

	return f.rebuild()
}

// SetMode updates the tap returned by ProcessSample.
func (f *Filter) SetMode(mode Mode) error {
	if !validMode(mode) {
		return fmt.Errorf("ladder: invalid mode: %d", mode)
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
	if err := validateFiniteRange(drive, minDrive, maxDrive, "drive"); err != nil {
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

// SetOversampling updates oversampling mode and rebuilds coefficients.
func (f *Filter) SetOversampling(factor int) error {
	if !validOversampling(factor) {
		return fmt.Errorf("ladder: oversampling factor must be one of {1,2,4,8}: %d", factor)
	}

	f.overSampling = factor

	return f.rebuild()
}

// Reset clears all stage states and cached taps.
func (f *Filter) Reset() {
	for i := range f.stages {
		f.stages[i].Reset()
	}

	f.prevInput = 0
	f.resolvedIn = 0
	f.stageTaps = [4]float64{}

	if f.antiAliasUp != nil {
		f.antiAliasUp.Reset()
	}

	if f.antiAliasDown != nil {
		f.antiAliasDown.Reset()
	}
}

// State returns a copy of the current runtime state.
func (f *Filter) State() State {
	var st State
	for i := range f.stages {
		st.Stage[i] = f.stages[i].State()
	}

	st.PrevInput = f.prevInput

	return st
}

// SetState restores an externally saved runtime state.
func (f *Filter) SetState(state State) error {
	for _, v := range state.Stage {
		if !core.IsFinite(v) {
			return fmt.Errorf("ladder: state contains NaN or Inf")
		}
	}

	if !core.IsFinite(state.PrevInput) {
		return fmt.Errorf("ladder: state contains NaN or Inf")
	}

	for i := range f.stages {
		f.stages[i].SetState(state.Stage[i])
	}

	f.prevInput = state.PrevInput

	return nil
}

// Write advances the filter by one sample. All taps are then available from
// the accessor methods without recomputation. With oversampling enabled the
// decimation anti-alias filter is applied to the 4th-order low-pass tap;
// the other taps are decimated by sub-sampling.
func (f *Filter) Write(x float64) {
	if !core.IsFinite(x) {
		x = 0
	}

	if f.overSampling <= 1 {
		f.writeCore(x)
		f.prevInput = x

		return
	}

	prev := f.prevInput
	delta := (x - prev) / float64(f.overSampling)

	for i := range f.overSampling {
		subInput := prev + delta*float64(i+1)

		if f.antiAliasUp != nil {
			subInput = f.antiAliasUp.ProcessSample(subInput)
		}

		f.writeCore(subInput)

		if f.antiAliasDown != nil {
			// Filter the headline tap; accessors see the post-AA value.
			f.stageTaps[3] = f.antiAliasDown.ProcessSample(f.stageTaps[3])
		}
	}

	f.prevInput = x
}

func (f *Filter) writeCore(x float64) {
	sigma := f.stages[0].FeedbackOutput() +
		f.stages[1].FeedbackOutput() +
		f.stages[2].FeedbackOutput() +
		f.stages[3].FeedbackOutput()

	x *= 1 + f.bassComp*f.feedback

	u := (x - f.feedback*sigma) * f.alpha0
	if f.drive > 0 {
		u = math.Tanh(f.drive*u) * f.driveNorm
	}

	y1 := f.stages[0].Tick(u)
	y2 := f.stages[1].Tick(y1)
	y3 := f.stages[2].Tick(y2)
	y4 := f.stages[3].Tick(y3)

	for i := range f.stages {
		f.stages[i].SetState(core.FlushDenormals(f.stages[i].State()))
	}

	f.resolvedIn = u
	f.stageTaps = [4]float64{y1, y2, y3, y4}
}

// LowPass returns the 24 dB/oct low-pass tap of the last Write.
func (f *Filter) LowPass() float64 { return f.stageTaps[3] }

// LowPass2 returns the 12 dB/oct low-pass tap of the last Write.
func (f *Filter) LowPass2() float64 { return f.stageTaps[1] }

// LowPass1 returns the 6 dB/oct low-pass tap of the last Write.
func (f *Filter) LowPass1() float64 { return f.stageTaps[0] }

// BandPass returns the 4th-order band-pass tap of the last Write.
func (f *Filter) BandPass() float64 {
	return 4*f.stageTaps[1] - 8*f.stageTaps[2] + 4*f.stageTaps[3]
}

// BandPass2 returns the 2nd-order band-pass tap of the last Write.
func (f *Filter) BandPass2() float64 {
	return 2*f.stageTaps[0] - 2*f.stageTaps[1]
}

// HighPass returns the 4th-order high-pass tap of the last Write.
func (f *Filter) HighPass() float64 {
	return f.resolvedIn - 4*f.stageTaps[0] + 6*f.stageTaps[1] - 4*f.stageTaps[2] + f.stageTaps[3]
}

// HighPass2 returns the 2nd-order high-pass tap of the last Write.
func (f *Filter) HighPass2() float64 {
	return f.resolvedIn - 2*f.stageTaps[0] + f.stageTaps[1]
}

// ProcessSample writes one sample and returns the tap selected by Mode.
func (f *Filter) ProcessSample(x float64) float64 {
	f.Write(x)

	switch f.mode {
	case ModeLowPass2:
		return f.LowPass2()
	case ModeLowPass1:
		return f.LowPass1()
	case ModeBandPass4:
		return f.BandPass()
	case ModeBandPass2:
		return f.BandPass2()
	case ModeHighPass4:
		return f.HighPass()
	case ModeHighPass2:
		return f.HighPass2()
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

	if err := validateFiniteRange(f.feedback, 0, maxFeedback, "feedback"); err != nil {
		return err
	}

	if !validOversampling(f.overSampling) {
		return fmt.Errorf("ladder: oversampling factor must be one of {1,2,4,8}: %d", f.overSampling)
	}

	nyquist := f.sampleRate * 0.5
	if f.cutoffHz >= nyquist {
		return fmt.Errorf("ladder: cutoff must be < Nyquist (%f Hz): %f", nyquist, f.cutoffHz)
	}

	effectiveRate := f.sampleRate * float64(f.overSampling)

	g := zdf.PrewarpGain(f.cutoffHz, effectiveRate)
	gain := g / (1 + g)

	// Elimination of the four-stage implicit loop: each stage contributes
	// its state to the feedback sum with a weight that accounts for the
	// resolved gain of the stages after it.
	onePlusG := 1 + g
	f.stages[0].Alpha = gain
	f.stages[1].Alpha = gain
	f.stages[2].Alpha = gain
	f.stages[3].Alpha = gain

	f.stages[0].Beta = gain * gain * gain / onePlusG
	f.stages[1].Beta = gain * gain / onePlusG
	f.stages[2].Beta = gain / onePlusG
	f.stages[3].Beta = 1 / onePlusG

	gain4 := gain * gain * gain * gain
	f.alpha0 = 1 / (1 + f.feedback*gain4)

	f.updateDriveNorm()
	f.buildAntiAliasFilters()

	return nil
}

func (f *Filter) updateDriveNorm() {
	if f.drive > 0 {
		f.driveNorm = 1 / math.Tanh(f.drive)
	} else {
		f.driveNorm = 1
	}
}

func (f *Filter) buildAntiAliasFilters() {
	if f.overSampling <= 1 {
		f.antiAliasUp = nil
		f.antiAliasDown = nil

		return
	}

	osRate := f.sampleRate * float64(f.overSampling)

	antiAliasHz := f.sampleRate * 0.225
	if antiAliasHz >= osRate*0.5 {
		antiAliasHz = osRate * 0.225
	}

	coeff := design.Lowpass(antiAliasHz, antiAliasQ, osRate)
	if !coeff.IsStable() {
		coeff = biquad.Identity()
	}

	f.antiAliasUp = biquad.NewSection(coeff)
	f.antiAliasDown = biquad.NewSection(coeff)
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
	return mode >= ModeLowPass4 && mode <= ModeHighPass2
}

func validOversampling(factor int) bool {
	return factor == 1 || factor == 2 || factor == 4 || factor == 8
}

func validateFiniteRange(value, min, max float64, name string) error {
	if !core.IsFinite(value) {
		return fmt.Errorf("ladder: %s must be finite: %v", name, value)
	}

	if value < min || value > max {
		return fmt.Errorf("ladder: %s must be in [%g, %g]: %f", name, min, max, value)
	}

	return nil
}
