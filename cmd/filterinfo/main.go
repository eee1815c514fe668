// Command filterinfo prints frequency-response properties of the filters in
// this module.
//
// Usage:
//
//	filterinfo [flags] [filter-name ...]
//
// Without arguments it prints info for all known filter types.
//
// Examples:
//
//	filterinfo ladder-lp4
//	filterinfo -cutoff 2000 -resonance 3.5 ladder-lp4 diode
//	filterinfo -rate 96000 -all
//	filterinfo -list
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-zdf/dsp/core"
	"github.com/cwbudde/algo-zdf/dsp/filter/diode"
	"github.com/cwbudde/algo-zdf/dsp/filter/ladder"
	"github.com/cwbudde/algo-zdf/dsp/filter/onepole"
	"github.com/cwbudde/algo-zdf/dsp/filter/sallenkey"
	"github.com/cwbudde/algo-zdf/dsp/filter/svf"
	"github.com/cwbudde/algo-zdf/measure/response"
)

type buildConfig struct {
	sampleRate float64
	cutoffHz   float64
	resonance  float64
	drive      float64
}

type filterEntry struct {
	name   string
	defRes float64
	build  func(cfg buildConfig) (response.Processor, error)
}

var registry = []filterEntry{
	{"onepole-lp", 0, func(cfg buildConfig) (response.Processor, error) {
		return onepole.New(cfg.sampleRate, onepole.WithCutoffHz(cfg.cutoffHz),
			onepole.WithDrive(cfg.drive))
	}},
	{"onepole-hp", 0, func(cfg buildConfig) (response.Processor, error) {
		return onepole.New(cfg.sampleRate, onepole.WithCutoffHz(cfg.cutoffHz),
			onepole.WithDrive(cfg.drive), onepole.WithMode(onepole.ModeHighPass))
	}},
	{"svf-lp", 0.7071, buildSVF(svf.ModeLowPass)},
	{"svf-bp", 0.7071, buildSVF(svf.ModeBandPass)},
	{"svf-hp", 0.7071, buildSVF(svf.ModeHighPass)},
	{"svf-notch", 0.7071, buildSVF(svf.ModeNotch)},
	{"svf-allpass", 0.7071, buildSVF(svf.ModeAllPass)},
	{"svf-peak", 0.7071, buildSVF(svf.ModePeak)},
	{"ladder-lp4", 1, buildLadder(ladder.ModeLowPass4)},
	{"ladder-lp2", 1, buildLadder(ladder.ModeLowPass2)},
	{"ladder-bp4", 1, buildLadder(ladder.ModeBandPass4)},
	{"ladder-hp4", 1, buildLadder(ladder.ModeHighPass4)},
	{"diode", 1, func(cfg buildConfig) (response.Processor, error) {
		return diode.New(cfg.sampleRate, diode.WithCutoffHz(cfg.cutoffHz),
			diode.WithFeedback(cfg.resonance), diode.WithDrive(cfg.drive))
	}},
	{"sallenkey-lp", 0.5, func(cfg buildConfig) (response.Processor, error) {
		return sallenkey.New(cfg.sampleRate, sallenkey.WithCutoffHz(cfg.cutoffHz),
			sallenkey.WithResonance(cfg.resonance), sallenkey.WithDrive(cfg.drive))
	}},
	{"sallenkey-hp", 0.5, func(cfg buildConfig) (response.Processor, error) {
		return sallenkey.New(cfg.sampleRate, sallenkey.WithCutoffHz(cfg.cutoffHz),
			sallenkey.WithResonance(cfg.resonance), sallenkey.WithDrive(cfg.drive),
			sallenkey.WithMode(sallenkey.ModeHighPass))
	}},
}

func buildSVF(mode svf.Mode) func(buildConfig) (response.Processor, error) {
	return func(cfg buildConfig) (response.Processor, error) {
		return svf.New(cfg.sampleRate, svf.WithCutoffHz(cfg.cutoffHz),
			svf.WithResonance(cfg.resonance), svf.WithMode(mode))
	}
}

func buildLadder(mode ladder.Mode) func(buildConfig) (response.Processor, error) {
	return func(cfg buildConfig) (response.Processor, error) {
		return ladder.New(cfg.sampleRate, ladder.WithCutoffHz(cfg.cutoffHz),
			ladder.WithFeedback(cfg.resonance), ladder.WithDrive(cfg.drive),
			ladder.WithMode(mode))
	}
}

func main() {
	rate := flag.Float64("rate", 48000, "sample rate in Hz")
	cutoff := flag.Float64("cutoff", 1000, "cutoff frequency in Hz")
	resonance := flag.Float64("resonance", math.NaN(), "resonance/feedback factor (per-filter default when omitted)")
	drive := flag.Float64("drive", 0, "saturation drive (0 = linear)")
	fftSize := flag.Int("fft", 8192, "FFT size for response measurement (power of two)")
	all := flag.Bool("all", false, "show all filter types")
	list := flag.Bool("list", false, "list available filter names")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: filterinfo [flags] [filter-name ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints frequency-response properties of zero-delay-feedback filters.\n")
		fmt.Fprintf(os.Stderr, "Without arguments or with -all, prints info for all filters.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  filterinfo ladder-lp4 diode\n")
		fmt.Fprintf(os.Stderr, "  filterinfo -cutoff 2000 -resonance 3.5 ladder-lp4\n")
		fmt.Fprintf(os.Stderr, "  filterinfo -list\n")
	}
	flag.Parse()

	if *list {
		printList()
		return
	}

	names := flag.Args()
	if len(names) == 0 || *all {
		names = nil
		for _, e := range registry {
			names = append(names, e.name)
		}
	}

	entries := resolveEntries(names)
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "error: no matching filter types\n")
		os.Exit(1)
	}

	printAnalysis(entries, *rate, *cutoff, *resonance, *drive, *fftSize)
}

func printList() {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.name
	}

	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
}

func resolveEntries(names []string) []filterEntry {
	byName := make(map[string]filterEntry, len(registry))
	for _, e := range registry {
		byName[e.name] = e
	}

	var result []filterEntry
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))

		e, ok := byName[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "warning: unknown filter %q (use -list to see available)\n", name)
			continue
		}

		result = append(result, e)
	}

	return result
}

func printAnalysis(entries []filterEntry, rate, cutoff, resonance, drive float64, fftSize int) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Filter\tResonance\tDC [dB]\tFc [dB]\t2Fc [dB]\tPeak [Hz]\tPeak [dB]\n")
	fmt.Fprintf(tw, "------\t---------\t-------\t-------\t--------\t---------\t---------\n")

	for _, e := range entries {
		res := e.defRes
		if !math.IsNaN(resonance) {
			res = resonance
		}

		cfg := buildConfig{
			sampleRate: rate,
			cutoffHz:   cutoff,
			resonance:  res,
			drive:      drive,
		}

		p, err := e.build(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", e.name, err)
			continue
		}

		m, err := response.MagnitudeResponse(p, rate, fftSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", e.name, err)
			continue
		}

		peakHz, peakMag := peak(m)

		fmt.Fprintf(tw, "%s\t%.4g\t%.2f\t%.2f\t%.2f\t%.1f\t%.2f\n",
			e.name,
			res,
			core.LinearToDB(m.At(0)),
			core.LinearToDB(m.At(cutoff)),
			core.LinearToDB(m.At(2*cutoff)),
			peakHz,
			core.LinearToDB(peakMag),
		)
	}

	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

func peak(m *response.Magnitude) (freqHz, magnitude float64) {
	best := 0
	for i, v := range m.Bins {
		if v > m.Bins[best] {
			best = i
		}
	}

	return m.BinFrequency(best), m.Bins[best]
}
