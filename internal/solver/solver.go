// Package solver provides the Newton root-finder used when a nonlinearity
// prevents closed-form resolution of a zero-delay feedback loop.
package solver

import "math"

const (
	// DefaultTolerance is the residual magnitude at which iteration stops.
	DefaultTolerance = 1e-9

	// DefaultMaxIterations bounds per-sample work; audio-rate callers must
	// never spin unbounded.
	DefaultMaxIterations = 4
)

// Result reports the outcome of a Newton solve.
//
// Root always holds the best estimate reached, whether or not the residual
// tolerance was met. Callers on the audio path are expected to proceed with
// Root regardless and treat Converged as diagnostic information.
type Result struct {
	Root       float64
	Residual   float64
	Iterations int
	Converged  bool
}

// Newton iterates x -= f(x)/df(x) from the initial estimate x0 until
// |f(x)| <= tolerance or maxIterations is exhausted.
//
// A derivative that vanishes or turns non-finite stops the iteration early
// with the estimate reached so far. Non-positive tolerance and iteration
// arguments fall back to the package defaults.
func Newton(f, df func(float64) float64, x0, tolerance float64, maxIterations int) Result {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	x := x0
	residual := f(x)

	res := Result{Root: x, Residual: residual}
	if math.Abs(residual) <= tolerance {
		res.Converged = true
		return res
	}

	for range maxIterations {
		d := df(x)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			break
		}

		next := x - residual/d
		if math.IsNaN(next) || math.IsInf(next, 0) {
			break
		}

		x = next
		residual = f(x)
		res.Iterations++
		res.Root = x
		res.Residual = residual

		if math.Abs(residual) <= tolerance {
			res.Converged = true
			break
		}
	}

	return res
}
