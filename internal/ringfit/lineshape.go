package ringfit

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownLineshape is returned for a lineshape selector outside the
// supported set. This is a caller error and is always fatal.
var ErrUnknownLineshape = errors.New("ringfit: unknown lineshape")

// baselineBound is the box constraint on the baseline-offset parameter
// of every lineshape, a domain-calibrated constant.
const baselineBound = 0.1

// Lineshape selects the analytic profile fitted to a ring feature.
type Lineshape string

const (
	// Logistic fits ring, gap and other sharp edges.
	Logistic Lineshape = "logistic"
	// LogisticLeft is a logistic edge with ring on the left, free space
	// on the right.
	LogisticLeft Lineshape = "logistic_left"
	// LogisticRight is a logistic edge with ring on the right, free
	// space on the left.
	LogisticRight Lineshape = "logistic_right"
	// Gaussian fits ringlets with a narrow base.
	Gaussian Lineshape = "gaussian"
	// Lorentzian fits ringlets with a broad base and a narrow, sharp
	// peak.
	Lorentzian Lineshape = "lorentzian"
	// Voigt is the compromise between Gaussian and Lorentzian.
	Voigt Lineshape = "voigt"
)

// ParseLineshape resolves a selector string, accepting the historical
// short aliases "gauss" and "lorentz".
func ParseLineshape(s string) (Lineshape, error) {
	switch Lineshape(s) {
	case Logistic, LogisticLeft, LogisticRight, Gaussian, Lorentzian, Voigt:
		return Lineshape(s), nil
	}
	switch s {
	case "gauss":
		return Gaussian, nil
	case "lorentz":
		return Lorentzian, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLineshape, s)
}

// NumParams returns the length of the parameter vector: (x0, L, k, c)
// for all shapes except Voigt's (x0, L, k1, k2, c). x0 is the feature
// center, L the amplitude, k the steepness or width, c the baseline
// offset.
func (l Lineshape) NumParams() int {
	if l == Voigt {
		return 5
	}
	return 4
}

// Eval evaluates the lineshape at x for parameter vector p.
func (l Lineshape) Eval(x float64, p []float64) float64 {
	switch l {
	case Logistic, LogisticLeft, LogisticRight:
		return p[1]/(1+math.Exp(-p[2]*(x-p[0]))) + p[3]
	case Gaussian:
		d := x - p[0]
		return p[1]*math.Sqrt(p[2]/math.Pi)*math.Exp(-p[2]*d*d) + p[3]
	case Lorentzian:
		d := x - p[0]
		return p[1]*math.Sqrt(p[2])/(math.Pi*(d*d+p[2])) + p[3]
	case Voigt:
		z := complex(x-p[0], p[2]) / complex(p[3], 0)
		return p[1]/(p[3]*math.Sqrt(math.Pi))*real(faddeeva(z)) + p[4]
	}
	return math.NaN()
}

// guess returns the initial parameter vector for a feature near cent.
// LogisticRight starts with the opposite steepness sign so the solver
// begins on the correct branch of the edge.
func (l Lineshape) guess(cent float64) []float64 {
	switch l {
	case Logistic, LogisticLeft:
		return []float64{cent, 1, -3, 0}
	case LogisticRight:
		return []float64{cent, 1, 3, 0}
	case Gaussian, Lorentzian:
		return []float64{cent, 1, 1, 0}
	case Voigt:
		return []float64{cent, 1, 1, 1, 0}
	}
	return nil
}

// bounds returns the box constraints: the center is confined to the
// data window, width parameters are kept non-negative where the closed
// form requires it, and the baseline offset stays within
// +/- baselineBound.
func (l Lineshape) bounds(winLo, winHi float64) (lower, upper []float64) {
	inf := math.Inf(1)
	switch l {
	case Logistic, LogisticLeft, LogisticRight:
		return []float64{winLo, -inf, -inf, -baselineBound},
			[]float64{winHi, inf, inf, baselineBound}
	case Gaussian, Lorentzian:
		return []float64{winLo, 0, 0, -baselineBound},
			[]float64{winHi, inf, inf, baselineBound}
	case Voigt:
		return []float64{winLo, 0, -inf, 0, -baselineBound},
			[]float64{winHi, inf, inf, inf, baselineBound}
	}
	return nil, nil
}
