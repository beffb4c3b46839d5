// Package radial provides the interpolation machinery that aligns the
// independently sampled signal, geometry and calibration series onto a
// common radius grid: a cubic-spline time-radius mapper, a generic
// "resample series A onto series B's coordinate" operation, and the
// complex-signal binner.
package radial

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

var (
	// ErrInsufficientGeometry is returned when fewer than four geometry
	// samples are available to fit the time-radius spline.
	ErrInsufficientGeometry = errors.New("radial: fewer than 4 geometry samples")

	// ErrEmptySeries is returned when a resample operation receives no
	// input samples.
	ErrEmptySeries = errors.New("radial: empty input series")
)

// minGeometrySamples is the minimum number of samples needed for a
// well-determined cubic spline fit.
const minGeometrySamples = 4

// Extrapolation selects the behaviour of an interpolant outside its
// fitted domain.
type Extrapolation int

const (
	// ExtrapolateLinear continues past the domain boundary along the
	// boundary tangent.
	ExtrapolateLinear Extrapolation = iota
	// HoldBoundary clamps out-of-domain queries to the boundary value.
	HoldBoundary
)

// curve is a fitted cubic spline with explicit out-of-domain policy.
type curve struct {
	sp             interp.NaturalCubic
	x0, xn         float64
	y0, yn         float64
	slope0, slopen float64
	policy         Extrapolation
}

// newCurve fits a natural cubic spline to (xs, ys). The coordinates may
// be either strictly increasing or strictly decreasing; decreasing input
// is reversed before fitting.
func newCurve(xs, ys []float64, policy Extrapolation) (*curve, error) {
	if len(xs) == 0 {
		return nil, ErrEmptySeries
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("radial: coordinate and value lengths differ: %d != %d", len(xs), len(ys))
	}
	xs, ys = ascending(xs, ys)
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, fmt.Errorf("radial: coordinate not strictly monotonic at index %d", i)
		}
	}

	c := curve{policy: policy}
	if err := c.sp.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("radial: fitting spline: %w", err)
	}
	n := len(xs) - 1
	c.x0, c.xn = xs[0], xs[n]
	c.y0, c.yn = ys[0], ys[n]
	c.slope0 = c.sp.PredictDerivative(c.x0)
	c.slopen = c.sp.PredictDerivative(c.xn)
	return &c, nil
}

func (c *curve) eval(x float64) float64 {
	switch {
	case x < c.x0:
		if c.policy == HoldBoundary {
			return c.y0
		}
		return c.y0 + c.slope0*(x-c.x0)
	case x > c.xn:
		if c.policy == HoldBoundary {
			return c.yn
		}
		return c.yn + c.slopen*(x-c.xn)
	}
	return c.sp.Predict(x)
}

// Resample fits a cubic spline over (srcX, srcY) and evaluates it at
// each target coordinate. This is the single interpolation path used
// for every geometry and calibration attribute, so all attributes share
// one extrapolation policy implementation.
func Resample(srcX, srcY, targets []float64, policy Extrapolation) ([]float64, error) {
	c, err := newCurve(srcX, srcY, policy)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(targets))
	for i, t := range targets {
		out[i] = c.eval(t)
	}
	return out, nil
}

// InterpLinear evaluates the piecewise-linear interpolant through
// (srcX, srcY) at each target. With HoldBoundary it matches classic
// clamped linear interpolation; with ExtrapolateLinear the boundary
// segments are extended.
func InterpLinear(srcX, srcY, targets []float64, policy Extrapolation) ([]float64, error) {
	if len(srcX) == 0 {
		return nil, ErrEmptySeries
	}
	if len(srcX) != len(srcY) {
		return nil, fmt.Errorf("radial: coordinate and value lengths differ: %d != %d", len(srcX), len(srcY))
	}
	xs, ys := ascending(srcX, srcY)
	if len(xs) == 1 {
		out := make([]float64, len(targets))
		for i := range out {
			out[i] = ys[0]
		}
		return out, nil
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("radial: fitting linear interpolant: %w", err)
	}
	n := len(xs) - 1
	out := make([]float64, len(targets))
	for i, t := range targets {
		switch {
		case t <= xs[0]:
			if policy == HoldBoundary {
				out[i] = ys[0]
			} else {
				out[i] = ys[0] + (ys[1]-ys[0])/(xs[1]-xs[0])*(t-xs[0])
			}
		case t >= xs[n]:
			if policy == HoldBoundary {
				out[i] = ys[n]
			} else {
				out[i] = ys[n] + (ys[n]-ys[n-1])/(xs[n]-xs[n-1])*(t-xs[n])
			}
		default:
			out[i] = pl.Predict(t)
		}
	}
	return out, nil
}

// Mapper is the smooth, invertible correspondence between observed
// event time and ring-intercept radius, fitted to the geometry samples.
// The inverse direction extrapolates linearly: resampled radius grids
// may fall slightly outside the geometry domain at the edges.
type Mapper struct {
	fwd *curve // time -> radius
	inv *curve // radius -> time
}

// NewMapper fits the mapper from geometry (time, radius) samples.
// Returns ErrInsufficientGeometry when fewer than four samples are
// given.
func NewMapper(timeSec, rhoKm []float64) (*Mapper, error) {
	if len(timeSec) < minGeometrySamples {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientGeometry, len(timeSec))
	}
	fwd, err := newCurve(timeSec, rhoKm, ExtrapolateLinear)
	if err != nil {
		return nil, fmt.Errorf("radial: time to radius: %w", err)
	}
	inv, err := newCurve(rhoKm, timeSec, ExtrapolateLinear)
	if err != nil {
		return nil, fmt.Errorf("radial: radius to time: %w", err)
	}
	return &Mapper{fwd: fwd, inv: inv}, nil
}

// Radius maps an observed event time to ring-intercept radius.
func (m *Mapper) Radius(t float64) float64 { return m.fwd.eval(t) }

// Time maps a ring-intercept radius back to observed event time.
func (m *Mapper) Time(r float64) float64 { return m.inv.eval(r) }

// RadiusAll maps a whole time series to radii.
func (m *Mapper) RadiusAll(ts []float64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = m.fwd.eval(t)
	}
	return out
}

// TimeAll maps a whole radius series to observed event times.
func (m *Mapper) TimeAll(rs []float64) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = m.inv.eval(r)
	}
	return out
}

// ascending returns views of xs, ys with xs in ascending order,
// reversing both when xs is descending (the ingress case). The input
// slices are never modified.
func ascending(xs, ys []float64) ([]float64, []float64) {
	if len(xs) < 2 || xs[0] <= xs[len(xs)-1] {
		return xs, ys
	}
	n := len(xs)
	rx := make([]float64, n)
	ry := make([]float64, n)
	for i := 0; i < n; i++ {
		rx[i] = xs[n-1-i]
		ry[i] = ys[n-1-i]
	}
	return rx, ry
}

// nearestIndex returns the index of the grid sample closest to v,
// breaking ties toward the lower index.
func nearestIndex(grid []float64, v float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, g := range grid {
		d := math.Abs(g - v)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
