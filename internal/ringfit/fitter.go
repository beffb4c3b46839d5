// Package ringfit locates ring features in finished optical depth
// profiles by bounded nonlinear least squares against a set of analytic
// lineshapes, with goodness-of-fit flagging robust to missing data and
// poorly constrained fits.
package ringfit

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/planetary-radio/ringocc/internal/profilefile"
	"github.com/planetary-radio/ringocc/internal/radial"
	"github.com/planetary-radio/ringocc/internal/timesys"
)

// Domain-calibrated fit-quality constants.
const (
	// defaultWindowHalfKm is the half-width of the fallback radius
	// window around the center guess.
	defaultWindowHalfKm = 50.0
	// minFitSamples is the smallest masked sample count a regression is
	// attempted on.
	minFitSamples = 6
	// centErrLimitKm flags fits whose center uncertainty exceeds it.
	centErrLimitKm = 1.0
	// rmsResidLimit flags fits whose RMS residual exceeds it.
	rmsResidLimit = 1.0
)

// Flag classifies the quality of a feature fit.
type Flag int

const (
	// FlagOK marks an acceptable fit.
	FlagOK Flag = iota
	// FlagNoData marks a window with too few samples to fit.
	FlagNoData
	// FlagNotDetected marks a feature whose amplitude does not clear
	// the fit residual.
	FlagNotDetected
	// FlagPoorlyConstrained marks a fit whose center location is not
	// trustworthy.
	FlagPoorlyConstrained
)

func (f Flag) String() string {
	switch f {
	case FlagOK:
		return "OK"
	case FlagNoData:
		return "NO_DATA"
	case FlagNotDetected:
		return "NOT_DETECTED"
	case FlagPoorlyConstrained:
		return "POORLY_CONSTRAINED"
	}
	return fmt.Sprintf("Flag(%d)", int(f))
}

// Options tunes a feature fit. The zero value selects the logistic
// lineshape, the default window and the process-wide leap-second
// kernel.
type Options struct {
	// DataLims is the radius window in km. It must be increasing and
	// bound the center guess; otherwise the fitter warns and falls back
	// to the default window.
	DataLims *[2]float64

	// Shape selects the analytic lineshape; empty means Logistic.
	Shape Lineshape

	// Kernel overrides the process-wide leap-second kernel.
	Kernel *timesys.Kernel

	// Logger receives warnings; nil means slog.Default.
	Logger *slog.Logger
}

// Result is the immutable outcome of one feature fit.
type Result struct {
	Meta        *profilefile.Metadata
	ObsID       string
	StartOETUTC string

	// Masked profile data used in the fit.
	RhoKm    []float64
	Tau      []float64
	Power    []float64 // 1 - exp(-tau), the fitting observable
	PhaseRad []float64
	OETSec   []float64
	RETSec   []float64

	Shape      Lineshape
	Fit        []float64   // lineshape evaluated at RhoKm
	Params     []float64   // fitted parameter vector
	Covariance [][]float64 // parameter covariance matrix

	SumSqResid float64
	RMSResid   float64

	CentKm        float64 // fitted feature center radius
	CentKmErr     float64 // 1-sigma center uncertainty
	CentOETSPM    float64 // observed event time of the center
	CentOETSPMErr float64
	CentOETUTC    string
	CentRETSPM    float64 // ring event time of the center
	RhoDotKms     float64 // local radial velocity at the center
	ILongDeg      float64 // inertial longitude of the center

	Flag Flag
}

// FitFeature reads the profile table at path, masks it to the radius
// window around centGuess and fits the selected lineshape. Insufficient
// data degrades to a zero-valued result with FlagNoData rather than an
// error, so batch runs over many features continue uninterrupted.
func FitFeature(path string, centGuess float64, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	shape := opts.Shape
	if shape == "" {
		shape = Logistic
	}
	// Normalise aliases like "gauss" to their canonical selector.
	shape, err := ParseLineshape(string(shape))
	if err != nil {
		return nil, err
	}

	winLo, winHi := windowFor(centGuess, opts.DataLims, logger)

	meta, err := profilefile.ParsePath(path)
	if err != nil {
		return nil, err
	}
	cols, err := profilefile.Read(path)
	if err != nil {
		return nil, err
	}
	kernel := opts.Kernel
	if kernel == nil {
		if kernel, err = timesys.Default(); err != nil {
			return nil, fmt.Errorf("ringfit: leap-second kernel: %w", err)
		}
	}

	res := Result{Meta: meta, ObsID: meta.ObsID, Shape: shape}

	minOET := math.Inf(1)
	for _, t := range cols.OETSec {
		if t < minOET {
			minOET = t
		}
	}
	if res.StartOETUTC, err = kernel.UTC(meta.Year, meta.DOY, minOET); err != nil {
		return nil, err
	}

	// Mask to the window. The fitting observable is 1 - exp(-tau), not
	// the profile's normalized power: it turns sharp features into
	// bounded steps the lineshapes describe.
	var ilong []float64
	for i, r := range cols.RhoKm {
		if r <= winLo || r >= winHi {
			continue
		}
		res.RhoKm = append(res.RhoKm, r)
		res.Tau = append(res.Tau, cols.Tau[i])
		res.Power = append(res.Power, 1-math.Exp(-cols.Tau[i]))
		res.PhaseRad = append(res.PhaseRad, cols.PhaseRad[i])
		res.OETSec = append(res.OETSec, cols.OETSec[i])
		res.RETSec = append(res.RETSec, cols.RETSec[i])
		ilong = append(ilong, cols.LongitudeDeg[i])
	}

	if len(res.Power) < minFitSamples {
		logger.Warn("insufficient data to fit feature",
			slog.String("obsid", meta.ObsID),
			slog.Float64("cent_guess_km", centGuess),
			slog.Int("samples", len(res.Power)))
		res.Flag = FlagNoData
		res.Fit = make([]float64, len(res.Power))
		res.Params = make([]float64, shape.NumParams())
		res.Covariance = zeroMatrix(shape.NumParams())
		res.CentOETUTC = res.StartOETUTC
		return &res, nil
	}

	// Re-zero the baseline when free space is offset from zero, so the
	// profile values stay consistent with the parameter bounds.
	minPow := res.Power[0]
	for _, p := range res.Power {
		if p < minPow {
			minPow = p
		}
	}
	if minPow > 0 {
		for i := range res.Power {
			res.Power[i] -= minPow
		}
	}

	p0 := shape.guess(centGuess)
	lower, upper := shape.bounds(winLo, winHi)
	par, cov, err := CurveFit(shape.Eval, res.RhoKm, res.Power, p0, lower, upper)
	if err != nil {
		return nil, fmt.Errorf("ringfit: fitting %s to %s: %w", shape, meta.ObsID, err)
	}
	res.Params = par
	res.Covariance = cov

	res.Fit = make([]float64, len(res.RhoKm))
	residuals := make([]float64, len(res.RhoKm))
	for i, x := range res.RhoKm {
		res.Fit[i] = shape.Eval(x, par)
		residuals[i] = res.Power[i] - res.Fit[i]
		res.SumSqResid += residuals[i] * residuals[i]
	}
	res.RMSResid = stat.StdDev(residuals, nil)

	res.CentKm = par[0]
	res.CentKmErr = math.Sqrt(math.Abs(cov[0][0]))

	// Feature amplitude above baseline versus residual noise.
	aon := math.Abs(par[1] - par[len(par)-1])
	switch {
	case aon < res.RMSResid && res.RMSResid < rmsResidLimit:
		logger.Warn("ring feature not well detected, do not trust fit results",
			slog.String("obsid", meta.ObsID))
		res.Flag = FlagNotDetected
	case res.CentKmErr > centErrLimitKm || res.RMSResid > rmsResidLimit:
		logger.Warn("ring feature location not well constrained, do not trust fit results",
			slog.String("obsid", meta.ObsID))
		res.Flag = FlagPoorlyConstrained
	}

	// Local radial velocity by finite difference between the nearest
	// bracketing samples around the fitted center.
	if i0, i1, ok := bracket(res.RhoKm, res.CentKm); ok && res.RETSec[i1] != res.RETSec[i0] {
		res.RhoDotKms = (res.RhoKm[i1] - res.RhoKm[i0]) / (res.RETSec[i1] - res.RETSec[i0])
	}

	res.CentOETSPM = interpAt(res.RhoKm, res.OETSec, res.CentKm)
	res.CentRETSPM = interpAt(res.RhoKm, res.RETSec, res.CentKm)
	res.ILongDeg = interpAt(res.RhoKm, ilong, res.CentKm)
	res.CentOETSPMErr = centTimeUncertainty(res.RhoKm, res.OETSec, res.CentKm, res.CentKmErr)

	if res.CentOETUTC, err = kernel.UTC(meta.Year, meta.DOY, res.CentOETSPM); err != nil {
		return nil, err
	}
	return &res, nil
}

// windowFor validates the caller's radius window, falling back to
// centGuess +/- defaultWindowHalfKm with a warning when the window is
// malformed or does not bound the guess. The fallback is deliberately
// non-fatal.
func windowFor(centGuess float64, lims *[2]float64, logger *slog.Logger) (lo, hi float64) {
	if lims == nil {
		return centGuess - defaultWindowHalfKm, centGuess + defaultWindowHalfKm
	}
	lo, hi = lims[0], lims[1]
	if lo >= hi {
		logger.Warn("radius window not in proper format, using default limits",
			slog.Float64("lo", lo), slog.Float64("hi", hi),
			slog.Float64("half_width_km", defaultWindowHalfKm))
		return centGuess - defaultWindowHalfKm, centGuess + defaultWindowHalfKm
	}
	if centGuess <= lo || centGuess >= hi {
		logger.Warn("center guess outside radius window, using default limits",
			slog.Float64("cent_guess_km", centGuess),
			slog.Float64("lo", lo), slog.Float64("hi", hi))
		return centGuess - defaultWindowHalfKm, centGuess + defaultWindowHalfKm
	}
	return lo, hi
}

// bracket returns the indices of the nearest samples below (or at) and
// above cent.
func bracket(rho []float64, cent float64) (i0, i1 int, ok bool) {
	i0, i1 = -1, -1
	for i, r := range rho {
		if r <= cent && (i0 < 0 || r > rho[i0]) {
			i0 = i
		}
		if r > cent && (i1 < 0 || r < rho[i1]) {
			i1 = i
		}
	}
	return i0, i1, i0 >= 0 && i1 >= 0
}

func interpAt(xs, ys []float64, x float64) float64 {
	out, err := radial.InterpLinear(xs, ys, []float64{x}, radial.HoldBoundary)
	if err != nil {
		return 0
	}
	return out[0]
}

// centTimeUncertainty propagates the center radius uncertainty into
// time by interpolating against the radius axis shifted by +/- the
// uncertainty.
func centTimeUncertainty(rho, oet []float64, cent, centErr float64) float64 {
	if centErr == 0 || len(rho) == 0 {
		return 0
	}
	up := make([]float64, len(rho))
	down := make([]float64, len(rho))
	for i, r := range rho {
		up[i] = r + centErr
		down[i] = r - centErr
	}
	return math.Abs(interpAt(up, oet, cent)-interpAt(down, oet, cent)) / 2
}

func zeroMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}
