// Package dlp constructs diffraction-limited optical depth profiles
// from a raw signal, geometry and calibration series: the resampled,
// merged, direction-filtered radius-indexed table that feeds the
// Fresnel-inversion reconstruction downstream.
package dlp

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"

	"github.com/planetary-radio/ringocc/internal/occult"
	"github.com/planetary-radio/ringocc/internal/radial"
)

// ErrNegativePower signals corrupt calibration input: a normalized
// power sample below zero is physically impossible and never clamped.
var ErrNegativePower = errors.New("dlp: negative normalized power within ring system")

// DefaultProfileRange is the radial window, in km, a profile is sliced
// to when the caller does not specify one.
var DefaultProfileRange = [2]float64{65000, 150000}

// Profile is a diffraction-limited optical depth profile: one row per
// radial sample at uniform DrKm spacing, strictly increasing radius.
// A Profile is immutable after construction.
type Profile struct {
	DrKm      float64
	Direction occult.Direction

	RhoKm     []float64 // Ring-intercept radius in km
	OETSec    []float64 // Observed event time, seconds past midnight
	RETSec    []float64 // Ring event time, seconds past midnight
	SETSec    []float64 // Spacecraft event time, seconds past midnight
	PowerNorm []float64 // Normalized diffraction-limited power, >= 0
	PhaseRad  []float64 // Signal phase in radians, (-pi, pi]
	BRad      []float64 // Ring opening angle in radians
	DKm       []float64 // Spacecraft to ring-intercept distance in km
	FKm       []float64 // Fresnel scale in km
	SkyFreqHz []float64 // Predicted sky frequency in Hz
	PhiOraRad []float64 // Observed ring azimuth in radians
	PhiRlRad  []float64 // Ring longitude in radians
	RhoDotKms []float64 // Ring-intercept radial velocity in km/s

	Tau          []float64 // Optical depth, -sin(B) * ln(power)
	TauThreshold []float64 // Noise-floor optical depth at this resolution

	// Radius corrections are placeholders for pole and timing
	// corrections not yet produced upstream; always zero.
	RhoCorrPoleKm   []float64
	RhoCorrTimingKm []float64

	History *History
}

// Len returns the number of radial samples.
func (p *Profile) Len() int { return len(p.RhoKm) }

// Assembler builds profiles at a fixed radial sampling rate.
type Assembler struct {
	// DrKm is the radial sampling rate in km. The profile resolution is
	// the Nyquist sampling, twice this value.
	DrKm float64

	// ProfileRange is the radial window in km the profile is sliced to.
	// The zero value selects DefaultProfileRange.
	ProfileRange [2]float64

	// Threshold supplies the noise-floor optical depth curve. When nil
	// the threshold column is left at zero.
	Threshold ThresholdEstimator

	// Logger receives progress output. When nil, slog.Default is used.
	Logger *slog.Logger
}

// Build constructs the diffraction-limited profile of one observation.
// The observation must already be a single-direction (ingress or
// egress) series; chord observations are split with occult.Split first.
func (a *Assembler) Build(occ *occult.Occultation) (*Profile, error) {
	if err := occ.Validate(); err != nil {
		return nil, err
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	profileRange := a.ProfileRange
	if profileRange == ([2]float64{}) {
		profileRange = DefaultProfileRange
	}

	geo, cal, raw := occ.Geo, occ.Cal, occ.Raw

	// Time-radius correspondence from geometry, applied to the denser
	// raw time base and to the calibration time base.
	mapper, err := radial.NewMapper(geo.TimeSec, geo.RhoKm)
	if err != nil {
		return nil, err
	}
	rhoFull := mapper.RadiusAll(raw.TimeSec)
	rhoCal := mapper.RadiusAll(cal.TimeSec)

	// Resample the calibrated signal onto the uniform radius grid, then
	// slice to the requested window by nearest-sample boundaries.
	grid, iq, err := radial.ResampleIQ(rhoFull, cal.IQ, a.DrKm)
	if err != nil {
		return nil, err
	}
	lo, hi := radial.Window(grid, profileRange[0], profileRange[1])
	grid = grid[lo : hi+1]
	iq = iq[lo : hi+1]

	// Back to observed time, extrapolating at the grid edges.
	times := mapper.TimeAll(grid)

	// Free-space power on the sliced grid via the calibration series'
	// own radius correspondence, then normalized power.
	pFree, err := radial.InterpLinear(rhoCal, cal.FreeSpacePower, grid, radial.ExtrapolateLinear)
	if err != nil {
		return nil, fmt.Errorf("dlp: free-space power: %w", err)
	}
	power := make([]float64, len(iq))
	phase := make([]float64, len(iq))
	for i, z := range iq {
		power[i] = (real(z)*real(z) + imag(z)*imag(z)) / pFree[i]
		phase[i] = cmplx.Phase(z)
	}
	for i, p := range power {
		if p < 0 {
			return nil, fmt.Errorf("%w: %g at radius %g km", ErrNegativePower, p, grid[i])
		}
	}

	// Radial velocity on the new time grid, then the direction filter:
	// mixed-sign velocity inside a declared single-direction profile is
	// residual noise around the turning point and is discarded, with
	// the velocity spline re-evaluated at the surviving times.
	rhoDot, err := radial.Resample(geo.TimeSec, geo.RhoDotKms, times, radial.ExtrapolateLinear)
	if err != nil {
		return nil, fmt.Errorf("dlp: radial velocity: %w", err)
	}
	if mixedSign(rhoDot) {
		var keep func(v float64) bool
		switch geo.Direction {
		case occult.Ingress:
			keep = func(v float64) bool { return v <= 0 }
		case occult.Egress:
			keep = func(v float64) bool { return v >= 0 }
		}
		if keep != nil {
			before := len(times)
			grid, times, power, phase = filter4(grid, times, power, phase, rhoDot, keep)
			rhoDot, err = radial.Resample(geo.TimeSec, geo.RhoDotKms, times, radial.ExtrapolateLinear)
			if err != nil {
				return nil, fmt.Errorf("dlp: radial velocity: %w", err)
			}
			logger.Warn("direction filter dropped mixed-sign samples",
				slog.String("direction", string(geo.Direction)),
				slog.Int("dropped", before-len(times)))
		}
	}

	// Remaining geometry and calibration attributes at the final times.
	p := Profile{
		DrKm:      a.DrKm,
		Direction: geo.Direction,
		RhoKm:     grid,
		OETSec:    times,
		PowerNorm: power,
		PhaseRad:  phase,
		RhoDotKms: rhoDot,
	}
	for _, c := range []struct {
		dst  *[]float64
		srcT []float64
		srcV []float64
		name string
	}{
		{&p.BRad, geo.TimeSec, toRadians(geo.BDeg), "opening angle"},
		{&p.DKm, geo.TimeSec, geo.DKm, "spacecraft distance"},
		{&p.FKm, geo.TimeSec, geo.FKm, "Fresnel scale"},
		{&p.PhiOraRad, geo.TimeSec, toRadians(geo.PhiOraDeg), "observed ring azimuth"},
		{&p.PhiRlRad, geo.TimeSec, toRadians(geo.PhiRlDeg), "ring longitude"},
		{&p.RETSec, geo.TimeSec, geo.RetSec, "ring event time"},
		{&p.SETSec, geo.TimeSec, geo.SetSec, "spacecraft event time"},
		{&p.SkyFreqHz, cal.TimeSec, cal.SkyFreqHz, "sky frequency"},
	} {
		if *c.dst, err = radial.Resample(c.srcT, c.srcV, times, radial.ExtrapolateLinear); err != nil {
			return nil, fmt.Errorf("dlp: %s: %w", c.name, err)
		}
	}

	p.Tau = make([]float64, len(grid))
	for i := range p.Tau {
		p.Tau[i] = -math.Sin(p.BRad[i]) * math.Log(p.PowerNorm[i])
	}

	p.TauThreshold = make([]float64, len(grid))
	if a.Threshold != nil {
		curve, err := a.Threshold.Threshold(occ, a.DrKm)
		if err != nil {
			return nil, fmt.Errorf("dlp: threshold estimator: %w", err)
		}
		if len(curve.TimeSec) > 0 {
			p.TauThreshold, err = radial.InterpLinear(curve.TimeSec, curve.Tau, times, radial.HoldBoundary)
			if err != nil {
				return nil, fmt.Errorf("dlp: threshold curve: %w", err)
			}
		}
	}

	p.RhoCorrPoleKm = make([]float64, len(grid))
	p.RhoCorrTimingKm = make([]float64, len(grid))

	p.History = NewHistory(
		map[string]string{
			"raw_samples":      fmt.Sprintf("%d", len(raw.TimeSec)),
			"geometry_samples": fmt.Sprintf("%d", len(geo.TimeSec)),
			"cal_samples":      fmt.Sprintf("%d", len(cal.TimeSec)),
		},
		map[string]string{
			"dr_km":         fmt.Sprintf("%g", a.DrKm),
			"profile_range": fmt.Sprintf("[%g, %g]", profileRange[0], profileRange[1]),
			"direction":     string(geo.Direction),
		},
	)

	logger.Debug("profile assembled",
		slog.String("direction", string(geo.Direction)),
		slog.Int("samples", p.Len()),
		slog.Float64("dr_km", a.DrKm))
	return &p, nil
}

func mixedSign(v []float64) bool {
	var pos, neg bool
	for _, x := range v {
		if x > 0 {
			pos = true
		} else if x < 0 {
			neg = true
		}
		if pos && neg {
			return true
		}
	}
	return false
}

func filter4(a, b, c, d, key []float64, keep func(float64) bool) (fa, fb, fc, fd []float64) {
	for i, v := range key {
		if keep(v) {
			fa = append(fa, a[i])
			fb = append(fb, b[i])
			fc = append(fc, c[i])
			fd = append(fd, d[i])
		}
	}
	return fa, fb, fc, fd
}

func toRadians(deg []float64) []float64 {
	out := make([]float64, len(deg))
	for i, d := range deg {
		out[i] = d * math.Pi / 180
	}
	return out
}
