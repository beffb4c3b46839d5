// Package occult holds the value types describing a single radio
// occultation observation: the raw complex signal, the ring geometry and
// the calibration products, each on its own time base. All series are
// immutable once read; operations that need to modify them (splitting,
// trimming) work on deep copies.
package occult

import (
	"errors"
	"fmt"
)

// Direction tags which way the occultation track crosses the ring system.
type Direction string

const (
	Ingress Direction = "INGRESS"
	Egress  Direction = "EGRESS"
	Both    Direction = "BOTH"
)

// ErrInvalidDirection is returned when a series carries a profile
// direction outside {INGRESS, EGRESS, BOTH}.
var ErrInvalidDirection = errors.New("occult: invalid profile direction")

// RawSignalSeries is the measured complex signal on the observed event
// time base, as produced by the raw signal-file reader.
type RawSignalSeries struct {
	TimeSec []float64    // Observed event time, seconds past midnight, strictly increasing
	IQ      []complex128 // Measured complex signal samples
}

// GeometrySeries carries the ephemeris-derived ring geometry sampled on
// the observed event time base. It is the canonical time-radius
// correspondence for the whole observation.
type GeometrySeries struct {
	TimeSec   []float64 // Observed event time, seconds past midnight, strictly increasing
	RhoKm     []float64 // Ring-intercept radius in km
	RhoDotKms []float64 // Ring-intercept radial velocity in km/s
	BDeg      []float64 // Ring opening angle in degrees
	DKm       []float64 // Spacecraft to ring-intercept distance in km
	FKm       []float64 // Fresnel scale in km
	RetSec    []float64 // Ring event time, seconds past midnight
	SetSec    []float64 // Spacecraft event time, seconds past midnight
	PhiOraDeg []float64 // Observed ring azimuth in degrees
	PhiRlDeg  []float64 // Ring longitude in degrees

	Direction Direction
}

// CalibrationSeries carries the calibration products. Frequency and
// free-space power ride the calibration engine's own time base; the
// calibrated complex signal is aligned sample-for-sample with the raw
// signal series.
type CalibrationSeries struct {
	TimeSec        []float64 // Calibration time base, seconds past midnight
	SkyFreqHz      []float64 // Predicted sky frequency in Hz
	FreeSpacePower []float64 // Free-space power estimate
	IQ             []complex128 // Calibrated complex signal, on the raw signal time base
}

// Occultation bundles the three input series of one observation.
type Occultation struct {
	Raw *RawSignalSeries
	Geo *GeometrySeries
	Cal *CalibrationSeries
}

// Clone returns a deep copy with independently owned backing arrays.
func (s *RawSignalSeries) Clone() *RawSignalSeries {
	return &RawSignalSeries{
		TimeSec: cloneFloats(s.TimeSec),
		IQ:      cloneComplex(s.IQ),
	}
}

// Clone returns a deep copy with independently owned backing arrays.
func (s *GeometrySeries) Clone() *GeometrySeries {
	return &GeometrySeries{
		TimeSec:   cloneFloats(s.TimeSec),
		RhoKm:     cloneFloats(s.RhoKm),
		RhoDotKms: cloneFloats(s.RhoDotKms),
		BDeg:      cloneFloats(s.BDeg),
		DKm:       cloneFloats(s.DKm),
		FKm:       cloneFloats(s.FKm),
		RetSec:    cloneFloats(s.RetSec),
		SetSec:    cloneFloats(s.SetSec),
		PhiOraDeg: cloneFloats(s.PhiOraDeg),
		PhiRlDeg:  cloneFloats(s.PhiRlDeg),
		Direction: s.Direction,
	}
}

// Clone returns a deep copy with independently owned backing arrays.
func (s *CalibrationSeries) Clone() *CalibrationSeries {
	return &CalibrationSeries{
		TimeSec:        cloneFloats(s.TimeSec),
		SkyFreqHz:      cloneFloats(s.SkyFreqHz),
		FreeSpacePower: cloneFloats(s.FreeSpacePower),
		IQ:             cloneComplex(s.IQ),
	}
}

// Clone returns a deep copy of the whole observation.
func (o *Occultation) Clone() *Occultation {
	return &Occultation{Raw: o.Raw.Clone(), Geo: o.Geo.Clone(), Cal: o.Cal.Clone()}
}

// Validate checks the structural invariants the downstream pipeline
// relies on: matching array lengths and a recognised direction tag.
func (o *Occultation) Validate() error {
	if len(o.Raw.TimeSec) != len(o.Raw.IQ) {
		return fmt.Errorf("occult: raw signal has %d times but %d samples", len(o.Raw.TimeSec), len(o.Raw.IQ))
	}
	if len(o.Cal.IQ) != len(o.Raw.TimeSec) {
		return fmt.Errorf("occult: calibrated signal has %d samples for %d raw times", len(o.Cal.IQ), len(o.Raw.TimeSec))
	}
	n := len(o.Geo.TimeSec)
	for name, a := range map[string][]float64{
		"rho": o.Geo.RhoKm, "rho_dot": o.Geo.RhoDotKms, "B": o.Geo.BDeg,
		"D": o.Geo.DKm, "F": o.Geo.FKm, "ret": o.Geo.RetSec, "set": o.Geo.SetSec,
		"phi_ora": o.Geo.PhiOraDeg, "phi_rl": o.Geo.PhiRlDeg,
	} {
		if len(a) != n {
			return fmt.Errorf("occult: geometry column %s has %d samples, want %d", name, len(a), n)
		}
	}
	if len(o.Cal.TimeSec) != len(o.Cal.SkyFreqHz) || len(o.Cal.TimeSec) != len(o.Cal.FreeSpacePower) {
		return fmt.Errorf("occult: calibration columns disagree on length")
	}
	switch o.Geo.Direction {
	case Ingress, Egress, Both:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDirection, o.Geo.Direction)
}

// TrimToGeometry clips the raw signal and the calibrated complex signal
// to the geometry time span. The raw signal is usually recorded past the
// span the geometry engine was run for; samples outside it have no
// radius assignment and are dropped before resampling.
func (o *Occultation) TrimToGeometry() *Occultation {
	t := o.Geo.TimeSec
	if len(t) == 0 || len(o.Raw.TimeSec) == 0 {
		return o
	}
	lo := searchGE(o.Raw.TimeSec, t[0])
	hi := searchLE(o.Raw.TimeSec, t[len(t)-1])
	if lo < 0 || hi < lo {
		return o
	}
	if lo == 0 && hi == len(o.Raw.TimeSec)-1 {
		return o
	}
	trimmed := o.Clone()
	trimmed.Raw.TimeSec = trimmed.Raw.TimeSec[lo : hi+1]
	trimmed.Raw.IQ = trimmed.Raw.IQ[lo : hi+1]
	trimmed.Cal.IQ = trimmed.Cal.IQ[lo : hi+1]
	return trimmed
}

func cloneFloats(a []float64) []float64 {
	if a == nil {
		return nil
	}
	out := make([]float64, len(a))
	copy(out, a)
	return out
}

func cloneComplex(a []complex128) []complex128 {
	if a == nil {
		return nil
	}
	out := make([]complex128, len(a))
	copy(out, a)
	return out
}

// searchLE returns the largest index i with a[i] <= v, or -1.
func searchLE(a []float64, v float64) int {
	lo, hi := 0, len(a)
	for lo < hi {
		mid := (lo + hi) / 2
		if a[mid] <= v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// searchGE returns the smallest index i with a[i] >= v, or len(a).
func searchGE(a []float64, v float64) int {
	lo, hi := 0, len(a)
	for lo < hi {
		mid := (lo + hi) / 2
		if a[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
