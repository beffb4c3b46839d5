package dlp

import (
	"github.com/planetary-radio/ringocc/internal/occult"
)

// ThresholdCurve is a time-indexed noise-floor optical depth curve:
// profile values below it are statistically indistinguishable from
// noise at the resolution it was computed for.
type ThresholdCurve struct {
	TimeSec []float64
	Tau     []float64
}

// ThresholdEstimator computes the threshold optical depth curve for an
// observation at the given radial resolution. The full noise-floor
// estimator is an external collaborator; the assembler only consumes
// its (time, tau) curve, interpolated onto the final grid with boundary
// values held outside the curve's domain.
type ThresholdEstimator interface {
	Threshold(occ *occult.Occultation, resKm float64) (ThresholdCurve, error)
}

// StaticThreshold is the trivial estimator: a constant threshold over
// the geometry time span. Useful for wiring, testing and for archival
// data whose threshold was computed offline.
type StaticThreshold struct {
	Tau float64
}

func (s StaticThreshold) Threshold(occ *occult.Occultation, _ float64) (ThresholdCurve, error) {
	t := occ.Geo.TimeSec
	if len(t) == 0 {
		return ThresholdCurve{}, nil
	}
	return ThresholdCurve{
		TimeSec: []float64{t[0], t[len(t)-1]},
		Tau:     []float64{s.Tau, s.Tau},
	}, nil
}
