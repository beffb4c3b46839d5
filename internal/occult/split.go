package occult

import (
	"fmt"
)

// splitGuardSec is the guard band discarded on each side of the radial
// velocity turning point when a chord occultation is split. Samples
// within one second of the turning point straddle it and belong to
// neither half.
const splitGuardSec = 1.0

// Split partitions a combined observation into independent ingress and
// egress sub-observations around the radial-velocity turning point.
//
// A pure INGRESS or EGRESS observation is returned unchanged in the
// matching slot with the other slot nil. For a BOTH observation the
// turning point is located as the first sign change of the geometry
// radial velocity; signal and calibration samples within splitGuardSec
// of the turning-point time are discarded, and both halves receive deep
// copies so that neither aliases the original backing storage.
func Split(occ *Occultation) (ing, egr *Occultation, err error) {
	switch occ.Geo.Direction {
	case Ingress:
		return occ, nil, nil
	case Egress:
		return nil, occ, nil
	case Both:
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidDirection, occ.Geo.Direction)
	}

	ind := turningIndex(occ.Geo.RhoDotKms)
	if ind < 0 {
		return nil, nil, fmt.Errorf("occult: direction is %s but radial velocity never changes sign", Both)
	}
	tSplit := occ.Geo.TimeSec[ind]

	ing = occ.Clone()
	egr = occ.Clone()

	// Ingress half: everything up to one second before the turning point.
	iRaw := searchLE(occ.Raw.TimeSec, tSplit-splitGuardSec)
	iCal := searchLE(occ.Cal.TimeSec, tSplit-splitGuardSec)
	ing.Raw.TimeSec = ing.Raw.TimeSec[:iRaw+1]
	ing.Raw.IQ = ing.Raw.IQ[:iRaw+1]
	ing.Cal.IQ = ing.Cal.IQ[:iRaw+1]
	ing.Cal.TimeSec = ing.Cal.TimeSec[:iCal+1]
	ing.Cal.SkyFreqHz = ing.Cal.SkyFreqHz[:iCal+1]
	ing.Cal.FreeSpacePower = ing.Cal.FreeSpacePower[:iCal+1]
	sliceGeometry(ing.Geo, 0, ind)
	ing.Geo.Direction = Ingress

	// Egress half: everything from one second after the turning point.
	jRaw := searchGE(occ.Raw.TimeSec, tSplit+splitGuardSec)
	jCal := searchGE(occ.Cal.TimeSec, tSplit+splitGuardSec)
	egr.Raw.TimeSec = egr.Raw.TimeSec[jRaw:]
	egr.Raw.IQ = egr.Raw.IQ[jRaw:]
	egr.Cal.IQ = egr.Cal.IQ[jRaw:]
	egr.Cal.TimeSec = egr.Cal.TimeSec[jCal:]
	egr.Cal.SkyFreqHz = egr.Cal.SkyFreqHz[jCal:]
	egr.Cal.FreeSpacePower = egr.Cal.FreeSpacePower[jCal:]
	sliceGeometry(egr.Geo, ind, len(occ.Geo.TimeSec))
	egr.Geo.Direction = Egress

	return ing, egr, nil
}

// turningIndex returns the index of the first sample whose radial
// velocity sign differs from its predecessor's, or -1 if the sign never
// changes.
func turningIndex(v []float64) int {
	for i := 1; i < len(v); i++ {
		if signOf(v[i]) != signOf(v[i-1]) {
			return i
		}
	}
	return -1
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func sliceGeometry(g *GeometrySeries, lo, hi int) {
	g.TimeSec = g.TimeSec[lo:hi]
	g.RhoKm = g.RhoKm[lo:hi]
	g.RhoDotKms = g.RhoDotKms[lo:hi]
	g.BDeg = g.BDeg[lo:hi]
	g.DKm = g.DKm[lo:hi]
	g.FKm = g.FKm[lo:hi]
	g.RetSec = g.RetSec[lo:hi]
	g.SetSec = g.SetSec[lo:hi]
	g.PhiOraDeg = g.PhiOraDeg[lo:hi]
	g.PhiRlDeg = g.PhiRlDeg[lo:hi]
}
