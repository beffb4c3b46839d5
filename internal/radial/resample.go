package radial

import (
	"fmt"
	"math"
)

// ResampleIQ places an irregularly spaced complex signal onto a uniform
// radius grid with spacing drKm. Grid points are multiples of drKm
// covering the input extent; the value at each grid point is the
// coherent average of every raw sample within half a bin of it, which
// preserves the signal-to-noise improvement from oversampling instead
// of decimating. Grid boundaries follow the data extent: callers slice
// the result to their radius window with Window.
//
// Interior bins left empty by locally sparse input are filled by linear
// interpolation between their populated neighbours so the spacing
// invariant holds everywhere.
func ResampleIQ(rhoKm []float64, iq []complex128, drKm float64) ([]float64, []complex128, error) {
	if len(rhoKm) == 0 {
		return nil, nil, ErrEmptySeries
	}
	if len(rhoKm) != len(iq) {
		return nil, nil, fmt.Errorf("radial: %d radii for %d samples", len(rhoKm), len(iq))
	}
	if drKm <= 0 {
		return nil, nil, fmt.Errorf("radial: non-positive spacing %g km", drKm)
	}

	rMin, rMax := rhoKm[0], rhoKm[0]
	for _, r := range rhoKm {
		if r < rMin {
			rMin = r
		}
		if r > rMax {
			rMax = r
		}
	}

	start := math.Ceil(rMin/drKm-1e-9) * drKm
	n := int(math.Floor((rMax-start)/drKm+1e-9)) + 1
	if n < 1 {
		return nil, nil, fmt.Errorf("radial: input span %g km narrower than spacing %g km", rMax-rMin, drKm)
	}

	grid := make([]float64, n)
	for i := range grid {
		grid[i] = start + float64(i)*drKm
	}

	sums := make([]complex128, n)
	counts := make([]int, n)
	for i, r := range rhoKm {
		j := int(math.Round((r - start) / drKm))
		if j < 0 || j >= n {
			continue
		}
		sums[j] += iq[i]
		counts[j]++
	}

	out := make([]complex128, n)
	for j := range out {
		if counts[j] > 0 {
			out[j] = sums[j] / complex(float64(counts[j]), 0)
		}
	}
	fillEmptyBins(out, counts)

	return grid, out, nil
}

// fillEmptyBins interpolates values for bins no raw sample fell into.
func fillEmptyBins(out []complex128, counts []int) {
	n := len(out)
	prev := -1
	for j := 0; j < n; j++ {
		if counts[j] > 0 {
			if prev >= 0 && j-prev > 1 {
				span := float64(j - prev)
				for k := prev + 1; k < j; k++ {
					f := complex(float64(k-prev)/span, 0)
					out[k] = out[prev]*(1-f) + out[j]*f
				}
			} else if prev < 0 {
				for k := 0; k < j; k++ {
					out[k] = out[j]
				}
			}
			prev = j
		}
	}
	if prev >= 0 && prev < n-1 {
		for k := prev + 1; k < n; k++ {
			out[k] = out[prev]
		}
	}
}

// Window returns the inclusive index bounds of the grid samples nearest
// rMin and rMax. When a requested boundary falls between samples the
// nearest sample wins, with ties broken toward the lower index.
func Window(grid []float64, rMin, rMax float64) (lo, hi int) {
	lo = nearestIndex(grid, rMin)
	hi = nearestIndex(grid, rMax)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
