package radial

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

func TestResampleIQ_Empty(t *testing.T) {
	if _, _, err := ResampleIQ(nil, nil, 0.25); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("ResampleIQ on empty input: got %v, want ErrEmptySeries", err)
	}
}

func TestResampleIQ_GridOnMultiples(t *testing.T) {
	// Oversampled constant signal: every grid point is a multiple of the
	// spacing and every bin averages back to the constant.
	var rho []float64
	var iq []complex128
	for r := 100.01; r <= 101.0; r += 0.013 {
		rho = append(rho, r)
		iq = append(iq, complex(2, -1))
	}
	grid, out, err := ResampleIQ(rho, iq, 0.25)
	if err != nil {
		t.Fatalf("ResampleIQ: %v", err)
	}

	if grid[0] != 100.25 {
		t.Errorf("grid starts at %g, want 100.25", grid[0])
	}
	for i, g := range grid {
		mult := g / 0.25
		if math.Abs(mult-math.Round(mult)) > 1e-9 {
			t.Errorf("grid[%d] = %g is not a multiple of 0.25", i, g)
		}
		if i > 0 && math.Abs(grid[i]-grid[i-1]-0.25) > 1e-9 {
			t.Errorf("grid spacing at %d is %g, want 0.25", i, grid[i]-grid[i-1])
		}
	}
	for i, v := range out {
		if cmplx.Abs(v-complex(2, -1)) > 1e-9 {
			t.Errorf("out[%d] = %v, want (2-1i)", i, v)
		}
	}
}

func TestResampleIQ_CoherentAverage(t *testing.T) {
	rho := []float64{0.99, 1.01}
	iq := []complex128{complex(1, 1), complex(3, -1)}
	grid, out, err := ResampleIQ(rho, iq, 1)
	if err != nil {
		t.Fatalf("ResampleIQ: %v", err)
	}
	if len(grid) != 1 || grid[0] != 1 {
		t.Fatalf("grid = %v, want [1]", grid)
	}
	if want := complex(2, 0); cmplx.Abs(out[0]-want) > 1e-12 {
		t.Errorf("out[0] = %v, want %v", out[0], want)
	}
}

func TestResampleIQ_FillsEmptyBins(t *testing.T) {
	// Two samples a full km apart with 0.25 km bins: the three interior
	// bins have no raw sample and are filled by linear interpolation.
	rho := []float64{0, 1}
	iq := []complex128{complex(1, 0), complex(5, 0)}
	grid, out, err := ResampleIQ(rho, iq, 0.25)
	if err != nil {
		t.Fatalf("ResampleIQ: %v", err)
	}
	if len(grid) != 5 {
		t.Fatalf("len(grid) = %d, want 5", len(grid))
	}
	want := []complex128{1, 2, 3, 4, 5}
	for i := range want {
		if cmplx.Abs(out[i]-want[i]) > 1e-12 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestResampleIQ_DescendingRadii(t *testing.T) {
	// Ingress: radius decreases along the series. Binning only depends
	// on the radius values, not their order.
	rho := []float64{2, 1.5, 1, 0.5}
	iq := []complex128{complex(4, 0), complex(3, 0), complex(2, 0), complex(1, 0)}
	grid, out, err := ResampleIQ(rho, iq, 0.5)
	if err != nil {
		t.Fatalf("ResampleIQ: %v", err)
	}
	if grid[0] != 0.5 || grid[len(grid)-1] != 2 {
		t.Fatalf("grid = %v, want 0.5..2", grid)
	}
	for i, want := range []complex128{1, 2, 3, 4} {
		if cmplx.Abs(out[i]-want) > 1e-12 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want)
		}
	}
}

func TestWindow(t *testing.T) {
	grid := make([]float64, 11)
	for i := range grid {
		grid[i] = float64(i)
	}

	tests := []struct {
		name       string
		rMin, rMax float64
		lo, hi     int
	}{
		{"exact", 2, 8, 2, 8},
		{"between samples", 2.4, 7.6, 2, 8},
		{"tie breaks low", 2.5, 7.5, 2, 7},
		{"outside grid", -5, 100, 0, 10},
		{"inverted", 8, 2, 2, 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lo, hi := Window(grid, tc.rMin, tc.rMax)
			if lo != tc.lo || hi != tc.hi {
				t.Errorf("Window(%g, %g) = (%d, %d), want (%d, %d)", tc.rMin, tc.rMax, lo, hi, tc.lo, tc.hi)
			}
		})
	}
}
