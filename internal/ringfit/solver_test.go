package ringfit

import (
	"math"
	"testing"
)

func TestCurveFit_RecoversLogisticEdge(t *testing.T) {
	truth := []float64{3, 2, -1, 0.05}
	var xs, ys []float64
	for x := -50.0; x <= 50.0; x += 0.5 {
		xs = append(xs, x)
		ys = append(ys, Logistic.Eval(x, truth))
	}

	inf := math.Inf(1)
	p0 := []float64{5, 1, -3, 0}
	lower := []float64{-50, -inf, -inf, -baselineBound}
	upper := []float64{50, inf, inf, baselineBound}

	par, cov, err := CurveFit(Logistic.Eval, xs, ys, p0, lower, upper)
	if err != nil {
		t.Fatalf("CurveFit: %v", err)
	}
	for k := range truth {
		if math.Abs(par[k]-truth[k]) > 1e-4 {
			t.Errorf("par[%d] = %g, want %g", k, par[k], truth[k])
		}
	}

	// Noiseless data: the residual variance, and with it the whole
	// covariance, collapses to zero.
	if len(cov) != 4 || len(cov[0]) != 4 {
		t.Fatalf("covariance is %dx%d, want 4x4", len(cov), len(cov[0]))
	}
	if math.Abs(cov[0][0]) > 1e-6 {
		t.Errorf("cov[0][0] = %g, want ~0 for noiseless data", cov[0][0])
	}
}

func TestCurveFit_RespectsBounds(t *testing.T) {
	// y = 2x fitted with slope capped at 1.5: the solver must press
	// against the bound, never cross it.
	model := func(x float64, p []float64) float64 { return p[0] * x }
	var xs, ys []float64
	for x := 0.0; x <= 10.0; x++ {
		xs = append(xs, x)
		ys = append(ys, 2*x)
	}

	par, _, err := CurveFit(model, xs, ys, []float64{0.5}, []float64{0}, []float64{1.5})
	if err != nil {
		t.Fatalf("CurveFit: %v", err)
	}
	if par[0] > 1.5 {
		t.Fatalf("par[0] = %g exceeds upper bound 1.5", par[0])
	}
	if math.Abs(par[0]-1.5) > 1e-6 {
		t.Errorf("par[0] = %g, want 1.5 at the active bound", par[0])
	}
}

func TestCurveFit_ClampsInitialGuess(t *testing.T) {
	model := func(x float64, p []float64) float64 { return p[0] }
	xs := []float64{0, 1, 2}
	ys := []float64{4, 4, 4}

	// Start outside the box; the solution is interior.
	par, _, err := CurveFit(model, xs, ys, []float64{100}, []float64{0}, []float64{10})
	if err != nil {
		t.Fatalf("CurveFit: %v", err)
	}
	if math.Abs(par[0]-4) > 1e-6 {
		t.Errorf("par[0] = %g, want 4", par[0])
	}
}

func TestCurveFit_Validation(t *testing.T) {
	model := func(x float64, p []float64) float64 { return p[0] }
	if _, _, err := CurveFit(model, []float64{1, 2}, []float64{1}, []float64{0}, []float64{0}, []float64{1}); err == nil {
		t.Error("expected error for mismatched x/y lengths")
	}
	if _, _, err := CurveFit(model, []float64{1, 2}, []float64{1, 2}, []float64{0}, []float64{0, 0}, []float64{1}); err == nil {
		t.Error("expected error for bounds length mismatch")
	}
	if _, _, err := CurveFit(model, []float64{1}, []float64{1}, []float64{0, 0}, []float64{0, 0}, []float64{1, 1}); err == nil {
		t.Error("expected error when samples cannot constrain the parameters")
	}
	if _, _, err := CurveFit(model, []float64{1, 2}, []float64{1, 2}, []float64{0}, []float64{5}, []float64{1}); err == nil {
		t.Error("expected error for inverted bounds")
	}
}
