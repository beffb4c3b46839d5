package ringfit

import (
	"errors"
	"math"
	"testing"
)

func TestParseLineshape(t *testing.T) {
	tests := []struct {
		in   string
		want Lineshape
	}{
		{"logistic", Logistic},
		{"logistic_left", LogisticLeft},
		{"logistic_right", LogisticRight},
		{"gaussian", Gaussian},
		{"gauss", Gaussian},
		{"lorentzian", Lorentzian},
		{"lorentz", Lorentzian},
		{"voigt", Voigt},
	}
	for _, tc := range tests {
		got, err := ParseLineshape(tc.in)
		if err != nil {
			t.Errorf("ParseLineshape(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLineshape(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}

	if _, err := ParseLineshape("sinc"); !errors.Is(err, ErrUnknownLineshape) {
		t.Errorf("got %v, want ErrUnknownLineshape", err)
	}
}

func TestLineshape_NumParams(t *testing.T) {
	if got := Logistic.NumParams(); got != 4 {
		t.Errorf("logistic has %d parameters, want 4", got)
	}
	if got := Voigt.NumParams(); got != 5 {
		t.Errorf("voigt has %d parameters, want 5", got)
	}
}

func TestLineshape_Eval(t *testing.T) {
	const tol = 1e-12

	// Logistic at the center is half the amplitude above the baseline,
	// and saturates to c and L+c far on either side of a negative-k edge.
	p := []float64{100, 2, -3, 0.5}
	if got := Logistic.Eval(100, p); math.Abs(got-1.5) > tol {
		t.Errorf("logistic at center = %g, want 1.5", got)
	}
	if got := Logistic.Eval(200, p); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("logistic far right = %g, want 0.5", got)
	}
	if got := Logistic.Eval(0, p); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("logistic far left = %g, want 2.5", got)
	}

	// Gaussian peak value.
	p = []float64{100, 2, 4, 0.1}
	want := 2*math.Sqrt(4/math.Pi) + 0.1
	if got := Gaussian.Eval(100, p); math.Abs(got-want) > tol {
		t.Errorf("gaussian at center = %g, want %g", got, want)
	}

	// Lorentzian peak value L sqrt(k) / (pi k) + c.
	p = []float64{100, 2, 4, 0.1}
	want = 2*math.Sqrt(4.0)/(math.Pi*4) + 0.1
	if got := Lorentzian.Eval(100, p); math.Abs(got-want) > tol {
		t.Errorf("lorentzian at center = %g, want %g", got, want)
	}

	// Voigt with zero Lorentzian width reduces to w(0) = 1 at the
	// center: L / (k2 sqrt(pi)) + c.
	p = []float64{100, 2, 0, 1.5, 0.1}
	want = 2/(1.5*math.Sqrt(math.Pi)) + 0.1
	if got := Voigt.Eval(100, p); math.Abs(got-want) > 1e-9 {
		t.Errorf("voigt at center = %g, want %g", got, want)
	}
}

func TestLineshape_BoundsConfineCenter(t *testing.T) {
	for _, shape := range []Lineshape{Logistic, Gaussian, Lorentzian, Voigt} {
		lower, upper := shape.bounds(90, 110)
		if len(lower) != shape.NumParams() || len(upper) != shape.NumParams() {
			t.Errorf("%s: bounds length %d/%d, want %d", shape, len(lower), len(upper), shape.NumParams())
			continue
		}
		if lower[0] != 90 || upper[0] != 110 {
			t.Errorf("%s: center bounds [%g, %g], want [90, 110]", shape, lower[0], upper[0])
		}
		n := shape.NumParams()
		if lower[n-1] != -baselineBound || upper[n-1] != baselineBound {
			t.Errorf("%s: baseline bounds [%g, %g], want +/-%g", shape, lower[n-1], upper[n-1], baselineBound)
		}
	}
}
