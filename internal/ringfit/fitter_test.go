package ringfit

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/planetary-radio/ringocc/internal/timesys"
)

const testKernel = `KPL/LSK
Abridged leap-second table for tests.

\begindata

DELTET/DELTA_T_A = 32.184
DELTET/K         = 1.657D-3

DELTET/DELTA_AT  = ( 10, @1972-JAN-1
                     31, @1999-JAN-1
                     32, @2006-JAN-1 )

\begintext
`

func loadTestKernel(t *testing.T) *timesys.Kernel {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tls")
	if err := os.WriteFile(path, []byte(testKernel), 0o644); err != nil {
		t.Fatal(err)
	}
	k, err := timesys.Load(path)
	if err != nil {
		t.Fatalf("loading kernel: %v", err)
	}
	return k
}

// writeProfileTable writes a 13-column table under the archive naming
// convention and returns its path. pow maps radius to the feature's
// 1 - exp(-tau) observable.
func writeProfileTable(t *testing.T, rhoLo, rhoHi, step float64, pow func(r float64) float64) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Rev007E_RSS_2005_123_X43_E")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "RSS_2005_123_X43_E_DLP_0250M.TAB")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := bufio.NewWriter(f)
	for r := rhoLo; r <= rhoHi+step/2; r += step {
		p := pow(r)
		if p < 1e-10 {
			p = 1e-10
		}
		if p > 1-1e-10 {
			p = 1 - 1e-10
		}
		tau := -math.Log(1 - p)
		oet := 30000 + (r-rhoLo)*0.4
		ret := oet - 4000
		set := oet - 8000
		long := 150 - 0.01*(r-rhoLo)
		fmt.Fprintf(w, "%.6f,0,0,%.6f,0,%.6E,%.6E,0,0,%.4f,%.4f,%.4f,-20.5\n",
			r, long, p, tau, oet, ret, set)
	}
	if err = w.Flush(); err != nil {
		t.Fatal(err)
	}
	if err = f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFitFeature_LogisticEdge(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	truth := []float64{80000, 1, -3, 0}
	path := writeProfileTable(t, 79950, 80050, 0.25, func(r float64) float64 {
		return Logistic.Eval(r, truth) + 0.01*rng.NormFloat64()
	})

	res, err := FitFeature(path, 80000, Options{Kernel: loadTestKernel(t)})
	if err != nil {
		t.Fatalf("FitFeature: %v", err)
	}

	if res.Flag != FlagOK {
		t.Fatalf("flag = %s, want OK", res.Flag)
	}
	if math.Abs(res.CentKm-80000) > 0.1 {
		t.Errorf("CentKm = %g, want 80000 +/- 0.1", res.CentKm)
	}
	if res.CentKmErr <= 0 || res.CentKmErr > centErrLimitKm {
		t.Errorf("CentKmErr = %g, want in (0, %g]", res.CentKmErr, centErrLimitKm)
	}
	if res.RMSResid > 0.05 {
		t.Errorf("RMSResid = %g, want noise scale ~0.01", res.RMSResid)
	}

	// The synthetic time axis is oet = 30000 + 0.4 (r - 79950).
	wantOET := 30000 + 0.4*(res.CentKm-79950)
	if math.Abs(res.CentOETSPM-wantOET) > 0.5 {
		t.Errorf("CentOETSPM = %g, want %g", res.CentOETSPM, wantOET)
	}
	if math.Abs(res.CentRETSPM-(wantOET-4000)) > 0.5 {
		t.Errorf("CentRETSPM = %g, want %g", res.CentRETSPM, wantOET-4000)
	}
	// drho/dret = 0.25 km per 0.1 s.
	if math.Abs(res.RhoDotKms-2.5) > 0.1 {
		t.Errorf("RhoDotKms = %g, want 2.5", res.RhoDotKms)
	}
	if math.Abs(res.ILongDeg-149.5) > 0.1 {
		t.Errorf("ILongDeg = %g, want 149.5", res.ILongDeg)
	}

	if res.ObsID != "RSS_007E_X43_EM_0250m" {
		t.Errorf("ObsID = %q, want RSS_007E_X43_EM_0250m", res.ObsID)
	}
	if res.StartOETUTC != "2005 MAY 03 08:20:00.000000" {
		t.Errorf("StartOETUTC = %q", res.StartOETUTC)
	}
	if res.CentOETUTC == "" || res.CentOETUTC == res.StartOETUTC {
		t.Errorf("CentOETUTC = %q, want a later timestamp", res.CentOETUTC)
	}
}

func TestFitFeature_GaussianRinglet(t *testing.T) {
	truth := []float64{80010, 0.5, 0.5, 0}
	path := writeProfileTable(t, 79950, 80050, 0.25, func(r float64) float64 {
		return Gaussian.Eval(r, truth)
	})

	res, err := FitFeature(path, 80000, Options{Shape: Gaussian, Kernel: loadTestKernel(t)})
	if err != nil {
		t.Fatalf("FitFeature: %v", err)
	}
	if res.Flag != FlagOK {
		t.Fatalf("flag = %s, want OK", res.Flag)
	}
	if math.Abs(res.CentKm-80010) > 0.1 {
		t.Errorf("CentKm = %g, want 80010 +/- 0.1", res.CentKm)
	}
}

func TestFitFeature_LineshapeAlias(t *testing.T) {
	// The historical "gauss" selector must normalise to the canonical
	// Gaussian lineshape before seeding the fit.
	truth := []float64{80010, 0.5, 0.5, 0}
	path := writeProfileTable(t, 79950, 80050, 0.25, func(r float64) float64 {
		return Gaussian.Eval(r, truth)
	})

	res, err := FitFeature(path, 80000, Options{Shape: "gauss", Kernel: loadTestKernel(t)})
	if err != nil {
		t.Fatalf("FitFeature: %v", err)
	}
	if res.Shape != Gaussian {
		t.Errorf("shape = %s, want %s", res.Shape, Gaussian)
	}
	if got, want := len(res.Params), Gaussian.NumParams(); got != want {
		t.Fatalf("fitted %d parameters, want %d", got, want)
	}
	if math.Abs(res.CentKm-80010) > 0.1 {
		t.Errorf("CentKm = %g, want 80010 +/- 0.1", res.CentKm)
	}
}

func TestFitFeature_NoData(t *testing.T) {
	// Three rows inside the window cannot constrain a fit: the result
	// degrades to a flagged zero record instead of an error.
	path := writeProfileTable(t, 79999, 80001, 1, func(r float64) float64 {
		return 0.5
	})

	res, err := FitFeature(path, 80000, Options{Kernel: loadTestKernel(t)})
	if err != nil {
		t.Fatalf("FitFeature: %v", err)
	}
	if res.Flag != FlagNoData {
		t.Fatalf("flag = %s, want NO_DATA", res.Flag)
	}
	for k, v := range res.Params {
		if v != 0 {
			t.Errorf("Params[%d] = %g, want 0", k, v)
		}
	}
	if res.CentKm != 0 || res.CentOETSPM != 0 {
		t.Errorf("center fields (%g, %g) should stay zero", res.CentKm, res.CentOETSPM)
	}
	if res.CentOETUTC != res.StartOETUTC {
		t.Errorf("CentOETUTC = %q, want profile start %q", res.CentOETUTC, res.StartOETUTC)
	}
}

func TestFitFeature_BadWindowFallsBack(t *testing.T) {
	truth := []float64{80000, 1, -3, 0}
	path := writeProfileTable(t, 79950, 80050, 0.25, func(r float64) float64 {
		return Logistic.Eval(r, truth)
	})

	// Inverted limits are non-fatal: the fitter warns and uses the
	// default window around the guess.
	lims := [2]float64{80100, 80050}
	res, err := FitFeature(path, 80000, Options{DataLims: &lims, Kernel: loadTestKernel(t)})
	if err != nil {
		t.Fatalf("FitFeature: %v", err)
	}
	if math.Abs(res.CentKm-80000) > 0.1 {
		t.Errorf("CentKm = %g, want 80000 +/- 0.1", res.CentKm)
	}
}

func TestFitFeature_UnknownLineshape(t *testing.T) {
	if _, err := FitFeature("unused.TAB", 80000, Options{Shape: "sinc"}); err == nil {
		t.Fatal("expected error for unknown lineshape")
	}
}
