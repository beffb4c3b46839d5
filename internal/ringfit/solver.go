package ringfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model evaluates a parameterised curve at x.
type Model func(x float64, p []float64) float64

const (
	solverMaxIter   = 200
	solverLambda0   = 1e-3
	solverLambdaMax = 1e12
	solverStepTol   = 1e-10
	solverCostTol   = 1e-12
)

// CurveFit performs box-constrained nonlinear least squares with a
// reflective Levenberg-Marquardt iteration: trial steps that leave the
// feasible box are reflected back across the violated bound, which lets
// the solver walk along active constraints the way a trust-region
// reflective method does. Parameters therefore always stay in their
// physical ranges.
//
// It returns the fitted parameters and the covariance matrix
// s^2 (J^T J)^+, where s^2 is the residual variance.
func CurveFit(m Model, xs, ys, p0, lower, upper []float64) ([]float64, [][]float64, error) {
	n, np := len(xs), len(p0)
	if len(ys) != n {
		return nil, nil, fmt.Errorf("ringfit: %d x values for %d y values", n, len(ys))
	}
	if len(lower) != np || len(upper) != np {
		return nil, nil, fmt.Errorf("ringfit: bounds length %d/%d for %d parameters", len(lower), len(upper), np)
	}
	if n < np {
		return nil, nil, fmt.Errorf("ringfit: %d samples cannot constrain %d parameters", n, np)
	}
	for k := range lower {
		if lower[k] > upper[k] {
			return nil, nil, fmt.Errorf("ringfit: bound %d inverted: [%g, %g]", k, lower[k], upper[k])
		}
	}

	p := make([]float64, np)
	copy(p, p0)
	clampInto(p, lower, upper)

	resid := func(p []float64) ([]float64, float64) {
		r := make([]float64, n)
		var cost float64
		for i := range xs {
			r[i] = ys[i] - m(xs[i], p)
			cost += r[i] * r[i]
		}
		return r, cost
	}

	r, cost := resid(p)
	lambda := solverLambda0
	jtj := mat.NewSymDense(np, nil)

	for iter := 0; iter < solverMaxIter; iter++ {
		J := jacobian(m, xs, p, lower, upper)

		// Normal equations J^T J and J^T r.
		for a := 0; a < np; a++ {
			for b := a; b < np; b++ {
				var sum float64
				for i := 0; i < n; i++ {
					sum += J[i][a] * J[i][b]
				}
				jtj.SetSym(a, b, sum)
			}
		}
		jtr := make([]float64, np)
		for a := 0; a < np; a++ {
			for i := 0; i < n; i++ {
				jtr[a] += J[i][a] * r[i]
			}
		}

		improved := false
		var step []float64
		for lambda <= solverLambdaMax {
			step = solveDamped(jtj, jtr, lambda)
			if step == nil {
				lambda *= 10
				continue
			}
			cand := make([]float64, np)
			for k := range cand {
				cand[k] = p[k] + step[k]
			}
			reflectInto(cand, lower, upper)

			rc, cc := resid(cand)
			if cc < cost {
				prevCost := cost
				p, r, cost = cand, rc, cc
				lambda = math.Max(lambda/3, 1e-14)
				improved = true
				if prevCost-cost <= solverCostTol*math.Max(cost, 1) {
					iter = solverMaxIter // converged on cost
				}
				break
			}
			lambda *= 10
		}
		if !improved {
			break
		}
		if normRatio(step, p) < solverStepTol {
			break
		}
	}

	cov, err := covariance(m, xs, p, lower, upper, cost, n, np)
	if err != nil {
		return nil, nil, err
	}
	return p, cov, nil
}

// jacobian computes forward-difference partials, switching to backward
// differences at an active upper bound.
func jacobian(m Model, xs, p, lower, upper []float64) [][]float64 {
	n, np := len(xs), len(p)
	J := make([][]float64, n)
	for i := range J {
		J[i] = make([]float64, np)
	}
	base := make([]float64, n)
	for i, x := range xs {
		base[i] = m(x, p)
	}
	pk := make([]float64, np)
	copy(pk, p)
	for k := 0; k < np; k++ {
		h := math.Sqrt(2.2e-16) * math.Max(math.Abs(p[k]), 1)
		if p[k]+h > upper[k] {
			h = -h
		}
		pk[k] = p[k] + h
		for i, x := range xs {
			J[i][k] = (m(x, pk) - base[i]) / h
		}
		pk[k] = p[k]
	}
	return J
}

// solveDamped solves (J^T J + lambda diag(J^T J)) step = J^T r, or
// returns nil when the damped matrix is not positive definite.
func solveDamped(jtj *mat.SymDense, jtr []float64, lambda float64) []float64 {
	np := len(jtr)
	a := mat.NewSymDense(np, nil)
	for i := 0; i < np; i++ {
		for j := i; j < np; j++ {
			a.SetSym(i, j, jtj.At(i, j))
		}
		d := jtj.At(i, i)
		if d == 0 {
			d = 1
		}
		a.SetSym(i, i, jtj.At(i, i)+lambda*d)
	}
	var ch mat.Cholesky
	if ok := ch.Factorize(a); !ok {
		return nil
	}
	var sol mat.VecDense
	if err := ch.SolveVecTo(&sol, mat.NewVecDense(np, jtr)); err != nil {
		return nil
	}
	out := make([]float64, np)
	for i := range out {
		out[i] = sol.AtVec(i)
	}
	return out
}

func covariance(m Model, xs, p, lower, upper []float64, cost float64, n, np int) ([][]float64, error) {
	J := jacobian(m, xs, p, lower, upper)
	jtj := mat.NewDense(np, np, nil)
	for a := 0; a < np; a++ {
		for b := 0; b < np; b++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += J[i][a] * J[i][b]
			}
			jtj.Set(a, b, sum)
		}
	}
	inv, err := pseudoInverse(jtj)
	if err != nil {
		return nil, err
	}
	s2 := 0.0
	if n > np {
		s2 = cost / float64(n-np)
	}
	cov := make([][]float64, np)
	for a := range cov {
		cov[a] = make([]float64, np)
		for b := range cov[a] {
			cov[a][b] = inv.At(a, b) * s2
		}
	}
	return cov, nil
}

// pseudoInverse computes the Moore-Penrose inverse via thin SVD,
// tolerating the rank deficiency a poorly constrained fit produces.
func pseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("ringfit: SVD of normal equations failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	tol := 0.0
	for _, sv := range s {
		if sv > tol {
			tol = sv
		}
	}
	tol *= 1e-12

	r, c := a.Dims()
	inv := mat.NewDense(c, r, nil)
	for i := 0; i < c; i++ {
		for j := 0; j < r; j++ {
			var sum float64
			for k := range s {
				if s[k] > tol {
					sum += v.At(i, k) * u.At(j, k) / s[k]
				}
			}
			inv.Set(i, j, sum)
		}
	}
	return inv, nil
}

func clampInto(p, lower, upper []float64) {
	for k := range p {
		if p[k] < lower[k] {
			p[k] = lower[k]
		}
		if p[k] > upper[k] {
			p[k] = upper[k]
		}
	}
}

// reflectInto folds bound violations back into the feasible box, then
// clamps in case the reflection overshoots the opposite bound.
func reflectInto(p, lower, upper []float64) {
	for k := range p {
		if p[k] < lower[k] && !math.IsInf(lower[k], -1) {
			p[k] = lower[k] + (lower[k] - p[k])
		}
		if p[k] > upper[k] && !math.IsInf(upper[k], 1) {
			p[k] = upper[k] - (p[k] - upper[k])
		}
	}
	clampInto(p, lower, upper)
}

func normRatio(step, p []float64) float64 {
	var ns, npp float64
	for k := range step {
		ns += step[k] * step[k]
		npp += p[k] * p[k]
	}
	return math.Sqrt(ns) / (math.Sqrt(npp) + 1e-300)
}
