// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import "math"

// LipschitzParams tune the initial finite-difference estimate of the
// Lipschitz constant L of ∇ψ and the step size derived from it.
type LipschitzParams struct {
	// Relative perturbation for the finite difference estimate.
	Epsilon float64
	// Minimum absolute perturbation for the finite difference estimate.
	Delta float64
	// Factor relating the step size to the Lipschitz constant: γ = LGammaFactor/L.
	// Values below 1 keep the FBE descent coefficient σ = γ(1-γL)/2 positive.
	LGammaFactor float64
}

// Resolve fills in the default parameters for zero fields.
func (lp *LipschitzParams) Resolve() {
	if lp.Epsilon == 0 {
		lp.Epsilon = 1e-6
	}
	if lp.Delta == 0 {
		lp.Delta = 1e-12
	}
	if lp.LGammaFactor == 0 {
		lp.LGammaFactor = 0.95
	}
}

// InitialLipschitz estimates the local Lipschitz constant of ∇ψ at x with a
// single finite difference
//
//	hᵢ = 𝚖𝚊𝚡(|xᵢ·ε|, δ),  L = ‖∇ψ(x+h) - ∇ψ(x)‖ / ‖h‖
//
// The perturbed point is built in the scratch buffer xw, so the caller's x is
// never touched. On return grad holds ∇ψ(x) and psi holds ψ(x); gradw, workN
// and workM are scratch. The estimate is returned unclamped: the caller
// decides how to treat degenerate or non-finite values.
func InitialLipschitz(p *Problem, x, y, sigma []float64, eps, delta float64,
	xw, gradw, grad, workN, workM []float64) (psi, lip float64) {

	if len(xw) < len(x) || len(gradw) < len(x) {
		panic("bound check error")
	}

	normSqH := zero
	for i, xi := range x {
		h := math.Max(math.Abs(xi*eps), delta)
		xw[i] = xi + h
		normSqH += h * h
	}

	// ∇ψ(x₀+h)
	CalcGradPsi(p, xw, y, sigma, gradw, workN, workM)
	// ψ(x₀), ∇ψ(x₀)
	psi = CalcPsiGradPsi(p, x, y, sigma, grad, workN, workM)

	normSqD := zero
	for i, gi := range grad {
		d := gradw[i] - gi
		normSqD += d * d
	}
	lip = math.Sqrt(normSqD / normSqH)
	return
}
