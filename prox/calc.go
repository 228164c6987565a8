// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import "math"

// Primitive operations shared by the PANOC and PGA iterations.
//
// All functions write into caller-supplied buffers and never allocate,
// so the solvers can reuse one workspace across the whole solve.
// The multipliers y and penalty weights Σ are fixed during a solve;
// Σᵢ must be positive whenever m > 0.

// calcHatY computes the shifted constraint violation at x:
//
//	ζ = g(x) + Σ⁻¹y,  ẑ = Π(ζ, D),  ŷ = Σ(ζ - ẑ)
//
// ŷ is written into yHat (length m) and the weighted penalty ½‖ζ-ẑ‖²_Σ
// is returned.
func calcHatY(p *Problem, x, y, sigma, yHat []float64) (penalty float64) {
	if p.M == 0 {
		return zero
	}
	p.G(x, yHat)
	lo, up := p.D.Lower, p.D.Upper
	for i, gi := range yHat[:p.M] {
		zeta := gi + y[i]/sigma[i]
		zHat := zeta
		if lo != nil && zHat < lo[i] {
			zHat = lo[i]
		}
		if up != nil && zHat > up[i] {
			zHat = up[i]
		}
		e := zeta - zHat
		penalty += sigma[i] * e * e
		yHat[i] = sigma[i] * e
	}
	return half * penalty
}

// CalcPsiHatY computes ψ(x) and the candidate multipliers ŷ(x),
// writing ŷ into yHat.
func CalcPsiHatY(p *Problem, x, y, sigma, yHat []float64) float64 {
	return p.F(x) + calcHatY(p, x, y, sigma, yHat)
}

// CalcGradPsiFromHatY computes ∇ψ(x) = ∇f(x) + ∇g(x)ᵀŷ from a
// precomputed ŷ, writing the result into grad. workN is scratch.
func CalcGradPsiFromHatY(p *Problem, x, yHat, grad, workN []float64) {
	p.GradF(x, grad)
	if p.M == 0 {
		return
	}
	p.GradGProd(x, yHat, workN)
	daxpy(one, workN[:p.N], grad)
}

// CalcPsiGradPsi computes ψ(x) and ∇ψ(x) in one evaluation sweep.
// workN and workM are scratch.
func CalcPsiGradPsi(p *Problem, x, y, sigma, grad, workN, workM []float64) float64 {
	psi := CalcPsiHatY(p, x, y, sigma, workM)
	CalcGradPsiFromHatY(p, x, workM, grad, workN)
	return psi
}

// CalcGradPsi computes ∇ψ(x) into grad. workN and workM are scratch.
func CalcGradPsi(p *Problem, x, y, sigma, grad, workN, workM []float64) {
	calcHatY(p, x, y, sigma, workM)
	CalcGradPsiFromHatY(p, x, workM, grad, workN)
}

// CalcXHat performs the forward-backward step
//
//	x̂ = Π(x - γ∇ψ(x), C),  p = x̂ - x
//
// writing the proximal image into xHat and the residual into pv.
func CalcXHat(p *Problem, gamma float64, x, grad, xHat, pv []float64) {
	lo, up := p.C.Lower, p.C.Upper
	if len(xHat) < len(x) || len(pv) < len(x) || len(grad) < len(x) {
		panic("bound check error")
	}
	for i, xi := range x {
		v := xi - gamma*grad[i]
		if lo != nil && v < lo[i] {
			v = lo[i]
		}
		if up != nil && v > up[i] {
			v = up[i]
		}
		xHat[i] = v
		pv[i] = v - xi
	}
}

// CalcErrZ computes the slack violation err_z = g(x̂) - ẑ(x̂) into errZ.
func CalcErrZ(p *Problem, xHat, y, sigma, errZ []float64) {
	if p.M == 0 {
		return
	}
	p.G(xHat, errZ)
	lo, up := p.D.Lower, p.D.Upper
	for i, gi := range errZ[:p.M] {
		zeta := gi + y[i]/sigma[i]
		zHat := zeta
		if lo != nil && zHat < lo[i] {
			zHat = lo[i]
		}
		if up != nil && zHat > up[i] {
			zHat = up[i]
		}
		errZ[i] = gi - zHat
	}
}

// CalcErrorStopCrit evaluates the stationarity measure
//
//	ε̂ = 𝚖𝚊𝚡ᵢ | pᵢ/γ - (∇ψ(x̂)ᵢ - ∇ψ(x)ᵢ) |
//
// which is the ∞-norm of the fixed-point residual of the
// forward-backward map.
func CalcErrorStopCrit(pv []float64, gamma float64, gradHat, grad []float64) float64 {
	if len(gradHat) < len(pv) || len(grad) < len(pv) {
		panic("bound check error")
	}
	crit := zero
	for i, pi := range pv {
		if e := math.Abs(pi/gamma - (gradHat[i] - grad[i])); e > crit {
			crit = e
		}
	}
	return crit
}

// FBE evaluates the forward-backward envelope
//
//	φ_γ(x) = ψ(x) + ‖p‖²/2γ + ∇ψ(x)ᵀp
//
// from the already computed quantities at x.
func FBE(psi, gamma, normSqP, gradPsiTp float64) float64 {
	return psi + half/gamma*normSqP + gradPsiTp
}
