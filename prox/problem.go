// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import (
	"errors"
	"math"
)

// Box is a closed rectangular set { v : Lower ≤ v ≤ Upper }.
// A nil Lower or Upper slice means unbounded on that side.
type Box struct {
	Lower, Upper []float64
}

// UnboundedBox returns an n-dimensional box covering all of ℝⁿ.
func UnboundedBox(n int) Box {
	lo := make([]float64, n)
	up := make([]float64, n)
	for i := 0; i < n; i++ {
		lo[i] = math.Inf(-1)
		up[i] = math.Inf(1)
	}
	return Box{Lower: lo, Upper: up}
}

// Project writes the Euclidean projection of v onto the box into out.
// The slices may alias.
func (b Box) Project(v, out []float64) {
	if len(out) < len(v) {
		panic("bound check error")
	}
	for i, vi := range v {
		if b.Lower != nil && vi < b.Lower[i] {
			vi = b.Lower[i]
		}
		if b.Upper != nil && vi > b.Upper[i] {
			vi = b.Upper[i]
		}
		out[i] = vi
	}
}

// Problem describes the smooth-plus-indicator objective consumed by the
// inner solvers. It arises from the Augmented Lagrangian reformulation
//
//	minimize ψ(x) = f(x) + ½‖g(x) + Σ⁻¹y - Π(g(x) + Σ⁻¹y, D)‖²_Σ  subject to x ∈ C
//
// where y are the current Lagrange multipliers and Σ the penalty weights,
// both fixed during one inner solve.
//
// The problem is read-only throughout a solve and may be shared between
// sequential invocations.
type Problem struct {
	// The number of decision variables.
	N int
	// The number of constraints, i.e. the dimension of g(x). Zero disables
	// the constraint map entirely.
	M int
	// Feasible set for the decision variables.
	C Box
	// Feasible set for the constraint values g(x).
	D Box
	// Objective f(x).
	F func(x []float64) float64
	// Gradient ∇f(x), written into grad.
	GradF func(x, grad []float64)
	// Constraint map g(x), written into gx. May be nil when M == 0.
	G func(x, gx []float64)
	// Vector-Jacobian product ∇g(x)ᵀv, written into grad. May be nil when M == 0.
	GradGProd func(x, v, grad []float64)
}

// Check validates the problem description.
func (p *Problem) Check() (err error) {
	switch {
	case p.N <= 0:
		err = errors.New("problem dimension must greater than 0")
	case p.M < 0:
		err = errors.New("constraint dimension must not less than 0")
	case p.F == nil || p.GradF == nil:
		err = errors.New("objective function and gradient are required")
	case p.M > 0 && (p.G == nil || p.GradGProd == nil):
		err = errors.New("constraint map and its vector-jacobian product are required")
	case p.C.Lower != nil && len(p.C.Lower) != p.N,
		p.C.Upper != nil && len(p.C.Upper) != p.N:
		err = errors.New("box C size must equal to n")
	case p.D.Lower != nil && len(p.D.Lower) != p.M,
		p.D.Upper != nil && len(p.D.Upper) != p.M:
		err = errors.New("box D size must equal to m")
	}
	return
}
