// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lbfgs provides a limited-memory BFGS direction provider for the
// PANOC inner solver.
//
// The provider maintains a ring of correction pairs built from the
// fixed-point residuals of the forward-backward map,
//
//	sₖ = xₖ₊₁ - xₖ,  yₖ = pₖ - pₖ₊₁
//
// and produces candidate directions q = Hₖpₖ with the classic two-loop
// recursion, where Hₖ is the implicit inverse Hessian approximation.
package lbfgs

import (
	"math"

	"github.com/curioloop/panoc/prox"
)

var epsilon = math.Nextafter(1, 2) - 1

// LBFGS is a limited-memory BFGS approximation of the inverse Jacobian of
// the fixed-point residual. The zero value is usable after Resize.
type LBFGS struct {
	n, mem int
	s, y   []float64 // n×mem correction pairs, column j at [j*n : (j+1)*n]
	rho    []float64 // 1/sⱼᵀyⱼ per stored pair
	alpha  []float64 // two-loop work
	head   int       // ring index of the oldest pair
	count  int       // number of stored pairs
}

// Resize sets the problem dimension and memory depth, dropping any history.
func (l *LBFGS) Resize(n, mem int) {
	if mem < 1 {
		mem = 1
	}
	if l.n != n || l.mem != mem {
		l.n, l.mem = n, mem
		l.s = make([]float64, n*mem)
		l.y = make([]float64, n*mem)
		l.rho = make([]float64, mem)
		l.alpha = make([]float64, mem)
	}
	l.Reset()
}

// Initialize is called once at the first PANOC iteration.
// Correction pairs are formed from consecutive iterates passed to Update,
// so there is nothing to seed besides clearing stale history.
func (l *LBFGS) Initialize(x, xHat, p, gradPsi []float64) {
	l.Reset()
}

// Apply computes the candidate direction q = Hₖp with the two-loop recursion.
// With no stored pairs yet, q is simply p.
func (l *LBFGS) Apply(x, xHat, p, q []float64) {
	n := l.n
	if len(q) < n || len(p) < n {
		panic("bound check error")
	}
	copy(q[:n], p[:n])
	if l.count == 0 {
		return
	}

	for i := l.count - 1; i >= 0; i-- {
		j := (l.head + i) % l.mem
		sj, yj := l.s[j*n:(j+1)*n], l.y[j*n:(j+1)*n]
		a := l.rho[j] * ddot(sj, q[:n])
		l.alpha[j] = a
		daxpy(-a, yj, q[:n])
	}

	// H₀ = (sᵀy/yᵀy)·I from the most recent pair
	j := (l.head + l.count - 1) % l.mem
	yj := l.y[j*n : (j+1)*n]
	dscal(1/(l.rho[j]*ddot(yj, yj)), q[:n])

	for i := 0; i < l.count; i++ {
		j := (l.head + i) % l.mem
		sj, yj := l.s[j*n:(j+1)*n], l.y[j*n:(j+1)*n]
		b := l.rho[j] * ddot(yj, q[:n])
		daxpy(l.alpha[j]-b, sj, q[:n])
	}
}

// Update offers the correction pair (s, y) = (xₖ₊₁-xₖ, pₖ-pₖ₊₁) to the ring.
// The pair is rejected when the curvature condition sᵀy > εₘ‖y‖² fails,
// which keeps the implicit Hessian approximation positive definite.
func (l *LBFGS) Update(x, xNext, p, pNext, gradNext []float64, C prox.Box, gamma float64) bool {
	n := l.n
	if len(xNext) < n || len(pNext) < n || len(x) < n || len(p) < n {
		panic("bound check error")
	}
	sy, yy := 0.0, 0.0
	for i := 0; i < n; i++ {
		si := xNext[i] - x[i]
		yi := p[i] - pNext[i]
		sy += si * yi
		yy += yi * yi
	}

	// skip update when curvature condition sᵀy ≤ ‖y‖² × 𝚎𝚙𝚜𝚖𝚌𝚑
	if sy <= epsilon*yy {
		return false
	}

	j := (l.head + l.count) % l.mem
	if l.count == l.mem {
		j = l.head
	}
	sj, yj := l.s[j*n:(j+1)*n], l.y[j*n:(j+1)*n]
	for i := 0; i < n; i++ {
		sj[i] = xNext[i] - x[i]
		yj[i] = p[i] - pNext[i]
	}

	l.rho[j] = 1 / sy
	if l.count < l.mem {
		l.count++
	} else {
		l.head = (l.head + 1) % l.mem
	}
	return true
}

// ChangedGamma invalidates the history: the residuals p scale with the step
// size, so pairs collected at the old γ no longer describe the new map.
func (l *LBFGS) ChangedGamma(gamma, gammaOld float64) {
	l.Reset()
}

// Reset clears all stored correction pairs.
func (l *LBFGS) Reset() {
	l.head, l.count = 0, 0
}
