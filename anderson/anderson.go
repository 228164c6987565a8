// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package anderson implements Anderson acceleration for the fixed-point
// iteration of the forward-backward map, backed by a limited-memory QR
// least squares solve.
package anderson

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Accelerator extrapolates the fixed-point iteration
//
//	g(x) = x - γ∇ψ(x),  r(x) = g(x) - y
//
// by combining the recent history of images g with coefficients that
// minimize the norm of the combined residual:
//
//	γ_LS = 𝚊𝚛𝚐𝚖𝚒𝚗 ‖Δr·γ - rₖ‖,  y = Σᵢ αᵢ gᵢ
//
// where the αᵢ are the differences of the least squares coefficients.
// The zero value is usable after Resize.
type Accelerator struct {
	n, m  int
	qr    LimitedMemoryQR
	g     []float64 // n×m history of images, ring-aligned with qr
	rPrev []float64 // residual of the previous iteration
	r     []float64 // residual of the current iteration
	y     []float64 // extrapolated point
	gk    []float64 // image of the current iterate
	dr    []float64 // residual difference scratch
	gamLS []float64 // least squares coefficients
}

// Resize sets the problem dimension n and the memory depth, which is
// capped at n, dropping all history.
func (aa *Accelerator) Resize(n, memory int) {
	m := min(memory, n)
	if aa.n != n || aa.m != m {
		aa.n, aa.m = n, m
		aa.g = make([]float64, n*m)
		aa.rPrev = make([]float64, n)
		aa.r = make([]float64, n)
		aa.y = make([]float64, n)
		aa.gk = make([]float64, n)
		aa.dr = make([]float64, n)
		aa.gamLS = make([]float64, m)
	}
	aa.qr.Resize(n, m)
}

// Initialize seeds the history at the first iterate:
//
//	r₋₁ = -γ∇ψ(x₀),  y₀ = x₀ + r₋₁ = g(x₀)
//
// and stores y₀ as the first history column.
func (aa *Accelerator) Initialize(x, gradPsi []float64, gamma float64) {
	aa.qr.Reset()
	for i := 0; i < aa.n; i++ {
		aa.rPrev[i] = -gamma * gradPsi[i]
		aa.y[i] = x[i] + aa.rPrev[i]
	}
	copy(aa.g[:aa.n], aa.y)
}

// Extrapolate computes the accelerated candidate from the current iterate
// and returns it (unprojected; the caller projects onto C and decides
// acceptance). The residual history and QR factorization are updated; when
// the least squares coefficients turn non-finite, the history collapses to
// the newest image, the factorization is reset and the returned candidate is
// that newest image gₖ.
func (aa *Accelerator) Extrapolate(x, gradPsi []float64, gamma float64) []float64 {
	n := aa.n
	for i := 0; i < n; i++ {
		aa.gk[i] = x[i] - gamma*gradPsi[i]
		aa.r[i] = aa.gk[i] - aa.y[i]
		aa.dr[i] = aa.r[i] - aa.rPrev[i]
	}

	if aa.qr.NumColumns() == aa.m {
		aa.qr.RemoveColumn()
	}
	aa.qr.AddColumn(aa.dr)
	aa.qr.SolveCol(aa.r, aa.gamLS)

	// y = γ₀·g₍oldest₎ + Σᵢ (γᵢ-γᵢ₋₁)·gᵢ + (1-γ₍newest₎)·gₖ
	cols := aa.qr.NumColumns()
	idx := aa.qr.RingHead()
	for i := 0; i < n; i++ {
		aa.y[i] = aa.gamLS[0] * aa.g[idx*n+i]
	}
	for j := 1; j < cols; j++ {
		idx = aa.qr.RingNext(idx)
		floats.AddScaled(aa.y, aa.gamLS[j]-aa.gamLS[j-1], aa.g[idx*n:(idx+1)*n])
	}
	floats.AddScaled(aa.y, 1-aa.gamLS[cols-1], aa.gk)

	// append gₖ to the history ring
	copy(aa.g[aa.qr.RingTail()*n:], aa.gk)

	finite := true
	for _, v := range aa.gamLS[:cols] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			finite = false
			break
		}
	}
	if !finite {
		// keep only the newest image and restart the factorization
		if newest := aa.qr.RingTail(); newest != 0 {
			copy(aa.g[:n], aa.g[newest*n:(newest+1)*n])
		}
		aa.qr.Reset()
		copy(aa.y, aa.gk)
	}
	return aa.y
}

// Advance finishes the iteration bookkeeping. When the accelerated
// candidate was rejected, the image gₖ takes the place of y for the next
// residual; the residual buffers always swap.
func (aa *Accelerator) Advance(accepted bool) {
	if !accepted {
		aa.y, aa.gk = aa.gk, aa.y
	}
	aa.r, aa.rPrev = aa.rPrev, aa.r
}

// ChangedGamma rescales the stored residual history after a step size
// change: away from the constraint boundaries r(x) = -γ∇ψ(x) is linear
// in γ, so both the R factor and the previous residual scale by the ratio.
func (aa *Accelerator) ChangedGamma(gamma, gammaOld float64) {
	ratio := gamma / gammaOld
	aa.qr.ScaleR(ratio)
	floats.Scale(ratio, aa.rPrev)
}
