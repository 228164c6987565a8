// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package anderson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// affine contraction: ∇ψ(x) = diag(h)·(x - opt), so the fixed-point map
// g(x) = x - γ∇ψ(x) converges to opt with rate 𝚖𝚊𝚡ᵢ(1 - γhᵢ).
func gradAt(h, opt, x, grad []float64) {
	for i := range x {
		grad[i] = h[i] * (x[i] - opt[i])
	}
}

func TestAcceleratorAffineFixedPoint(t *testing.T) {
	h := []float64{1, 2, 3}
	opt := []float64{1, -2, 0.5}
	const gamma = 0.05 // plain contraction rate 0.95

	var aa Accelerator
	aa.Resize(3, 3)

	x := []float64{10, 10, 10}
	grad := make([]float64, 3)

	gradAt(h, opt, x, grad)
	aa.Initialize(x, grad, gamma)
	// the first step is the plain fixed-point step to y₀ = g(x₀)
	for i := range x {
		x[i] -= gamma * grad[i]
	}

	for k := 1; k <= 6; k++ {
		gradAt(h, opt, x, grad)
		y := aa.Extrapolate(x, grad, gamma)
		copy(x, y) // unconstrained: the candidate is always accepted
		aa.Advance(true)
	}

	// plain iteration would still be at ≈ 0.95⁶ of the initial error;
	// the extrapolation solves the affine problem essentially exactly
	for i := range x {
		require.InDelta(t, opt[i], x[i], 1e-8)
	}
}

func TestAcceleratorMemoryCap(t *testing.T) {
	var aa Accelerator
	aa.Resize(2, 10)
	require.Equal(t, 2, aa.m) // memory is capped at the dimension
}

func TestAcceleratorDegenerateResidual(t *testing.T) {
	// A zero residual difference produces a zero QR column and non-finite
	// least squares coefficients: the history collapses to the newest
	// image and the factorization resets.
	var aa Accelerator
	aa.Resize(2, 2)

	x := []float64{1, 2}
	grad := []float64{0, 0}

	aa.Initialize(x, grad, 0.5)
	aa.Extrapolate(x, grad, 0.5)
	require.Equal(t, 0, aa.qr.NumColumns())
	aa.Advance(false)

	// the accelerator keeps working after the reset
	h := []float64{1, 1}
	opt := []float64{3, -3}
	gradAt(h, opt, x, grad)
	aa.Initialize(x, grad, 0.5)
	for i := range x {
		x[i] -= 0.5 * grad[i]
	}
	for k := 1; k <= 4; k++ {
		gradAt(h, opt, x, grad)
		copy(x, aa.Extrapolate(x, grad, 0.5))
		aa.Advance(true)
	}
	for i := range x {
		require.InDelta(t, opt[i], x[i], 1e-8)
	}
}

func TestAcceleratorChangedGamma(t *testing.T) {
	// r(x) = -γ∇ψ(x) is linear in γ: both the stored residual and the R
	// factor scale by the ratio.
	var aa Accelerator
	aa.Resize(2, 2)

	x := []float64{5, 5}
	grad := []float64{1, 2}
	aa.Initialize(x, grad, 0.1)
	aa.Extrapolate(x, grad, 0.1)

	r00 := aa.qr.r[0]
	rPrev := append([]float64(nil), aa.rPrev...)
	require.NotZero(t, r00)

	aa.ChangedGamma(0.05, 0.1)
	require.InDelta(t, 0.5*r00, aa.qr.r[0], 1e-15)
	for i := range rPrev {
		require.InDelta(t, 0.5*rPrev[i], aa.rPrev[i], 1e-15)
	}
}
