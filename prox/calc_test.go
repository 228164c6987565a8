// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// testProblem builds a small augmented Lagrangian test case:
//
//	f(x) = ½‖x‖²,  g(x) = x - 1,  D = {0},  C = [-10, 10]²
//
// so that ψ(x) = ½‖x‖² + ½Σᵢσᵢ(xᵢ-1+yᵢ/σᵢ)².
func testProblem() *Problem {
	n := 2
	lo, up := make([]float64, n), make([]float64, n)
	for i := range lo {
		lo[i], up[i] = -10, 10
	}
	return &Problem{
		N: n, M: n,
		C: Box{Lower: lo, Upper: up},
		D: Box{Lower: make([]float64, n), Upper: make([]float64, n)},
		F: func(x []float64) float64 {
			return 0.5 * (x[0]*x[0] + x[1]*x[1])
		},
		GradF: func(x, grad []float64) {
			grad[0], grad[1] = x[0], x[1]
		},
		G: func(x, gx []float64) {
			gx[0], gx[1] = x[0]-1, x[1]-1
		},
		GradGProd: func(x, v, grad []float64) {
			grad[0], grad[1] = v[0], v[1]
		},
	}
}

func TestBoxProject(t *testing.T) {
	b := Box{Lower: []float64{-1, -2}, Upper: []float64{1, 2}}
	out := make([]float64, 2)

	b.Project([]float64{0.5, -3}, out)
	require.Equal(t, []float64{0.5, -2}, out)

	b.Project([]float64{5, 5}, out)
	require.Equal(t, []float64{1, 2}, out)

	unb := UnboundedBox(2)
	unb.Project([]float64{1e30, -1e30}, out)
	require.Equal(t, []float64{1e30, -1e30}, out)

	// nil bounds mean unbounded
	none := Box{}
	none.Project([]float64{-7, 7}, out)
	require.Equal(t, []float64{-7, 7}, out)
}

func TestCalcPsiHatY(t *testing.T) {
	p := testProblem()
	x := []float64{2, -1}
	y := []float64{0.5, 0}
	sigma := []float64{10, 10}
	yHat := make([]float64, 2)

	// ζᵢ = xᵢ-1+yᵢ/σᵢ, ẑ = 0, ŷᵢ = σᵢζᵢ, ψ = f + ½Σσᵢζᵢ²
	z0 := 2 - 1 + 0.05
	z1 := -1 - 1 + 0.0
	wantPsi := 0.5*(4+1) + 0.5*(10*z0*z0+10*z1*z1)

	psi := CalcPsiHatY(p, x, y, sigma, yHat)
	require.InDelta(t, wantPsi, psi, 1e-12)
	require.InDelta(t, 10*z0, yHat[0], 1e-12)
	require.InDelta(t, 10*z1, yHat[1], 1e-12)
}

func TestCalcPsiGradPsi(t *testing.T) {
	p := testProblem()
	x := []float64{2, -1}
	y := []float64{0.5, 0}
	sigma := []float64{10, 10}

	grad := make([]float64, 2)
	workN, workM := make([]float64, 2), make([]float64, 2)
	psi := CalcPsiGradPsi(p, x, y, sigma, grad, workN, workM)

	// ∇ψ = x + ŷ for this problem
	z0 := 2 - 1 + 0.05
	z1 := -1 - 1 + 0.0
	require.InDelta(t, 2+10*z0, grad[0], 1e-12)
	require.InDelta(t, -1+10*z1, grad[1], 1e-12)

	// CalcGradPsi and CalcGradPsiFromHatY agree
	grad2 := make([]float64, 2)
	CalcGradPsi(p, x, y, sigma, grad2, workN, workM)
	require.Equal(t, grad, grad2)

	yHat := make([]float64, 2)
	require.InDelta(t, psi, CalcPsiHatY(p, x, y, sigma, yHat), 1e-12)
	CalcGradPsiFromHatY(p, x, yHat, grad2, workN)
	require.Equal(t, grad, grad2)
}

func TestCalcPsiUnconstrained(t *testing.T) {
	p := &Problem{
		N: 1, M: 0,
		F:     func(x []float64) float64 { return 3 * x[0] },
		GradF: func(x, grad []float64) { grad[0] = 3 },
	}
	grad := make([]float64, 1)
	psi := CalcPsiGradPsi(p, []float64{2}, nil, nil, grad, make([]float64, 1), nil)
	require.Equal(t, 6.0, psi)
	require.Equal(t, 3.0, grad[0])
}

func TestCalcXHat(t *testing.T) {
	p := testProblem()
	x := []float64{9.9, -9.9}
	grad := []float64{-1, 1}
	xHat, pv := make([]float64, 2), make([]float64, 2)

	CalcXHat(p, 0.5, x, grad, xHat, pv)
	// x - γ∇ψ = (10.4, -10.4), clipped to (10, -10)
	require.Equal(t, []float64{10, -10}, xHat)
	require.InDelta(t, 0.1, pv[0], 1e-12)
	require.InDelta(t, -0.1, pv[1], 1e-12)
}

func TestCalcErrZ(t *testing.T) {
	p := testProblem()
	xHat := []float64{2, 0.5}
	y := []float64{0, 0}
	sigma := []float64{10, 10}
	errZ := make([]float64, 2)

	// ẑ = Π(g(x̂)+y/Σ, {0}) = 0, so err_z = g(x̂)
	CalcErrZ(p, xHat, y, sigma, errZ)
	require.InDelta(t, 1.0, errZ[0], 1e-12)
	require.InDelta(t, -0.5, errZ[1], 1e-12)
}

func TestCalcErrorStopCrit(t *testing.T) {
	pv := []float64{0.2, -0.4}
	gradHat := []float64{1, 1}
	grad := []float64{0.5, 2}

	// |pᵢ/γ - (∇ψ(x̂)ᵢ - ∇ψ(x)ᵢ)| = |2 - 0.5| and |-4 + 1|
	crit := CalcErrorStopCrit(pv, 0.1, gradHat, grad)
	require.InDelta(t, 3.0, crit, 1e-12)

	// stationary point: zero residual, equal gradients
	require.Equal(t, 0.0, CalcErrorStopCrit([]float64{0, 0}, 0.1, grad, grad))
}

func TestFBE(t *testing.T) {
	// φ = ψ + ‖p‖²/2γ + ∇ψᵀp
	require.InDelta(t, 1+0.25/0.4+(-0.3), FBE(1, 0.2, 0.25, -0.3), 1e-12)
}

func TestStopSignal(t *testing.T) {
	var s StopSignal
	require.False(t, s.StopRequested())
	s.Stop()
	require.True(t, s.StopRequested())
	s.Stop()
	require.True(t, s.StopRequested())
}

func TestSolverStatusString(t *testing.T) {
	names := map[SolverStatus]string{
		Unknown: "Unknown", Converged: "Converged", MaxTime: "MaxTime",
		MaxIter: "MaxIter", NotFinite: "NotFinite", NoProgress: "NoProgress",
		Interrupted: "Interrupted",
	}
	for status, name := range names {
		require.Equal(t, name, status.String())
	}
}

func TestProblemCheck(t *testing.T) {
	require.NoError(t, testProblem().Check())

	bad := testProblem()
	bad.N = 0
	require.Error(t, bad.Check())

	bad = testProblem()
	bad.GradGProd = nil
	require.Error(t, bad.Check())

	bad = testProblem()
	bad.C.Lower = []float64{0}
	require.Error(t, bad.Check())
}

func TestBlasKernels(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7}
	y := []float64{7, 6, 5, 4, 3, 2, 1}

	require.Equal(t, 7.0+12+15+16+15+12+7, ddot(x, y))

	z := append([]float64(nil), y...)
	daxpy(2, x, z)
	for i := range z {
		require.Equal(t, y[i]+2*x[i], z[i])
	}

	dscal(0.5, z)
	for i := range z {
		require.Equal(t, (y[i]+2*x[i])/2, z[i])
	}

	w := make([]float64, len(x))
	dcopy(x, w)
	require.Equal(t, x, w)

	require.InDelta(t, math.Sqrt(ddot(x, x)), dnrm2(x), 1e-12)
	require.Equal(t, 0.0, dnrm2(nil))
	require.Equal(t, 2.5, dnrm2([]float64{-2.5}))
}
