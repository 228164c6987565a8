// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pga

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curioloop/panoc/prox"
)

func noopLogger() *prox.Logger {
	return &prox.Logger{Level: prox.LogNoop}
}

func TestQuadraticInBox(t *testing.T) {
	// ψ(x) = ½‖x-2‖² over C = [-1,1]²: one projected step hits the corner.
	lo, up := []float64{-1, -1}, []float64{1, 1}
	p := &prox.Problem{
		N: 2, M: 0,
		C: prox.Box{Lower: lo, Upper: up},
		F: func(x []float64) float64 {
			return 0.5 * ((x[0]-2)*(x[0]-2) + (x[1]-2)*(x[1]-2))
		},
		GradF: func(x, grad []float64) {
			grad[0], grad[1] = x[0]-2, x[1]-2
		},
	}

	s, err := New(DefaultParams(), noopLogger())
	require.NoError(t, err)

	x := []float64{0, 0}
	stats := s.Solve(p, nil, 1e-8, x, nil, nil)

	require.Equal(t, prox.Converged, stats.Status)
	require.Equal(t, 1, stats.Iterations)
	require.Equal(t, []float64{1, 1}, x)
}

func TestInfeasibleStart(t *testing.T) {
	p := &prox.Problem{
		N: 1, M: 0,
		C:     prox.Box{Lower: []float64{5}, Upper: []float64{10}},
		F:     func(x []float64) float64 { return 0.5 * x[0] * x[0] },
		GradF: func(x, grad []float64) { grad[0] = x[0] },
	}
	s, err := New(DefaultParams(), noopLogger())
	require.NoError(t, err)

	x := []float64{0}
	stats := s.Solve(p, nil, 1e-8, x, nil, nil)

	require.Equal(t, prox.Converged, stats.Status)
	require.Equal(t, 5.0, x[0])
}

func TestUnconstrainedQuadratic(t *testing.T) {
	p := &prox.Problem{
		N: 2, M: 0,
		F: func(x []float64) float64 {
			return 0.5*(x[0]-3)*(x[0]-3) + (x[1]+1)*(x[1]+1)
		},
		GradF: func(x, grad []float64) {
			grad[0], grad[1] = x[0]-3, 2*(x[1]+1)
		},
	}
	params := DefaultParams()
	params.MaxIter = 1000
	s, err := New(params, noopLogger())
	require.NoError(t, err)

	x := []float64{10, 10}
	stats := s.Solve(p, nil, 1e-9, x, nil, nil)

	require.Equal(t, prox.Converged, stats.Status)
	require.InDelta(t, 3.0, x[0], 1e-7)
	require.InDelta(t, -1.0, x[1], 1e-7)
}

func TestAugmentedLagrangian(t *testing.T) {
	// ψ(x) = ½x² + 5(x-1)², minimum at 10/11 (see the PANOC twin test).
	p := &prox.Problem{
		N: 1, M: 1,
		D:         prox.Box{Lower: []float64{0}, Upper: []float64{0}},
		F:         func(x []float64) float64 { return 0.5 * x[0] * x[0] },
		GradF:     func(x, grad []float64) { grad[0] = x[0] },
		G:         func(x, gx []float64) { gx[0] = x[0] - 1 },
		GradGProd: func(x, v, grad []float64) { grad[0] = v[0] },
	}
	params := DefaultParams()
	params.MaxIter = 2000
	s, err := New(params, noopLogger())
	require.NoError(t, err)

	x := []float64{0}
	y := []float64{0}
	sigma := []float64{10}
	errZ := []float64{0}
	stats := s.Solve(p, sigma, 1e-9, x, y, errZ)

	require.Equal(t, prox.Converged, stats.Status)
	require.InDelta(t, 10.0/11, x[0], 1e-7)
	require.InDelta(t, 10*(10.0/11-1), y[0], 1e-6)
	require.InDelta(t, 10.0/11-1, errZ[0], 1e-7)
}

func TestMaxIterZero(t *testing.T) {
	p := &prox.Problem{
		N: 1, M: 0,
		C:     prox.Box{Lower: []float64{5}, Upper: []float64{10}},
		F:     func(x []float64) float64 { return 0.5 * x[0] * x[0] },
		GradF: func(x, grad []float64) { grad[0] = x[0] },
	}
	params := DefaultParams()
	params.MaxIter = 0
	s, err := New(params, noopLogger())
	require.NoError(t, err)

	x := []float64{0}
	stats := s.Solve(p, nil, 1e-8, x, nil, nil)

	// PGA always writes back the proximal image on exit
	require.Equal(t, prox.MaxIter, stats.Status)
	require.Equal(t, 0, stats.Iterations)
	require.Equal(t, 5.0, x[0])
}

func TestNotFiniteLipschitz(t *testing.T) {
	p := &prox.Problem{
		N: 1, M: 0,
		F:     func(x []float64) float64 { return x[0] },
		GradF: func(x, grad []float64) { grad[0] = math.Inf(1) },
	}
	s, err := New(DefaultParams(), noopLogger())
	require.NoError(t, err)

	x := []float64{3}
	stats := s.Solve(p, nil, 1e-8, x, nil, nil)
	require.Equal(t, prox.NotFinite, stats.Status)
	require.Equal(t, []float64{3}, x) // nothing to write back yet
}

func TestStopSignal(t *testing.T) {
	p := &prox.Problem{
		N: 1, M: 0,
		C:     prox.Box{Lower: []float64{5}, Upper: []float64{10}},
		F:     func(x []float64) float64 { return 0.5 * x[0] * x[0] },
		GradF: func(x, grad []float64) { grad[0] = x[0] },
	}
	s, err := New(DefaultParams(), noopLogger())
	require.NoError(t, err)

	s.Stop()
	x := []float64{0}
	stats := s.Solve(p, nil, 1e-8, x, nil, nil)
	require.Equal(t, prox.Interrupted, stats.Status)
	require.Equal(t, 0, stats.Iterations)
	require.Equal(t, 5.0, x[0])
}

func TestNewValidation(t *testing.T) {
	bad := DefaultParams()
	bad.MaxIter = -1
	_, err := New(bad, noopLogger())
	require.Error(t, err)

	bad = DefaultParams()
	bad.Lipschitz.LGammaFactor = 1
	_, err = New(bad, noopLogger())
	require.Error(t, err)

	s, err := New(Params{}, nil)
	require.NoError(t, err)
	require.Equal(t, 0.95, s.Params().Lipschitz.LGammaFactor)
}
