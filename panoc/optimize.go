// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package panoc implements the PANOC algorithm (Proximal Averaged
// Newton-type method for Optimal Control), an inner solver for the
// nonconvex constrained problems produced by an Augmented Lagrangian
// reformulation.
//
// Each iteration combines a safe forward-backward (proximal gradient) step
// p with an aggressive quasi-Newton candidate q through the interpolation
//
//	xₖ₊₁ = xₖ + (1-τ)pₖ + τqₖ
//
// backtracking τ until the forward-backward envelope decreases. The step
// size γ is tied to a local Lipschitz estimate of ∇ψ that adapts through
// the quadratic upper bound condition. Optionally, Anderson acceleration
// extrapolates the fixed-point iteration of the forward-backward map.
package panoc

import (
	"errors"
	"os"
	"time"

	"github.com/curioloop/panoc/anderson"
	"github.com/curioloop/panoc/prox"
)

// Direction is the quasi-Newton oracle queried for candidate directions.
// Implementations must not retain the slices they are handed.
type Direction interface {
	// Resize is a one-shot capacity hint with the problem dimension and
	// memory depth.
	Resize(n, mem int)
	// Initialize is called once at the first iteration.
	Initialize(x, xHat, p, gradPsi []float64)
	// Apply produces a candidate direction q from the current iterate.
	Apply(x, xHat, p, q []float64)
	// Update offers the next correction pair; it reports whether the pair
	// was accepted.
	Update(x, xNext, p, pNext, gradNext []float64, C prox.Box, gamma float64) bool
	// ChangedGamma invalidates or rescales history after a step size change.
	ChangedGamma(gamma, gammaOld float64)
	// Reset clears all history.
	Reset()
}

// NoDirection is a Direction without memory: the candidate direction is the
// proximal step itself, so the line search always accepts immediately.
type NoDirection struct{}

func (NoDirection) Resize(n, mem int)                        {}
func (NoDirection) Initialize(x, xHat, p, gradPsi []float64) {}
func (NoDirection) Apply(x, xHat, p, q []float64)            { copy(q, p) }
func (NoDirection) Update(x, xNext, p, pNext, gradNext []float64, C prox.Box, gamma float64) bool {
	return true
}
func (NoDirection) ChangedGamma(gamma, gammaOld float64) {}
func (NoDirection) Reset()                               {}

// Params specifies the PANOC iteration.
type Params struct {
	// Lipschitz estimate and step size factor.
	Lipschitz prox.LipschitzParams
	// Direction provider memory depth; doubles as the no-progress threshold.
	LBFGSMem int
	// Maximum number of inner iterations.
	MaxIter int
	// Maximum wall-clock duration.
	MaxTime time.Duration
	// Line search floor for the mix parameter τ.
	TauMin float64
	// ψ-relative noise guard for the quadratic upper bound condition.
	QuadraticUpperboundThreshold float64
	// Adapt the Lipschitz estimate inside the line search instead of
	// before it.
	UpdateLipschitzInLinesearch bool
	// Add the cross-γ correction term to the line search condition.
	AlternativeLinesearchCond bool
	// Anderson acceleration memory depth; 0 disables the accelerator.
	AndersonAcceleration int
	// Print progress every PrintInterval iterations; 0 prints nothing.
	PrintInterval int
}

// DefaultParams returns the recommended PANOC parameters.
func DefaultParams() Params {
	return Params{
		Lipschitz: prox.LipschitzParams{
			Epsilon:      1e-6,
			Delta:        1e-12,
			LGammaFactor: 0.95,
		},
		LBFGSMem:                     10,
		MaxIter:                      100,
		MaxTime:                      5 * time.Minute,
		TauMin:                       1. / 256,
		QuadraticUpperboundThreshold: 10 * prox.Epsilon,
		UpdateLipschitzInLinesearch:  true,
	}
}

// ProgressInfo is the per-iteration snapshot handed to a progress callback.
// The slices alias solver workspace and must not be retained or mutated.
type ProgressInfo struct {
	K          int
	X, P       []float64
	NormSqP    float64
	XHat       []float64
	Psi        float64
	GradPsi    []float64
	PsiHat     float64
	GradPsiHat []float64
	L, Gamma   float64
	Eps        float64
	Sigma, Y   []float64
	Problem    *prox.Problem
	Params     *Params
}

// ProgressFunc receives per-iteration diagnostics.
type ProgressFunc func(info *ProgressInfo)

// Solver runs the PANOC iteration with a statically dispatched direction
// provider D. A solver may be reused sequentially for multiple outer
// Augmented Lagrangian iterations with the same problem dimensions; its
// workspace is not safe for concurrent solves.
type Solver[D Direction] struct {
	params    Params
	direction D
	logger    *prox.Logger
	progress  ProgressFunc
	stop      prox.StopSignal
	accel     anderson.Accelerator
	ctx       iterCtx
}

// New creates a PANOC solver from the given parameters and direction
// provider. A nil logger prints progress to stdout.
func New[D Direction](params Params, direction D, logger *prox.Logger) (*Solver[D], error) {

	if logger == nil {
		logger = &prox.Logger{Level: prox.LogProgress, Msg: os.Stdout}
	}

	params.Lipschitz.Resolve()
	if params.LBFGSMem == 0 {
		params.LBFGSMem = 10
	}
	if params.MaxTime == 0 {
		params.MaxTime = 5 * time.Minute
	}
	if params.TauMin == 0 {
		params.TauMin = 1. / 256
	}
	if params.QuadraticUpperboundThreshold == 0 {
		params.QuadraticUpperboundThreshold = 10 * prox.Epsilon
	}

	var err error
	switch {
	case params.LBFGSMem < 1:
		err = errors.New("direction memory must greater than 0")
	case params.MaxIter < 0:
		err = errors.New("max iteration must not less than 0")
	case params.TauMin <= 0 || params.TauMin >= 1:
		err = errors.New("line search floor must lie in (0,1)")
	case params.Lipschitz.Epsilon <= 0 || params.Lipschitz.Delta <= 0:
		err = errors.New("finite difference perturbation must greater than 0")
	case params.Lipschitz.LGammaFactor <= 0 || params.Lipschitz.LGammaFactor >= 1:
		err = errors.New("step size factor must lie in (0,1)")
	case params.AndersonAcceleration < 0:
		err = errors.New("anderson memory must not less than 0")
	case params.PrintInterval < 0:
		err = errors.New("print interval must not less than 0")
	}
	if err != nil {
		return nil, err
	}

	return &Solver[D]{params: params, direction: direction, logger: logger}, nil
}

// Params returns the resolved solver parameters.
func (s *Solver[D]) Params() Params { return s.params }

// Direction exposes the embedded direction provider.
func (s *Solver[D]) Direction() D { return s.direction }

// OnProgress installs a per-iteration diagnostics callback.
func (s *Solver[D]) OnProgress(fn ProgressFunc) { s.progress = fn }

// Stop raises the cooperative stop signal; the solver returns with
// Interrupted status after the current iteration's stop check.
func (s *Solver[D]) Stop() { s.stop.Stop() }

// iterCtx is the solver-owned workspace. All buffers are allocated when the
// problem dimensions first appear and reused for every later solve; the
// main loop itself allocates nothing beyond the ProgressInfo snapshot handed
// to an installed progress callback.
type iterCtx struct {
	n, m int

	xk, xNext      []float64 // n, current iterate and its successor
	xHat, xHatNext []float64 // n, proximal images
	p, pNext       []float64 // n, proximal residuals x̂ - x
	q              []float64 // n, quasi-Newton direction
	gradPsi        []float64 // n, ∇ψ(xₖ)
	gradPsiHat     []float64 // n, ∇ψ(x̂ₖ)
	gradPsiNext    []float64 // n, ∇ψ(xₖ₊₁)
	yHat, yHatNext []float64 // m, ŷ at the proximal images
	xAA            []float64 // n, projected Anderson candidate
	yHatAA         []float64 // m, ŷ at the Anderson candidate
	workN, workM   []float64
}

func (c *iterCtx) init(n, m int, withAA bool) {
	if c.n != n || c.m != m {
		c.n, c.m = n, m
		c.xk = make([]float64, n)
		c.xNext = make([]float64, n)
		c.xHat = make([]float64, n)
		c.xHatNext = make([]float64, n)
		c.p = make([]float64, n)
		c.pNext = make([]float64, n)
		c.q = make([]float64, n)
		c.gradPsi = make([]float64, n)
		c.gradPsiHat = make([]float64, n)
		c.gradPsiNext = make([]float64, n)
		c.yHat = make([]float64, m)
		c.yHatNext = make([]float64, m)
		c.workN = make([]float64, n)
		c.workM = make([]float64, m)
	}
	if withAA && (len(c.xAA) != n || len(c.yHatAA) != m) {
		c.xAA = make([]float64, n)
		c.yHatAA = make([]float64, m)
	}
}
