// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pga implements the standard proximal gradient algorithm without
// any bells and whistles: no quasi-Newton direction, no acceleration, no
// line search. Each iteration takes the forward-backward step at the
// current step size and shrinks the step size until the quadratic upper
// bound holds. It shares the problem contract and primitive operations
// with the PANOC solver and is mainly useful as a robust baseline.
package pga

import (
	"errors"
	"math"
	"os"
	"time"

	"github.com/curioloop/panoc/prox"
)

// Params specifies the PGA iteration.
type Params struct {
	// Lipschitz estimate and step size factor.
	Lipschitz prox.LipschitzParams
	// Maximum number of inner iterations.
	MaxIter int
	// Maximum wall-clock duration.
	MaxTime time.Duration
	// Print progress every PrintInterval iterations; 0 prints nothing.
	PrintInterval int
}

// DefaultParams returns the recommended PGA parameters.
func DefaultParams() Params {
	return Params{
		Lipschitz: prox.LipschitzParams{
			Epsilon:      1e-6,
			Delta:        1e-12,
			LGammaFactor: 0.95,
		},
		MaxIter: 100,
		MaxTime: 5 * time.Minute,
	}
}

// Solver runs the adaptive proximal gradient iteration. A solver may be
// reused sequentially; its workspace is not safe for concurrent solves.
type Solver struct {
	params Params
	logger *prox.Logger
	stop   prox.StopSignal
	ctx    iterCtx
}

// New creates a PGA solver. A nil logger prints progress to stdout.
func New(params Params, logger *prox.Logger) (*Solver, error) {

	if logger == nil {
		logger = &prox.Logger{Level: prox.LogProgress, Msg: os.Stdout}
	}

	params.Lipschitz.Resolve()
	if params.MaxTime == 0 {
		params.MaxTime = 5 * time.Minute
	}

	var err error
	switch {
	case params.MaxIter < 0:
		err = errors.New("max iteration must not less than 0")
	case params.Lipschitz.Epsilon <= 0 || params.Lipschitz.Delta <= 0:
		err = errors.New("finite difference perturbation must greater than 0")
	case params.Lipschitz.LGammaFactor <= 0 || params.Lipschitz.LGammaFactor >= 1:
		err = errors.New("step size factor must lie in (0,1)")
	case params.PrintInterval < 0:
		err = errors.New("print interval must not less than 0")
	}
	if err != nil {
		return nil, err
	}

	return &Solver{params: params, logger: logger}, nil
}

// Params returns the resolved solver parameters.
func (s *Solver) Params() Params { return s.params }

// Stop raises the cooperative stop signal.
func (s *Solver) Stop() { s.stop.Stop() }

type iterCtx struct {
	n, m int

	xk         []float64 // n, current iterate
	xHat       []float64 // n, proximal image
	p          []float64 // n, proximal residual
	gradPsi    []float64 // n, ∇ψ(xₖ)
	gradPsiHat []float64 // n, ∇ψ(x̂ₖ)
	yHat       []float64 // m, ŷ(x̂ₖ)
	workN      []float64
	workM      []float64
}

func (c *iterCtx) init(n, m int) {
	if c.n != n || c.m != m {
		c.n, c.m = n, m
		c.xk = make([]float64, n)
		c.xHat = make([]float64, n)
		c.p = make([]float64, n)
		c.gradPsi = make([]float64, n)
		c.gradPsiHat = make([]float64, n)
		c.yHat = make([]float64, m)
		c.workN = make([]float64, n)
		c.workM = make([]float64, m)
	}
}

// Solve runs the PGA iteration. On exit x receives the final proximal
// image x̂, y receives ŷ(x̂) and errZ receives the slack violation
// g(x̂) - ẑ, regardless of the final status. The one exception is a
// non-finite initial Lipschitz estimate: the solver then returns NotFinite
// before any x̂ exists and writes nothing.
func (s *Solver) Solve(problem *prox.Problem, sigma []float64, eps float64,
	x, y, errZ []float64) (stats prox.Stats) {

	start := time.Now()

	if err := problem.Check(); err != nil {
		panic(err)
	}
	n, m := problem.N, problem.M
	switch {
	case len(x) != n:
		panic("x dimension not match problem")
	case len(y) != m || len(sigma) != m || len(errZ) != m:
		panic("y dimension not match problem")
	case !(eps > 0):
		panic("tolerance must greater than 0")
	}

	params := &s.params
	c := &s.ctx
	c.init(n, m)

	stats.Eps = math.Inf(1)

	copy(c.xk, x)

	// The finite difference perturbation is applied to a solver-owned
	// buffer; the caller's x is never touched.
	psi, lip := prox.InitialLipschitz(problem, c.xk, y, sigma,
		params.Lipschitz.Epsilon, params.Lipschitz.Delta,
		c.xHat, c.gradPsiHat, c.gradPsi, c.workN, c.workM)
	if lip < prox.Epsilon {
		lip = prox.Epsilon
	} else if math.IsNaN(lip) || math.IsInf(lip, 0) {
		stats.Status = prox.NotFinite
		stats.Elapsed = time.Since(start)
		return
	}

	gamma := params.Lipschitz.LGammaFactor / lip

	noProgress := 0

	for k := 0; ; k++ {
		// From the previous iteration: xₖ, ∇ψ(xₖ), ψ(xₖ).

		// Projected gradient step x̂ₖ, pₖ.
		prox.CalcXHat(problem, gamma, c.xk, c.gradPsi, c.xHat, c.p)
		psiHat := prox.CalcPsiHatY(problem, c.xHat, y, sigma, c.yHat)
		gradPsiTp := ddot(c.gradPsi, c.p)
		normSqP := ddot(c.p, c.p)

		// Decrease the step size until the quadratic upper bound holds.
		for psiHat > psi+gradPsiTp+0.5*lip*normSqP {
			lip *= 2
			gamma /= 2
			prox.CalcXHat(problem, gamma, c.xk, c.gradPsi, c.xHat, c.p)
			psiHat = prox.CalcPsiHatY(problem, c.xHat, y, sigma, c.yHat)
			gradPsiTp = ddot(c.gradPsi, c.p)
			normSqP = ddot(c.p, c.p)
		}

		prox.CalcGradPsiFromHatY(problem, c.xHat, c.yHat, c.gradPsiHat, c.workN)

		epsK := prox.CalcErrorStopCrit(c.p, gamma, c.gradPsiHat, c.gradPsi)

		if params.PrintInterval != 0 && k%params.PrintInterval == 0 &&
			s.logger.Enable(prox.LogProgress) {
			s.logger.Logf("[PGA]   %6d: ψ = %13.6e, ‖∇ψ‖ = %13.6e, ‖p‖ = %13.6e, γ = %13.6e, εₖ = %13.6e\n",
				k, psi, dnrm2(c.gradPsi), math.Sqrt(normSqP), gamma, epsK)
		}

		elapsed := time.Since(start)
		conv := epsK <= eps
		outOfIter := k == params.MaxIter
		outOfTime := elapsed > params.MaxTime
		notFinite := math.IsNaN(epsK) || math.IsInf(epsK, 0)
		interrupted := s.stop.StopRequested()
		maxNoProgress := noProgress > 1

		if conv || outOfIter || outOfTime || notFinite || interrupted || maxNoProgress {
			prox.CalcErrZ(problem, c.xHat, y, sigma, errZ)
			copy(x, c.xHat)
			copy(y, c.yHat)
			stats.Iterations = k
			stats.Eps = epsK
			stats.Elapsed = elapsed
			switch {
			case conv:
				stats.Status = prox.Converged
			case outOfIter:
				stats.Status = prox.MaxIter
			case outOfTime:
				stats.Status = prox.MaxTime
			case notFinite:
				stats.Status = prox.NotFinite
			case interrupted:
				stats.Status = prox.Interrupted
			default:
				stats.Status = prox.NoProgress
			}
			return
		}

		if vecEqual(c.xk, c.xHat) {
			noProgress++
		} else {
			noProgress = 0
		}

		c.xk, c.xHat = c.xHat, c.xk
		c.gradPsi, c.gradPsiHat = c.gradPsiHat, c.gradPsi
		psi = psiHat
	}
}
