// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package panoc

import (
	"math"
	"time"

	"github.com/curioloop/panoc/prox"
)

// Solve runs the PANOC iteration on the given problem.
//
// The multipliers y and penalty weights Σ parameterize ψ and stay fixed for
// the whole solve. On convergence (or interruption, or when overwrite is
// set) x receives the final proximal image x̂, y receives ŷ(x̂) and errZ
// receives the slack violation g(x̂) - ẑ. When the initial Lipschitz
// estimate is not finite the solver returns NotFinite before any x̂ exists
// and writes nothing, whether or not overwrite is set.
func (s *Solver[D]) Solve(problem *prox.Problem, sigma []float64, eps float64,
	overwrite bool, x, y, errZ []float64) (stats prox.Stats) {

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
	aaEnabled := params.AndersonAcceleration > 0

	c := &s.ctx
	c.init(n, m, aaEnabled)
	s.direction.Resize(n, params.LBFGSMem)
	if aaEnabled {
		s.accel.Resize(n, params.AndersonAcceleration)
	}

	stats.Eps = math.Inf(1)

	// Wrappers over the primitive operations that pass along everything
	// constant during the solve.
	calcPsiHatY := func(at, yHat []float64) float64 {
		return prox.CalcPsiHatY(problem, at, y, sigma, yHat)
	}
	calcPsiGradPsi := func(at, grad []float64) float64 {
		return prox.CalcPsiGradPsi(problem, at, y, sigma, grad, c.workN, c.workM)
	}
	calcGradPsiFromHatY := func(at, yHat, grad []float64) {
		prox.CalcGradPsiFromHatY(problem, at, yHat, grad, c.workN)
	}
	calcXHat := func(gamma float64, at, grad, xHat, p []float64) {
		prox.CalcXHat(problem, gamma, at, grad, xHat, p)
	}

	dcopy(x, c.xk)

	// Estimate the Lipschitz constant of ∇ψ at x₀ and derive the step size.
	psi, lip := prox.InitialLipschitz(problem, c.xk, y, sigma,
		params.Lipschitz.Epsilon, params.Lipschitz.Delta,
		c.xNext, c.gradPsiNext, c.gradPsi, c.workN, c.workM)
	if lip < prox.Epsilon {
		lip = prox.Epsilon
	} else if math.IsNaN(lip) || math.IsInf(lip, 0) {
		stats.Status = prox.NotFinite
		stats.Elapsed = time.Since(start)
		return
	}

	gamma := params.Lipschitz.LGammaFactor / lip
	sigmaK := gamma * (1 - gamma*lip) / 2

	// First projected gradient step: x̂₀, p₀, ψ(x̂₀), ŷ(x̂₀), φ₀.
	calcXHat(gamma, c.xk, c.gradPsi, c.xHat, c.p)
	psiHat := calcPsiHatY(c.xHat, c.yHat)
	gradPsiTp := ddot(c.gradPsi, c.p)
	normSqP := ddot(c.p, c.p)
	fbe := prox.FBE(psi, gamma, normSqP, gradPsiTp)

	noProgress := 0

	for k := 0; ; k++ {

		// Quadratic upper bound: decrease the step size until
		//   ψ(x̂ₖ) - ψ(xₖ) ≤ ∇ψ(xₖ)ᵀpₖ + ½Lₖ‖pₖ‖²
		// unless ψ is so small the check would only chase noise.
		oldGamma := gamma
		if k == 0 || !params.UpdateLipschitzInLinesearch {
			for psiHat-psi > gradPsiTp+0.5*lip*normSqP &&
				math.Abs(gradPsiTp/psi) > params.QuadraticUpperboundThreshold {
				lip *= 2
				sigmaK /= 2
				gamma /= 2
				calcXHat(gamma, c.xk, c.gradPsi, c.xHat, c.p)
				gradPsiTp = ddot(c.gradPsi, c.p)
				normSqP = ddot(c.p, c.p)
				psiHat = calcPsiHatY(c.xHat, c.yHat)
			}
		}

		// Notify the direction provider and Anderson history if γ changed.
		if k > 0 && gamma != oldGamma {
			s.direction.ChangedGamma(gamma, oldGamma)
			if aaEnabled {
				s.accel.ChangedGamma(gamma, oldGamma)
			}
		}

		if k == 0 {
			s.direction.Initialize(c.xk, c.xHat, c.p, c.gradPsi)
		}

		// ∇ψ(x̂ₖ) from the cached ŷ.
		calcGradPsiFromHatY(c.xHat, c.yHat, c.gradPsiHat)

		// Stop condition.
		epsK := prox.CalcErrorStopCrit(c.p, gamma, c.gradPsiHat, c.gradPsi)

		if params.PrintInterval != 0 && k%params.PrintInterval == 0 &&
			s.logger.Enable(prox.LogProgress) {
			s.logger.Logf("[PANOC] %6d: ψ = %13.6e, ‖∇ψ‖ = %13.6e, ‖p‖ = %13.6e, γ = %13.6e, εₖ = %13.6e\n",
				k, psi, dnrm2(c.gradPsi), math.Sqrt(normSqP), gamma, epsK)
		}
		if s.progress != nil {
			s.progress(&ProgressInfo{
				K: k, X: c.xk, P: c.p, NormSqP: normSqP, XHat: c.xHat,
				Psi: psi, GradPsi: c.gradPsi, PsiHat: psiHat, GradPsiHat: c.gradPsiHat,
				L: lip, Gamma: gamma, Eps: epsK,
				Sigma: sigma, Y: y, Problem: problem, Params: params,
			})
		}

		elapsed := time.Since(start)
		conv := epsK <= eps
		outOfIter := k == params.MaxIter
		outOfTime := elapsed > params.MaxTime
		notFinite := math.IsNaN(epsK) || math.IsInf(epsK, 0)
		interrupted := s.stop.StopRequested()
		maxNoProgress := noProgress > params.LBFGSMem

		if conv || outOfIter || outOfTime || notFinite || interrupted || maxNoProgress {
			if conv || interrupted || overwrite {
				prox.CalcErrZ(problem, c.xHat, y, sigma, errZ)
				dcopy(c.xHat, x)
				dcopy(c.yHat, y)
			}
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

		// Quasi-Newton candidate direction.
		if k > 0 {
			s.direction.Apply(c.xk, c.xHat, c.p, c.q)
		}

		// Anderson acceleration: extrapolate the fixed-point iteration and
		// accept only if it lowers ψ at the proximal image.
		aaAccepted := false
		if aaEnabled {
			if k == 0 {
				s.accel.Initialize(c.xk, c.gradPsi, gamma)
			} else {
				yAA := s.accel.Extrapolate(c.xk, c.gradPsi, gamma)
				problem.C.Project(yAA, c.xAA)
				psiAA := calcPsiHatY(c.xAA, c.yHatAA)
				if psiAA < psiHat {
					aaAccepted = true
					c.xHat, c.xAA = c.xAA, c.xHat
					for i, xi := range c.xk {
						c.p[i] = c.xHat[i] - xi
					}
					psiHat = psiAA
					calcGradPsiFromHatY(c.xHat, c.yHatAA, c.gradPsiHat)
				}
			}
		}

		// Line search initialization.
		tau := 1.0
		sigmaNormGammaP := sigmaK * normSqP / (gamma * gamma)
		var fbeNext, psiNext, psiHatNext float64
		var gradPsiNextTpNext, normSqPNext float64
		var lipNext, sigmaNext, gammaNext float64
		var lsCond float64

		if k == 0 {
			tau = 0
		} else if !allFinite(c.q) {
			tau = 0
			stats.LBFGSFailures++
			s.direction.Reset()
		}

		// Backtrack τ until the forward-backward envelope decreases.
		for {
			lipNext, sigmaNext, gammaNext = lip, sigmaK, gamma

			if tau/2 < params.TauMin {
				// Line search failed: accept the safe prox step.
				c.xNext, c.xHat = c.xHat, c.xNext
				psiNext = psiHat
				c.gradPsiNext, c.gradPsiHat = c.gradPsiHat, c.gradPsiNext
			} else {
				for i, xi := range c.xk {
					c.xNext[i] = xi + (1-tau)*c.p[i] + tau*c.q[i]
				}
				psiNext = calcPsiGradPsi(c.xNext, c.gradPsiNext)
			}

			calcXHat(gammaNext, c.xNext, c.gradPsiNext, c.xHatNext, c.pNext)
			psiHatNext = calcPsiHatY(c.xHatNext, c.yHatNext)

			gradPsiNextTpNext = ddot(c.gradPsiNext, c.pNext)
			normSqPNext = ddot(c.pNext, c.pNext)
			normSqPNextAtGamma := normSqPNext // prox step with step size γₖ

			if params.UpdateLipschitzInLinesearch {
				oldGammaNext := gammaNext
				for psiHatNext-psiNext > gradPsiNextTpNext+0.5*lipNext*normSqPNext &&
					math.Abs(gradPsiNextTpNext/psiNext) > params.QuadraticUpperboundThreshold {
					lipNext *= 2
					sigmaNext /= 2
					gammaNext /= 2
					calcXHat(gammaNext, c.xNext, c.gradPsiNext, c.xHatNext, c.pNext)
					gradPsiNextTpNext = ddot(c.gradPsiNext, c.pNext)
					normSqPNext = ddot(c.pNext, c.pNext)
					psiHatNext = calcPsiHatY(c.xHatNext, c.yHatNext)
				}
				if gammaNext != oldGammaNext {
					s.direction.ChangedGamma(gammaNext, oldGammaNext)
					if aaEnabled {
						s.accel.ChangedGamma(gammaNext, oldGammaNext)
					}
				}
			}

			fbeNext = prox.FBE(psiNext, gammaNext, normSqPNext, gradPsiNextTpNext)
			tau /= 2

			lsCond = fbeNext - (fbe - sigmaNormGammaP)
			if params.AlternativeLinesearchCond {
				lsCond -= (0.5/gammaNext - 0.5/gamma) * normSqPNextAtGamma
			}
			if !(lsCond > 0 && tau >= params.TauMin) {
				break
			}
		}

		// τ < τ_min means the line search failed and the prox step was taken.
		if tau < params.TauMin && k != 0 {
			stats.LineSearchFailures++
		}

		if !s.direction.Update(c.xk, c.xNext, c.p, c.pNext, c.gradPsiNext, problem.C, gammaNext) {
			stats.LBFGSRejected++
		}

		// No-progress tracking with exact iterate equality.
		if noProgress > 0 || k%params.LBFGSMem == 0 {
			if vecEqual(c.xk, c.xNext) {
				noProgress++
			} else {
				noProgress = 0
			}
		}

		if aaEnabled && k > 0 {
			s.accel.Advance(aaAccepted)
		}

		// Advance: scalars copy forward, paired buffers swap in O(1).
		lip, sigmaK, gamma = lipNext, sigmaNext, gammaNext
		psi, psiHat, fbe = psiNext, psiHatNext, fbeNext
		c.xk, c.xNext = c.xNext, c.xk
		c.xHat, c.xHatNext = c.xHatNext, c.xHat
		c.yHat, c.yHatNext = c.yHatNext, c.yHat
		c.p, c.pNext = c.pNext, c.p
		c.gradPsi, c.gradPsiNext = c.gradPsiNext, c.gradPsi
		gradPsiTp = gradPsiNextTpNext
		normSqP = normSqPNext
	}
}
