// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package prox provides the problem contract and the primitive
// forward-backward operations shared by the PANOC and PGA inner solvers:
// ψ/∇ψ evaluation for the Augmented Lagrangian smooth part, the proximal
// step, the stationarity stop criterion, the initial Lipschitz estimate,
// and the common solver plumbing (status, statistics, stop signal, logger).
package prox

import (
	"math"
	"time"
)

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	half = 0.5
)

// Epsilon is the double precision machine epsilon.
var Epsilon = math.Nextafter(1, 2) - 1

// SolverStatus reports why an inner solver returned.
type SolverStatus int

const (
	// Unknown initial status before the solver returns.
	Unknown SolverStatus = iota
	// Converged stop criterion satisfied: ε̂ₖ ≤ ε.
	Converged
	// MaxTime wall-clock budget exhausted.
	MaxTime
	// MaxIter iteration budget exhausted.
	MaxIter
	// NotFinite stop criterion or initial Lipschitz estimate is NaN or ±Inf.
	NotFinite
	// NoProgress too many consecutive iterations produced the exact same iterate.
	NoProgress
	// Interrupted stop signal raised by another goroutine.
	Interrupted
)

func (s SolverStatus) String() string {
	switch s {
	case Converged:
		return "Converged"
	case MaxTime:
		return "MaxTime"
	case MaxIter:
		return "MaxIter"
	case NotFinite:
		return "NotFinite"
	case NoProgress:
		return "NoProgress"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown"
	}
}

// Stats summarize one inner solver invocation.
type Stats struct {
	// Number of iterations performed before returning.
	Iterations int
	// The stop criterion value ε̂ at the final iterate.
	Eps float64
	// Wall-clock time between entry and return.
	Elapsed time.Duration
	// Final solver status.
	Status SolverStatus
	// Number of line searches that fell below τ_min.
	LineSearchFailures int
	// Number of non-finite quasi-Newton directions recovered from.
	LBFGSFailures int
	// Number of curvature pairs rejected by the direction provider.
	LBFGSRejected int
}
