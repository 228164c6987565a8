// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package anderson

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LimitedMemoryQR is an incremental QR factorization of a tall matrix whose
// columns live in a ring of fixed capacity m.
//
// Columns are inserted with modified Gram-Schmidt and evicted oldest-first,
// re-triangularizing R with Givens rotations. The orthonormal basis Q is
// stored in physical ring order so companion column histories (like the
// Anderson g history) can share the same ring indices; R is kept in logical
// (oldest-first) order.
type LimitedMemoryQR struct {
	n, m  int
	q     []float64 // n×m basis, physical column j at [j*n : (j+1)*n]
	r     []float64 // m×m upper triangular, logical column j at [j*m : j*m+j+1]
	work  []float64 // n-vector carried through Givens updates of Q
	head  int       // physical index of the oldest column
	count int       // number of stored columns
}

// Resize sets the dimensions and clears the factorization.
func (qr *LimitedMemoryQR) Resize(n, m int) {
	if qr.n != n || qr.m != m {
		qr.n, qr.m = n, m
		qr.q = make([]float64, n*m)
		qr.r = make([]float64, m*m)
		qr.work = make([]float64, n)
	}
	qr.Reset()
}

// Reset drops all columns.
func (qr *LimitedMemoryQR) Reset() {
	qr.head, qr.count = 0, 0
}

// NumColumns returns the number of columns currently stored.
func (qr *LimitedMemoryQR) NumColumns() int { return qr.count }

// RingHead returns the physical index of the oldest column.
func (qr *LimitedMemoryQR) RingHead() int { return qr.head }

// RingTail returns the physical index one past the newest column: the slot
// the next insertion lands in. Companion histories that lead the factorized
// columns by one entry (the Anderson g history holds count+1 images for
// count residual differences) store their newest entry there.
func (qr *LimitedMemoryQR) RingTail() int {
	return (qr.head + qr.count) % qr.m
}

// RingNext returns the physical index following i in insertion order.
func (qr *LimitedMemoryQR) RingNext(i int) int { return (i + 1) % qr.m }

// AddColumn appends v as the newest column of the factorized matrix.
// The ring must not be full.
func (qr *LimitedMemoryQR) AddColumn(v []float64) {
	if qr.count >= qr.m {
		panic("anderson: QR ring is full")
	}
	n, c := qr.n, qr.count
	phys := (qr.head + c) % qr.m
	qn := qr.q[phys*n : (phys+1)*n]
	rc := qr.r[c*qr.m:]
	copy(qn, v[:n])

	// modified Gram-Schmidt against the existing basis
	for i := 0; i < c; i++ {
		pi := (qr.head + i) % qr.m
		qi := qr.q[pi*n : (pi+1)*n]
		s := floats.Dot(qi, qn)
		rc[i] = s
		floats.AddScaled(qn, -s, qi)
	}
	norm := floats.Norm(qn, 2)
	rc[c] = norm
	floats.Scale(1/norm, qn)
	qr.count++
}

// RemoveColumn evicts the oldest column, restoring R to upper triangular
// form with Givens rotations and rotating the stored basis to match.
// The ring head advances, so physical indices of the remaining columns
// are unchanged.
func (qr *LimitedMemoryQR) RemoveColumn() {
	if qr.count == 0 {
		panic("anderson: QR ring is empty")
	}
	n, m, c := qr.n, qr.m, qr.count

	// Drop the first logical column of R: shift the rest left,
	// leaving an upper Hessenberg matrix.
	for j := 1; j < c; j++ {
		copy(qr.r[(j-1)*m:(j-1)*m+j+1], qr.r[j*m:j*m+j+1])
	}

	// Givens rotations zero the subdiagonal of R. The same rotations are
	// applied to the basis so the retained vectors settle into physical
	// slots head+1 … head+c-1, advancing the ring head by one.
	t := qr.work
	copy(t, qr.q[qr.head*n:qr.head*n+n])
	for i := 0; i < c-1; i++ {
		a, b := qr.r[i*m+i], qr.r[i*m+i+1]
		rr := math.Hypot(a, b)
		cs, sn := a/rr, b/rr
		qr.r[i*m+i] = rr
		qr.r[i*m+i+1] = 0
		for j := i + 1; j < c-1; j++ {
			t1, t2 := qr.r[j*m+i], qr.r[j*m+i+1]
			qr.r[j*m+i] = cs*t1 + sn*t2
			qr.r[j*m+i+1] = cs*t2 - sn*t1
		}
		phys := (qr.head + i + 1) % m
		qb := qr.q[phys*n : (phys+1)*n]
		for e := 0; e < n; e++ {
			te, be := t[e], qb[e]
			qb[e] = cs*te + sn*be
			t[e] = cs*be - sn*te
		}
	}

	qr.head = (qr.head + 1) % m
	qr.count--
}

// SolveCol solves the least squares problem 𝚖𝚒𝚗 ‖Ax - b‖ for the factorized
// matrix A, writing the first NumColumns entries of x.
func (qr *LimitedMemoryQR) SolveCol(b, x []float64) {
	n, m, c := qr.n, qr.m, qr.count
	// x = Qᵀb
	for i := 0; i < c; i++ {
		pi := (qr.head + i) % m
		x[i] = floats.Dot(qr.q[pi*n:(pi+1)*n], b[:n])
	}
	// back substitution Rx = Qᵀb
	for i := c - 1; i >= 0; i-- {
		acc := x[i]
		for j := i + 1; j < c; j++ {
			acc -= qr.r[j*m+i] * x[j]
		}
		x[i] = acc / qr.r[i*m+i]
	}
}

// ScaleR multiplies the R factor by a scalar. Used when the proximal step
// size changes: the stored residual differences are linear in γ.
func (qr *LimitedMemoryQR) ScaleR(alpha float64) {
	for j := 0; j < qr.count; j++ {
		floats.Scale(alpha, qr.r[j*qr.m:j*qr.m+j+1])
	}
}
