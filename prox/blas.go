// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import "math"

// ddot computes the dot product of two vectors.
func ddot(x, y []float64) (dot float64) {
	n := uint(len(x))
	m := n % 5
	if m > n || m > uint(len(y)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		dot += x[i] * y[i]
	}
	if n < 5 {
		return dot
	}
	for i := m; i < n; i += 5 {
		a := x[i : i+5 : i+5]
		b := y[i : i+5 : i+5]
		dot += a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3] + a[4]*b[4]
	}
	return dot
}

// daxpy performs constant times a vector plus a vector operation.
func daxpy(da float64, x, y []float64) {
	if da == 0 {
		return
	}
	n := uint(len(x))
	m := n % 4
	if m > n || m > uint(len(y)) {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		y[i] += da * x[i]
	}
	if n < 4 {
		return
	}
	for i := m; i < n; i += 4 {
		a := x[i : i+4 : i+4]
		b := y[i : i+4 : i+4]
		b[0] += da * a[0]
		b[1] += da * a[1]
		b[2] += da * a[2]
		b[3] += da * a[3]
	}
}

// dscal scales a vector by a constant.
func dscal(da float64, x []float64) {
	n := uint(len(x))
	m := n % 5
	if m > n {
		panic("bound check error")
	}
	for i := uint(0); i < m; i++ {
		x[i] *= da
	}
	if n < 5 {
		return
	}
	for i := m; i < n; i += 5 {
		a := x[i : i+5 : i+5]
		a[0] *= da
		a[1] *= da
		a[2] *= da
		a[3] *= da
		a[4] *= da
	}
}

// dcopy copies a vector x to a vector y.
func dcopy(x, y []float64) {
	copy(y[:len(x)], x)
}

// dnrm2 computes the Euclidean norm of a vector x.
func dnrm2(x []float64) float64 {
	switch len(x) {
	case 0:
		return zero
	case 1:
		return math.Abs(x[0])
	}
	scale := zero
	ssq := one
	for _, v := range x {
		if absxi := math.Abs(v); absxi > 0 {
			if scale < absxi {
				sxi := scale / absxi
				ssq = 1 + ssq*sxi*sxi
				scale = absxi
			} else {
				sxi := absxi / scale
				ssq += sxi * sxi
			}
		}
	}
	return scale * math.Sqrt(ssq)
}
