// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package panoc

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

// dcopy copies a vector x to a vector y.
func dcopy(x, y []float64) {
	copy(y[:len(x)], x)
}

// dnrm2 computes the Euclidean norm of a vector x.
func dnrm2(x []float64) float64 {
	switch len(x) {
	case 0:
		return 0
	case 1:
		return math.Abs(x[0])
	}
	scale, ssq := 0.0, 1.0
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

// allFinite reports whether every entry of x is neither NaN nor ±Inf.
func allFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// vecEqual reports exact elementwise equality.
func vecEqual(x, y []float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i, v := range x {
		if v != y[i] {
			return false
		}
	}
	return true
}
