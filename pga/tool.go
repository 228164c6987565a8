// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pga

import "math"

// ddot computes the dot product of two vectors.
func ddot(x, y []float64) (dot float64) {
	if len(y) < len(x) {
		panic("bound check error")
	}
	for i, v := range x {
		dot += v * y[i]
	}
	return dot
}

// dnrm2 computes the Euclidean norm of a vector x.
func dnrm2(x []float64) float64 {
	scale, ssq := 0.0, 1.0
	if len(x) == 0 {
		return 0
	}
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
