// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import "sync/atomic"

// StopSignal is a cooperative cancellation flag shared between the solver
// goroutine and any other goroutine that wants to interrupt it.
// The zero value is ready to use and not raised.
type StopSignal struct {
	flag atomic.Bool
}

// Stop raises the signal. Safe to call from any goroutine, any number of times.
func (s *StopSignal) Stop() {
	s.flag.Store(true)
}

// StopRequested reports whether the signal was raised.
// The solver checks it once per iteration.
func (s *StopSignal) StopRequested() bool {
	return s.flag.Load()
}
