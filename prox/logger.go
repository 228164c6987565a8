// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import (
	"fmt"
	"io"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogProgress print per-iteration progress lines
	LogProgress LogLevel = 0
)

// Logger handles progress output for the inner solvers.
// Note the writer must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
}

// Enable reports whether messages at the given level are printed.
func (l *Logger) Enable(level LogLevel) bool {
	return l != nil && l.Msg != nil && l.Level >= level
}

// Logf writes a formatted message to the log writer.
func (l *Logger) Logf(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}
