// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

// Logger is the subset of *log.Logger the drivers use for diagnostics.
type Logger interface {
	Printf(format string, v ...any)
}

// Discard drops everything. It is the default Logger.
var Discard Logger = discard{}

type discard struct{}

func (discard) Printf(string, ...any) {}

// LoggerOr returns l, or Discard when l is nil.
func LoggerOr(l Logger) Logger {
	if l == nil {
		return Discard
	}
	return l
}
