// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrf

import "time"

// Clock is a monotonic time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the Go runtime monotonic clock.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ClockOr returns c, or SystemClock when c is nil.
func ClockOr(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}

// Spin busy-waits until done returns true or timeout elapses on c. It
// reports whether done returned true. It never sleeps: it must work where
// no scheduler tick is available.
func Spin(c Clock, timeout time.Duration, done func() bool) bool {
	end := c.Now().Add(timeout)
	for {
		if done() {
			return true
		}
		if !c.Now().Before(end) {
			return done()
		}
	}
}
