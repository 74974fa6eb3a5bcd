// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import "sync/atomic"

// ErrorAccumulator collects error bits set from interrupt context and lets
// any other context read and clear them in one step. A bit added before a
// Drain is returned by exactly one Drain.
type ErrorAccumulator struct {
	v atomic.Uint32
}

// Add sets bits.
func (a *ErrorAccumulator) Add(bits uint32) {
	for {
		old := a.v.Load()
		if old&bits == bits || a.v.CompareAndSwap(old, old|bits) {
			return
		}
	}
}

// Drain returns the accumulated bits and clears them.
func (a *ErrorAccumulator) Drain() uint32 {
	return a.v.Swap(0)
}

// Peek returns the accumulated bits without clearing them.
func (a *ErrorAccumulator) Peek() uint32 {
	return a.v.Load()
}
