// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrftest

import (
	"sync"
	"time"
	"unsafe"
)

// Clock advances by Step every time it is read, so spin loops with a
// deadline terminate after a predictable number of iterations.
type Clock struct {
	Step time.Duration

	mu sync.Mutex
	t  time.Time
}

// Now implements nrf.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	step := c.Step
	if step == 0 {
		step = time.Microsecond
	}
	c.t = c.t.Add(step)
	return c.t
}

// Memory is a memory map where everything is RAM except the buffers marked
// as flash.
type Memory struct {
	mu    sync.Mutex
	flash [][]byte
}

// Flash marks b as flash and returns it.
func (m *Memory) Flash(b []byte) []byte {
	m.mu.Lock()
	m.flash = append(m.flash, b)
	m.mu.Unlock()
	return b
}

// InRAM implements nrf.Memory.
func (m *Memory) InRAM(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.flash {
		base := uintptr(unsafe.Pointer(unsafe.SliceData(f)))
		if p >= base && p < base+uintptr(cap(f)) {
			return false
		}
	}
	return true
}
