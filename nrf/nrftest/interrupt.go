// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrftest

import (
	"sync"

	"github.com/GermanBionicSystems/nrfx/nrf"
)

// maxServiced bounds back to back handler calls for one kick so a handler
// that never clears its event cannot spin forever.
const maxServiced = 10000

// Interrupt is a simulated interrupt line. The handler runs on a goroutine
// owned by the line and never runs concurrently with itself.
type Interrupt struct {
	pending func() bool

	mu       sync.Mutex
	handler  func()
	enabled  bool
	priority uint8
	calls    int

	kick  chan struct{}
	start sync.Once
}

// NewInterrupt returns a disabled line. pending reports whether the block
// has an enabled event set.
func NewInterrupt(pending func() bool) *Interrupt {
	return &Interrupt{pending: pending, kick: make(chan struct{}, 1)}
}

// SetHandler implements nrf.Interrupt.
func (i *Interrupt) SetHandler(h func()) {
	i.mu.Lock()
	i.handler = h
	i.mu.Unlock()
}

// SetPriority implements nrf.Interrupt.
func (i *Interrupt) SetPriority(p uint8) {
	i.mu.Lock()
	i.priority = p
	i.mu.Unlock()
}

// Priority returns the last priority set.
func (i *Interrupt) Priority() uint8 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.priority
}

// Enable implements nrf.Interrupt.
func (i *Interrupt) Enable() {
	i.mu.Lock()
	i.enabled = true
	i.mu.Unlock()
	i.Kick()
}

// Disable implements nrf.Interrupt.
func (i *Interrupt) Disable() {
	i.mu.Lock()
	i.enabled = false
	i.mu.Unlock()
}

// Enabled reports whether the line is enabled.
func (i *Interrupt) Enabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enabled
}

// Calls returns how many times the handler ran.
func (i *Interrupt) Calls() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

// Kick asks the line to check for pending events. It never blocks.
func (i *Interrupt) Kick() {
	i.start.Do(func() { go i.run() })
	select {
	case i.kick <- struct{}{}:
	default:
	}
}

func (i *Interrupt) run() {
	for range i.kick {
		for n := 0; n < maxServiced; n++ {
			i.mu.Lock()
			h, en := i.handler, i.enabled
			i.mu.Unlock()
			if !en || h == nil || !i.pending() {
				break
			}
			h()
			i.mu.Lock()
			i.calls++
			i.mu.Unlock()
		}
	}
}

var _ nrf.Interrupt = &Interrupt{}
