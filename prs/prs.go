// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package prs implements the peripheral resource sharing arbiter.
//
// Several peripherals alias the same register block and interrupt vector:
// TWI0, TWIM0, TWIS0, SPI0 and friends form one box. Only one driver may own
// a box at a time; the box dispatches the shared interrupt to its owner.
package prs

import (
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/nrfx/common"
	"github.com/GermanBionicSystems/nrfx/nrf"
)

// Box is one group of peripherals sharing a register block.
type Box struct {
	name string

	mu      sync.Mutex
	owner   string
	handler func()
}

// NewBox returns an unowned box.
func NewBox(name string) *Box {
	return &Box{name: name}
}

func (b *Box) String() string {
	return b.name
}

// Acquire implements nrf.Arbiter.
func (b *Box) Acquire(owner string, irq func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.owner != "" {
		return fmt.Errorf("%w: %s is owned by %s", common.ErrBusy, b.name, b.owner)
	}
	b.owner = owner
	b.handler = irq
	return nil
}

// Release implements nrf.Arbiter. Releasing a box owned by someone else is a
// no-op.
func (b *Box) Release(owner string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.owner == owner {
		b.owner = ""
		b.handler = nil
	}
}

// Owner returns the current owner, or "" when the box is free.
func (b *Box) Owner() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

// IRQ is the shared interrupt vector: it calls the owner's handler.
func (b *Box) IRQ() {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h()
	}
}

var _ nrf.Arbiter = &Box{}
