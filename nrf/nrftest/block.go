// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrftest

import (
	"sync"

	"github.com/GermanBionicSystems/nrfx/nrf"
	"github.com/GermanBionicSystems/nrfx/prs"
)

// block holds the registers every simulated flavour shares.
type block struct {
	name string
	irq  *Interrupt
	box  *prs.Box

	mu       sync.Mutex
	enabled  bool
	enables  int
	disables int
	events   nrf.Event
	inten    nrf.Event
	shorts   nrf.Short
	errsrc   nrf.ErrorSrc
	scl, sda int
	tasks    []nrf.Task
	trace    *Trace
}

func (b *block) init(name string, box *prs.Box) {
	b.name = name
	b.box = box
	b.irq = NewInterrupt(b.pending)
	if box != nil {
		b.irq.SetHandler(box.IRQ)
	}
}

func (b *block) pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events&b.inten != 0
}

func (b *block) String() string {
	return b.name
}

// Enable implements nrf.Block.
func (b *block) Enable() {
	b.mu.Lock()
	b.enabled = true
	b.enables++
	b.mu.Unlock()
}

// Disable implements nrf.Block.
func (b *block) Disable() {
	b.mu.Lock()
	b.enabled = false
	b.disables++
	b.mu.Unlock()
}

// Check implements nrf.Block.
func (b *block) Check(e nrf.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events&e != 0
}

// Clear implements nrf.Block.
func (b *block) Clear(e nrf.Event) {
	b.mu.Lock()
	b.events &^= e
	b.mu.Unlock()
}

// SetShorts implements nrf.Block.
func (b *block) SetShorts(s nrf.Short) {
	b.mu.Lock()
	b.shorts = s
	b.mu.Unlock()
}

// Shorts implements nrf.Block.
func (b *block) Shorts() nrf.Short {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shorts
}

// EnableInt implements nrf.Block.
func (b *block) EnableInt(e nrf.Event) {
	b.mu.Lock()
	b.inten |= e
	b.mu.Unlock()
	b.irq.Kick()
}

// DisableInt implements nrf.Block.
func (b *block) DisableInt(e nrf.Event) {
	b.mu.Lock()
	b.inten &^= e
	b.mu.Unlock()
}

// ErrorSrc implements nrf.Block.
func (b *block) ErrorSrc() nrf.ErrorSrc {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.errsrc
	b.errsrc = 0
	return e
}

// SetPins implements nrf.Block.
func (b *block) SetPins(scl, sda int) {
	b.mu.Lock()
	b.scl, b.sda = scl, sda
	b.mu.Unlock()
}

// IRQ implements nrf.Block.
func (b *block) IRQ() nrf.Interrupt {
	return b.irq
}

// Arbiter implements nrf.Block.
func (b *block) Arbiter() nrf.Arbiter {
	if b.box == nil {
		return nil
	}
	return b.box
}

// Line returns the simulated interrupt line.
func (b *block) Line() *Interrupt {
	return b.irq
}

// SetTrace records tasks, events and bus transactions into t.
func (b *block) SetTrace(t *Trace) {
	b.mu.Lock()
	b.trace = t
	b.mu.Unlock()
}

// Raise sets events as if the hardware generated them.
func (b *block) Raise(e nrf.Event) {
	b.mu.Lock()
	b.raiseLocked(e)
	b.mu.Unlock()
}

// SetErrorSrc ORs bits into ERRORSRC.
func (b *block) SetErrorSrc(e nrf.ErrorSrc) {
	b.mu.Lock()
	b.errsrc |= e
	b.mu.Unlock()
}

// Events returns the events currently set.
func (b *block) Events() nrf.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events
}

// IntEnabled returns the INTEN register.
func (b *block) IntEnabled() nrf.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inten
}

// Enabled reports whether the block is enabled.
func (b *block) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Resets returns how many times the block was disabled then enabled again.
func (b *block) Resets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.enables == 0 {
		return 0
	}
	return b.enables - 1
}

// Pins returns the selected SCL and SDA pins.
func (b *block) Pins() (scl, sda int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scl, b.sda
}

// Tasks returns every task triggered so far.
func (b *block) Tasks() []nrf.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]nrf.Task(nil), b.tasks...)
}

func (b *block) raiseLocked(e nrf.Event) {
	b.events |= e
	b.trace.add(Record{Block: b.name, Kind: KindEvent, Name: e.String()})
	b.irq.Kick()
}

func (b *block) taskLocked(t nrf.Task) {
	b.tasks = append(b.tasks, t)
	b.trace.add(Record{Block: b.name, Kind: KindTask, Name: t.String()})
}

func (b *block) errorLocked(e nrf.ErrorSrc) {
	b.errsrc |= e
	b.raiseLocked(nrf.EventError)
}
