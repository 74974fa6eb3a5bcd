// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrftest

import (
	"github.com/GermanBionicSystems/nrfx/nrf"
	"github.com/GermanBionicSystems/nrfx/prs"
)

type phase uint8

const (
	phaseIdle phase = iota
	phaseTx
	phaseRx
	// phaseError waits for STOP after an error.
	phaseError
)

// TWI simulates the byte-wise master. TXD is sent as soon as it is written,
// RX bytes are clocked on STARTRX and RESUME. The BB shortcuts are applied
// after each received byte.
type TWI struct {
	block
	target Target

	// Hang makes the block ignore start tasks and TXD writes, as if SCL was
	// held low forever.
	Hang bool

	freq      nrf.Frequency
	addr      uint16
	phase     phase
	suspended bool
	rxd       byte
}

// NewTWI returns a block driving target. box may be nil.
func NewTWI(name string, target Target, box *prs.Box) *TWI {
	t := &TWI{target: target}
	t.init(name, box)
	return t
}

// SetFrequency implements nrf.TWI.
func (t *TWI) SetFrequency(f nrf.Frequency) {
	t.mu.Lock()
	t.freq = f
	t.mu.Unlock()
}

// Frequency returns the programmed frequency.
func (t *TWI) Frequency() nrf.Frequency {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.freq
}

// SetAddress implements nrf.TWI.
func (t *TWI) SetAddress(addr uint16) {
	t.mu.Lock()
	t.addr = addr
	t.mu.Unlock()
}

// Disable implements nrf.Block. It also resets the bus state machine.
func (t *TWI) Disable() {
	t.block.Disable()
	t.mu.Lock()
	t.phase = phaseIdle
	t.suspended = false
	t.mu.Unlock()
}

// Trigger implements nrf.Block.
func (t *TWI) Trigger(task nrf.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.taskLocked(task)
	switch task {
	case nrf.TaskStartTX:
		if t.Hang {
			return
		}
		t.phase = phaseTx
		t.suspended = false
		if !t.target.Start(t.addr, false) {
			t.phase = phaseError
			t.errorLocked(nrf.ErrorAddressNack)
		}
	case nrf.TaskStartRX:
		if t.Hang {
			return
		}
		t.phase = phaseRx
		t.suspended = false
		if !t.target.Start(t.addr, true) {
			t.phase = phaseError
			t.errorLocked(nrf.ErrorAddressNack)
			return
		}
		t.receiveLocked()
	case nrf.TaskStop:
		if t.Hang {
			return
		}
		t.stopLocked()
	case nrf.TaskSuspend:
		t.suspended = true
	case nrf.TaskResume:
		if t.phase == phaseRx && t.suspended {
			t.suspended = false
			t.receiveLocked()
			return
		}
		t.suspended = false
	}
}

// WriteTXD implements nrf.TWI.
func (t *TWI) WriteTXD(b byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Hang || t.phase != phaseTx {
		return
	}
	if !t.target.WriteByte(b) {
		t.phase = phaseError
		t.errorLocked(nrf.ErrorDataNack)
		return
	}
	t.raiseLocked(nrf.EventTxdSent)
}

// ReadRXD implements nrf.TWI.
func (t *TWI) ReadRXD() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rxd
}

func (t *TWI) receiveLocked() {
	if t.events&nrf.EventRxdReady != 0 {
		// The previous byte was never picked up.
		t.errsrc |= nrf.ErrorOverrun
	}
	t.rxd = t.target.ReadByte()
	t.raiseLocked(nrf.EventRxdReady | nrf.EventBB)
	switch {
	case t.shorts&nrf.ShortBBStop != 0:
		t.stopLocked()
	default:
		// BB_SUSPEND, or no shortcut: hold SCL until RESUME.
		t.suspended = true
	}
}

func (t *TWI) stopLocked() {
	if t.phase != phaseIdle {
		t.target.Stop()
	}
	t.phase = phaseIdle
	t.suspended = false
	t.raiseLocked(nrf.EventStopped)
}

var _ nrf.TWI = &TWI{}
