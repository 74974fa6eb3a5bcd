// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrftest

import (
	"errors"

	"github.com/GermanBionicSystems/nrfx/nrf"
	"github.com/GermanBionicSystems/nrfx/prs"
	"periph.io/x/conn/v3/i2c"
)

// TWIM simulates the EasyDMA master. A start task runs the whole transaction
// on the attached bus, then raises the LAST* events and applies the
// shortcuts. TXD.PTR is latched when STARTTX is triggered, so the pointer can
// be swapped while the block is suspended.
//
// With FREQUENCY set to 0 a started transfer stalls after TXSTARTED.
type TWIM struct {
	block
	bus i2c.Bus

	// Async runs bus transactions on their own goroutine. Use it when the
	// target itself needs another goroutine to make progress, like a TWIS.
	Async bool
	// Hang makes the block ignore start and stop tasks.
	Hang bool

	mem      nrf.Memory
	maxCount int
	freq     nrf.Frequency
	addr     uint16
	txBuf    []byte
	rxBuf    []byte
	txAmount int
	rxAmount int
}

// NewTWIM returns a block talking to bus. box may be nil. The DMA counters
// are 16 bits wide and all memory is RAM until changed.
func NewTWIM(name string, bus i2c.Bus, box *prs.Box) *TWIM {
	t := &TWIM{bus: bus, mem: nrf.AllRAM, maxCount: 0xFFFF}
	t.init(name, box)
	return t
}

// SetMemory replaces the memory map used by Memory.
func (t *TWIM) SetMemory(m nrf.Memory) {
	t.mem = m
}

// SetMaxCount sets the largest MAXCNT value.
func (t *TWIM) SetMaxCount(n int) {
	t.maxCount = n
}

// Memory implements nrf.EasyDMA.
func (t *TWIM) Memory() nrf.Memory {
	return t.mem
}

// MaxCount implements nrf.EasyDMA.
func (t *TWIM) MaxCount() int {
	return t.maxCount
}

// SetFrequency implements nrf.TWIM.
func (t *TWIM) SetFrequency(f nrf.Frequency) {
	t.mu.Lock()
	t.freq = f
	t.mu.Unlock()
}

// Frequency implements nrf.TWIM.
func (t *TWIM) Frequency() nrf.Frequency {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.freq
}

// SetAddress implements nrf.TWIM.
func (t *TWIM) SetAddress(addr uint16) {
	t.mu.Lock()
	t.addr = addr
	t.mu.Unlock()
}

// SetTxBuffer implements nrf.EasyDMA.
func (t *TWIM) SetTxBuffer(b []byte) {
	t.mu.Lock()
	t.txBuf = b
	t.mu.Unlock()
}

// SetRxBuffer implements nrf.EasyDMA.
func (t *TWIM) SetRxBuffer(b []byte) {
	t.mu.Lock()
	t.rxBuf = b
	t.mu.Unlock()
}

// TxAmount implements nrf.EasyDMA.
func (t *TWIM) TxAmount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.txAmount
}

// RxAmount implements nrf.EasyDMA.
func (t *TWIM) RxAmount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rxAmount
}

// Trigger implements nrf.Block.
func (t *TWIM) Trigger(task nrf.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.taskLocked(task)
	switch task {
	case nrf.TaskStartTX:
		if t.Hang {
			return
		}
		t.txAmount = 0
		t.raiseLocked(nrf.EventTxStarted)
		if t.freq == nrf.FrequencyOff {
			return
		}
		addr, tx := t.addr, t.txBuf
		if t.shorts&nrf.ShortLastTxStartRx != 0 {
			rx := t.rxBuf
			t.rxAmount = 0
			t.runLocked(addr, tx, rx, func(err error) {
				if t.failedLocked(err) {
					return
				}
				t.txAmount = len(tx)
				t.raiseLocked(nrf.EventLastTx | nrf.EventRxStarted)
				t.rxAmount = len(rx)
				t.raiseLocked(nrf.EventLastRx)
				if t.shorts&nrf.ShortLastRxStop != 0 {
					t.raiseLocked(nrf.EventStopped)
				}
			})
			return
		}
		t.runLocked(addr, tx, nil, func(err error) {
			if t.failedLocked(err) {
				return
			}
			t.txAmount = len(tx)
			t.raiseLocked(nrf.EventLastTx)
			switch {
			case t.shorts&nrf.ShortLastTxStop != 0:
				t.raiseLocked(nrf.EventStopped)
			case t.shorts&nrf.ShortLastTxSuspend != 0:
				t.raiseLocked(nrf.EventSuspended)
			}
		})
	case nrf.TaskStartRX:
		if t.Hang {
			return
		}
		t.rxAmount = 0
		t.raiseLocked(nrf.EventRxStarted)
		if t.freq == nrf.FrequencyOff {
			return
		}
		rx := t.rxBuf
		t.runLocked(t.addr, nil, rx, func(err error) {
			if t.failedLocked(err) {
				return
			}
			t.rxAmount = len(rx)
			t.raiseLocked(nrf.EventLastRx)
			if t.shorts&nrf.ShortLastRxStop != 0 {
				t.raiseLocked(nrf.EventStopped)
			}
		})
	case nrf.TaskStop:
		if t.Hang {
			return
		}
		t.raiseLocked(nrf.EventStopped)
	case nrf.TaskSuspend:
		t.raiseLocked(nrf.EventSuspended)
	}
}

// runLocked performs the bus transaction and calls done with the lock held.
func (t *TWIM) runLocked(addr uint16, w, r []byte, done func(err error)) {
	finish := func(err error) {
		t.trace.add(Record{Block: t.name, Kind: KindBus, Addr: addr, W: w, R: r, Err: err})
		done(err)
	}
	if !t.Async {
		finish(t.bus.Tx(addr, w, r))
		return
	}
	go func() {
		err := t.bus.Tx(addr, w, r)
		t.mu.Lock()
		finish(err)
		t.mu.Unlock()
	}()
}

// failedLocked raises ERROR for a failed transaction. The block then waits
// for STOP.
func (t *TWIM) failedLocked(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDataNack) {
		t.errorLocked(nrf.ErrorDataNack)
	} else {
		t.errorLocked(nrf.ErrorAddressNack)
	}
	return true
}

var _ nrf.TWIM = &TWIM{}
