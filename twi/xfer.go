// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

import (
	"fmt"

	"github.com/GermanBionicSystems/nrfx/common"
	"github.com/GermanBionicSystems/nrfx/nrf"
)

const (
	xferEvents = nrf.EventStopped | nrf.EventError | nrf.EventTxdSent | nrf.EventRxdReady
	// supportedFlags are the flags the byte engine understands.
	supportedFlags = common.TxNoStop | common.NoXferEvtHandler
)

// Xfer starts x.
//
// Without a Handler it returns when the transfer is over, with the bus error
// if any. With a Handler it returns once the transfer is started and the
// outcome is delivered as an Event.
//
// TxRx and TxTx need a Handler. HoldXfer and RepeatedXfer are not supported
// by this block.
func (d *Dev) Xfer(x common.Xfer, flags common.Flags) error {
	return d.start(x, flags, nil)
}

// Write writes data to addr. With noStop the bus is left suspended so a
// following Read issues a repeated start.
func (d *Dev) Write(addr uint16, data []byte, noStop bool) error {
	var f common.Flags
	if noStop {
		f = common.TxNoStop
	}
	return d.Xfer(common.XferTx(addr, data), f)
}

// Read reads len(data) bytes from addr.
func (d *Dev) Read(addr uint16, data []byte) error {
	return d.Xfer(common.XferRx(addr, data), 0)
}

func (d *Dev) start(x common.Xfer, flags common.Flags, waiter chan Event) error {
	if err := x.Validate(); err != nil {
		return fmt.Errorf("twi: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.PoweredOn); err != nil {
		return fmt.Errorf("twi: %w", err)
	}
	if flags&^supportedFlags != 0 {
		return fmt.Errorf("twi: %w: flags %#x", common.ErrNotSupported, uint32(flags&^supportedFlags))
	}
	if x.Dir.Compound() && d.handler == nil {
		return fmt.Errorf("twi: %w: %s without a handler", common.ErrNotSupported, x.Dir)
	}
	if d.busy {
		return fmt.Errorf("twi: %w", common.ErrBusy)
	}

	if d.prev != suspendNone && x.Addr != d.xfer.Addr {
		// A suspended write to another device cannot be continued. The
		// block issues a repeated start with the new address on STARTTX, the
		// bus is not released in between.
		d.prev = suspendNone
	}
	d.hw.DisableInt(xferEvents)
	d.busy = true
	d.waiter = waiter
	d.xfer = x
	d.flags = flags
	d.secondary = false
	d.txAmount, d.rxAmount = 0, 0
	d.abort.Store(false)
	d.hw.SetAddress(x.Addr)
	d.hw.ErrorSrc()
	// An address probe always ends with STOP.
	d.load(x.Primary, x.Dir.Compound() || (x.Dir == common.Tx && x.Primary != nil && flags&common.TxNoStop != 0))

	var err error
	if x.Dir == common.Rx {
		err = d.startRxLocked()
	} else {
		err = d.startTxLocked()
	}
	if d.handler == nil {
		d.busy = false
		d.waiter = nil
	}
	return err
}

func (d *Dev) load(b []byte, noStop bool) {
	d.buf = b
	d.length = len(b)
	d.bytes = 0
	d.noStop = noStop
	d.failed = false
}

// rxPhase reports whether the current buffer is received.
func (d *Dev) rxPhase() bool {
	if d.secondary {
		return d.xfer.Dir == common.TxRx
	}
	return d.xfer.Dir == common.Rx
}

func (d *Dev) startTxLocked() error {
	d.hw.Clear(xferEvents)
	d.hw.SetShorts(0)
	d.hw.Trigger(nrf.TaskResume)
	if d.prev != suspendTx {
		d.hw.Trigger(nrf.TaskStartTX)
	}
	d.prev = suspendNone
	if !d.sendByteLocked() {
		return d.finishPhaseLocked().Err()
	}
	return d.runLocked()
}

func (d *Dev) startRxLocked() error {
	d.hw.Clear(xferEvents)
	if d.length == 1 {
		d.hw.SetShorts(nrf.ShortBBStop)
	} else {
		d.hw.SetShorts(nrf.ShortBBSuspend)
	}
	d.prev = suspendNone
	d.hw.Trigger(nrf.TaskResume)
	d.hw.Trigger(nrf.TaskStartRX)
	return d.runLocked()
}

// runLocked waits for the phase to end in blocking mode, or arms the
// interrupt otherwise.
func (d *Dev) runLocked() error {
	if d.handler != nil {
		d.hw.EnableInt(xferEvents)
		return nil
	}
	if !nrf.Spin(d.clock, d.opts.Timeout, func() bool { return !d.stepLocked() }) {
		d.log.Printf("%s: %s timed out after %d bytes", d.hw, d.xfer, d.bytes)
		d.resetLocked()
		return fmt.Errorf("twi: %w: transfer timed out", common.ErrInternal)
	}
	return d.finishPhaseLocked().Err()
}

// finishPhaseLocked accounts for the bytes of the buffer just done and
// returns the outcome.
func (d *Dev) finishPhaseLocked() EventType {
	if d.rxPhase() {
		d.rxAmount += d.bytes
	} else {
		d.txAmount += d.bytes
	}
	if !d.failed {
		return EventDone
	}
	return eventFor(d.hw.ErrorSrc())
}

// resetLocked power cycles the block to free a stuck state machine.
func (d *Dev) resetLocked() {
	d.hw.DisableInt(xferEvents)
	d.hw.SetShorts(0)
	d.hw.Disable()
	d.hw.Enable()
	d.prev = suspendNone
	d.busy = false
	d.waiter = nil
}

// stepLocked consumes one hardware event. It returns false once the current
// buffer is done.
func (d *Dev) stepLocked() bool {
	hw := d.hw
	// ERROR goes first: STARTTX on an empty buffer raises it together with
	// the STOPPED of the same transfer.
	if hw.Check(nrf.EventError) {
		d.errorLocked()
		return true
	}
	stopCheck := d.failed || d.bytes == d.length
	if stopCheck && hw.Check(nrf.EventStopped) {
		hw.Clear(nrf.EventStopped)
		return false
	}
	if hw.Check(nrf.EventTxdSent) {
		hw.Clear(nrf.EventTxdSent)
		d.bytes++
		if hw.Check(nrf.EventError) {
			d.errorLocked()
			return true
		}
		return d.sendByteLocked()
	}
	if hw.Check(nrf.EventRxdReady) {
		hw.Clear(nrf.EventRxdReady)
		if hw.Check(nrf.EventError) {
			d.errorLocked()
			return true
		}
		return d.receiveByteLocked()
	}
	if hw.Check(nrf.EventStopped) {
		// STOP before all the bytes moved.
		d.failed = true
	}
	return true
}

func (d *Dev) errorLocked() {
	d.hw.Clear(nrf.EventError)
	d.hw.SetShorts(0)
	d.hw.Trigger(nrf.TaskStop)
	d.failed = true
}

// sendByteLocked writes the next byte, or ends the buffer. It returns false
// when the bus was suspended and no more event is expected.
func (d *Dev) sendByteLocked() bool {
	if d.abort.Load() && d.bytes < d.length {
		d.length = d.bytes
	}
	if d.bytes < d.length {
		d.hw.WriteTXD(d.buf[d.bytes])
		return true
	}
	if d.noStop && !d.abort.Load() {
		d.hw.Trigger(nrf.TaskSuspend)
		d.prev = suspendTx
		return false
	}
	d.hw.Trigger(nrf.TaskStop)
	return true
}

// receiveByteLocked stores RXD and schedules the next byte. A read always
// ends with STOP.
func (d *Dev) receiveByteLocked() bool {
	if d.bytes >= d.length {
		return true
	}
	d.buf[d.bytes] = d.hw.ReadRXD()
	d.bytes++
	if d.abort.Load() && d.bytes < d.length {
		d.length = d.bytes
		d.hw.SetShorts(0)
		d.hw.Trigger(nrf.TaskStop)
		return true
	}
	switch d.bytes {
	case d.length - 1:
		d.hw.SetShorts(nrf.ShortBBStop)
	case d.length:
		// BB_STOP already fired.
		return true
	}
	d.hw.Trigger(nrf.TaskResume)
	return true
}

// irq advances the transfer from interrupt context.
func (d *Dev) irq() {
	d.mu.Lock()
	if d.state != common.PoweredOn || !d.busy {
		d.hw.DisableInt(xferEvents)
		d.mu.Unlock()
		return
	}
	if d.stepLocked() {
		d.mu.Unlock()
		return
	}
	t := d.finishPhaseLocked()
	// An abort during the first buffer stopped the bus: the second one is
	// dropped.
	if t == EventDone && d.xfer.Dir.Compound() && !d.secondary && !d.abort.Load() {
		d.secondary = true
		d.prev = suspendNone
		d.load(d.xfer.Secondary, d.xfer.Dir == common.TxTx && d.flags&common.TxNoStop != 0)
		if d.xfer.Dir == common.TxRx {
			_ = d.startRxLocked()
		} else {
			_ = d.startTxLocked()
		}
		d.mu.Unlock()
		return
	}
	if d.prev == suspendTx && d.abort.Load() {
		// Aborted right after the first buffer suspended the bus.
		d.hw.Trigger(nrf.TaskResume)
		d.hw.Trigger(nrf.TaskStop)
		d.prev = suspendNone
	}
	ev := Event{Type: t, Xfer: d.xfer, TxAmount: d.txAmount, RxAmount: d.rxAmount}
	d.hw.DisableInt(xferEvents)
	d.busy = false
	h, w := d.handler, d.waiter
	d.waiter = nil
	notify := d.flags&common.NoXferEvtHandler == 0 || ev.Type != EventDone
	d.mu.Unlock()
	if w != nil {
		w <- ev
		return
	}
	if notify && h != nil {
		h(ev)
	}
}
