// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twim

import (
	"fmt"

	"github.com/GermanBionicSystems/nrfx/common"
	"github.com/GermanBionicSystems/nrfx/nrf"
)

const (
	xferEvents = nrf.EventStopped | nrf.EventError | nrf.EventSuspended |
		nrf.EventLastTx | nrf.EventLastRx | nrf.EventTxStarted | nrf.EventRxStarted
	allFlags = common.TxNoStop | common.HoldXfer | common.NoXferEvtHandler |
		common.RepeatedXfer | common.NoSpuriousStopCheck
	// interruptFlags need a Handler.
	interruptFlags = common.HoldXfer | common.NoXferEvtHandler | common.RepeatedXfer
)

// Xfer starts x.
//
// Without a Handler it returns when the transfer is over, with the bus error
// if any. With a Handler it returns once the transfer is started and the
// outcome is delivered as an Event.
//
// TxTx needs a Handler and cannot be combined with HoldXfer, RepeatedXfer or
// NoXferEvtHandler. HoldXfer, RepeatedXfer and NoXferEvtHandler need a
// Handler.
func (d *Dev) Xfer(x common.Xfer, flags common.Flags) error {
	return d.start(x, flags, nil)
}

// Write writes data to addr. With noStop the bus is left suspended so a
// following transfer issues a repeated start.
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
		return fmt.Errorf("twim: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.PoweredOn); err != nil {
		return fmt.Errorf("twim: %w", err)
	}
	if err := d.checkLocked(x, flags); err != nil {
		return fmt.Errorf("twim: %w", err)
	}
	if d.busy {
		return fmt.Errorf("twim: %w", common.ErrBusy)
	}

	hw := d.hw
	d.xfer = x
	d.flags = flags
	d.repeated = flags&common.RepeatedXfer != 0
	d.primaryDone = false
	d.busy = flags&(common.NoXferEvtHandler|common.RepeatedXfer) == 0
	d.waiter = waiter
	hw.DisableInt(nrf.AllEvents)
	hw.Clear(xferEvents)
	hw.ErrorSrc()
	hw.SetAddress(x.Addr)

	var (
		start nrf.Task
		wait  = nrf.EventStopped
		mask  = nrf.EventStopped | nrf.EventError
	)
	switch x.Dir {
	case common.Tx:
		hw.SetTxBuffer(x.Primary)
		if flags&common.TxNoStop != 0 {
			hw.SetShorts(nrf.ShortLastTxSuspend)
			wait = nrf.EventSuspended
			mask |= nrf.EventSuspended
		} else {
			hw.SetShorts(nrf.ShortLastTxStop)
		}
		start = nrf.TaskStartTX
		hw.Trigger(nrf.TaskResume)
	case common.Rx:
		hw.SetRxBuffer(x.Primary)
		hw.SetShorts(nrf.ShortLastRxStop)
		start = nrf.TaskStartRX
	case common.TxRx:
		hw.SetTxBuffer(x.Primary)
		hw.SetRxBuffer(x.Secondary)
		hw.SetShorts(nrf.ShortLastTxStartRx | nrf.ShortLastRxStop)
		start = nrf.TaskStartTX
		hw.Trigger(nrf.TaskResume)
	case common.TxTx:
		hw.SetShorts(nrf.ShortLastTxSuspend)
		hw.SetTxBuffer(x.Primary)
		hw.Trigger(nrf.TaskResume)
		hw.Trigger(nrf.TaskStartTX)
		// TXD.PTR is latched once TXSTARTED fires: the secondary buffer
		// can be queued right away.
		if !nrf.Spin(d.clock, d.opts.Timeout, func() bool { return hw.Check(nrf.EventTxStarted) }) {
			d.log.Printf("%s: %s never started", hw, x)
			d.resetLocked()
			return fmt.Errorf("twim: %w: transfer did not start", common.ErrInternal)
		}
		hw.Clear(nrf.EventTxStarted)
		hw.SetTxBuffer(x.Secondary)
		mask = nrf.EventSuspended | nrf.EventStopped | nrf.EventError
	}
	d.startTask = start

	if x.Dir != common.TxTx && flags&common.HoldXfer == 0 {
		if d.handler != nil && d.opts.Quirk != nil {
			mask |= d.opts.Quirk.BeforeStart(hw, start)
		}
		hw.Trigger(start)
	}
	if d.handler != nil {
		d.intMask = mask
		hw.EnableInt(mask)
		return nil
	}
	return d.pollLocked(wait)
}

// checkLocked validates x against the mode and the DMA limits.
func (d *Dev) checkLocked(x common.Xfer, flags common.Flags) error {
	if flags&^allFlags != 0 {
		return fmt.Errorf("%w: flags %#x", common.ErrNotSupported, uint32(flags&^allFlags))
	}
	if d.handler == nil && flags&interruptFlags != 0 {
		return fmt.Errorf("%w: flags %#x without a handler", common.ErrNotSupported, uint32(flags&interruptFlags))
	}
	if x.Dir == common.TxTx && (d.handler == nil || flags&interruptFlags != 0) {
		return fmt.Errorf("%w: %s in this mode", common.ErrNotSupported, x.Dir)
	}
	if !nrf.InRAM(d.hw.Memory(), x.Primary, x.Secondary) {
		return common.ErrInvalidAddr
	}
	if max := d.hw.MaxCount(); len(x.Primary) > max || len(x.Secondary) > max {
		return fmt.Errorf("%w: %d bytes max", common.ErrInvalidLength, max)
	}
	return nil
}

// pollLocked spins until the transfer ends.
func (d *Dev) pollLocked(wait nrf.Event) error {
	hw := d.hw
	ok := nrf.Spin(d.clock, d.opts.Timeout, func() bool {
		if hw.Check(wait) {
			return true
		}
		if hw.Check(nrf.EventError) {
			hw.Clear(nrf.EventError)
			hw.Trigger(nrf.TaskResume)
			hw.Trigger(nrf.TaskStop)
			wait = nrf.EventStopped
		}
		return false
	})
	d.busy = false
	d.waiter = nil
	if !ok {
		d.log.Printf("%s: %s timed out", hw, d.xfer)
		d.resetLocked()
		return fmt.Errorf("twim: %w: transfer timed out", common.ErrInternal)
	}
	hw.Clear(wait | nrf.EventLastTx | nrf.EventLastRx)
	if src := hw.ErrorSrc(); src != 0 {
		return fmt.Errorf("twim: %w", eventFor(src).Err())
	}
	if d.flags&common.NoSpuriousStopCheck == 0 && !d.completeLocked() {
		return fmt.Errorf("twim: %w: transfer stopped early", common.ErrInternal)
	}
	return nil
}

// completeLocked reports whether the DMA amounts match the buffers.
func (d *Dev) completeLocked() bool {
	x := &d.xfer
	switch x.Dir {
	case common.Tx:
		return d.hw.TxAmount() == len(x.Primary)
	case common.Rx:
		return d.hw.RxAmount() == len(x.Primary)
	case common.TxRx:
		return d.hw.TxAmount() == len(x.Primary) && d.hw.RxAmount() == len(x.Secondary)
	case common.TxTx:
		return d.hw.TxAmount() == len(x.Secondary)
	}
	return false
}

// irq runs in interrupt context.
func (d *Dev) irq() {
	d.mu.Lock()
	hw := d.hw
	if d.state != common.PoweredOn || d.intMask == 0 {
		hw.DisableInt(nrf.AllEvents)
		d.mu.Unlock()
		return
	}
	if q := d.opts.Quirk; q != nil && q.IRQ(hw, d.freq) {
		d.mu.Unlock()
		return
	}
	if hw.Check(nrf.EventError) {
		hw.Clear(nrf.EventError)
		if !hw.Check(nrf.EventStopped) {
			// Stop the bus, report once STOPPED.
			hw.DisableInt(nrf.AllEvents)
			d.intMask = nrf.EventStopped | nrf.EventError
			hw.EnableInt(d.intMask)
			hw.Trigger(nrf.TaskResume)
			hw.Trigger(nrf.TaskStop)
			d.mu.Unlock()
			return
		}
	}
	switch {
	case hw.Check(nrf.EventStopped):
		hw.Clear(nrf.EventStopped)
	case hw.Check(nrf.EventSuspended):
		hw.Clear(nrf.EventSuspended)
		if d.xfer.Dir == common.TxTx {
			// First buffer sent, TXD.PTR already points at the second.
			d.primaryDone = true
			hw.SetShorts(nrf.ShortLastTxStop)
			hw.DisableInt(nrf.AllEvents)
			d.intMask = nrf.EventStopped | nrf.EventError
			hw.EnableInt(d.intMask)
			hw.Trigger(nrf.TaskStartTX)
			hw.Trigger(nrf.TaskResume)
			d.mu.Unlock()
			return
		}
	default:
		d.mu.Unlock()
		return
	}
	hw.Clear(nrf.EventLastTx | nrf.EventLastRx)

	ev := Event{Type: EventDone, Xfer: d.xfer, TxAmount: hw.TxAmount(), RxAmount: hw.RxAmount()}
	if d.primaryDone {
		// TXD.AMOUNT only counts the second buffer.
		ev.TxAmount += len(d.xfer.Primary)
	}
	if src := hw.ErrorSrc(); src != 0 {
		ev.Type = eventFor(src)
	} else if d.flags&common.NoSpuriousStopCheck == 0 && !d.completeLocked() {
		ev.Type = EventBusError
	}
	if !d.repeated || ev.Type != EventDone {
		hw.SetShorts(0)
		hw.DisableInt(nrf.AllEvents)
		d.intMask = 0
		d.repeated = false
	}
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
