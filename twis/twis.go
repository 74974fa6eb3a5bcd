// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twis

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/GermanBionicSystems/nrfx/common"
	"github.com/GermanBionicSystems/nrfx/nrf"
	"periph.io/x/conn/v3/gpio"
)

// Opts holds the configuration passed to Init.
type Opts struct {
	SCL gpio.PinIO
	SDA gpio.PinIO
	// Addr holds up to two addresses to answer to. Zero disables a slot.
	Addr [2]uint16
	// ORC is clocked out when the master reads past the TX buffer.
	ORC byte
	// SkipGPIOConfig leaves SCL and SDA untouched.
	SkipGPIOConfig    bool
	InterruptPriority uint8
	Logger            common.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	ORC:               0xFF,
	InterruptPriority: 6,
}

// Dev is a TWIS instance.
type Dev struct {
	hw nrf.TWIS

	// mu guards the lifecycle. The state machine never takes it.
	mu      sync.Mutex
	state   common.State
	opts    Opts
	log     common.Logger
	handler Handler

	// powered mirrors state == PoweredOn for the lock-free paths.
	powered  atomic.Bool
	sem      atomic.Bool
	substate atomic.Uint32
	errs     common.ErrorAccumulator
}

// New returns an uninitialized driver for the block.
func New(hw nrf.TWIS) *Dev {
	return &Dev{hw: hw, log: common.Discard}
}

func (d *Dev) String() string {
	return d.hw.String()
}

// Init programs the addresses, the ORC byte and the pins.
//
// With a Handler the state machine runs from the interrupt and reports
// every step. Without one, the status queries run it.
func (d *Dev) Init(opts *Opts, h Handler) error {
	if opts == nil {
		return fmt.Errorf("twis: %w: options are required", common.ErrInvalidParam)
	}
	o := *opts
	if o.Addr[0] == 0 && o.Addr[1] == 0 {
		return fmt.Errorf("twis: %w: no address", common.ErrInvalidParam)
	}
	if !o.SkipGPIOConfig && (o.SCL == nil || o.SDA == nil) {
		return fmt.Errorf("twis: %w: SCL and SDA are required", common.ErrInvalidParam)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.Uninitialized); err != nil {
		return fmt.Errorf("twis: %w", err)
	}
	arb := d.hw.Arbiter()
	if arb != nil {
		if err := arb.Acquire(d.hw.String(), d.irq); err != nil {
			return fmt.Errorf("twis: %w", err)
		}
	}
	if !o.SkipGPIOConfig {
		if err := common.ConfigureBusPins(o.SCL, o.SDA, gpio.Float); err != nil {
			if arb != nil {
				arb.Release(d.hw.String())
			}
			return fmt.Errorf("twis: %w", err)
		}
	}
	d.opts = o
	d.log = common.LoggerOr(o.Logger)
	d.handler = h
	if o.SCL != nil && o.SDA != nil {
		d.hw.SetPins(o.SCL.Number(), o.SDA.Number())
	}
	d.hw.SetAddresses(o.Addr)
	d.hw.SetORC(o.ORC)
	d.hw.SetShorts(nrf.ShortWriteSuspend | nrf.ShortReadSuspend)
	if h != nil {
		irq := d.hw.IRQ()
		if arb == nil {
			irq.SetHandler(d.irq)
		}
		irq.SetPriority(o.InterruptPriority)
		irq.Enable()
	}
	d.substate.Store(uint32(Idle))
	d.state = common.Initialized
	d.log.Printf("%s: initialized at %#x/%#x", d.hw, o.Addr[0], o.Addr[1])
	return nil
}

// Enable clears stale events and powers the block up.
func (d *Dev) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.Initialized); err != nil {
		return fmt.Errorf("twis: %w", err)
	}
	d.hw.Clear(machineEvents)
	d.hw.ErrorSrc()
	d.errs.Drain()
	d.substate.Store(uint32(Idle))
	if d.handler != nil {
		d.hw.EnableInt(machineEvents)
	}
	d.hw.Enable()
	d.powered.Store(true)
	d.state = common.PoweredOn
	return nil
}

// Disable powers the block down.
func (d *Dev) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.PoweredOn); err != nil {
		return fmt.Errorf("twis: %w", err)
	}
	d.disableLocked()
	d.state = common.Initialized
	return nil
}

// Uninit releases the block. It disables it first when needed.
func (d *Dev) Uninit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == common.Uninitialized {
		return fmt.Errorf("twis: %w: %s", common.ErrInvalidState, d.state)
	}
	if d.state == common.PoweredOn {
		d.disableLocked()
	}
	if d.handler != nil {
		d.hw.IRQ().Disable()
	}
	d.hw.SetShorts(0)
	if arb := d.hw.Arbiter(); arb != nil {
		arb.Release(d.hw.String())
	}
	var err error
	if !d.opts.SkipGPIOConfig {
		err = common.ResetBusPins(d.opts.SCL, d.opts.SDA)
	}
	d.state = common.Uninitialized
	return err
}

func (d *Dev) disableLocked() {
	d.powered.Store(false)
	d.hw.DisableInt(nrf.AllEvents)
	d.hw.Disable()
}

// State returns the lifecycle state.
func (d *Dev) State() common.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// TxPrepare arms buf as the data returned to the next master read. It does
// not change the substate; the next pass does once TXSTARTED fires.
func (d *Dev) TxPrepare(buf []byte) error {
	if err := d.checkBuf(buf); err != nil {
		return err
	}
	d.hw.SetTxBuffer(buf)
	d.hw.Trigger(nrf.TaskPrepareTX)
	return nil
}

// RxPrepare arms buf to receive the next master write.
func (d *Dev) RxPrepare(buf []byte) error {
	if err := d.checkBuf(buf); err != nil {
		return err
	}
	d.hw.SetRxBuffer(buf)
	d.hw.Trigger(nrf.TaskPrepareRX)
	return nil
}

func (d *Dev) checkBuf(buf []byte) error {
	if !d.powered.Load() {
		return fmt.Errorf("twis: %w: not enabled", common.ErrInvalidState)
	}
	if buf != nil && len(buf) == 0 {
		return fmt.Errorf("twis: %w: empty buffer", common.ErrInvalidParam)
	}
	if !nrf.InRAM(d.hw.Memory(), buf) {
		return fmt.Errorf("twis: %w", common.ErrInvalidAddr)
	}
	if max := d.hw.MaxCount(); len(buf) > max {
		return fmt.Errorf("twis: %w: %d bytes max", common.ErrInvalidLength, max)
	}
	return nil
}

// Substate runs a pass and returns the substate.
func (d *Dev) Substate() Substate {
	d.pass()
	return Substate(d.substate.Load())
}

// IsBusy reports whether an exchange is in progress.
func (d *Dev) IsBusy() bool {
	return d.Substate() != Idle
}

// IsWaitingTxBuff reports whether the master waits for TxPrepare.
func (d *Dev) IsWaitingTxBuff() bool {
	return d.Substate() == ReadWaiting
}

// IsWaitingRxBuff reports whether the master waits for RxPrepare.
func (d *Dev) IsWaitingRxBuff() bool {
	return d.Substate() == WriteWaiting
}

// IsPendingTx reports whether the TX buffer is being read by the master.
func (d *Dev) IsPendingTx() bool {
	return d.Substate() == ReadPending
}

// IsPendingRx reports whether the RX buffer is being written by the master.
func (d *Dev) IsPendingRx() bool {
	return d.Substate() == WritePending
}

// ErrorGetAndClear returns the errors accumulated since the last call.
func (d *Dev) ErrorGetAndClear() Error {
	d.pass()
	return Error(d.errs.Drain())
}

// TxAmount returns the bytes sent in the last read.
func (d *Dev) TxAmount() int {
	return d.hw.TxAmount()
}

// RxAmount returns the bytes received in the last write.
func (d *Dev) RxAmount() int {
	return d.hw.RxAmount()
}

// Match returns which of the two addresses the master used last.
func (d *Dev) Match() int {
	return d.hw.Match()
}

func (d *Dev) irq() {
	d.pass()
}

// pass samples the events once and runs the state machine over them. A
// pass that finds another one in progress returns immediately.
func (d *Dev) pass() {
	if !d.powered.Load() || !d.sem.CompareAndSwap(false, true) {
		return
	}
	hw := d.hw
	var ev nrf.Event
	// STOPPED is the lowest bit: it is sampled before the request it ends.
	for b := nrf.Event(1); b <= machineEvents; b <<= 1 {
		if b&machineEvents != 0 && hw.Check(b) {
			hw.Clear(b)
			ev |= b
		}
	}
	s := Substate(d.substate.Load())
	for ev != 0 {
		st := transition(s, ev)
		s, ev = st.next, st.rest
		d.report(st)
	}
	d.substate.Store(uint32(s))
	d.sem.Store(false)
}

// report turns a step into an Event.
func (d *Dev) report(st step) {
	var e Event
	switch st.emit {
	case emitNone:
		return
	case emitReadRequested:
		e = Event{Type: EventReadRequested, NeedsBuffer: st.needsBuffer}
	case emitWriteRequested:
		e = Event{Type: EventWriteRequested, NeedsBuffer: st.needsBuffer}
	case emitReadDone:
		e = Event{Type: EventReadDone, TxAmount: d.hw.TxAmount()}
	case emitWriteDone:
		e = Event{Type: EventWriteDone, RxAmount: d.hw.RxAmount()}
	case emitReadError, emitWriteError, emitGeneralError:
		err := Error(d.hw.ErrorSrc())
		if err == 0 {
			err = ErrorUnexpectedEvent
		}
		d.errs.Add(uint32(err))
		e = Event{Type: EventGeneralError, Error: err}
		if st.emit == emitReadError {
			e.Type = EventReadError
		} else if st.emit == emitWriteError {
			e.Type = EventWriteError
		}
	}
	d.log.Printf("%s: %s", d.hw, e)
	if d.handler != nil {
		d.handler(e)
	}
}
