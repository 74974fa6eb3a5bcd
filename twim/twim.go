// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twim

import (
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/nrfx/common"
	"github.com/GermanBionicSystems/nrfx/nrf"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Opts holds the configuration passed to Init.
type Opts struct {
	SCL gpio.PinIO
	SDA gpio.PinIO
	// Frequency is one of 100kHz, 250kHz or 400kHz.
	Frequency         physic.Frequency
	InterruptPriority uint8
	// HoldBusUninit keeps SCL and SDA configured after Uninit.
	HoldBusUninit bool
	// Timeout bounds blocking transfers, Abort and the TxTx pointer swap.
	Timeout time.Duration
	Clock   nrf.Clock
	// Quirk is applied in interrupt mode. Use Anomaly109 on nRF52832.
	Quirk  Quirk
	Logger common.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Frequency:         100 * physic.KiloHertz,
	InterruptPriority: 6,
	Timeout:           100 * time.Millisecond,
}

// Dev is a TWIM instance.
type Dev struct {
	hw nrf.TWIM

	mu      sync.Mutex
	state   common.State
	opts    Opts
	clock   nrf.Clock
	log     common.Logger
	freq    nrf.Frequency
	handler Handler

	busy      bool
	repeated  bool
	// primaryDone is set once the first buffer of a TxTx went out.
	primaryDone bool
	xfer      common.Xfer
	flags     common.Flags
	intMask   nrf.Event
	startTask nrf.Task
	waiter    chan Event
}

// New returns an uninitialized driver for the block.
func New(hw nrf.TWIM) *Dev {
	return &Dev{hw: hw, clock: nrf.SystemClock, log: common.Discard}
}

func (d *Dev) String() string {
	return d.hw.String()
}

// Init configures the pins and the bus frequency.
//
// With a nil Handler, transfers block until they complete. Otherwise they
// return once started and h is called from interrupt context.
func (d *Dev) Init(opts *Opts, h Handler) error {
	if opts == nil || opts.SCL == nil || opts.SDA == nil {
		return fmt.Errorf("twim: %w: SCL and SDA are required", common.ErrInvalidParam)
	}
	o := *opts
	if o.Frequency == 0 {
		o.Frequency = DefaultOpts.Frequency
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultOpts.Timeout
	}
	f, err := nrf.FrequencyFor(o.Frequency)
	if err != nil {
		return fmt.Errorf("twim: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.Uninitialized); err != nil {
		return fmt.Errorf("twim: %w", err)
	}
	arb := d.hw.Arbiter()
	if arb != nil {
		if err := arb.Acquire(d.hw.String(), d.irq); err != nil {
			return fmt.Errorf("twim: %w", err)
		}
	}
	if err := common.ConfigureBusPins(o.SCL, o.SDA, gpio.PullUp); err != nil {
		if arb != nil {
			arb.Release(d.hw.String())
		}
		return fmt.Errorf("twim: %w", err)
	}
	d.opts = o
	d.clock = nrf.ClockOr(o.Clock)
	d.log = common.LoggerOr(o.Logger)
	d.freq = f
	d.handler = h
	d.hw.SetPins(o.SCL.Number(), o.SDA.Number())
	d.hw.SetFrequency(f)
	if h != nil {
		irq := d.hw.IRQ()
		if arb == nil {
			irq.SetHandler(d.irq)
		}
		irq.SetPriority(o.InterruptPriority)
		irq.Enable()
	}
	d.state = common.Initialized
	d.log.Printf("%s: initialized at %s", d.hw, f)
	return nil
}

// Enable powers the block up.
func (d *Dev) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.Initialized); err != nil {
		return fmt.Errorf("twim: %w", err)
	}
	d.hw.Enable()
	d.state = common.PoweredOn
	return nil
}

// Disable powers the block down. A transfer in flight is dropped without
// an event.
func (d *Dev) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.PoweredOn); err != nil {
		return fmt.Errorf("twim: %w", err)
	}
	d.disableLocked()
	d.state = common.Initialized
	return nil
}

// Uninit releases the block. A transfer in flight is stopped first.
func (d *Dev) Uninit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == common.Uninitialized {
		return fmt.Errorf("twim: %w: %s", common.ErrInvalidState, d.state)
	}
	if d.state == common.PoweredOn {
		if d.busy {
			if err := d.abortLocked(); err != nil {
				d.log.Printf("%s: %v", d.hw, err)
			}
		}
		d.disableLocked()
	}
	if d.handler != nil {
		d.hw.IRQ().Disable()
	}
	if arb := d.hw.Arbiter(); arb != nil {
		arb.Release(d.hw.String())
	}
	var err error
	if !d.opts.HoldBusUninit {
		err = common.ResetBusPins(d.opts.SCL, d.opts.SDA)
	}
	d.handler = nil
	d.state = common.Uninitialized
	return err
}

func (d *Dev) disableLocked() {
	d.hw.DisableInt(nrf.AllEvents)
	d.hw.SetShorts(0)
	d.hw.Disable()
	d.intMask = 0
	d.busy = false
	d.waiter = nil
}

// State returns the lifecycle state.
func (d *Dev) State() common.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsBusy reports whether a transfer is in flight. Transfers started with
// NoXferEvtHandler or RepeatedXfer never mark the instance busy.
func (d *Dev) IsBusy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// StartTask returns the task that starts the transfer last prepared with
// HoldXfer. Connect it to a PPI channel.
func (d *Dev) StartTask() nrf.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startTask
}

// Abort stops the transfer in flight and waits for the bus to stop. No
// event is delivered for the aborted transfer.
func (d *Dev) Abort() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.PoweredOn); err != nil {
		return fmt.Errorf("twim: %w", err)
	}
	return d.abortLocked()
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Abort()
}

func (d *Dev) abortLocked() error {
	hw := d.hw
	hw.DisableInt(nrf.AllEvents)
	hw.SetShorts(0)
	hw.Trigger(nrf.TaskResume)
	hw.Trigger(nrf.TaskStop)
	ok := nrf.Spin(d.clock, d.opts.Timeout, func() bool { return hw.Check(nrf.EventStopped) })
	hw.Clear(nrf.AllEvents)
	hw.ErrorSrc()
	d.intMask = 0
	d.busy = false
	d.waiter = nil
	if !ok {
		d.resetLocked()
		return fmt.Errorf("twim: %w: bus did not stop", common.ErrInternal)
	}
	return nil
}

// resetLocked power cycles the block to free a stuck state machine.
func (d *Dev) resetLocked() {
	d.hw.DisableInt(nrf.AllEvents)
	d.hw.SetShorts(0)
	d.hw.Disable()
	d.hw.Enable()
	d.hw.SetFrequency(d.freq)
	d.intMask = 0
	d.busy = false
	d.waiter = nil
}
