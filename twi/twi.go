// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

import (
	"fmt"
	"sync"
	"sync/atomic"
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
	Frequency physic.Frequency
	// InterruptPriority is only used with a Handler.
	InterruptPriority uint8
	// HoldBusUninit keeps SCL and SDA configured after Uninit.
	HoldBusUninit bool
	// Timeout bounds a blocking transfer. The block is reset when it
	// expires.
	Timeout time.Duration
	// Clock measures Timeout. It defaults to nrf.SystemClock.
	Clock  nrf.Clock
	Logger common.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Frequency:         100 * physic.KiloHertz,
	InterruptPriority: 6,
	Timeout:           100 * time.Millisecond,
}

type suspend uint8

const (
	suspendNone suspend = iota
	suspendTx
)

// Dev is a TWI master instance.
type Dev struct {
	hw nrf.TWI

	mu      sync.Mutex
	state   common.State
	opts    Opts
	clock   nrf.Clock
	log     common.Logger
	freq    nrf.Frequency
	handler Handler

	// Current transfer.
	busy      bool
	xfer      common.Xfer
	flags     common.Flags
	secondary bool
	buf       []byte
	length    int
	bytes     int
	noStop    bool
	failed    bool
	txAmount  int
	rxAmount  int
	prev      suspend
	waiter    chan Event

	abort atomic.Bool
}

// New returns an uninitialized driver for the block.
func New(hw nrf.TWI) *Dev {
	return &Dev{hw: hw, clock: nrf.SystemClock, log: common.Discard}
}

func (d *Dev) String() string {
	return d.hw.String()
}

// Init configures the pins and the bus frequency.
//
// With a nil Handler, transfers block until they complete. Otherwise they
// return immediately and h is called from interrupt context on completion.
func (d *Dev) Init(opts *Opts, h Handler) error {
	if opts == nil || opts.SCL == nil || opts.SDA == nil {
		return fmt.Errorf("twi: %w: SCL and SDA are required", common.ErrInvalidParam)
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
		return fmt.Errorf("twi: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.Uninitialized); err != nil {
		return fmt.Errorf("twi: %w", err)
	}
	arb := d.hw.Arbiter()
	if arb != nil {
		if err := arb.Acquire(d.hw.String(), d.irq); err != nil {
			return fmt.Errorf("twi: %w", err)
		}
	}
	if err := common.ConfigureBusPins(o.SCL, o.SDA, gpio.PullUp); err != nil {
		if arb != nil {
			arb.Release(d.hw.String())
		}
		return fmt.Errorf("twi: %w", err)
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
		return fmt.Errorf("twi: %w", err)
	}
	d.hw.Enable()
	d.prev = suspendNone
	d.state = common.PoweredOn
	return nil
}

// Disable powers the block down. A transfer in flight is dropped without
// an event.
func (d *Dev) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.PoweredOn); err != nil {
		return fmt.Errorf("twi: %w", err)
	}
	d.hw.DisableInt(nrf.AllEvents)
	d.hw.SetShorts(0)
	d.hw.Disable()
	d.busy = false
	d.waiter = nil
	d.state = common.Initialized
	return nil
}

// Uninit releases the block. It disables it first when needed.
func (d *Dev) Uninit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == common.Uninitialized {
		return fmt.Errorf("twi: %w: %s", common.ErrInvalidState, d.state)
	}
	if d.state == common.PoweredOn {
		d.hw.DisableInt(nrf.AllEvents)
		d.hw.SetShorts(0)
		d.hw.Disable()
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
	d.busy = false
	d.waiter = nil
	d.handler = nil
	d.state = common.Uninitialized
	return err
}

// State returns the lifecycle state.
func (d *Dev) State() common.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsBusy reports whether a transfer is in flight.
func (d *Dev) IsBusy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// DataCount returns the bytes moved so far in the current buffer.
func (d *Dev) DataCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytes
}

// Abort requests the transfer in flight to stop after the current byte.
// The completion event reports the truncated amounts.
func (d *Dev) Abort() {
	d.abort.Store(true)
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	d.Abort()
	return nil
}
