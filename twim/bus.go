// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twim

import (
	"fmt"
	"time"

	"github.com/GermanBionicSystems/nrfx/common"
	"github.com/GermanBionicSystems/nrfx/nrf"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

// Tx implements i2c.Bus.
//
// A write followed by a read runs as one TxRx transfer. With a Handler
// installed, Tx waits for its own event and the Handler is not called.
func (d *Dev) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 {
		w = nil
	}
	if len(r) == 0 {
		r = nil
	}
	switch {
	case r == nil:
		return d.wait(common.XferTx(addr, w), 0)
	case w == nil:
		return d.wait(common.XferRx(addr, r), 0)
	}
	return d.wait(common.XferTxRx(addr, w, r), 0)
}

// SetSpeed implements i2c.Bus.
func (d *Dev) SetSpeed(f physic.Frequency) error {
	nf, err := nrf.FrequencyFor(f)
	if err != nil {
		return fmt.Errorf("twim: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == common.Uninitialized {
		return fmt.Errorf("twim: %w: %s", common.ErrInvalidState, d.state)
	}
	if d.busy {
		return fmt.Errorf("twim: %w", common.ErrBusy)
	}
	d.freq = nf
	d.opts.Frequency = f
	d.hw.SetFrequency(nf)
	return nil
}

// Close implements i2c.BusCloser.
func (d *Dev) Close() error {
	return d.Uninit()
}

// Register makes the bus available through i2creg.Open.
func (d *Dev) Register(name string, number int) error {
	return i2creg.Register(name, nil, number, func() (i2c.BusCloser, error) {
		if d.State() != common.PoweredOn {
			return nil, fmt.Errorf("twim: %w: %s is not enabled", common.ErrInvalidState, name)
		}
		return d, nil
	})
}

// RecoverBus clocks a slave stuck mid byte off the bus. The block must be
// initialized but not enabled, so it does not drive the pins.
func (d *Dev) RecoverBus() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.state.Expect(common.Initialized); err != nil {
		return fmt.Errorf("twim: %w", err)
	}
	half := d.opts.Frequency.Period() / 2
	err := common.BusRecover(d.opts.SCL, d.opts.SDA, func() { time.Sleep(half) })
	if err2 := common.ConfigureBusPins(d.opts.SCL, d.opts.SDA, gpio.PullUp); err == nil {
		err = err2
	}
	if err != nil {
		return fmt.Errorf("twim: %w", err)
	}
	d.log.Printf("%s: bus recovered", d.hw)
	return nil
}

func (d *Dev) interrupts() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handler != nil
}

// wait runs x and returns its outcome in either mode.
func (d *Dev) wait(x common.Xfer, flags common.Flags) error {
	if !d.interrupts() {
		return d.Xfer(x, flags)
	}
	ch := make(chan Event, 1)
	if err := d.start(x, flags, ch); err != nil {
		return err
	}
	d.mu.Lock()
	timeout := d.opts.Timeout
	d.mu.Unlock()
	select {
	case ev := <-ch:
		if err := ev.Err(); err != nil {
			return fmt.Errorf("twim: %w", err)
		}
		return nil
	case <-time.After(timeout):
	}
	d.mu.Lock()
	mine := d.waiter == ch
	if mine {
		d.log.Printf("%s: %s timed out", d.hw, x)
		d.resetLocked()
	}
	d.mu.Unlock()
	if !mine {
		// Completed while timing out.
		select {
		case ev := <-ch:
			return ev.Err()
		case <-time.After(timeout):
		}
	}
	return fmt.Errorf("twim: %w: transfer timed out", common.ErrInternal)
}

var _ i2c.BusCloser = &Dev{}
