// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// ConfigureBusPins prepares SCL and SDA before the peripheral takes them
// over. Masters pass gpio.PullUp (the peripheral drives them open-drain),
// slaves gpio.Float.
func ConfigureBusPins(scl, sda gpio.PinIO, pull gpio.Pull) error {
	if scl == nil || sda == nil {
		return fmt.Errorf("%w: SCL and SDA are required", ErrInvalidParam)
	}
	for _, p := range []gpio.PinIO{scl, sda} {
		if err := p.In(pull, gpio.NoEdge); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// ResetBusPins returns SCL and SDA to their default disconnected state.
func ResetBusPins(scl, sda gpio.PinIO) error {
	for _, p := range []gpio.PinIO{scl, sda} {
		if p == nil {
			continue
		}
		if err := p.In(gpio.Float, gpio.NoEdge); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// BusRecover frees a bus held low by a slave stuck mid byte. It clocks SCL
// up to nine times until the slave releases SDA, then generates a STOP.
// halfPeriod waits half a bus clock; it may be nil on simulated pins.
//
// Both pins must not be driven by the peripheral while recovering.
func BusRecover(scl, sda gpio.PinIO, halfPeriod func()) error {
	if scl == nil || sda == nil {
		return fmt.Errorf("%w: SCL and SDA are required", ErrInvalidParam)
	}
	wait := func() {
		if halfPeriod != nil {
			halfPeriod()
		}
	}
	if err := sda.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return err
	}
	if err := scl.Out(gpio.High); err != nil {
		return err
	}
	wait()
	for i := 0; i < 9 && sda.Read() == gpio.Low; i++ {
		if err := scl.Out(gpio.Low); err != nil {
			return err
		}
		wait()
		if err := scl.Out(gpio.High); err != nil {
			return err
		}
		wait()
	}
	if sda.Read() == gpio.Low {
		return fmt.Errorf("%w: SDA still held low after recovery", ErrInternal)
	}
	// STOP: SDA rises while SCL is high.
	if err := sda.Out(gpio.Low); err != nil {
		return err
	}
	wait()
	if err := sda.Out(gpio.High); err != nil {
		return err
	}
	wait()
	return nil
}
