// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twi drives the legacy byte-wise TWI master found on nRF51 and
// nRF52 parts without EasyDMA.
//
// Every byte goes through the TXD or RXD register. Without a Handler the
// driver busy-waits on the hardware events and returns the outcome; with a
// Handler the interrupt advances the transfer and the outcome is delivered
// as an Event.
//
// Dev implements i2c.BusCloser so periph device drivers can use it directly.
//
// # Datasheet
//
// https://infocenter.nordicsemi.com/topic/ps_nrf52832/twi.html
package twi
