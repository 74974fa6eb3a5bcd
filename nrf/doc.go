// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package nrf describes the hardware surface the I²C engines drive: the
// tasks, events and shortcuts of the TWI, TWIM and TWIS register blocks,
// their interrupt line, the resource arbiter shared between peripherals
// aliasing one block, and which memory EasyDMA can reach.
//
// Register layouts are not modelled; an implementation of TWI, TWIM or TWIS
// maps the calls to its registers. Package nrftest provides simulated
// blocks.
package nrf
