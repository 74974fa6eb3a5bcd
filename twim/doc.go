// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twim drives the EasyDMA TWI master of nRF52 and later parts.
//
// A transfer is programmed as DMA pointers plus shortcuts and runs without
// CPU involvement until the block stops. Without a Handler the driver spins
// on the completion event; with one, completion is reported as an Event from
// the interrupt.
//
// Buffers must live in RAM reachable by EasyDMA and fit the MAXCNT field of
// the block; both are checked before the hardware is touched.
//
// # Datasheet
//
// https://infocenter.nordicsemi.com/topic/ps_nrf52840/twim.html
package twim
