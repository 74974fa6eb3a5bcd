// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package nrfx is a container for the Nordic nRF I²C peripheral drivers.
//
// The drivers live in subpackages: twi (byte-wise master), twim (EasyDMA
// master) and twis (EasyDMA slave). They drive the register blocks described
// in package nrf; package nrf/nrftest provides simulated blocks for tests and
// host-side development.
package nrfx
