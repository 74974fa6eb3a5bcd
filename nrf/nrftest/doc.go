// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package nrftest provides simulated TWI, TWIM and TWIS register blocks.
//
// The simulated blocks react to tasks immediately: triggering STARTTX on a
// TWIM runs the whole bus transaction against the attached target before the
// call returns, unless Async is set. Interrupts are delivered on a dedicated
// goroutine, one handler call at a time, like a real interrupt vector.
//
// Targets are plain i2c.Bus implementations for the EasyDMA master, so
// i2ctest.Playback and i2ctest.Record work as devices on the simulated bus.
// The byte-wise master needs a Target; Mem implements both.
package nrftest
