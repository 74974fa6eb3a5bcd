// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package twis drives the EasyDMA TWI slave.
//
// A slave cannot know which direction the master picks next, so buffers are
// supplied just in time: the block suspends on READ or WRITE until
// TxPrepare or RxPrepare arms a buffer. The driver tracks the exchange with
// a five state machine:
//
//	Idle -> ReadWaiting  -> ReadPending  -> Idle
//	Idle -> WriteWaiting -> WritePending -> Idle
//
// A buffer armed ahead of the request skips the waiting state.
//
// The machine is advanced by the interrupt and, opportunistically, by the
// status queries. Concurrent passes are not serialized: the second one is
// skipped and its events are processed by a later pass.
//
// # Datasheet
//
// https://infocenter.nordicsemi.com/topic/ps_nrf52840/twis.html
package twis
