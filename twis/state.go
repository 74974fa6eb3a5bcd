// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twis

import (
	"fmt"

	"github.com/GermanBionicSystems/nrfx/nrf"
)

// Substate is the position of the slave in the current exchange.
type Substate uint8

const (
	Idle Substate = iota
	// ReadWaiting: the master reads, no TX buffer yet.
	ReadWaiting
	// ReadPending: the TX buffer is being clocked out.
	ReadPending
	// WriteWaiting: the master writes, no RX buffer yet.
	WriteWaiting
	// WritePending: the RX buffer is being filled.
	WritePending
)

func (s Substate) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ReadWaiting:
		return "ReadWaiting"
	case ReadPending:
		return "ReadPending"
	case WriteWaiting:
		return "WriteWaiting"
	case WritePending:
		return "WritePending"
	}
	return fmt.Sprintf("Substate(%d)", uint8(s))
}

// machineEvents are sampled at the start of each pass.
const machineEvents = nrf.EventStopped | nrf.EventError | nrf.EventRxStarted |
	nrf.EventTxStarted | nrf.EventWrite | nrf.EventRead

// emit is what a step reports to the application.
type emit uint8

const (
	emitNone emit = iota
	emitReadRequested
	emitWriteRequested
	emitReadDone
	emitWriteDone
	emitReadError
	emitWriteError
	emitGeneralError
)

// step is the outcome of one transition.
type step struct {
	next        Substate
	rest        nrf.Event
	emit        emit
	needsBuffer bool
}

// transition consumes some of ev in state s. Callers loop until rest is
// zero. It has no side effect.
func transition(s Substate, ev nrf.Event) step {
	const (
		request = nrf.EventRead | nrf.EventWrite | nrf.EventTxStarted | nrf.EventRxStarted
		done    = nrf.EventWrite | nrf.EventRead | nrf.EventStopped
	)
	switch s {
	case Idle:
		switch {
		case ev.Has(nrf.EventRead | nrf.EventTxStarted):
			// The buffer was armed ahead; a STOPPED in the batch ends this read.
			return step{next: ReadPending, rest: ev &^ request, emit: emitReadRequested}
		case ev.Has(nrf.EventWrite | nrf.EventRxStarted):
			return step{next: WritePending, rest: ev &^ request, emit: emitWriteRequested}
		case ev&nrf.EventStopped != 0:
			// A late STOPPED is harmless here.
			return step{next: Idle, rest: ev &^ nrf.EventStopped}
		case ev&nrf.EventRead != 0:
			return step{next: ReadWaiting, rest: ev &^ request, emit: emitReadRequested, needsBuffer: true}
		case ev&nrf.EventWrite != 0:
			return step{next: WriteWaiting, rest: ev &^ request, emit: emitWriteRequested, needsBuffer: true}
		}
		return step{next: Idle, emit: emitGeneralError}
	case ReadWaiting:
		if ev&(nrf.EventTxStarted|done) != 0 {
			// Anything else is handled in ReadPending.
			return step{next: ReadPending, rest: ev &^ nrf.EventTxStarted}
		}
		return step{next: Idle, emit: emitReadError}
	case ReadPending:
		if ev&done != 0 {
			// A READ or WRITE left in rest starts the next exchange.
			return step{next: Idle, rest: ev &^ nrf.EventStopped, emit: emitReadDone}
		}
		return step{next: Idle, emit: emitReadError}
	case WriteWaiting:
		if ev&(nrf.EventRxStarted|done) != 0 {
			return step{next: WritePending, rest: ev &^ nrf.EventRxStarted}
		}
		return step{next: Idle, emit: emitWriteError}
	case WritePending:
		if ev&done != 0 {
			return step{next: Idle, rest: ev &^ nrf.EventStopped, emit: emitWriteDone}
		}
		return step{next: Idle, emit: emitWriteError}
	}
	// Corrupted state: restart from Idle with the same events.
	return step{next: Idle, rest: ev}
}
