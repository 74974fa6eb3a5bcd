// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twis

import (
	"fmt"
	"strings"

	"github.com/GermanBionicSystems/nrfx/nrf"
)

// EventType is the kind of an Event.
type EventType uint8

const (
	// EventReadRequested is sent when the master starts a read.
	EventReadRequested EventType = iota
	// EventReadDone is sent when the master ends a read.
	EventReadDone
	// EventWriteRequested is sent when the master starts a write.
	EventWriteRequested
	// EventWriteDone is sent when the master ends a write.
	EventWriteDone
	EventReadError
	EventWriteError
	EventGeneralError
)

var eventTypeNames = [...]string{
	"ReadRequested", "ReadDone", "WriteRequested", "WriteDone",
	"ReadError", "WriteError", "GeneralError",
}

func (e EventType) String() string {
	if int(e) < len(eventTypeNames) {
		return eventTypeNames[e]
	}
	return fmt.Sprintf("EventType(%d)", uint8(e))
}

// Event is delivered to the Handler.
type Event struct {
	Type EventType
	// NeedsBuffer is set on requests when no buffer was prepared in
	// advance: call TxPrepare or RxPrepare.
	NeedsBuffer bool
	// TxAmount is set on EventReadDone.
	TxAmount int
	// RxAmount is set on EventWriteDone.
	RxAmount int
	// Error is set on the error events.
	Error Error
}

func (e Event) String() string {
	switch e.Type {
	case EventReadRequested, EventWriteRequested:
		return fmt.Sprintf("%s(needsBuffer=%t)", e.Type, e.NeedsBuffer)
	case EventReadDone:
		return fmt.Sprintf("%s(%d)", e.Type, e.TxAmount)
	case EventWriteDone:
		return fmt.Sprintf("%s(%d)", e.Type, e.RxAmount)
	}
	return fmt.Sprintf("%s(%s)", e.Type, e.Error)
}

// Handler receives events. It runs inside the state machine pass and may
// call TxPrepare and RxPrepare.
type Handler func(e Event)

// Error is a set of error bits. The low bits mirror ERRORSRC.
type Error uint32

const (
	// ErrorOverflow means the master wrote more than the RX buffer holds.
	ErrorOverflow = Error(nrf.ErrorOverflow)
	// ErrorOverread means the master read past the TX buffer; the ORC
	// byte was clocked out.
	ErrorOverread = Error(nrf.ErrorOverread)
	// ErrorDataNack means the master NACKed a byte sent by the slave.
	ErrorDataNack = Error(nrf.ErrorSlaveDataNack)
	// ErrorUnexpectedEvent means the hardware raised an event the state
	// machine did not expect, without an error source.
	ErrorUnexpectedEvent Error = 1 << 31
)

func (e Error) Error() string {
	if e == 0 {
		return "no error"
	}
	var parts []string
	if e&ErrorUnexpectedEvent != 0 {
		parts = append(parts, "unexpected event")
	}
	if src := nrf.ErrorSrc(e &^ ErrorUnexpectedEvent); src != 0 {
		parts = append(parts, strings.ToLower(src.String()))
	}
	return "twis: " + strings.Join(parts, ", ")
}

func (e Error) String() string {
	return e.Error()
}
