// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package twi

import (
	"fmt"

	"github.com/GermanBionicSystems/nrfx/common"
	"github.com/GermanBionicSystems/nrfx/nrf"
)

// EventType is the outcome of a transfer.
type EventType uint8

const (
	EventDone EventType = iota
	EventAddressNack
	EventDataNack
	EventOverrun
	EventBusError
)

func (e EventType) String() string {
	switch e {
	case EventDone:
		return "Done"
	case EventAddressNack:
		return "AddressNack"
	case EventDataNack:
		return "DataNack"
	case EventOverrun:
		return "Overrun"
	case EventBusError:
		return "BusError"
	}
	return fmt.Sprintf("EventType(%d)", uint8(e))
}

// Event is delivered to the Handler when a transfer completes.
type Event struct {
	Type EventType
	Xfer common.Xfer
	// TxAmount and RxAmount count the bytes actually moved.
	TxAmount int
	RxAmount int
}

// Err returns the error matching the event type, or nil for EventDone.
func (e EventType) Err() error {
	switch e {
	case EventDone:
		return nil
	case EventAddressNack:
		return common.ErrAddressNack
	case EventDataNack:
		return common.ErrDataNack
	case EventOverrun:
		return common.ErrOverrun
	}
	return common.ErrBus
}

// Err returns the error of the transfer, or nil when it succeeded.
func (e *Event) Err() error {
	return e.Type.Err()
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s tx=%d rx=%d", e.Type, e.Xfer, e.TxAmount, e.RxAmount)
}

// Handler receives transfer events from interrupt context. It may start the
// next transfer.
type Handler func(e Event)

// eventFor picks the reported error when several ERRORSRC bits are set:
// overrun first, then address NACK, then data NACK.
func eventFor(src nrf.ErrorSrc) EventType {
	switch {
	case src&nrf.ErrorOverrun != 0:
		return EventOverrun
	case src&nrf.ErrorAddressNack != 0:
		return EventAddressNack
	case src&nrf.ErrorDataNack != 0:
		return EventDataNack
	}
	return EventBusError
}
