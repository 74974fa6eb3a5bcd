// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrf

import (
	"fmt"
	"strings"
)

// Task is a hardware task register.
type Task uint8

const (
	TaskStartRX Task = iota
	TaskStartTX
	TaskStop
	TaskSuspend
	TaskResume
	TaskPrepareRX
	TaskPrepareTX
)

var taskNames = [...]string{"STARTRX", "STARTTX", "STOP", "SUSPEND", "RESUME", "PREPARERX", "PREPARETX"}

func (t Task) String() string {
	if int(t) < len(taskNames) {
		return taskNames[t]
	}
	return fmt.Sprintf("Task(%d)", uint8(t))
}

// Event is a set of hardware event registers. The same bits select
// interrupts in the INTEN register.
type Event uint32

const (
	EventStopped Event = 1 << iota
	EventError
	EventRxStarted
	EventTxStarted
	EventLastTx
	EventLastRx
	EventSuspended
	// EventWrite is raised on a slave when the master writes to it.
	EventWrite
	// EventRead is raised on a slave when the master reads from it.
	EventRead
	// EventTxdSent is raised by the byte-wise master after each byte.
	EventTxdSent
	// EventRxdReady is raised by the byte-wise master after each byte.
	EventRxdReady
	// EventBB is the byte boundary event of the byte-wise master.
	EventBB

	// AllEvents selects every event.
	AllEvents Event = 1<<iota - 1
)

var eventNames = [...]string{
	"STOPPED", "ERROR", "RXSTARTED", "TXSTARTED", "LASTTX", "LASTRX",
	"SUSPENDED", "WRITE", "READ", "TXDSENT", "RXDREADY", "BB",
}

func (e Event) String() string {
	if e == 0 {
		return "0"
	}
	var parts []string
	for i, n := range eventNames {
		if e&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	if rest := e &^ AllEvents; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Has reports whether all of bits are set.
func (e Event) Has(bits Event) bool {
	return e&bits == bits && bits != 0
}

// Short is a set of hardware shortcuts.
type Short uint32

const (
	// Byte-wise master.
	ShortBBSuspend Short = 1 << iota
	ShortBBStop
	// EasyDMA master.
	ShortLastTxStartRx
	ShortLastTxSuspend
	ShortLastTxStop
	ShortLastRxStartTx
	ShortLastRxStop
	// EasyDMA slave.
	ShortWriteSuspend
	ShortReadSuspend
)

var shortNames = [...]string{
	"BB_SUSPEND", "BB_STOP", "LASTTX_STARTRX", "LASTTX_SUSPEND", "LASTTX_STOP",
	"LASTRX_STARTTX", "LASTRX_STOP", "WRITE_SUSPEND", "READ_SUSPEND",
}

func (s Short) String() string {
	if s == 0 {
		return "0"
	}
	var parts []string
	for i, n := range shortNames {
		if s&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// ErrorSrc holds the ERRORSRC bits.
type ErrorSrc uint32

const (
	// Master.
	ErrorOverrun ErrorSrc = 1 << iota
	ErrorAddressNack
	ErrorDataNack
	// Slave.
	ErrorOverflow
	ErrorOverread
	ErrorSlaveDataNack
)

var errorNames = [...]string{"OVERRUN", "ANACK", "DNACK", "OVERFLOW", "OVERREAD", "SLAVE_DNACK"}

func (e ErrorSrc) String() string {
	if e == 0 {
		return "0"
	}
	var parts []string
	for i, n := range errorNames {
		if e&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}
