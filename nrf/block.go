// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrf

// Block is the part of the register interface every TWI flavour shares.
type Block interface {
	String() string

	Enable()
	Disable()

	Trigger(t Task)
	// Check reports whether any of the events is set.
	Check(e Event) bool
	Clear(e Event)

	SetShorts(s Short)
	Shorts() Short

	EnableInt(e Event)
	DisableInt(e Event)

	// ErrorSrc returns the ERRORSRC bits and clears them.
	ErrorSrc() ErrorSrc

	SetPins(scl, sda int)

	// IRQ is the interrupt line of the block.
	IRQ() Interrupt
	// Arbiter returns the arbiter of the shared resource box this block
	// belongs to, or nil when no other peripheral aliases it.
	Arbiter() Arbiter
}

// TWI is the legacy byte-wise master.
type TWI interface {
	Block
	SetFrequency(f Frequency)
	SetAddress(addr uint16)
	WriteTXD(b byte)
	ReadRXD() byte
}

// EasyDMA is the buffer interface of the DMA capable blocks.
type EasyDMA interface {
	// SetTxBuffer programs TXD.PTR and TXD.MAXCNT.
	SetTxBuffer(b []byte)
	// SetRxBuffer programs RXD.PTR and RXD.MAXCNT.
	SetRxBuffer(b []byte)
	TxAmount() int
	RxAmount() int
	// MaxCount is the largest value MAXCNT holds.
	MaxCount() int
	// Memory tells which buffers EasyDMA can reach.
	Memory() Memory
}

// TWIM is the EasyDMA master.
type TWIM interface {
	Block
	EasyDMA
	SetFrequency(f Frequency)
	Frequency() Frequency
	SetAddress(addr uint16)
}

// TWIS is the EasyDMA slave.
type TWIS interface {
	Block
	EasyDMA
	// SetAddresses programs ADDRESS[0..1] and enables the non-zero ones in
	// CONFIG.
	SetAddresses(addr [2]uint16)
	// SetORC sets the over-read character clocked out once the TX buffer
	// is exhausted.
	SetORC(b byte)
	// Match returns the index of the address that matched last.
	Match() int
}

// Interrupt is the interrupt controller line of a block.
type Interrupt interface {
	SetHandler(h func())
	SetPriority(p uint8)
	Enable()
	Disable()
}

// Arbiter grants exclusive use of a box of peripherals sharing one register
// block and interrupt vector.
type Arbiter interface {
	// Acquire fails with common.ErrBusy when another owner holds the box.
	// irq is dispatched from the shared vector while owner holds it.
	Acquire(owner string, irq func()) error
	Release(owner string)
}

// Memory tells which buffers EasyDMA can reach.
type Memory interface {
	InRAM(b []byte) bool
}

// AllRAM accepts every buffer.
var AllRAM Memory = allRAM{}

type allRAM struct{}

func (allRAM) InRAM([]byte) bool { return true }

// InRAM returns true when every non-nil buffer is reachable by m.
func InRAM(m Memory, bufs ...[]byte) bool {
	for _, b := range bufs {
		if b != nil && !m.InRAM(b) {
			return false
		}
	}
	return true
}
