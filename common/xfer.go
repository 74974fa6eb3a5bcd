// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"fmt"
)

// Dir is the direction of a transfer as seen from the master.
type Dir uint8

const (
	// Tx writes the primary buffer.
	Tx Dir = iota
	// Rx reads into the primary buffer.
	Rx
	// TxRx writes the primary buffer then, after a repeated start, reads
	// into the secondary buffer.
	TxRx
	// TxTx writes the primary buffer then, after a repeated start, writes
	// the secondary buffer.
	TxTx
)

func (d Dir) String() string {
	switch d {
	case Tx:
		return "TX"
	case Rx:
		return "RX"
	case TxRx:
		return "TXRX"
	case TxTx:
		return "TXTX"
	}
	return fmt.Sprintf("Dir(%d)", uint8(d))
}

// Compound reports whether the direction chains two buffers.
func (d Dir) Compound() bool {
	return d == TxRx || d == TxTx
}

// Flags alter how a transfer is started and completed.
type Flags uint32

const (
	// TxNoStop leaves the bus suspended after the last byte of a Tx
	// transfer so another transfer can follow with a repeated start.
	TxNoStop Flags = 1 << iota
	// HoldXfer programs buffers and shortcuts but does not trigger the
	// start task. Something else (usually a PPI channel) starts it.
	HoldXfer
	// NoXferEvtHandler suppresses the completion event. Errors are still
	// reported and the instance is not marked busy.
	NoXferEvtHandler
	// RepeatedXfer keeps shortcuts and interrupts after completion so the
	// same transfer can be re-triggered externally.
	RepeatedXfer
	// NoSpuriousStopCheck skips verifying the transferred amounts once
	// the bus stopped.
	NoSpuriousStopCheck
)

// Xfer describes one logical bus operation. The buffers belong to the
// caller, who must not touch them until the transfer completes.
type Xfer struct {
	Addr      uint16
	Dir       Dir
	Primary   []byte
	Secondary []byte
}

// XferTx describes a write of data to addr.
func XferTx(addr uint16, data []byte) Xfer {
	return Xfer{Addr: addr, Dir: Tx, Primary: data}
}

// XferRx describes a read of len(data) bytes from addr.
func XferRx(addr uint16, data []byte) Xfer {
	return Xfer{Addr: addr, Dir: Rx, Primary: data}
}

// XferTxRx describes a write of w followed by a read into r.
func XferTxRx(addr uint16, w, r []byte) Xfer {
	return Xfer{Addr: addr, Dir: TxRx, Primary: w, Secondary: r}
}

// XferTxTx describes a write of w1 followed by a write of w2.
func XferTxTx(addr uint16, w1, w2 []byte) Xfer {
	return Xfer{Addr: addr, Dir: TxTx, Primary: w1, Secondary: w2}
}

// Validate checks the descriptor shape. A buffer is nil iff its length is
// zero: an empty non-nil slice is rejected.
func (x *Xfer) Validate() error {
	if x.Dir > TxTx {
		return fmt.Errorf("%w: direction %s", ErrInvalidParam, x.Dir)
	}
	if err := checkBuf("primary", x.Primary); err != nil {
		return err
	}
	if err := checkBuf("secondary", x.Secondary); err != nil {
		return err
	}
	if x.Dir.Compound() {
		if x.Primary == nil || x.Secondary == nil {
			return fmt.Errorf("%w: %s needs two buffers", ErrInvalidParam, x.Dir)
		}
	} else if x.Secondary != nil {
		return fmt.Errorf("%w: %s takes no secondary buffer", ErrInvalidParam, x.Dir)
	}
	return nil
}

func (x Xfer) String() string {
	return fmt.Sprintf("%s@0x%02x(%d,%d)", x.Dir, x.Addr, len(x.Primary), len(x.Secondary))
}

func checkBuf(name string, b []byte) error {
	if b != nil && len(b) == 0 {
		return fmt.Errorf("%w: %s buffer is empty but not nil", ErrInvalidParam, name)
	}
	return nil
}
