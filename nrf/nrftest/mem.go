// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrftest

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Errors a target returns to make the simulated master raise ERROR with the
// matching ERRORSRC bit. Any other error is treated as an address NACK.
var (
	ErrAddrNack = errors.New("nrftest: address not acknowledged")
	ErrDataNack = errors.New("nrftest: data not acknowledged")
)

// Target is a device on the bus of the byte-wise master.
type Target interface {
	// Start begins a transaction; it returns false to NACK the address.
	Start(addr uint16, read bool) bool
	// WriteByte returns false to NACK the byte.
	WriteByte(b byte) bool
	ReadByte() byte
	Stop()
}

// Mem is a register file device: the first byte written selects the
// register, following bytes are stored there, reads return bytes from the
// current register. The register pointer auto-increments and wraps.
type Mem struct {
	Addr uint16
	// NackAfter NACKs the data byte at this position of a write, counting
	// the register byte. Zero disables.
	NackAfter int

	mu      sync.Mutex
	data    [256]byte
	ptr     byte
	active  bool
	read    bool
	written int
	log     []string
}

// NewMem returns a device answering at addr.
func NewMem(addr uint16) *Mem {
	return &Mem{Addr: addr}
}

// Load copies b into the register file at reg.
func (m *Mem) Load(reg byte, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range b {
		m.data[reg+byte(i)] = v
	}
}

// Dump returns n bytes starting at reg.
func (m *Mem) Dump(reg byte, n int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = m.data[reg+byte(i)]
	}
	return out
}

// Log returns the transactions seen, one line each.
func (m *Mem) Log() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.log...)
}

// Start implements Target.
func (m *Mem) Start(addr uint16, read bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr != m.Addr {
		m.active = false
		return false
	}
	m.active = true
	m.read = read
	m.written = 0
	if read {
		m.log = append(m.log, fmt.Sprintf("R 0x%02x", m.ptr))
	}
	return true
}

// WriteByte implements Target.
func (m *Mem) WriteByte(b byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || m.read {
		return false
	}
	m.written++
	if m.NackAfter != 0 && m.written >= m.NackAfter {
		return false
	}
	if m.written == 1 {
		m.ptr = b
		m.log = append(m.log, fmt.Sprintf("W 0x%02x", b))
		return true
	}
	m.data[m.ptr] = b
	m.ptr++
	return true
}

// ReadByte implements Target.
func (m *Mem) ReadByte() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.data[m.ptr]
	m.ptr++
	return b
}

// Stop implements Target.
func (m *Mem) Stop() {
	m.mu.Lock()
	m.active = false
	m.mu.Unlock()
}

// Tx implements i2c.Bus.
func (m *Mem) Tx(addr uint16, w, r []byte) error {
	if len(w) != 0 || len(r) == 0 {
		if !m.Start(addr, false) {
			return ErrAddrNack
		}
		for _, b := range w {
			if !m.WriteByte(b) {
				m.Stop()
				return ErrDataNack
			}
		}
	}
	if len(r) != 0 {
		if !m.Start(addr, true) {
			return ErrAddrNack
		}
		for i := range r {
			r[i] = m.ReadByte()
		}
	}
	m.Stop()
	return nil
}

// SetSpeed implements i2c.Bus.
func (m *Mem) SetSpeed(f physic.Frequency) error {
	return nil
}

func (m *Mem) String() string {
	return fmt.Sprintf("Mem(0x%02x)", m.Addr)
}

var _ i2c.Bus = &Mem{}
var _ Target = &Mem{}
