// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nrftest

import (
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/nrfx/nrf"
	"github.com/GermanBionicSystems/nrfx/prs"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// TWIS simulates the EasyDMA slave. It is also an i2c.Bus: a master
// transaction sent through Tx raises WRITE/READ, waits for the slave driver
// to prepare buffers (the WRITE_SUSPEND and READ_SUSPEND shortcuts), moves
// the data and raises STOPPED.
//
// Events can also be injected directly with Raise for state machine tests.
type TWIS struct {
	block

	// Timeout bounds how long a master transaction waits for a PREPARE
	// task. Defaults to one second.
	Timeout time.Duration

	xfer     sync.Mutex
	cond     *sync.Cond
	mem      nrf.Memory
	maxCount int
	addrs    [2]uint16
	orc      byte
	match    int
	txBuf    []byte
	rxBuf    []byte
	txAmount int
	rxAmount int
	prepTX   bool
	prepRX   bool
}

// NewTWIS returns a slave block. box may be nil.
func NewTWIS(name string, box *prs.Box) *TWIS {
	s := &TWIS{mem: nrf.AllRAM, maxCount: 0xFFFF}
	s.init(name, box)
	s.cond = sync.NewCond(&s.mu)
	return s
}

// SetMemory replaces the memory map used by Memory.
func (s *TWIS) SetMemory(m nrf.Memory) {
	s.mem = m
}

// SetMaxCount sets the largest MAXCNT value.
func (s *TWIS) SetMaxCount(n int) {
	s.maxCount = n
}

// Memory implements nrf.EasyDMA.
func (s *TWIS) Memory() nrf.Memory {
	return s.mem
}

// MaxCount implements nrf.EasyDMA.
func (s *TWIS) MaxCount() int {
	return s.maxCount
}

// SetAddresses implements nrf.TWIS.
func (s *TWIS) SetAddresses(addr [2]uint16) {
	s.mu.Lock()
	s.addrs = addr
	s.mu.Unlock()
}

// Addresses returns the programmed addresses.
func (s *TWIS) Addresses() [2]uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addrs
}

// SetORC implements nrf.TWIS.
func (s *TWIS) SetORC(b byte) {
	s.mu.Lock()
	s.orc = b
	s.mu.Unlock()
}

// Match implements nrf.TWIS.
func (s *TWIS) Match() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match
}

// SetTxBuffer implements nrf.EasyDMA.
func (s *TWIS) SetTxBuffer(b []byte) {
	s.mu.Lock()
	s.txBuf = b
	s.mu.Unlock()
}

// SetRxBuffer implements nrf.EasyDMA.
func (s *TWIS) SetRxBuffer(b []byte) {
	s.mu.Lock()
	s.rxBuf = b
	s.mu.Unlock()
}

// TxAmount implements nrf.EasyDMA.
func (s *TWIS) TxAmount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txAmount
}

// RxAmount implements nrf.EasyDMA.
func (s *TWIS) RxAmount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rxAmount
}

// SetAmounts forces TXD.AMOUNT and RXD.AMOUNT, for use with Raise.
func (s *TWIS) SetAmounts(tx, rx int) {
	s.mu.Lock()
	s.txAmount, s.rxAmount = tx, rx
	s.mu.Unlock()
}

// Trigger implements nrf.Block.
func (s *TWIS) Trigger(task nrf.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskLocked(task)
	switch task {
	case nrf.TaskPrepareTX:
		s.prepTX = true
		s.cond.Broadcast()
	case nrf.TaskPrepareRX:
		s.prepRX = true
		s.cond.Broadcast()
	case nrf.TaskStop:
		s.raiseLocked(nrf.EventStopped)
	}
}

// Tx implements i2c.Bus from the point of view of a master on the bus.
func (s *TWIS) Tx(addr uint16, w, r []byte) error {
	s.xfer.Lock()
	defer s.xfer.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.txLocked(addr, w, r)
	s.trace.add(Record{Block: s.name, Kind: KindBus, Addr: addr, W: w, R: r, Err: err})
	return err
}

func (s *TWIS) txLocked(addr uint16, w, r []byte) error {
	slot := -1
	for i, a := range s.addrs {
		if a != 0 && a == addr {
			slot = i
		}
	}
	if !s.enabled || slot < 0 {
		return ErrAddrNack
	}
	s.match = slot
	if len(w) != 0 || len(r) == 0 {
		s.raiseLocked(nrf.EventWrite)
		if s.shorts&nrf.ShortWriteSuspend != 0 && !s.waitLocked(&s.prepRX) {
			return fmt.Errorf("%w: slave did not prepare an RX buffer", ErrDataNack)
		}
		s.prepRX = false
		s.raiseLocked(nrf.EventRxStarted)
		s.rxAmount = copy(s.rxBuf, w)
		if len(w) > len(s.rxBuf) {
			s.errorLocked(nrf.ErrorOverflow)
			s.raiseLocked(nrf.EventStopped)
			return ErrDataNack
		}
	}
	if len(r) != 0 {
		s.raiseLocked(nrf.EventRead)
		if s.shorts&nrf.ShortReadSuspend != 0 && !s.waitLocked(&s.prepTX) {
			return fmt.Errorf("%w: slave did not prepare a TX buffer", ErrDataNack)
		}
		s.prepTX = false
		s.raiseLocked(nrf.EventTxStarted)
		n := copy(r, s.txBuf)
		for i := n; i < len(r); i++ {
			r[i] = s.orc
		}
		s.txAmount = n
		if len(r) > len(s.txBuf) {
			s.errorLocked(nrf.ErrorOverread)
		}
	}
	s.raiseLocked(nrf.EventStopped)
	return nil
}

func (s *TWIS) waitLocked(flag *bool) bool {
	d := s.Timeout
	if d == 0 {
		d = time.Second
	}
	expired := false
	t := time.AfterFunc(d, func() {
		s.mu.Lock()
		expired = true
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer t.Stop()
	for !*flag && !expired {
		s.cond.Wait()
	}
	return *flag
}

// SetSpeed implements i2c.Bus.
func (s *TWIS) SetSpeed(f physic.Frequency) error {
	return nil
}

var _ nrf.TWIS = &TWIS{}
var _ i2c.Bus = &TWIS{}
